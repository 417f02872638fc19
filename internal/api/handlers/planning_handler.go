package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vivero-po/internal/service"
)

const maxExecutionLimit = 500

type PlanningHandler struct {
	service *service.PlanningService
}

func NewPlanningHandler(service *service.PlanningService) *PlanningHandler {
	return &PlanningHandler{service: service}
}

// GetStatus godoc
// GET /api/v1/status
func (h *PlanningHandler) GetStatus(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to load status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetExecutions returns the latest runs, newest first. ?limit= caps the list.
func (h *PlanningHandler) GetExecutions(c *gin.Context) {
	limit := service.DefaultExecutionLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		if n > maxExecutionLimit {
			n = maxExecutionLimit
		}
		limit = n
	}

	records, err := h.service.Executions(c.Request.Context(), limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to load executions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records, "count": len(records)})
}

func (h *PlanningHandler) GetArticle(c *gin.Context) {
	code := c.Param("code")
	article, err := h.service.Article(c.Request.Context(), code)
	if errors.Is(err, service.ErrArticleNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to load article", err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// ResetState clears every article position and the run history. It needs
// ?confirm=true.
func (h *PlanningHandler) ResetState(c *gin.Context) {
	if confirm, _ := strconv.ParseBool(c.Query("confirm")); !confirm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reset needs confirm=true"})
		return
	}
	if err := h.service.Reset(c.Request.Context()); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to reset state", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func errorResponse(c *gin.Context, statusCode int, message string, err error) {
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
}
