package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/service"
	"github.com/andresuchdata/vivero-po/internal/state"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, *state.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	store := state.NewMemoryStore()

	acc, err := state.Load(ctx, store, 52)
	require.NoError(t, err)
	require.NoError(t, acc.Advance("8000000001", 10, 3, 20))
	acc.RecordOrder("8000000001", 12)
	require.NoError(t, acc.Commit(ctx, 10, domain.ExecutionRecord{
		ID:        "run-1",
		Week:      10,
		Success:   true,
		StartedAt: time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC),
	}))

	svc := service.NewPlanningService(store, nil, nil, 52)
	return NewRouter(&Services{Planning: svc}, []string{"*"}), store
}

func do(router *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	w := do(router, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGetStatus(t *testing.T) {
	router, _ := newTestRouter(t)
	w := do(router, http.MethodGet, "/api/v1/status")
	require.Equal(t, http.StatusOK, w.Code)

	var st state.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, 10, st.LastWeek)
	assert.Equal(t, 11, st.NextWeek)
	assert.Equal(t, 1, st.Articles)
	assert.Equal(t, 17.0, st.TotalStock)
}

func TestGetExecutions(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(router, http.MethodGet, "/api/v1/executions?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data  []domain.ExecutionRecord `json:"data"`
		Count int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "run-1", body.Data[0].ID)

	w = do(router, http.MethodGet, "/api/v1/executions?limit=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetArticle(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(router, http.MethodGet, "/api/v1/articles/8000000001")
	require.Equal(t, http.StatusOK, w.Code)
	var article domain.ArticleState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &article))
	assert.Equal(t, 17.0, article.Stock)
	assert.Equal(t, 12, article.LastOrder)

	w = do(router, http.MethodGet, "/api/v1/articles/9999999999")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResetNeedsConfirmation(t *testing.T) {
	router, store := newTestRouter(t)

	w := do(router, http.MethodPost, "/api/v1/state/reset")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Articles, 1)

	w = do(router, http.MethodPost, "/api/v1/state/reset?confirm=true")
	assert.Equal(t, http.StatusOK, w.Code)
	snap, err = store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Articles)
	assert.Empty(t, snap.Executions)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	assert.False(t, all)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, origins)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}
