package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vivero-po/internal/cache"
	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/ingest"
	"github.com/andresuchdata/vivero-po/internal/pipeline"
	"github.com/andresuchdata/vivero-po/internal/planning/abc"
	"github.com/andresuchdata/vivero-po/internal/state"
	"github.com/andresuchdata/vivero-po/internal/storage"
)

// ErrArticleNotFound is returned when the state has no entry for a code.
var ErrArticleNotFound = errors.New("article not found")

// DefaultExecutionLimit caps the history returned when no limit is given.
const DefaultExecutionLimit = 20

// Runner is the weekly run, implemented by pipeline.Runner.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// ClassificationWriter persists an ABC classification.
type ClassificationWriter interface {
	WriteClassification(section domain.Section, rows []abc.Classification) (string, error)
}

// PlanningService joins the state store, the status cache, the runner and
// the optional object storage for the CLI and the HTTP server.
type PlanningService struct {
	store      state.Store
	cache      cache.StatusCache
	runner     Runner
	uploads    storage.ObjectStorage
	prefix     string
	yearLength int
}

// NewPlanningService creates the service. runner and uploads may be nil
// for read-only surfaces.
func NewPlanningService(store state.Store, statusCache cache.StatusCache, runner Runner, yearLength int) *PlanningService {
	if statusCache == nil {
		statusCache = cache.NewNoopStatusCache()
	}
	return &PlanningService{
		store:      store,
		cache:      statusCache,
		runner:     runner,
		yearLength: yearLength,
	}
}

// WithUploads sends the files of every run to store under prefix.
func (s *PlanningService) WithUploads(store storage.ObjectStorage, prefix string) *PlanningService {
	s.uploads = store
	s.prefix = prefix
	return s
}

// RunOptions extends a pipeline request with the service side effects.
type RunOptions struct {
	pipeline.Request
	Upload bool
}

// Run executes a weekly run. The cached status is dropped whatever the
// outcome, since failed runs are recorded too. An upload failure returns
// the committed result together with the error.
func (s *PlanningService) Run(ctx context.Context, opts RunOptions) (*pipeline.Result, error) {
	if s.runner == nil {
		return nil, errors.New("planning runner not configured")
	}

	result, err := s.runner.Run(ctx, opts.Request)
	s.invalidate(ctx)
	if err != nil {
		return nil, err
	}

	if opts.Upload {
		if s.uploads == nil {
			return result, errors.New("object storage not configured")
		}
		prefix := path.Join(s.prefix, fmt.Sprintf("semana_%02d", result.Week)) + "/"
		keys, err := storage.UploadFiles(ctx, s.uploads, prefix, result.Files)
		if err != nil {
			return result, fmt.Errorf("upload reports: %w", err)
		}
		log.Info().Int("week", result.Week).Int("files", len(keys)).Str("prefix", prefix).Msg("reports uploaded")
	}
	return result, nil
}

// Status summarises the persisted state, from cache when possible.
func (s *PlanningService) Status(ctx context.Context) (*state.Status, error) {
	if cached, ok, err := s.cache.GetStatus(ctx); err != nil {
		log.Warn().Err(err).Msg("status cache read failed")
	} else if ok {
		return cached, nil
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	st := state.BuildStatus(snap, s.yearLength)

	if err := s.cache.SetStatus(ctx, &st); err != nil {
		log.Warn().Err(err).Msg("status cache write failed")
	}
	return &st, nil
}

// Executions returns the latest run records, newest first.
func (s *PlanningService) Executions(ctx context.Context, limit int) ([]domain.ExecutionRecord, error) {
	if limit <= 0 {
		limit = DefaultExecutionLimit
	}

	if cached, ok, err := s.cache.GetExecutions(ctx, limit); err != nil {
		log.Warn().Err(err).Msg("executions cache read failed")
	} else if ok {
		return cached, nil
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]domain.ExecutionRecord, 0, limit)
	for i := len(snap.Executions) - 1; i >= 0 && len(records) < limit; i-- {
		records = append(records, snap.Executions[i])
	}

	if err := s.cache.SetExecutions(ctx, limit, records); err != nil {
		log.Warn().Err(err).Msg("executions cache write failed")
	}
	return records, nil
}

// Article returns the accumulated state of one article.
func (s *PlanningService) Article(ctx context.Context, code string) (domain.ArticleState, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return domain.ArticleState{}, err
	}
	st, ok := snap.Articles[domain.NormalizeCode(code)]
	if !ok {
		return domain.ArticleState{}, fmt.Errorf("%w: %s", ErrArticleNotFound, code)
	}
	return st, nil
}

// Reset clears the accumulated state and its cached views.
func (s *PlanningService) Reset(ctx context.Context) error {
	acc, err := state.Load(ctx, s.store, s.yearLength)
	if err != nil {
		return err
	}
	if err := acc.Reset(ctx); err != nil {
		return fmt.Errorf("reset state: %w", err)
	}
	s.invalidate(ctx)
	log.Warn().Msg("planning state reset")
	return nil
}

func (s *PlanningService) snapshot(ctx context.Context) (*state.Snapshot, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if snap == nil {
		snap = state.NewSnapshot()
	}
	return snap, nil
}

func (s *PlanningService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("status cache invalidation failed")
	}
}

// ClassifyRequest names the sales files of the current and prior periods.
// Prior is optional.
type ClassifyRequest struct {
	Section         domain.Section
	SalesPath       string
	PriorPath       string
	Thresholds      abc.Thresholds
	LivePetFamilies []string
}

// Classify builds the ABC classification of a section from sales history
// files and writes it with w when w is not nil.
func Classify(req ClassifyRequest, w ClassificationWriter) ([]abc.Classification, string, error) {
	current, err := sectionSales(req.SalesPath, req.Section, req.LivePetFamilies)
	if err != nil {
		return nil, "", err
	}
	var prior []abc.ArticleSales
	if req.PriorPath != "" {
		if prior, err = sectionSales(req.PriorPath, req.Section, req.LivePetFamilies); err != nil {
			return nil, "", err
		}
	}
	if len(current) == 0 {
		return nil, "", fmt.Errorf("no sales for section %s in %s", req.Section, req.SalesPath)
	}

	rows := abc.Classify(req.Section, current, prior, req.Thresholds)
	if w == nil {
		return rows, "", nil
	}
	out, err := w.WriteClassification(req.Section, rows)
	if err != nil {
		return nil, "", err
	}
	return rows, out, nil
}

func sectionSales(path string, section domain.Section, livePetFamilies []string) ([]abc.ArticleSales, error) {
	records, err := ingest.ReadSalesHistory(path, livePetFamilies)
	if err != nil {
		return nil, err
	}
	out := make([]abc.ArticleSales, 0, len(records))
	for _, r := range records {
		if r.Section != section {
			continue
		}
		out = append(out, abc.ArticleSales{Code: r.Code, Amount: r.Amount})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
