package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/pipeline"
	"github.com/andresuchdata/vivero-po/internal/planning/abc"
	"github.com/andresuchdata/vivero-po/internal/state"
	"github.com/andresuchdata/vivero-po/internal/storage"
)

type stubRunner struct {
	result *pipeline.Result
	err    error
	calls  int
}

func (r *stubRunner) Run(_ context.Context, _ pipeline.Request) (*pipeline.Result, error) {
	r.calls++
	return r.result, r.err
}

// countingCache remembers the status like a real cache would.
type countingCache struct {
	status      *state.Status
	executions  map[int][]domain.ExecutionRecord
	statusGets  int
	invalidated int
}

func newCountingCache() *countingCache {
	return &countingCache{executions: map[int][]domain.ExecutionRecord{}}
}

func (c *countingCache) GetStatus(_ context.Context) (*state.Status, bool, error) {
	c.statusGets++
	return c.status, c.status != nil, nil
}

func (c *countingCache) SetStatus(_ context.Context, status *state.Status) error {
	c.status = status
	return nil
}

func (c *countingCache) GetExecutions(_ context.Context, limit int) ([]domain.ExecutionRecord, bool, error) {
	records, ok := c.executions[limit]
	return records, ok, nil
}

func (c *countingCache) SetExecutions(_ context.Context, limit int, records []domain.ExecutionRecord) error {
	c.executions[limit] = records
	return nil
}

func (c *countingCache) InvalidateAll(_ context.Context) error {
	c.invalidated++
	c.status = nil
	c.executions = map[int][]domain.ExecutionRecord{}
	return nil
}

func (c *countingCache) Close() error {
	return nil
}

type memoryUploads struct {
	objects map[string][]byte
	fail    bool
}

func (m *memoryUploads) ListObjects(_ context.Context, _ string) ([]storage.ObjectInfo, error) {
	return nil, nil
}

func (m *memoryUploads) DownloadObject(_ context.Context, _, _ string) error {
	return nil
}

func (m *memoryUploads) UploadObject(_ context.Context, key string, data []byte) error {
	if m.fail {
		return errors.New("bucket unavailable")
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return nil
}

func seededStore(t *testing.T) *state.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := state.NewMemoryStore()

	acc, err := state.Load(ctx, store, 52)
	require.NoError(t, err)
	require.NoError(t, acc.Advance("8000000001", 10, 2, 10))
	acc.RecordOrder("8000000001", 5)
	started := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	require.NoError(t, acc.Commit(ctx, 10, domain.ExecutionRecord{ID: "run-1", Week: 10, Success: true, StartedAt: started}))
	require.NoError(t, store.AppendExecution(ctx, domain.ExecutionRecord{ID: "run-2", Week: 12, StartedAt: started.Add(time.Hour)}))
	return store
}

func TestStatusUsesCache(t *testing.T) {
	ctx := context.Background()
	c := newCountingCache()
	svc := NewPlanningService(seededStore(t), c, nil, 52)

	st, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, st.LastWeek)
	assert.Equal(t, 11, st.NextWeek)
	assert.Equal(t, 1, st.Articles)
	assert.Equal(t, 8.0, st.TotalStock)
	assert.Equal(t, 2, st.Runs)
	assert.Equal(t, 1, st.FailedRuns)

	require.NotNil(t, c.status)
	again, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Same(t, c.status, again)
}

func TestExecutionsNewestFirst(t *testing.T) {
	svc := NewPlanningService(seededStore(t), nil, nil, 52)

	records, err := svc.Executions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "run-2", records[0].ID)
	assert.Equal(t, "run-1", records[1].ID)

	records, err = svc.Executions(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "run-2", records[0].ID)
}

func TestArticle(t *testing.T) {
	svc := NewPlanningService(seededStore(t), nil, nil, 52)

	st, err := svc.Article(context.Background(), "8000000001")
	require.NoError(t, err)
	assert.Equal(t, 8.0, st.Stock)
	assert.Equal(t, 5, st.LastOrder)

	_, err = svc.Article(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrArticleNotFound)
}

func TestResetClearsStateAndCache(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	c := newCountingCache()
	svc := NewPlanningService(store, c, nil, 52)

	_, err := svc.Status(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Reset(ctx))
	assert.Equal(t, 1, c.invalidated)
	assert.Nil(t, c.status)

	st, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.LastWeek)
	assert.Equal(t, 0, st.Articles)
	assert.Equal(t, 0, st.Runs)
}

func TestRunInvalidatesEvenOnFailure(t *testing.T) {
	c := newCountingCache()
	runner := &stubRunner{err: errors.New("bad week")}
	svc := NewPlanningService(state.NewMemoryStore(), c, runner, 52)

	_, err := svc.Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, 1, c.invalidated)
}

func TestRunUploadsReports(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "pedido_semana_11_vivero_2025-03-10.csv")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	uploads := &memoryUploads{}
	runner := &stubRunner{result: &pipeline.Result{Week: 11, Files: []string{file}}}
	svc := NewPlanningService(state.NewMemoryStore(), nil, runner, 52).WithUploads(uploads, "pedidos")

	res, err := svc.Run(context.Background(), RunOptions{Upload: true})
	require.NoError(t, err)
	assert.Equal(t, 11, res.Week)
	assert.Contains(t, uploads.objects, "pedidos/semana_11/pedido_semana_11_vivero_2025-03-10.csv")
}

func TestRunUploadFailureKeepsResult(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	runner := &stubRunner{result: &pipeline.Result{Week: 11, Files: []string{file}}}
	svc := NewPlanningService(state.NewMemoryStore(), nil, runner, 52).WithUploads(&memoryUploads{fail: true}, "")

	res, err := svc.Run(context.Background(), RunOptions{Upload: true})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 11, res.Week)
}

func TestRunWithoutRunner(t *testing.T) {
	svc := NewPlanningService(state.NewMemoryStore(), nil, nil, 52)
	_, err := svc.Run(context.Background(), RunOptions{})
	assert.Error(t, err)
}

type recordingWriter struct {
	section domain.Section
	rows    []abc.Classification
}

func (w *recordingWriter) WriteClassification(section domain.Section, rows []abc.Classification) (string, error) {
	w.section = section
	w.rows = rows
	return "abc.xlsx", nil
}

func TestClassify(t *testing.T) {
	dir := t.TempDir()
	sales := filepath.Join(dir, "ventas.csv")
	require.NoError(t, os.WriteFile(sales, []byte(
		"codigo;fecha;cantidad;importe;seccion\n"+
			"8000000001;03/03/2025;10;500;vivero\n"+
			"8000000001;04/03/2025;6;300;vivero\n"+
			"8000000002;03/03/2025;3;150;vivero\n"+
			"8000000003;03/03/2025;1;50;vivero\n"+
			"8000000004;03/03/2025;0;0;vivero\n"+
			"1000000001;03/03/2025;5;999;interior\n",
	), 0644))
	prior := filepath.Join(dir, "ventas_prev.csv")
	require.NoError(t, os.WriteFile(prior, []byte(
		"codigo;fecha;importe\n"+
			"8000000001;03/03/2024;400\n",
	), 0644))

	w := &recordingWriter{}
	rows, out, err := Classify(ClassifyRequest{
		Section:    domain.SectionNursery,
		SalesPath:  sales,
		PriorPath:  prior,
		Thresholds: abc.DefaultThresholds(),
	}, w)
	require.NoError(t, err)
	assert.Equal(t, "abc.xlsx", out)
	assert.Equal(t, domain.SectionNursery, w.section)
	require.Len(t, rows, 4)

	byCode := map[string]abc.Classification{}
	for _, r := range rows {
		byCode[r.Code] = r
	}
	assert.Equal(t, domain.CategoryA, byCode["8000000001"].Category)
	assert.InDelta(t, 100.0, byCode["8000000001"].Variation, 1e-9)
	assert.Equal(t, domain.CategoryB, byCode["8000000002"].Category)
	assert.Equal(t, domain.CategoryD, byCode["8000000003"].Category)
	assert.Equal(t, domain.CategoryD, byCode["8000000004"].Category)
}

func TestClassifyEmptySection(t *testing.T) {
	dir := t.TempDir()
	sales := filepath.Join(dir, "ventas.csv")
	require.NoError(t, os.WriteFile(sales, []byte("codigo;fecha;importe\n1000000001;03/03/2025;10\n"), 0644))

	_, _, err := Classify(ClassifyRequest{Section: domain.SectionNursery, SalesPath: sales, Thresholds: abc.DefaultThresholds()}, nil)
	assert.Error(t, err)
}
