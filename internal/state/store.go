package state

import (
	"context"
	"sync"

	"github.com/andresuchdata/vivero-po/internal/domain"
)

// Store persists snapshots. Save replaces the article positions atomically;
// AppendExecution only touches the run history and is used to log runs that
// failed before anything could be committed.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	AppendExecution(ctx context.Context, record domain.ExecutionRecord) error
	Reset(ctx context.Context) error
	Close() error
}

// MemoryStore keeps the snapshot in process. Used in tests and dry runs.
type MemoryStore struct {
	mu    sync.Mutex
	snap  *Snapshot
	saves int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snap: NewSnapshot()}
}

func (m *MemoryStore) Load(_ context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap.Clone()
	m.snap.normalize()
	m.saves++
	return nil
}

func (m *MemoryStore) AppendExecution(_ context.Context, record domain.ExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Executions = append(m.snap.Executions, record)
	return nil
}

func (m *MemoryStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = NewSnapshot()
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Saves reports how many times Save was called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
