package state

import (
	"sort"
	"time"

	"github.com/andresuchdata/vivero-po/internal/domain"
)

// SnapshotVersion is bumped when the persisted layout changes.
const SnapshotVersion = 1

// Snapshot is everything persisted between runs.
type Snapshot struct {
	Version    int                            `json:"version"`
	LastWeek   int                            `json:"last_week"`
	UpdatedAt  time.Time                      `json:"updated_at"`
	Articles   map[string]domain.ArticleState `json:"articles"`
	Executions []domain.ExecutionRecord       `json:"executions"`
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Version:  SnapshotVersion,
		Articles: make(map[string]domain.ArticleState),
	}
}

// Clone deep-copies the snapshot so a run can mutate it freely.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return NewSnapshot()
	}
	out := &Snapshot{
		Version:    s.Version,
		LastWeek:   s.LastWeek,
		UpdatedAt:  s.UpdatedAt,
		Articles:   make(map[string]domain.ArticleState, len(s.Articles)),
		Executions: make([]domain.ExecutionRecord, len(s.Executions)),
	}
	for k, v := range s.Articles {
		out.Articles[k] = v
	}
	copy(out.Executions, s.Executions)
	return out
}

// Codes returns the article codes in ascending order.
func (s *Snapshot) Codes() []string {
	codes := make([]string, 0, len(s.Articles))
	for code := range s.Articles {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// LastExecution returns the most recent execution record.
func (s *Snapshot) LastExecution() (domain.ExecutionRecord, bool) {
	if len(s.Executions) == 0 {
		return domain.ExecutionRecord{}, false
	}
	return s.Executions[len(s.Executions)-1], true
}

// LastSuccess returns the most recent successful execution record.
func (s *Snapshot) LastSuccess() (domain.ExecutionRecord, bool) {
	for i := len(s.Executions) - 1; i >= 0; i-- {
		if s.Executions[i].Success {
			return s.Executions[i], true
		}
	}
	return domain.ExecutionRecord{}, false
}

func (s *Snapshot) normalize() {
	if s.Articles == nil {
		s.Articles = make(map[string]domain.ArticleState)
	}
	if s.Version == 0 {
		s.Version = SnapshotVersion
	}
	sort.SliceStable(s.Executions, func(i, j int) bool {
		return s.Executions[i].StartedAt.Before(s.Executions[j].StartedAt)
	})
}
