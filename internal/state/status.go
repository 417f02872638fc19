package state

import (
	"time"

	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/planning/calendar"
)

// Status is a read-only view of the persisted state.
type Status struct {
	LastWeek       int                     `json:"last_week"`
	NextWeek       int                     `json:"next_week,omitempty"`
	UpdatedAt      time.Time               `json:"updated_at"`
	Articles       int                     `json:"articles"`
	TotalStock     float64                 `json:"total_stock"`
	TotalOrdered   float64                 `json:"total_ordered"`
	Runs           int                     `json:"runs"`
	FailedRuns     int                     `json:"failed_runs"`
	LastExecution  *domain.ExecutionRecord `json:"last_execution,omitempty"`
	LastSuccessful *domain.ExecutionRecord `json:"last_successful,omitempty"`
}

// BuildStatus summarises a snapshot.
func BuildStatus(snap *Snapshot, yearLength int) Status {
	st := Status{
		LastWeek:  snap.LastWeek,
		UpdatedAt: snap.UpdatedAt,
		Articles:  len(snap.Articles),
		Runs:      len(snap.Executions),
	}
	if snap.LastWeek > 0 {
		st.NextWeek = calendar.NextWeek(snap.LastWeek, yearLength)
	}
	for _, a := range snap.Articles {
		st.TotalStock += a.Stock
		st.TotalOrdered += a.TotalOrdered
	}
	for _, e := range snap.Executions {
		if !e.Success {
			st.FailedRuns++
		}
	}
	if last, ok := snap.LastExecution(); ok {
		st.LastExecution = &last
	}
	if last, ok := snap.LastSuccess(); ok {
		st.LastSuccessful = &last
	}
	return st
}
