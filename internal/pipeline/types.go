package pipeline

import (
	"fmt"
	"time"

	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/planning/calendar"
	"github.com/andresuchdata/vivero-po/internal/planning/correction"
)

// Request selects what a run processes.
type Request struct {
	// Week to process. Zero means the week after the last processed one.
	Week int
	// Force reprocesses a week out of sequence.
	Force bool
	// SkipCorrection emits theoretical orders only.
	SkipCorrection bool
}

// Advisories collects the non-fatal problems of a run.
type Advisories []string

// Add appends a formatted advisory.
func (a *Advisories) Add(format string, args ...interface{}) {
	*a = append(*a, fmt.Sprintf(format, args...))
}

// Result is the outcome of a successful run.
type Result struct {
	RunID    string
	Week     int
	Period   calendar.PeriodID
	Monday   time.Time
	Forced   bool
	Lines    []domain.OrderLine
	Excluded []domain.OrderLine
	// Sections holds the totals of every active section, even empty ones.
	Sections   map[domain.Section]domain.SectionTotals
	Metrics    correction.Metrics
	Advisories Advisories
	Files      []string
}

// LinesFor returns the order lines of one section.
func (r *Result) LinesFor(section domain.Section) []domain.OrderLine {
	var out []domain.OrderLine
	for _, l := range r.Lines {
		if l.Article.Section == section {
			out = append(out, l)
		}
	}
	return out
}

// RunStatus represents the state of a run in the logs.
type RunStatus string

const (
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)
