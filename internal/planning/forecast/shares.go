package forecast

import (
	"github.com/andresuchdata/vivero-po/internal/domain"
)

// SalesPoint is one historical sales amount of an article.
type SalesPoint struct {
	Code    string
	Section domain.Section
	Week    int
	Amount  float64
}

type weekKey struct {
	section domain.Section
	week    int
}

// HistoryShares splits section targets by what each article sold in the
// same week of the history. When the week has no history the whole history
// of the section is used, and a section with no history at all gets the
// full target per article.
type HistoryShares struct {
	byWeek        map[weekKey]map[string]float64
	weekTotals    map[weekKey]float64
	bySection     map[domain.Section]map[string]float64
	sectionTotals map[domain.Section]float64
}

// NewHistoryShares indexes sales history. Negative amounts (returns) are
// netted per article; articles whose net is not positive get no share.
func NewHistoryShares(points []SalesPoint) *HistoryShares {
	h := &HistoryShares{
		byWeek:        make(map[weekKey]map[string]float64),
		weekTotals:    make(map[weekKey]float64),
		bySection:     make(map[domain.Section]map[string]float64),
		sectionTotals: make(map[domain.Section]float64),
	}

	for _, p := range points {
		code := domain.NormalizeCode(p.Code)
		if code == "" || p.Section == "" {
			continue
		}
		k := weekKey{section: p.Section, week: p.Week}
		if h.byWeek[k] == nil {
			h.byWeek[k] = make(map[string]float64)
		}
		h.byWeek[k][code] += p.Amount

		if h.bySection[p.Section] == nil {
			h.bySection[p.Section] = make(map[string]float64)
		}
		h.bySection[p.Section][code] += p.Amount
	}

	for k, articles := range h.byWeek {
		h.weekTotals[k] = positiveTotal(articles)
	}
	for s, articles := range h.bySection {
		h.sectionTotals[s] = positiveTotal(articles)
	}
	return h
}

func positiveTotal(amounts map[string]float64) float64 {
	total := 0.0
	for _, v := range amounts {
		if v > 0 {
			total += v
		}
	}
	return total
}

// Share implements ShareProvider.
func (h *HistoryShares) Share(section domain.Section, week int, code string) float64 {
	k := weekKey{section: section, week: week}
	if total := h.weekTotals[k]; total > 0 {
		return clampShare(h.byWeek[k][code] / total)
	}
	if total := h.sectionTotals[section]; total > 0 {
		return clampShare(h.bySection[section][code] / total)
	}
	return 1.0
}

func clampShare(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
