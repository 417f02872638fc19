package correction

import (
	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/planning/numeric"
)

// Metrics summarises the correction pass of a run.
type Metrics struct {
	Articles         int                      `json:"articles"`
	Corrected        int                      `json:"corrected"`
	Increased        int                      `json:"increased"`
	Reduced          int                      `json:"reduced"`
	Unchanged        int                      `json:"unchanged"`
	TheoreticalUnits int                      `json:"theoretical_units"`
	FinalUnits       int                      `json:"final_units"`
	UnitDifference   int                      `json:"unit_difference"`
	PercentChange    float64                  `json:"percent_change"`
	RealSalesUnits   float64                  `json:"real_sales_units"`
	TargetSalesUnits float64                  `json:"target_sales_units"`
	Precision        float64                  `json:"forecast_precision"`
	TrendAdjusted    int                      `json:"trend_adjusted"`
	TrendUnits       int                      `json:"trend_units"`
	Scenarios        map[string]int           `json:"scenarios"`
	Alerts           map[domain.AlertCode]int `json:"alerts"`
}

// Summarize aggregates order lines. Lines without correction only count
// towards Articles and the unit totals.
func Summarize(lines []domain.OrderLine) Metrics {
	m := Metrics{
		Scenarios: make(map[string]int),
		Alerts:    make(map[domain.AlertCode]int),
	}

	for _, l := range lines {
		m.Articles++
		m.TheoreticalUnits += l.TheoreticalOrder
		m.FinalUnits += l.FinalOrder

		if !l.Corrected {
			continue
		}
		m.Corrected++
		switch {
		case l.FinalOrder > l.TheoreticalOrder:
			m.Increased++
		case l.FinalOrder < l.TheoreticalOrder:
			m.Reduced++
		default:
			m.Unchanged++
		}
		if l.TrendIncrement > 0 {
			m.TrendAdjusted++
			m.TrendUnits += l.TrendIncrement
		}
		m.RealSalesUnits += l.RealSales
		m.TargetSalesUnits += l.DemandUnits
		if l.Scenario != "" {
			m.Scenarios[l.Scenario]++
		}
		for _, a := range l.Alerts {
			m.Alerts[a]++
		}
	}

	m.UnitDifference = m.FinalUnits - m.TheoreticalUnits
	if m.TheoreticalUnits > 0 {
		m.PercentChange = numeric.Round(float64(m.UnitDifference)/float64(m.TheoreticalUnits)*100, 2)
	}
	if m.TargetSalesUnits > 0 {
		m.Precision = numeric.Round(m.RealSalesUnits/m.TargetSalesUnits*100, 2)
	}
	return m
}
