package abc

import (
	"fmt"
	"sort"

	"github.com/andresuchdata/vivero-po/internal/domain"
)

// shareEpsilon keeps an article sitting exactly on a threshold in the
// better class despite float accumulation in the running share.
const shareEpsilon = 1e-9

// Thresholds are cumulative sales shares, in percent, closing classes A, B
// and C. Everything above C is D.
type Thresholds struct {
	A float64 `mapstructure:"a" json:"a"`
	B float64 `mapstructure:"b" json:"b"`
	C float64 `mapstructure:"c" json:"c"`
}

// DefaultThresholds is the 80/95/99 split.
func DefaultThresholds() Thresholds {
	return Thresholds{A: 80, B: 95, C: 99}
}

// Validate requires 0 < A <= B <= C <= 100.
func (t Thresholds) Validate() error {
	if t.A <= 0 || t.A > t.B || t.B > t.C || t.C > 100 {
		return &domain.ConfigError{
			Key:    "abc_thresholds",
			Reason: fmt.Sprintf("expected 0 < A <= B <= C <= 100, got %.2f/%.2f/%.2f", t.A, t.B, t.C),
		}
	}
	return nil
}

func (t Thresholds) category(cumulative float64) domain.Category {
	switch {
	case cumulative <= t.A+shareEpsilon:
		return domain.CategoryA
	case cumulative <= t.B+shareEpsilon:
		return domain.CategoryB
	case cumulative <= t.C+shareEpsilon:
		return domain.CategoryC
	default:
		return domain.CategoryD
	}
}

// ArticleSales is the sales amount of one article over a period.
type ArticleSales struct {
	Code   string
	Name   string
	Amount float64
}

// Classification is the ABC class assigned to one article.
type Classification struct {
	Code            string          `json:"code"`
	Name            string          `json:"name,omitempty"`
	Section         domain.Section  `json:"section"`
	Category        domain.Category `json:"category"`
	Sales           float64         `json:"sales"`
	PriorSales      float64         `json:"prior_sales"`
	Share           float64         `json:"share"`
	CumulativeShare float64         `json:"cumulative_share"`
	// Variation is the percent change against the prior period, 0 when the
	// article did not sell in the prior period.
	Variation float64 `json:"variation"`
}

// Classify ranks the articles of one section by sales and assigns classes by
// cumulative share of the section total. Articles with no sales are D.
// Ties are broken by article code so the result is deterministic.
func Classify(section domain.Section, current, prior []ArticleSales, t Thresholds) []Classification {
	sales := aggregate(current)
	priorSales := aggregate(prior)

	rows := make([]Classification, 0, len(sales))
	total := 0.0
	for code, s := range sales {
		rows = append(rows, Classification{
			Code:       code,
			Name:       s.Name,
			Section:    section,
			Sales:      s.Amount,
			PriorSales: priorSales[code].Amount,
		})
		if s.Amount > 0 {
			total += s.Amount
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Sales != rows[j].Sales {
			return rows[i].Sales > rows[j].Sales
		}
		return rows[i].Code < rows[j].Code
	})

	cumulative := 0.0
	for i := range rows {
		r := &rows[i]
		if r.PriorSales > 0 {
			r.Variation = (r.Sales - r.PriorSales) / r.PriorSales * 100
		}
		if r.Sales <= 0 || total <= 0 {
			r.Category = domain.CategoryD
			r.CumulativeShare = cumulative
			continue
		}
		r.Share = r.Sales / total * 100
		cumulative += r.Share
		r.CumulativeShare = cumulative
		r.Category = t.category(cumulative)
	}

	return rows
}

func aggregate(in []ArticleSales) map[string]ArticleSales {
	out := make(map[string]ArticleSales, len(in))
	for _, s := range in {
		code := domain.NormalizeCode(s.Code)
		if code == "" {
			continue
		}
		agg := out[code]
		agg.Code = code
		agg.Amount += s.Amount
		if agg.Name == "" {
			agg.Name = s.Name
		}
		out[code] = agg
	}
	return out
}

// Counts returns the number of articles per class.
func Counts(rows []Classification) map[domain.Category]int {
	out := make(map[domain.Category]int, len(domain.Categories))
	for _, r := range rows {
		out[r.Category]++
	}
	return out
}
