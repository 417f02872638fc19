package forecast

import (
	"math"

	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/planning/abc"
	"github.com/andresuchdata/vivero-po/internal/planning/numeric"
)

// TargetSource resolves week dependent settings.
type TargetSource interface {
	Target(section domain.Section, week int) (float64, error)
	HolidayFactor(week int) float64
}

// StockReader exposes the accumulated stock of an article.
type StockReader interface {
	GetStock(code string) float64
}

// ShareProvider returns the part of a section target that belongs to an
// article, in [0, 1].
type ShareProvider interface {
	Share(section domain.Section, week int, code string) float64
}

// FullShare gives every article the whole section target.
type FullShare struct{}

func (FullShare) Share(domain.Section, int, string) float64 { return 1.0 }

// Result carries the order and every intermediate value that produced it.
type Result struct {
	Target           float64
	HolidayFactor    float64
	AdjustedTarget   float64
	Weight           float64
	Share            float64
	ActionFactor     float64
	Demand           float64
	DemandUnits      float64
	Coverage         float64
	MinStock         float64
	AccumulatedStock float64
	// RawOrder is the order before clamping and rounding.
	RawOrder         float64
	TheoreticalOrder int
}

// Engine computes theoretical orders from targets, the ABC policy and the
// accumulated stock.
type Engine struct {
	targets TargetSource
	policy  abc.Policy
	growth  float64
	stock   StockReader
	shares  ShareProvider
}

// NewEngine creates a forecast engine. A nil shares provider gives every
// article the full section target.
func NewEngine(targets TargetSource, policy abc.Policy, growthRate float64, stock StockReader, shares ShareProvider) *Engine {
	if shares == nil {
		shares = FullShare{}
	}
	return &Engine{
		targets: targets,
		policy:  policy,
		growth:  growthRate,
		stock:   stock,
		shares:  shares,
	}
}

// ComputeTheoreticalOrder returns the units to order for article in week.
// Values are kept as floats until the last step; only the final order is
// clamped at zero and rounded half-up.
func (e *Engine) ComputeTheoreticalOrder(article domain.Article, section domain.Section, week int) (Result, error) {
	res := Result{}

	// 1. Weekly target of the section
	target, err := e.targets.Target(section, week)
	if err != nil {
		return res, err
	}
	res.Target = target

	// 2. Holiday adjustment
	res.HolidayFactor = e.targets.HolidayFactor(week)
	adjusted := target * res.HolidayFactor

	// 3. Growth, always after the holiday factor
	adjusted *= 1 + e.growth
	res.AdjustedTarget = adjusted

	// 4. Category weight, article share and suggested action
	weight, err := e.policy.Weight(article.Category)
	if err != nil {
		return res, err
	}
	res.Weight = weight
	res.Share = e.shares.Share(section, week, article.Code)
	res.ActionFactor = abc.ActionFactor(article.Action)
	res.Demand = adjusted * weight * res.Share * res.ActionFactor

	// 5. Money to units
	if article.UnitPrice <= 0 || math.IsNaN(article.UnitPrice) {
		return res, &domain.InvalidPriceError{ArticleCode: article.Code, Price: article.UnitPrice}
	}
	res.DemandUnits = res.Demand / article.UnitPrice

	// 6. Minimum stock = demand units × coverage weeks
	coverage, err := e.policy.CoverageWeeks(article.Category)
	if err != nil {
		return res, err
	}
	res.Coverage = coverage
	res.MinStock = res.DemandUnits * coverage

	// 7. Order = demand - stock on hand + minimum stock
	if e.stock != nil {
		res.AccumulatedStock = e.stock.GetStock(article.Code)
	}
	res.RawOrder = res.DemandUnits - res.AccumulatedStock + res.MinStock
	res.TheoreticalOrder = numeric.RoundHalfUp(math.Max(0, res.RawOrder))

	return res, nil
}
