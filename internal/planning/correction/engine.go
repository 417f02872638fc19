package correction

import (
	"fmt"
	"math"

	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/planning/abc"
	"github.com/andresuchdata/vivero-po/internal/planning/numeric"
)

// Config holds the correction settings.
type Config struct {
	// AllowNegativeOrders passes negative corrected orders through as a
	// return signal instead of clamping them at zero.
	AllowNegativeOrders bool `mapstructure:"allow_negative_orders" json:"allow_negative_orders"`
	// Tolerances are fractions of the reference value (0.05 = ±5%). Zero
	// means exact equality.
	SalesTolerance    float64 `mapstructure:"sales_tolerance" json:"sales_tolerance"`
	PurchaseTolerance float64 `mapstructure:"purchase_tolerance" json:"purchase_tolerance"`
	StockTolerance    float64 `mapstructure:"stock_tolerance" json:"stock_tolerance"`
	// SignificantChange is the relative change between theoretical and
	// corrected order above which CAMBIOS_SIGNIFICATIVOS is raised.
	SignificantChange float64 `mapstructure:"significant_change" json:"significant_change"`
	// LowStock raises STOCK_BAJO when 0 < real stock <= LowStock. Zero disables it.
	LowStock        float64 `mapstructure:"low_stock" json:"low_stock"`
	ApplySalesTrend bool    `mapstructure:"apply_sales_trend" json:"apply_sales_trend"`
}

// DefaultConfig clamps at zero and compares exactly.
func DefaultConfig() Config {
	return Config{SignificantChange: 0.5}
}

// Validate rejects negative tolerances and thresholds.
func (c Config) Validate() error {
	checks := map[string]float64{
		"correction.sales_tolerance":    c.SalesTolerance,
		"correction.purchase_tolerance": c.PurchaseTolerance,
		"correction.stock_tolerance":    c.StockTolerance,
		"correction.significant_change": c.SignificantChange,
		"correction.low_stock":          c.LowStock,
	}
	for key, v := range checks {
		if v < 0 {
			return &domain.ConfigError{Key: key, Reason: fmt.Sprintf("negative value %.2f", v)}
		}
	}
	return nil
}

// Input is what the store reported for one article in the closing week.
type Input struct {
	Article          domain.Article
	TheoreticalOrder int
	// TargetSales is the planned weekly sales in units.
	TargetSales float64
	// SuggestedPurchases is the order suggested for the closing week, the
	// quantity the received purchases are compared with.
	SuggestedPurchases float64
	RealStock          float64
	RealSales          float64
	RealPurchases      float64
}

// Result is the corrected order with its diagnosis.
type Result struct {
	StockMinTarget float64
	StockGap       float64
	CorrectedOrder int
	TrendIncrement int
	FinalOrder     int
	Scenario       Scenario
	Reason         string
	Explanation    string
	Alerts         []domain.AlertCode
}

// Engine reconciles theoretical orders with what really happened in store.
type Engine struct {
	policy abc.Policy
	cfg    Config
}

// NewEngine creates a correction engine.
func NewEngine(policy abc.Policy, cfg Config) *Engine {
	return &Engine{policy: policy, cfg: cfg}
}

// CorrectOrder applies the stock correction. The result depends only on
// the input, so calling it twice gives the same answer.
func (e *Engine) CorrectOrder(in Input) (Result, error) {
	res := Result{}

	coverage, err := e.policy.CoverageWeeks(in.Article.Category)
	if err != nil {
		return res, err
	}

	// 1. Minimum stock the store should hold after the week
	res.StockMinTarget = coverage * in.TargetSales

	// 2. Gap between that minimum and what is really on the shelf
	res.StockGap = res.StockMinTarget - in.RealStock

	// 3. Corrected order, clamped unless negative orders are allowed
	raw := float64(in.TheoreticalOrder) + res.StockGap
	if !e.cfg.AllowNegativeOrders {
		raw = math.Max(0, raw)
	}
	res.CorrectedOrder = numeric.RoundHalfUp(raw)

	// 4. Diagnosis
	res.Scenario = Scenario{
		Sales:     SalesLevel(compare(in.RealSales, in.TargetSales, e.cfg.SalesTolerance, string(SalesAbove), string(SalesEqual), string(SalesBelow))),
		Purchases: PurchaseLevel(compare(in.RealPurchases, in.SuggestedPurchases, e.cfg.PurchaseTolerance, string(PurchasesExcess), string(PurchasesEqual), string(PurchasesShortage))),
		Stock:     StockLevel(compare(in.RealStock, res.StockMinTarget, e.cfg.StockTolerance, string(StockSurplus), string(StockOptimal), string(StockDeficit))),
	}
	res.Explanation = res.Scenario.Explanation()
	res.Reason = reason(res.Scenario.Stock, in.TheoreticalOrder, res.CorrectedOrder)

	// 5. Sales trend on top of the correction
	if e.cfg.ApplySalesTrend && in.TargetSales > 0 && in.RealSales > in.TargetSales {
		res.TrendIncrement = numeric.RoundHalfUp(in.RealSales - in.TargetSales)
	}
	res.FinalOrder = res.CorrectedOrder + res.TrendIncrement

	res.Alerts = e.alerts(in, res)
	return res, nil
}

// compare classifies actual against reference within a relative band.
func compare(actual, reference, tolerance float64, above, equal, below string) string {
	band := math.Abs(reference) * tolerance
	switch {
	case actual > reference+band:
		return above
	case actual < reference-band:
		return below
	default:
		return equal
	}
}

// reason describes the change actually applied to the order. With a stock
// tolerance an optimal level can still move the order by the gap.
func reason(stock StockLevel, theoretical, corrected int) string {
	diff := corrected - theoretical
	cause := "surplus stock"
	if diff > 0 {
		cause = "restore minimum stock"
	}
	if stock == StockOptimal {
		cause = "stock within tolerance"
	}

	switch {
	case diff == 0 && stock == StockOptimal:
		return "Keep order (optimal stock)"
	case diff == 0:
		return "No correction needed"
	case diff < 0:
		return fmt.Sprintf("Reduce %d units (%s)", -diff, cause)
	default:
		return fmt.Sprintf("Increase %d units (%s)", diff, cause)
	}
}

// alerts never feed back into the order. STOCK_CRITICO and SIN_VENTAS
// exclude each other since one needs stock and the other none.
func (e *Engine) alerts(in Input, res Result) []domain.AlertCode {
	var out []domain.AlertCode

	if in.RealStock <= 0 {
		out = append(out, domain.AlertStockCritical)
	} else if e.cfg.LowStock > 0 && in.RealStock <= e.cfg.LowStock {
		out = append(out, domain.AlertLowStock)
	}

	change := math.Abs(float64(res.CorrectedOrder-in.TheoreticalOrder)) / math.Max(float64(in.TheoreticalOrder), 1)
	if change > e.cfg.SignificantChange {
		out = append(out, domain.AlertSignificantChanges)
	}

	if in.RealStock > 0 && in.RealSales == 0 {
		out = append(out, domain.AlertNoSales)
	}
	return out
}
