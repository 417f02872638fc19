package domain

import (
	"fmt"
	"strings"
	"time"
)

// Category is the ABC rotation class of an article.
type Category string

const (
	CategoryA Category = "A"
	CategoryB Category = "B"
	CategoryC Category = "C"
	CategoryD Category = "D"
)

// Categories lists every category in rank order.
var Categories = []Category{CategoryA, CategoryB, CategoryC, CategoryD}

// ParseCategory accepts "a", " B " and similar.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(raw)))
	switch c {
	case CategoryA, CategoryB, CategoryC, CategoryD:
		return c, nil
	}
	return "", fmt.Errorf("unknown ABC category %q", raw)
}

// Article is one sellable item as known to a weekly run.
type Article struct {
	Code      string   `json:"code"`
	Name      string   `json:"name,omitempty"`
	Section   Section  `json:"section"`
	Category  Category `json:"category"`
	UnitCost  float64  `json:"unit_cost"`
	UnitPrice float64  `json:"unit_price"`
	Supplier  string   `json:"supplier,omitempty"`
	// Action is the free-text suggestion attached by the ABC classification
	// ("reducir compras 20%", "eliminar del catalogo", ...).
	Action string `json:"action,omitempty"`
}

// ArticleState is the persisted running position of one article.
type ArticleState struct {
	Code          string    `json:"code"`
	Stock         float64   `json:"stock"`
	LastWeek      int       `json:"last_week"`
	LastOrder     int       `json:"last_order"`
	TotalOrdered  float64   `json:"total_ordered"`
	TotalSold     float64   `json:"total_sold"`
	TotalReceived float64   `json:"total_received"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OrderLine is the computed order of one article for one week.
type OrderLine struct {
	Week    int     `json:"week"`
	Period  string  `json:"period"`
	Article Article `json:"article"`

	// Forecast intermediates
	Share            float64 `json:"share"`
	ActionFactor     float64 `json:"action_factor"`
	TargetAmount     float64 `json:"target_amount"`
	AdjustedTarget   float64 `json:"adjusted_target"`
	Demand           float64 `json:"demand"`
	DemandUnits      float64 `json:"demand_units"`
	MinStock         float64 `json:"min_stock"`
	AccumulatedStock float64 `json:"accumulated_stock"`
	TheoreticalOrder int     `json:"theoretical_order"`

	// Correction, only meaningful when Corrected is set
	Corrected      bool        `json:"corrected"`
	RealStock      float64     `json:"real_stock"`
	RealSales      float64     `json:"real_sales"`
	RealPurchases  float64     `json:"real_purchases"`
	StockMinTarget float64     `json:"stock_min_target"`
	StockGap       float64     `json:"stock_gap"`
	CorrectedOrder int         `json:"corrected_order"`
	TrendIncrement int         `json:"trend_increment"`
	Scenario       string      `json:"scenario,omitempty"`
	Reason         string      `json:"reason,omitempty"`
	Explanation    string      `json:"explanation,omitempty"`
	Alerts         []AlertCode `json:"alerts,omitempty"`

	FinalOrder int    `json:"final_order"`
	Note       string `json:"note,omitempty"`
}

// Amount is the purchase value of the final order at unit cost.
func (l OrderLine) Amount() float64 {
	return float64(l.FinalOrder) * l.Article.UnitCost
}

// SectionTotals summarises the order of one section in a run.
type SectionTotals struct {
	Articles int     `json:"articles"`
	Units    int     `json:"units"`
	Amount   float64 `json:"amount"`
}

// ExecutionRecord is an append-only entry of the run history.
type ExecutionRecord struct {
	ID         string                    `json:"id"`
	Week       int                       `json:"week"`
	Period     string                    `json:"period,omitempty"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
	Success    bool                      `json:"success"`
	Forced     bool                      `json:"forced,omitempty"`
	Sections   map[Section]SectionTotals `json:"sections,omitempty"`
	Lines      int                       `json:"lines"`
	Excluded   int                       `json:"excluded"`
	Advisories int                       `json:"advisories"`
	Error      string                    `json:"error,omitempty"`
	Notes      []string                  `json:"notes,omitempty"`
}
