package forecast

import (
	"errors"
	"testing"

	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/planning/abc"
	"github.com/andresuchdata/vivero-po/internal/planning/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stockMap map[string]float64

func (s stockMap) GetStock(code string) float64 { return s[code] }

func newCalendar(t *testing.T, target float64, holidays map[int]float64) *calendar.Calendar {
	t.Helper()
	cal, err := calendar.New(nil,
		map[domain.Section]map[int]float64{domain.SectionNursery: {15: target}},
		holidays, 52)
	require.NoError(t, err)
	return cal
}

func article(cat domain.Category, price float64) domain.Article {
	return domain.Article{
		Code:      "8000000001",
		Section:   domain.SectionNursery,
		Category:  cat,
		UnitPrice: price,
		UnitCost:  price / 2,
	}
}

func TestComputeTheoreticalOrderExample(t *testing.T) {
	engine := NewEngine(newCalendar(t, 1000, nil), abc.DefaultPolicy(), 0.05, stockMap{}, nil)

	res, err := engine.ComputeTheoreticalOrder(article(domain.CategoryA, 10), domain.SectionNursery, 15)
	require.NoError(t, err)

	assert.InDelta(t, 1050.0, res.AdjustedTarget, 1e-9)
	assert.InDelta(t, 105.0, res.DemandUnits, 1e-9)
	assert.InDelta(t, 157.5, res.MinStock, 1e-9)
	assert.InDelta(t, 262.5, res.RawOrder, 1e-9)
	assert.Equal(t, 263, res.TheoreticalOrder)
}

func TestComputeTheoreticalOrderHolidayBeforeGrowth(t *testing.T) {
	engine := NewEngine(newCalendar(t, 1000, map[int]float64{15: 1.2}), abc.DefaultPolicy(), 0.1, stockMap{}, nil)

	res, err := engine.ComputeTheoreticalOrder(article(domain.CategoryA, 10), domain.SectionNursery, 15)
	require.NoError(t, err)
	assert.Equal(t, 1.2, res.HolidayFactor)
	assert.InDelta(t, 1320.0, res.AdjustedTarget, 1e-9)
}

func TestComputeTheoreticalOrderCategoryD(t *testing.T) {
	engine := NewEngine(newCalendar(t, 1000, nil), abc.DefaultPolicy(), 0.05, stockMap{}, nil)

	res, err := engine.ComputeTheoreticalOrder(article(domain.CategoryD, 10), domain.SectionNursery, 15)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.DemandUnits)
	assert.Equal(t, 0.0, res.MinStock)
	assert.Equal(t, 0, res.TheoreticalOrder)
}

func TestComputeTheoreticalOrderNeverNegative(t *testing.T) {
	a := article(domain.CategoryB, 10)
	engine := NewEngine(newCalendar(t, 1000, nil), abc.DefaultPolicy(), 0, stockMap{a.Code: 5000}, nil)

	res, err := engine.ComputeTheoreticalOrder(a, domain.SectionNursery, 15)
	require.NoError(t, err)
	assert.Less(t, res.RawOrder, 0.0)
	assert.Equal(t, 0, res.TheoreticalOrder)
	assert.Equal(t, 5000.0, res.AccumulatedStock)
}

func TestComputeTheoreticalOrderUsesStock(t *testing.T) {
	a := article(domain.CategoryA, 10)
	engine := NewEngine(newCalendar(t, 1000, nil), abc.DefaultPolicy(), 0, stockMap{a.Code: 40}, nil)

	res, err := engine.ComputeTheoreticalOrder(a, domain.SectionNursery, 15)
	require.NoError(t, err)
	// 100 units + 150 min stock - 40 on hand
	assert.Equal(t, 210, res.TheoreticalOrder)
}

func TestComputeTheoreticalOrderInvalidPrice(t *testing.T) {
	engine := NewEngine(newCalendar(t, 1000, nil), abc.DefaultPolicy(), 0, stockMap{}, nil)

	for _, price := range []float64{0, -3} {
		_, err := engine.ComputeTheoreticalOrder(article(domain.CategoryA, price), domain.SectionNursery, 15)
		var priceErr *domain.InvalidPriceError
		require.True(t, errors.As(err, &priceErr))
		assert.Equal(t, "8000000001", priceErr.ArticleCode)
		assert.False(t, domain.IsConfigError(err))
	}
}

func TestComputeTheoreticalOrderConfigErrors(t *testing.T) {
	engine := NewEngine(newCalendar(t, 1000, nil), abc.DefaultPolicy(), 0, stockMap{}, nil)

	_, err := engine.ComputeTheoreticalOrder(article(domain.CategoryA, 10), domain.SectionSeeds, 15)
	var missing *domain.MissingTargetError
	require.True(t, errors.As(err, &missing))

	policy := abc.DefaultPolicy()
	delete(policy.Weights, domain.CategoryB)
	engine = NewEngine(newCalendar(t, 1000, nil), policy, 0, stockMap{}, nil)
	_, err = engine.ComputeTheoreticalOrder(article(domain.CategoryB, 10), domain.SectionNursery, 15)
	var weightErr *domain.MissingWeightError
	require.True(t, errors.As(err, &weightErr))
}

func TestComputeTheoreticalOrderShareAndAction(t *testing.T) {
	a := article(domain.CategoryA, 10)
	a.Action = "Reducir compras 50%"
	shares := NewHistoryShares([]SalesPoint{
		{Code: a.Code, Section: domain.SectionNursery, Week: 15, Amount: 250},
		{Code: "8000000002", Section: domain.SectionNursery, Week: 15, Amount: 750},
	})
	engine := NewEngine(newCalendar(t, 1000, nil), abc.DefaultPolicy(), 0, stockMap{}, shares)

	res, err := engine.ComputeTheoreticalOrder(a, domain.SectionNursery, 15)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, res.Share, 1e-9)
	assert.Equal(t, 0.5, res.ActionFactor)
	// 1000 * 0.25 * 0.5 / 10 = 12.5 units, plus 18.75 min stock
	assert.InDelta(t, 12.5, res.DemandUnits, 1e-9)
	assert.Equal(t, 31, res.TheoreticalOrder)
}

func TestHistorySharesFallbacks(t *testing.T) {
	shares := NewHistoryShares([]SalesPoint{
		{Code: "A", Section: domain.SectionSeeds, Week: 10, Amount: 30},
		{Code: "B", Section: domain.SectionSeeds, Week: 10, Amount: 10},
		{Code: "B", Section: domain.SectionSeeds, Week: 11, Amount: 60},
		{Code: "C", Section: domain.SectionSeeds, Week: 11, Amount: -5},
	})

	assert.InDelta(t, 0.75, shares.Share(domain.SectionSeeds, 10, "A"), 1e-9)
	assert.InDelta(t, 1.0, shares.Share(domain.SectionSeeds, 11, "B"), 1e-9)
	assert.Equal(t, 0.0, shares.Share(domain.SectionSeeds, 11, "C"))
	// week without history falls back to the section total (30 + 70)
	assert.InDelta(t, 0.3, shares.Share(domain.SectionSeeds, 12, "A"), 1e-9)
	// section without history keeps the full target
	assert.Equal(t, 1.0, shares.Share(domain.SectionNursery, 10, "A"))
	assert.Equal(t, 1.0, FullShare{}.Share(domain.SectionSeeds, 10, "A"))
}
