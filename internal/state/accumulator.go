package state

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/planning/calendar"
)

// Accumulator is the working copy of the persisted state for one run. It is
// loaded once, mutated in memory while articles are processed and written
// back once by Commit. Nothing reaches the store before Commit.
type Accumulator struct {
	store      Store
	snap       *Snapshot
	yearLength int
	now        func() time.Time
}

// Load reads the snapshot from store.
func Load(ctx context.Context, store Store, yearLength int) (*Accumulator, error) {
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if snap == nil {
		snap = NewSnapshot()
	}
	snap.normalize()

	return &Accumulator{
		store:      store,
		snap:       snap,
		yearLength: yearLength,
		now:        time.Now,
	}, nil
}

// GetStock returns the running stock of an article, 0 if never seen.
func (a *Accumulator) GetStock(code string) float64 {
	return a.snap.Articles[code].Stock
}

// Article returns the stored position of an article.
func (a *Accumulator) Article(code string) (domain.ArticleState, bool) {
	st, ok := a.snap.Articles[code]
	return st, ok
}

// LastWeek is the last week committed by a successful run, 0 if none.
func (a *Accumulator) LastWeek() int {
	return a.snap.LastWeek
}

// NextWeek is the week a normal run is expected to process. ok is false
// when nothing was ever processed.
func (a *Accumulator) NextWeek() (int, bool) {
	if a.snap.LastWeek == 0 {
		return 0, false
	}
	return calendar.NextWeek(a.snap.LastWeek, a.yearLength), true
}

// Advance moves an article one week forward:
// stock = stock + purchases - sales. week must follow the article's last
// processed week; an article seen for the first time accepts any week.
func (a *Accumulator) Advance(code string, week int, sales, purchases float64) error {
	if err := calendar.ValidWeek(week); err != nil {
		return err
	}

	st, seen := a.snap.Articles[code]
	if seen && st.LastWeek > 0 {
		expected := calendar.NextWeek(st.LastWeek, a.yearLength)
		if week != expected {
			return &domain.OutOfOrderWeekError{ArticleCode: code, Expected: expected, Got: week}
		}
	}

	a.apply(code, st, week, sales, purchases)
	return nil
}

// Resume advances an article that may have been absent from the inputs for
// some weeks. When its last processed week is not the one before week, the
// missing weeks are carried with no movement and the running stock goes on
// from the last known position. It returns that last week, or 0 when no gap
// was bridged. Reprocessing the article's own last week is still out of
// order.
func (a *Accumulator) Resume(code string, week int, sales, purchases float64) (int, error) {
	if err := calendar.ValidWeek(week); err != nil {
		return 0, err
	}

	st, seen := a.snap.Articles[code]
	if !seen || st.LastWeek == 0 {
		a.apply(code, st, week, sales, purchases)
		return 0, nil
	}

	expected := calendar.NextWeek(st.LastWeek, a.yearLength)
	switch week {
	case expected:
		a.apply(code, st, week, sales, purchases)
		return 0, nil
	case st.LastWeek:
		return 0, &domain.OutOfOrderWeekError{ArticleCode: code, Expected: expected, Got: week}
	}

	last := st.LastWeek
	a.apply(code, st, week, sales, purchases)
	return last, nil
}

// Override applies a week regardless of sequence. Used when a week is
// reprocessed on purpose; the running stock is still moved by the week's
// sales and purchases.
func (a *Accumulator) Override(code string, week int, sales, purchases float64) error {
	if err := calendar.ValidWeek(week); err != nil {
		return err
	}
	a.apply(code, a.snap.Articles[code], week, sales, purchases)
	return nil
}

func (a *Accumulator) apply(code string, st domain.ArticleState, week int, sales, purchases float64) {
	st.Code = code
	st.Stock = st.Stock + purchases - sales
	st.LastWeek = week
	st.TotalSold += sales
	st.TotalReceived += purchases
	st.UpdatedAt = a.now()
	a.snap.Articles[code] = st
}

// RecordOrder stores the final order of an article for the processed week.
func (a *Accumulator) RecordOrder(code string, qty int) {
	st := a.snap.Articles[code]
	st.Code = code
	st.LastOrder = qty
	if qty > 0 {
		st.TotalOrdered += float64(qty)
	}
	st.UpdatedAt = a.now()
	a.snap.Articles[code] = st
}

// Commit writes the whole working copy together with the run record.
func (a *Accumulator) Commit(ctx context.Context, week int, record domain.ExecutionRecord) error {
	a.snap.LastWeek = week
	a.snap.UpdatedAt = a.now()
	a.snap.Executions = append(a.snap.Executions, record)

	if err := a.store.Save(ctx, a.snap); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Reset irreversibly clears article positions and run history.
func (a *Accumulator) Reset(ctx context.Context) error {
	if err := a.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset state: %w", err)
	}
	a.snap = NewSnapshot()
	return nil
}

// Snapshot exposes the working copy.
func (a *Accumulator) Snapshot() *Snapshot {
	return a.snap
}
