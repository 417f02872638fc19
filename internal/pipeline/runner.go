package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vivero-po/internal/config"
	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/ingest"
	"github.com/andresuchdata/vivero-po/internal/planning/calendar"
	"github.com/andresuchdata/vivero-po/internal/planning/correction"
	"github.com/andresuchdata/vivero-po/internal/planning/forecast"
	"github.com/andresuchdata/vivero-po/internal/state"
)

// ReportWriter renders the orders of a run.
type ReportWriter interface {
	WriteSection(week int, monday time.Time, section domain.Section, lines []domain.OrderLine) ([]string, error)
	WriteSummary(week int, monday time.Time, totals map[domain.Section]domain.SectionTotals, metrics correction.Metrics) (string, error)
}

// Runner executes the weekly planning run: forecast, correction, state
// update and reports. State is committed once, after everything else
// succeeded.
type Runner struct {
	planning *config.Planning
	store    state.Store
	source   ingest.Source
	reports  ReportWriter
	now      func() time.Time
}

// NewRunner creates a runner. reports may be nil to skip file output.
func NewRunner(planning *config.Planning, store state.Store, source ingest.Source, reports ReportWriter) *Runner {
	return &Runner{
		planning: planning,
		store:    store,
		source:   source,
		reports:  reports,
		now:      time.Now,
	}
}

// run carries the working values of one execution.
type run struct {
	req        Request
	acc        *state.Accumulator
	inputs     *ingest.Inputs
	forecast   *forecast.Engine
	correction *correction.Engine
	result     *Result
}

// Run processes one week. Fatal errors leave the stored article state
// untouched and are logged to the run history.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	started := r.now()
	record := domain.ExecutionRecord{
		ID:        uuid.NewString(),
		Week:      req.Week,
		StartedAt: started,
		Forced:    req.Force,
	}

	log.Info().
		Str("run_id", record.ID).
		Int("week", req.Week).
		Bool("force", req.Force).
		Bool("skip_correction", req.SkipCorrection).
		Msg("starting weekly run")

	res, err := r.execute(ctx, req, &record)
	if err != nil {
		return nil, r.fail(ctx, record, err)
	}

	log.Info().
		Str("run_id", res.RunID).
		Str("status", string(StatusCompleted)).
		Int("week", res.Week).
		Str("period", string(res.Period)).
		Int("lines", len(res.Lines)).
		Int("excluded", len(res.Excluded)).
		Int("final_units", res.Metrics.FinalUnits).
		Dur("elapsed", r.now().Sub(started)).
		Msg("weekly run completed")
	for _, adv := range res.Advisories {
		log.Warn().Str("run_id", res.RunID).Msg(adv)
	}
	return res, nil
}

func (r *Runner) execute(ctx context.Context, req Request, record *domain.ExecutionRecord) (*Result, error) {
	// 1. Planning rules that do not depend on the week
	if err := r.planning.Validate(); err != nil {
		return nil, err
	}
	cal, err := r.planning.Calendar()
	if err != nil {
		return nil, err
	}

	// 2. State and the week to process
	acc, err := state.Load(ctx, r.store, cal.YearLength())
	if err != nil {
		return nil, err
	}
	week, err := r.resolveWeek(req, acc)
	if err != nil {
		return nil, err
	}
	record.Week = week

	if err := r.planning.CheckWeek(week); err != nil {
		return nil, err
	}
	period, err := cal.Period(week)
	if err != nil {
		return nil, err
	}
	record.Period = string(period)

	// 3. Inputs
	inputs, err := r.source.Load(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("load inputs: %w", err)
	}

	monday, _ := calendar.WeekRange(calendar.YearOfWeek(r.now(), week), week)

	w := &run{
		req:        req,
		acc:        acc,
		inputs:     inputs,
		forecast:   forecast.NewEngine(cal, r.planning.Policy, r.planning.GrowthRate, acc, forecast.NewHistoryShares(salesPoints(inputs.History))),
		correction: correction.NewEngine(r.planning.Policy, r.planning.Correction),
		result: &Result{
			RunID:      record.ID,
			Week:       week,
			Period:     period,
			Monday:     monday,
			Forced:     req.Force,
			Sections:   make(map[domain.Section]domain.SectionTotals, len(r.planning.ActiveSections)),
			Advisories: append(Advisories(nil), inputs.Advisories...),
		},
	}

	if req.SkipCorrection {
		w.result.Advisories.Add("correction disabled for this run, theoretical orders are final")
	}

	// 4. Every article of the active sections
	if err := r.processArticles(w); err != nil {
		return nil, err
	}
	w.result.Metrics = correction.Summarize(w.result.Lines)

	// 5. Reports, before the state is touched
	if r.reports != nil {
		files, err := r.writeReports(w.result)
		if err != nil {
			return nil, err
		}
		w.result.Files = files
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 6. Commit
	record.FinishedAt = r.now()
	record.Success = true
	record.Sections = w.result.Sections
	record.Lines = len(w.result.Lines)
	record.Excluded = len(w.result.Excluded)
	record.Advisories = len(w.result.Advisories)
	record.Notes = w.result.Advisories
	if err := acc.Commit(ctx, week, *record); err != nil {
		return nil, err
	}
	return w.result, nil
}

// resolveWeek picks the explicit week or the next expected one. Without
// history the current ISO week is used.
func (r *Runner) resolveWeek(req Request, acc *state.Accumulator) (int, error) {
	expected, ok := acc.NextWeek()
	if req.Week == 0 {
		if ok {
			return expected, nil
		}
		_, week := calendar.WeekOf(r.now())
		return week, nil
	}

	if err := calendar.ValidWeek(req.Week); err != nil {
		return 0, err
	}
	if ok && req.Week != expected && !req.Force {
		return 0, &domain.OutOfOrderWeekError{Expected: expected, Got: req.Week}
	}
	return req.Week, nil
}

func (r *Runner) processArticles(w *run) error {
	active := make(map[domain.Section]bool, len(r.planning.ActiveSections))
	for _, s := range r.planning.ActiveSections {
		active[s] = true
		w.result.Sections[s] = domain.SectionTotals{}
	}

	inactive := 0
	missingStock := 0
	for _, article := range w.inputs.Articles {
		if !active[article.Section] {
			inactive++
			continue
		}

		line, corrected, err := r.processArticle(w, article)
		if err != nil {
			return err
		}
		if line.Note != "" {
			w.result.Excluded = append(w.result.Excluded, line)
			continue
		}
		if !corrected && w.inputs.Correction.Complete() && !w.req.SkipCorrection {
			missingStock++
		}

		w.result.Lines = append(w.result.Lines, line)
		totals := w.result.Sections[article.Section]
		totals.Articles++
		if line.FinalOrder > 0 {
			totals.Units += line.FinalOrder
			totals.Amount += line.Amount()
		}
		w.result.Sections[article.Section] = totals
	}

	if inactive > 0 {
		w.result.Advisories.Add("%d articles belong to inactive sections and were skipped", inactive)
	}
	if missingStock > 0 {
		w.result.Advisories.Add("%d articles have no real stock, theoretical order kept", missingStock)
	}
	for _, l := range w.result.Excluded {
		w.result.Advisories.Add("article %s excluded: %s", l.Article.Code, l.Note)
	}
	return nil
}

// processArticle computes one order line and moves the article state. A
// line with a note was excluded from the order.
func (r *Runner) processArticle(w *run, article domain.Article) (domain.OrderLine, bool, error) {
	line := domain.OrderLine{
		Week:    w.result.Week,
		Period:  string(w.result.Period),
		Article: article,
	}

	// Real movements are booked even when the comparison cannot run.
	var sales, purchases float64
	if c := w.inputs.Correction; c != nil {
		sales = c.Sales[article.Code]
		purchases = c.Purchases[article.Code]
	}

	// The previous order is read before the state moves.
	previous, seen := w.acc.Article(article.Code)

	fc, err := w.forecast.ComputeTheoreticalOrder(article, article.Section, w.result.Week)
	var priceErr *domain.InvalidPriceError
	switch {
	case errors.As(err, &priceErr):
		line.Note = priceErr.Error()
		return line, false, r.advance(w, article.Code, sales, purchases)
	case err != nil:
		return line, false, err
	}

	line.Share = fc.Share
	line.ActionFactor = fc.ActionFactor
	line.TargetAmount = fc.Target
	line.AdjustedTarget = fc.AdjustedTarget
	line.Demand = fc.Demand
	line.DemandUnits = fc.DemandUnits
	line.MinStock = fc.MinStock
	line.AccumulatedStock = fc.AccumulatedStock
	line.TheoreticalOrder = fc.TheoreticalOrder
	line.FinalOrder = fc.TheoreticalOrder

	corrected := false
	if c := w.inputs.Correction; c.Complete() && !w.req.SkipCorrection {
		if realStock, ok := c.Stock[article.Code]; ok {
			suggested := float64(fc.TheoreticalOrder)
			if seen && previous.LastWeek > 0 {
				suggested = float64(previous.LastOrder)
			}

			cr, err := w.correction.CorrectOrder(correction.Input{
				Article:            article,
				TheoreticalOrder:   fc.TheoreticalOrder,
				TargetSales:        fc.DemandUnits,
				SuggestedPurchases: suggested,
				RealStock:          realStock,
				RealSales:          sales,
				RealPurchases:      purchases,
			})
			if err != nil {
				return line, false, err
			}

			corrected = true
			line.Corrected = true
			line.RealStock = realStock
			line.RealSales = sales
			line.RealPurchases = purchases
			line.StockMinTarget = cr.StockMinTarget
			line.StockGap = cr.StockGap
			line.CorrectedOrder = cr.CorrectedOrder
			line.TrendIncrement = cr.TrendIncrement
			line.Scenario = cr.Scenario.Code()
			line.Reason = cr.Reason
			line.Explanation = cr.Explanation
			line.Alerts = cr.Alerts
			line.FinalOrder = cr.FinalOrder
		}
	}

	if err := r.advance(w, article.Code, sales, purchases); err != nil {
		return line, false, err
	}
	w.acc.RecordOrder(article.Code, line.FinalOrder)
	return line, corrected, nil
}

// advance moves the article to the run's week. The week sequence is checked
// once for the whole run by resolveWeek; an article missing from earlier
// inputs resumes from its last known stock with an advisory.
func (r *Runner) advance(w *run, code string, sales, purchases float64) error {
	if w.req.Force {
		return w.acc.Override(code, w.result.Week, sales, purchases)
	}
	last, err := w.acc.Resume(code, w.result.Week, sales, purchases)
	if err != nil {
		return err
	}
	if last > 0 {
		w.result.Advisories.Add("article %s resumes at week %d, last seen in week %d", code, w.result.Week, last)
	}
	return nil
}

func (r *Runner) writeReports(res *Result) ([]string, error) {
	var files []string
	for _, section := range r.planning.ActiveSections {
		lines := res.LinesFor(section)
		if len(lines) == 0 {
			continue
		}
		written, err := r.reports.WriteSection(res.Week, res.Monday, section, lines)
		if err != nil {
			return nil, fmt.Errorf("write %s order: %w", section, err)
		}
		files = append(files, written...)
	}

	summary, err := r.reports.WriteSummary(res.Week, res.Monday, res.Sections, res.Metrics)
	if err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	return append(files, summary), nil
}

// fail logs the failed run to the history without touching article state.
func (r *Runner) fail(ctx context.Context, record domain.ExecutionRecord, err error) error {
	record.Success = false
	record.FinishedAt = r.now()
	record.Error = err.Error()

	kind := "runtime"
	switch {
	case domain.IsConfigError(err):
		kind = "config"
	case domain.IsSequencingError(err):
		kind = "sequencing"
	}

	log.Error().
		Err(err).
		Str("run_id", record.ID).
		Str("status", string(StatusFailed)).
		Str("kind", kind).
		Int("week", record.Week).
		Msg("weekly run failed")

	if appendErr := r.store.AppendExecution(ctx, record); appendErr != nil {
		log.Error().Err(appendErr).Str("run_id", record.ID).Msg("failed to log failed run")
	}
	return err
}

func salesPoints(history []ingest.SalesRecord) []forecast.SalesPoint {
	points := make([]forecast.SalesPoint, 0, len(history))
	for _, h := range history {
		_, week := calendar.WeekOf(h.Date)
		points = append(points, forecast.SalesPoint{
			Code:    h.Code,
			Section: h.Section,
			Week:    week,
			Amount:  h.Amount,
		})
	}
	return points
}
