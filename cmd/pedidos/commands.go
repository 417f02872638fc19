package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/vivero-po/internal/app"
	"github.com/andresuchdata/vivero-po/internal/config"
	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/pipeline"
	"github.com/andresuchdata/vivero-po/internal/planning/abc"
	"github.com/andresuchdata/vivero-po/internal/planning/numeric"
	"github.com/andresuchdata/vivero-po/internal/report"
	"github.com/andresuchdata/vivero-po/internal/service"
	"github.com/andresuchdata/vivero-po/pkg/logger"
)

type appKey struct{}

// loadConfig applies the global flags over the environment configuration.
func loadConfig(c *cli.Context) *config.Config {
	cfg := *config.Load()
	if v := c.String("planning"); v != "" {
		cfg.App.PlanningFile = v
	}
	if v := c.String("input"); v != "" {
		cfg.App.InputDir = v
	}
	if v := c.String("output"); v != "" {
		cfg.App.OutputDir = v
	}
	if v := c.String("log"); v != "" {
		cfg.App.LogFile = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.App.LogLevel = v
	}
	if c.IsSet("format") {
		cfg.App.ReportFormat = c.String("format")
	}
	return &cfg
}

func openApp(c *cli.Context) error {
	a, err := app.Open(c.Context, loadConfig(c))
	if err != nil {
		return err
	}
	c.Context = context.WithValue(c.Context, appKey{}, a)
	return nil
}

func closeApp(c *cli.Context) error {
	if a, ok := c.Context.Value(appKey{}).(*app.App); ok && a != nil {
		return a.Close()
	}
	return nil
}

func fromContext(c *cli.Context) (*app.App, error) {
	a, ok := c.Context.Value(appKey{}).(*app.App)
	if !ok || a == nil {
		return nil, errors.New("application not initialised")
	}
	return a, nil
}

func runWeek(c *cli.Context) error {
	a, err := fromContext(c)
	if err != nil {
		return err
	}

	if c.Bool("fetch-drive") {
		paths, err := a.FetchDrive(c.Context)
		if err != nil {
			return fmt.Errorf("fetch drive inputs: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Downloaded %d input files from Drive\n", len(paths))
	}

	result, err := a.Service.Run(c.Context, service.RunOptions{
		Request: pipeline.Request{
			Week:           c.Int("week"),
			Force:          c.Bool("force"),
			SkipCorrection: c.Bool("no-correction"),
		},
		Upload: c.Bool("upload"),
	})
	if result != nil {
		printResult(c, result)
	}
	return err
}

func printResult(c *cli.Context, r *pipeline.Result) {
	out := c.App.Writer
	fmt.Fprintf(out, "Week %d (%s), monday %s", r.Week, r.Period, r.Monday.Format("2006-01-02"))
	if r.Forced {
		fmt.Fprint(out, ", forced")
	}
	fmt.Fprintln(out)

	sections := make([]domain.Section, 0, len(r.Sections))
	for s := range r.Sections {
		sections = append(sections, s)
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i] < sections[j] })

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTION\tARTICLES\tUNITS\tAMOUNT")
	for _, s := range sections {
		t := r.Sections[s]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", s, t.Articles, t.Units, numeric.FormatES(t.Amount, 2))
	}
	_ = tw.Flush()

	if r.Metrics.Articles > 0 {
		fmt.Fprintf(out, "Corrected %d of %d articles: %d up, %d down, final %d units (%+.1f%%)\n",
			r.Metrics.Corrected, r.Metrics.Articles, r.Metrics.Increased, r.Metrics.Reduced,
			r.Metrics.FinalUnits, r.Metrics.PercentChange)
	}
	if len(r.Excluded) > 0 {
		fmt.Fprintf(out, "%d articles excluded\n", len(r.Excluded))
	}
	for _, adv := range r.Advisories {
		fmt.Fprintf(out, "! %s\n", adv)
	}
	for _, f := range r.Files {
		fmt.Fprintf(out, "  %s\n", f)
	}
}

func showStatus(c *cli.Context) error {
	a, err := fromContext(c)
	if err != nil {
		return err
	}
	status, err := a.Service.Status(c.Context)
	if err != nil {
		return err
	}
	runs, err := a.Service.Executions(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	out := c.App.Writer
	if c.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Status     interface{} `json:"status"`
			Executions interface{} `json:"executions"`
		}{status, runs})
	}

	if status.LastWeek == 0 {
		fmt.Fprintln(out, "No week processed yet")
	} else {
		fmt.Fprintf(out, "Last week %d, next week %d, updated %s\n",
			status.LastWeek, status.NextWeek, status.UpdatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(out, "%d articles, stock %s, ordered %s units, %d runs (%d failed)\n",
		status.Articles, numeric.FormatES(status.TotalStock, 0), numeric.FormatES(status.TotalOrdered, 0),
		status.Runs, status.FailedRuns)

	if len(runs) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tWEEK\tRESULT\tLINES\tERROR")
	for _, r := range runs {
		result := "ok"
		if !r.Success {
			result = "failed"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\n", r.StartedAt.Format("2006-01-02 15:04"), r.Week, result, r.Lines, r.Error)
	}
	return tw.Flush()
}

func resetState(c *cli.Context) error {
	if !c.Bool("yes") {
		return errors.New("reset deletes all accumulated stock and history, pass --yes to confirm")
	}
	a, err := fromContext(c)
	if err != nil {
		return err
	}
	if err := a.Service.Reset(c.Context); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "State reset")
	return nil
}

func classify(c *cli.Context) error {
	cfg := loadConfig(c)
	logger.SetLevel(cfg.App.LogLevel)

	section, err := domain.ParseSection(c.String("section"))
	if err != nil {
		return err
	}
	planning, err := config.LoadPlanning(cfg.App.PlanningFile)
	if err != nil {
		return err
	}

	rows, path, err := service.Classify(service.ClassifyRequest{
		Section:         section,
		SalesPath:       c.String("sales"),
		PriorPath:       c.String("prior"),
		Thresholds:      planning.Thresholds,
		LivePetFamilies: planning.LivePetFamilies,
	}, report.NewWriter(cfg.App.OutputDir, report.FormatComplete))
	if err != nil {
		return err
	}

	counts := abc.Counts(rows)
	fmt.Fprintf(c.App.Writer, "%s: %d articles, A %d, B %d, C %d, D %d\n", section, len(rows),
		counts[domain.CategoryA], counts[domain.CategoryB], counts[domain.CategoryC], counts[domain.CategoryD])
	fmt.Fprintf(c.App.Writer, "  %s\n", path)
	return nil
}
