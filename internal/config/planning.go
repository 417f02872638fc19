package config

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/viper"

	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/ingest"
	"github.com/andresuchdata/vivero-po/internal/planning/abc"
	"github.com/andresuchdata/vivero-po/internal/planning/calendar"
	"github.com/andresuchdata/vivero-po/internal/planning/correction"
)

// Planning holds the business rules of the weekly run.
type Planning struct {
	YearLength      int
	GrowthRate      float64
	ActiveSections  []domain.Section
	WeeklyTargets   map[domain.Section]map[int]float64
	HolidayFactors  map[int]float64
	Periods         calendar.PeriodTable
	Policy          abc.Policy
	Thresholds      abc.Thresholds
	Correction      correction.Config
	LivePetFamilies []string
	Inputs          ingest.Files
}

type planningFile struct {
	YearLength      int                           `mapstructure:"year_length"`
	GrowthRate      float64                       `mapstructure:"growth_rate"`
	ActiveSections  []string                      `mapstructure:"active_sections"`
	WeeklyTargets   map[string]map[string]float64 `mapstructure:"weekly_targets"`
	HolidayFactors  map[string]float64            `mapstructure:"holiday_factors"`
	Periods         []calendar.PeriodRange        `mapstructure:"periods"`
	Weights         map[string]float64            `mapstructure:"category_weights"`
	Coverage        map[string]float64            `mapstructure:"min_stock_coverage"`
	Thresholds      abc.Thresholds                `mapstructure:"abc_thresholds"`
	Correction      correction.Config             `mapstructure:"correction"`
	LivePetFamilies []string                      `mapstructure:"live_pet_families"`
	Inputs          ingest.Files                  `mapstructure:"inputs"`
}

// LoadPlanning reads the planning rules from a YAML, JSON or TOML file.
func LoadPlanning(path string) (*Planning, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("year_length", calendar.DefaultYearLength)
	v.SetDefault("abc_thresholds.a", 80.0)
	v.SetDefault("abc_thresholds.b", 95.0)
	v.SetDefault("abc_thresholds.c", 99.0)
	v.SetDefault("correction.significant_change", 0.5)
	files := ingest.DefaultFiles()
	v.SetDefault("inputs.abc", files.ABC)
	v.SetDefault("inputs.costs", files.Costs)
	v.SetDefault("inputs.sales_history", files.SalesHistory)
	v.SetDefault("inputs.stock", files.Stock)
	v.SetDefault("inputs.weekly_sales", files.WeeklySales)
	v.SetDefault("inputs.weekly_purchases", files.WeeklyPurchases)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read planning file %s: %w", path, err)
	}

	var raw planningFile
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode planning file %s: %w", path, err)
	}

	p, err := raw.toPlanning()
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (raw planningFile) toPlanning() (*Planning, error) {
	p := &Planning{
		YearLength:      raw.YearLength,
		GrowthRate:      raw.GrowthRate,
		WeeklyTargets:   make(map[domain.Section]map[int]float64, len(raw.WeeklyTargets)),
		HolidayFactors:  make(map[int]float64, len(raw.HolidayFactors)),
		Periods:         calendar.PeriodTable(raw.Periods),
		Thresholds:      raw.Thresholds,
		Correction:      raw.Correction,
		LivePetFamilies: raw.LivePetFamilies,
		Inputs:          raw.Inputs,
	}

	for rawSection, weeks := range raw.WeeklyTargets {
		section, err := domain.ParseSection(rawSection)
		if err != nil {
			return nil, &domain.ConfigError{Key: "weekly_targets." + rawSection, Reason: err.Error()}
		}
		targets := make(map[int]float64, len(weeks))
		for rawWeek, amount := range weeks {
			week, err := strconv.Atoi(rawWeek)
			if err != nil {
				return nil, &domain.ConfigError{Key: fmt.Sprintf("weekly_targets.%s.%s", rawSection, rawWeek), Reason: "week is not a number"}
			}
			targets[week] = amount
		}
		p.WeeklyTargets[section] = targets
	}

	for rawWeek, factor := range raw.HolidayFactors {
		week, err := strconv.Atoi(rawWeek)
		if err != nil {
			return nil, &domain.ConfigError{Key: "holiday_factors." + rawWeek, Reason: "week is not a number"}
		}
		p.HolidayFactors[week] = factor
	}

	if len(raw.ActiveSections) == 0 {
		for section := range p.WeeklyTargets {
			p.ActiveSections = append(p.ActiveSections, section)
		}
		sort.Slice(p.ActiveSections, func(i, j int) bool { return p.ActiveSections[i] < p.ActiveSections[j] })
	} else {
		for _, rawSection := range raw.ActiveSections {
			section, err := domain.ParseSection(rawSection)
			if err != nil {
				return nil, &domain.ConfigError{Key: "active_sections", Reason: err.Error()}
			}
			p.ActiveSections = append(p.ActiveSections, section)
		}
	}

	defaults := abc.DefaultPolicy()
	var err error
	if p.Policy.Weights, err = categoryMap("category_weights", raw.Weights, defaults.Weights); err != nil {
		return nil, err
	}
	if p.Policy.Coverage, err = categoryMap("min_stock_coverage", raw.Coverage, defaults.Coverage); err != nil {
		return nil, err
	}

	if len(p.Periods) == 0 {
		p.Periods = calendar.DefaultPeriods()
	}
	if p.LivePetFamilies == nil {
		p.LivePetFamilies = domain.DefaultLivePetFamilies
	}
	return p, nil
}

// categoryMap falls back to defaults only when the whole map is absent; a
// partial map is kept partial so validation reports the missing category.
func categoryMap(key string, raw map[string]float64, defaults map[domain.Category]float64) (map[domain.Category]float64, error) {
	out := make(map[domain.Category]float64, len(domain.Categories))
	if len(raw) == 0 {
		for c, v := range defaults {
			out[c] = v
		}
		return out, nil
	}
	for rawCat, v := range raw {
		c, err := domain.ParseCategory(rawCat)
		if err != nil {
			return nil, &domain.ConfigError{Key: key + "." + rawCat, Reason: err.Error()}
		}
		out[c] = v
	}
	return out, nil
}

// Validate checks every rule that does not depend on the processed week.
func (p *Planning) Validate() error {
	if p.GrowthRate <= -1 {
		return &domain.ConfigError{Key: "growth_rate", Reason: fmt.Sprintf("%.2f would cancel every target", p.GrowthRate)}
	}
	if len(p.ActiveSections) == 0 {
		return &domain.ConfigError{Key: "active_sections", Reason: "no active section"}
	}
	if err := p.Policy.Validate(); err != nil {
		return err
	}
	if err := p.Thresholds.Validate(); err != nil {
		return err
	}
	if err := p.Correction.Validate(); err != nil {
		return err
	}
	_, err := p.Calendar()
	return err
}

// Calendar builds the week resolver.
func (p *Planning) Calendar() (*calendar.Calendar, error) {
	return calendar.New(p.Periods, p.WeeklyTargets, p.HolidayFactors, p.YearLength)
}

// CheckWeek verifies that every active section has a target for week.
func (p *Planning) CheckWeek(week int) error {
	cal, err := p.Calendar()
	if err != nil {
		return err
	}
	if _, err := cal.Period(week); err != nil {
		return err
	}
	return cal.CheckSections(p.ActiveSections, week)
}
