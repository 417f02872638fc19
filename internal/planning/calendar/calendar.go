package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/vivero-po/internal/domain"
)

const (
	// MaxWeek is the highest week number any year can have.
	MaxWeek = 53
	// DefaultYearLength is used when no year length is configured.
	DefaultYearLength = 52

	minHolidayFactor = 0.0
	maxHolidayFactor = 1.5
)

// PeriodID names one of the four seasonal periods.
type PeriodID string

const (
	P1 PeriodID = "P1"
	P2 PeriodID = "P2"
	P3 PeriodID = "P3"
	P4 PeriodID = "P4"
)

// Next returns the following period, wrapping P4 to P1.
func (p PeriodID) Next() PeriodID {
	switch p {
	case P1:
		return P2
	case P2:
		return P3
	case P3:
		return P4
	}
	return P1
}

// PeriodRange is an inclusive week range.
type PeriodRange struct {
	ID        PeriodID `mapstructure:"id" json:"id"`
	FirstWeek int      `mapstructure:"first_week" json:"first_week"`
	LastWeek  int      `mapstructure:"last_week" json:"last_week"`
}

// PeriodTable maps weeks to periods.
type PeriodTable []PeriodRange

// DefaultPeriods splits the year into late winter, spring, summer and autumn.
func DefaultPeriods() PeriodTable {
	return PeriodTable{
		{ID: P1, FirstWeek: 1, LastWeek: 9},
		{ID: P2, FirstWeek: 10, LastWeek: 22},
		{ID: P3, FirstWeek: 23, LastWeek: 35},
		{ID: P4, FirstWeek: 36, LastWeek: 53},
	}
}

// Validate checks the table has four contiguous, non-overlapping ranges
// covering weeks 1..53.
func (t PeriodTable) Validate() error {
	if len(t) != 4 {
		return &domain.ConfigError{Key: "periods", Reason: fmt.Sprintf("expected 4 periods, got %d", len(t))}
	}

	sorted := make(PeriodTable, len(t))
	copy(sorted, t)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].FirstWeek < sorted[j].FirstWeek })

	seen := make(map[PeriodID]bool, len(sorted))
	expected := 1
	for _, r := range sorted {
		if r.ID == "" {
			return &domain.ConfigError{Key: "periods", Reason: "period without id"}
		}
		if seen[r.ID] {
			return &domain.ConfigError{Key: "periods." + string(r.ID), Reason: "duplicated period"}
		}
		seen[r.ID] = true

		if r.FirstWeek != expected {
			return &domain.ConfigError{
				Key:    "periods." + string(r.ID),
				Reason: fmt.Sprintf("starts at week %d, expected %d (gap or overlap)", r.FirstWeek, expected),
			}
		}
		if r.LastWeek < r.FirstWeek {
			return &domain.ConfigError{Key: "periods." + string(r.ID), Reason: "last week before first week"}
		}
		expected = r.LastWeek + 1
	}
	if expected != MaxWeek+1 {
		return &domain.ConfigError{Key: "periods", Reason: fmt.Sprintf("weeks %d..%d not covered", expected, MaxWeek)}
	}
	return nil
}

// Resolve returns the period containing week.
func (t PeriodTable) Resolve(week int) (PeriodID, error) {
	if err := ValidWeek(week); err != nil {
		return "", err
	}
	for _, r := range t {
		if week >= r.FirstWeek && week <= r.LastWeek {
			return r.ID, nil
		}
	}
	return "", &domain.InvalidWeekError{Week: week, Reason: "not covered by any period"}
}

// ValidWeek rejects weeks outside 1..53.
func ValidWeek(week int) error {
	if week < 1 || week > MaxWeek {
		return &domain.InvalidWeekError{Week: week, Reason: fmt.Sprintf("must be between 1 and %d", MaxWeek)}
	}
	return nil
}

// NextWeek returns the week after week, wrapping at yearLength.
func NextWeek(week, yearLength int) int {
	if yearLength != 52 && yearLength != 53 {
		yearLength = DefaultYearLength
	}
	if week >= yearLength {
		return 1
	}
	return week + 1
}

// WeekOf returns the ISO year and week of t.
func WeekOf(t time.Time) (int, int) {
	return t.ISOWeek()
}

// YearOfWeek picks the ISO year of week as seen from now: the year whose
// week is closest to now, so week 52 processed in early January belongs to
// the previous year and week 1 processed in late December to the next.
func YearOfWeek(now time.Time, week int) int {
	year, current := now.ISOWeek()
	switch diff := week - current; {
	case diff > MaxWeek/2:
		return year - 1
	case diff < -MaxWeek/2:
		return year + 1
	default:
		return year
	}
}

// WeekRange returns the Monday and Sunday of an ISO week.
func WeekRange(year, week int) (time.Time, time.Time) {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset+(week-1)*7)
	return monday, monday.AddDate(0, 0, 6)
}

// Calendar resolves everything that depends only on the week number:
// the period, the sales target of a section and the holiday factor.
type Calendar struct {
	periods    PeriodTable
	targets    map[domain.Section]map[int]float64
	holidays   map[int]float64
	yearLength int
}

// New validates the calendar settings.
func New(periods PeriodTable, targets map[domain.Section]map[int]float64, holidays map[int]float64, yearLength int) (*Calendar, error) {
	if len(periods) == 0 {
		periods = DefaultPeriods()
	}
	if err := periods.Validate(); err != nil {
		return nil, err
	}

	if yearLength == 0 {
		yearLength = DefaultYearLength
	}
	if yearLength != 52 && yearLength != 53 {
		return nil, &domain.ConfigError{Key: "year_length", Reason: fmt.Sprintf("must be 52 or 53, got %d", yearLength)}
	}

	for week, factor := range holidays {
		if err := ValidWeek(week); err != nil {
			return nil, &domain.ConfigError{Key: fmt.Sprintf("holiday_factors.%d", week), Reason: err.Error()}
		}
		if factor < minHolidayFactor || factor > maxHolidayFactor {
			return nil, &domain.ConfigError{
				Key:    fmt.Sprintf("holiday_factors.%d", week),
				Reason: fmt.Sprintf("factor %.2f outside [%.1f, %.1f]", factor, minHolidayFactor, maxHolidayFactor),
			}
		}
	}

	for section, weeks := range targets {
		for week, amount := range weeks {
			if err := ValidWeek(week); err != nil {
				return nil, &domain.ConfigError{Key: fmt.Sprintf("weekly_targets.%s.%d", section, week), Reason: err.Error()}
			}
			if amount < 0 {
				return nil, &domain.ConfigError{Key: fmt.Sprintf("weekly_targets.%s.%d", section, week), Reason: "negative target"}
			}
		}
	}

	return &Calendar{
		periods:    periods,
		targets:    targets,
		holidays:   holidays,
		yearLength: yearLength,
	}, nil
}

// Period resolves the period of week.
func (c *Calendar) Period(week int) (PeriodID, error) {
	return c.periods.Resolve(week)
}

// Target returns the monetary sales target of a section for week.
func (c *Calendar) Target(section domain.Section, week int) (float64, error) {
	if err := ValidWeek(week); err != nil {
		return 0, err
	}
	amount, ok := c.targets[section][week]
	if !ok {
		return 0, &domain.MissingTargetError{Section: section, Week: week}
	}
	return amount, nil
}

// HolidayFactor returns the multiplier of week, 1.0 when none is configured.
func (c *Calendar) HolidayFactor(week int) float64 {
	if factor, ok := c.holidays[week]; ok {
		return factor
	}
	return 1.0
}

// Next returns the week after week for the configured year length.
func (c *Calendar) Next(week int) int {
	return NextWeek(week, c.yearLength)
}

// YearLength is 52 or 53.
func (c *Calendar) YearLength() int {
	return c.yearLength
}

// CheckSections makes sure every section has a target for week.
func (c *Calendar) CheckSections(sections []domain.Section, week int) error {
	for _, s := range sections {
		if _, err := c.Target(s, week); err != nil {
			return err
		}
	}
	return nil
}
