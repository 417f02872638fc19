package domain

import (
	"errors"
	"fmt"
)

// InvalidWeekError reports a week outside 1..53 or not covered by any period.
type InvalidWeekError struct {
	Week   int
	Reason string
}

func (e *InvalidWeekError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid week %d", e.Week)
	}
	return fmt.Sprintf("invalid week %d: %s", e.Week, e.Reason)
}

// MissingTargetError reports an active section without a sales target for the week.
type MissingTargetError struct {
	Section Section
	Week    int
}

func (e *MissingTargetError) Error() string {
	return fmt.Sprintf("missing weekly target for section %s week %d", e.Section, e.Week)
}

// MissingWeightError reports a category without a configured weight.
type MissingWeightError struct {
	Category Category
}

func (e *MissingWeightError) Error() string {
	return fmt.Sprintf("missing weight for category %q", e.Category)
}

// InvalidPriceError reports an article that cannot be converted from money
// to units because its price is zero, negative or missing.
type InvalidPriceError struct {
	ArticleCode string
	Price       float64
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("article %s has invalid unit price %.2f", e.ArticleCode, e.Price)
}

// OutOfOrderWeekError reports a state update that skips or repeats a week.
type OutOfOrderWeekError struct {
	ArticleCode string
	Expected    int
	Got         int
}

func (e *OutOfOrderWeekError) Error() string {
	if e.ArticleCode == "" {
		return fmt.Sprintf("week %d is out of order, expected week %d", e.Got, e.Expected)
	}
	return fmt.Sprintf("article %s: week %d is out of order, expected week %d", e.ArticleCode, e.Got, e.Expected)
}

// ConfigError reports an invalid planning setting.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
}

// IsConfigError reports whether err is one of the fatal configuration errors.
func IsConfigError(err error) bool {
	var (
		weekErr   *InvalidWeekError
		targetErr *MissingTargetError
		weightErr *MissingWeightError
		cfgErr    *ConfigError
	)
	return errors.As(err, &weekErr) ||
		errors.As(err, &targetErr) ||
		errors.As(err, &weightErr) ||
		errors.As(err, &cfgErr)
}

// IsSequencingError reports whether err is an out-of-order week.
func IsSequencingError(err error) bool {
	var seqErr *OutOfOrderWeekError
	return errors.As(err, &seqErr)
}
