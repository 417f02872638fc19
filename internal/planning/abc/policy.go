package abc

import (
	"fmt"

	"github.com/andresuchdata/vivero-po/internal/domain"
)

// Policy maps an ABC category to a demand weight and to the minimum stock
// coverage expressed in weeks of target sales.
type Policy struct {
	Weights  map[domain.Category]float64 `mapstructure:"weights" json:"weights"`
	Coverage map[domain.Category]float64 `mapstructure:"coverage" json:"coverage"`
}

// DefaultPolicy orders everything but D, keeping one and a half weeks of
// cover for the best sellers.
func DefaultPolicy() Policy {
	return Policy{
		Weights: map[domain.Category]float64{
			domain.CategoryA: 1.0,
			domain.CategoryB: 0.8,
			domain.CategoryC: 0.6,
			domain.CategoryD: 0.0,
		},
		Coverage: map[domain.Category]float64{
			domain.CategoryA: 1.5,
			domain.CategoryB: 1.0,
			domain.CategoryC: 0.5,
			domain.CategoryD: 0.0,
		},
	}
}

// Validate requires a weight in [0, 1] and a non-negative coverage for every
// category.
func (p Policy) Validate() error {
	for _, c := range domain.Categories {
		w, ok := p.Weights[c]
		if !ok {
			return &domain.MissingWeightError{Category: c}
		}
		if w < 0 || w > 1 {
			return &domain.ConfigError{Key: "weights." + string(c), Reason: fmt.Sprintf("weight %.2f outside [0, 1]", w)}
		}

		cov, ok := p.Coverage[c]
		if !ok {
			return &domain.ConfigError{Key: "coverage." + string(c), Reason: "missing minimum stock coverage"}
		}
		if cov < 0 {
			return &domain.ConfigError{Key: "coverage." + string(c), Reason: "negative coverage"}
		}
	}
	return nil
}

// Weight returns the demand multiplier of a category.
func (p Policy) Weight(c domain.Category) (float64, error) {
	w, ok := p.Weights[c]
	if !ok {
		return 0, &domain.MissingWeightError{Category: c}
	}
	return w, nil
}

// CoverageWeeks returns the minimum stock coverage of a category.
func (p Policy) CoverageWeeks(c domain.Category) (float64, error) {
	cov, ok := p.Coverage[c]
	if !ok {
		return 0, &domain.ConfigError{Key: "coverage." + string(c), Reason: "missing minimum stock coverage"}
	}
	return cov, nil
}
