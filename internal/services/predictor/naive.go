package predictor

import (
	"context"
	"fmt"

	"SalesCast/internal/domain/models"
	domsvc "SalesCast/internal/domain/service"
	"SalesCast/internal/services/features"
)

// Naive is a local baseline that echoes a single lag of the target. With the
// recursive loop refreshing that lag each step, lag 1 yields persistence and
// lag 7 yields a weekly seasonal-naive repeat.
type Naive struct {
	feature string
}

// NewNaive builds a baseline over the given target column and lag offset.
func NewNaive(target string, lag int) *Naive {
	if lag < 1 {
		lag = 1
	}
	return &Naive{feature: features.LagName(target, lag)}
}

// NewPersistence repeats the most recent value.
func NewPersistence(target string) *Naive { return NewNaive(target, 1) }

// NewSeasonalNaive repeats the value from the same weekday one week back.
func NewSeasonalNaive(target string) *Naive { return NewNaive(target, 7) }

func (n *Naive) Features() []string { return []string{n.feature} }

func (n *Naive) Predict(_ context.Context, vec models.FeatureVector) (float64, error) {
	v, ok := vec[n.feature]
	if !ok {
		return 0, fmt.Errorf("feature %q missing from vector: %w", n.feature, models.ErrConfiguration)
	}
	return v, nil
}

var _ domsvc.Predictor = (*Naive)(nil)
