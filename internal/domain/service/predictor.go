package service

import (
	"context"

	"SalesCast/internal/domain/models"
)

// Predictor is any trained point-predictor the forecaster can drive. The
// core never trains, tunes or persists it; it only calls Predict once per
// horizon step.
type Predictor interface {
	// Features returns the ordered feature names the model was trained on.
	// The forecaster validates its schema against this list once at run
	// start and projects onto it before every call.
	Features() []string

	Predict(ctx context.Context, vec models.FeatureVector) (float64, error)
}
