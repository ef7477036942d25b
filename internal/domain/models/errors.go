package models

import "errors"

// Error taxonomy for forecast runs. Configuration and data errors surface
// eagerly before any state mutation; prediction errors abort the run.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrData          = errors.New("data error")
	ErrPrediction    = errors.New("prediction error")
)
