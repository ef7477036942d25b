package models

import "time"

// ObservationRow is one calendar day of aggregated sales for a platform.
// Target carries the transformed value the model operates in (log1p of
// gross revenue); it is NaN on placeholder future rows.
type ObservationRow struct {
	Date         time.Time
	Platform     string
	Revenue      float64
	Target       float64
	PaidPrice    float64
	DiscountRate float64
	Payday       bool
	MegaSale     bool
}

// Event reports whether the row falls on a payday or mega-sale day.
func (r ObservationRow) Event() bool { return r.Payday || r.MegaSale }

// ForecastRecord is a single step of a completed forecast, in the model's
// transformed space. Records are append-only once the run finishes.
type ForecastRecord struct {
	Date     time.Time `json:"date"`
	Platform string    `json:"platform"`
	Model    string    `json:"model"`
	Value    float64   `json:"value"`
}

// FeatureVector maps feature names to values for a single prediction.
type FeatureVector map[string]float64

// Clone returns an independent copy of the vector.
func (v FeatureVector) Clone() FeatureVector {
	out := make(FeatureVector, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// ForecastResult is the full output of one platform/model run.
type ForecastResult struct {
	Platform  string           `json:"platform"`
	Model     string           `json:"model"`
	Horizon   int              `json:"horizon"`
	Start     time.Time        `json:"start"`
	Records   []ForecastRecord `json:"records"`
	CreatedAt time.Time        `json:"created_at"`
}
