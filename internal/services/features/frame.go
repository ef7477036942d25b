package features

import (
	"fmt"
	"math"
	"time"

	"SalesCast/internal/domain/models"
)

// Frame is a date-indexed, column-oriented table of feature values. Columns
// keep insertion order so a fixed schema can be projected deterministically.
type Frame struct {
	Dates []time.Time

	order []string
	cols  map[string][]float64
}

// NewFrame creates an empty frame over the given date index.
func NewFrame(dates []time.Time) *Frame {
	return &Frame{
		Dates: dates,
		cols:  make(map[string][]float64),
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Dates) }

// Set adds or replaces a column. The column must match the row count.
func (f *Frame) Set(name string, vals []float64) {
	if _, ok := f.cols[name]; !ok {
		f.order = append(f.order, name)
	}
	f.cols[name] = vals
}

// Column returns a column by name.
func (f *Frame) Column(name string) ([]float64, bool) {
	v, ok := f.cols[name]
	return v, ok
}

// Has reports whether the frame carries the named column.
func (f *Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Columns returns column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// At returns the value of column name at row i, NaN when absent.
func (f *Frame) At(i int, name string) float64 {
	v, ok := f.cols[name]
	if !ok || i < 0 || i >= len(v) {
		return math.NaN()
	}
	return v[i]
}

// Row projects row i onto the given schema. Every requested name must exist.
func (f *Frame) Row(i int, schema []string) (models.FeatureVector, error) {
	if i < 0 || i >= f.Len() {
		return nil, fmt.Errorf("row %d out of range [0,%d): %w", i, f.Len(), models.ErrData)
	}
	vec := make(models.FeatureVector, len(schema))
	for _, name := range schema {
		col, ok := f.cols[name]
		if !ok {
			return nil, fmt.Errorf("feature %q not produced by builder: %w", name, models.ErrConfiguration)
		}
		vec[name] = col[i]
	}
	return vec, nil
}

// IndexOf returns the row index of date d, or -1.
func (f *Frame) IndexOf(d time.Time) int {
	for i, fd := range f.Dates {
		if fd.Equal(d) {
			return i
		}
	}
	return -1
}
