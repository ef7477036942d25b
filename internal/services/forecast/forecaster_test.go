package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"SalesCast/internal/domain/models"
	"SalesCast/internal/services/features"
	"SalesCast/internal/services/predictor"
)

type stubPredictor struct {
	features []string
	fn       func(models.FeatureVector) (float64, error)
}

func (s *stubPredictor) Features() []string { return s.features }
func (s *stubPredictor) Predict(_ context.Context, vec models.FeatureVector) (float64, error) {
	return s.fn(vec)
}

func history(start time.Time, n int, val func(i int) float64) []models.ObservationRow {
	rows := make([]models.ObservationRow, n)
	for i := range rows {
		rows[i] = models.ObservationRow{
			Date:         start.AddDate(0, 0, i),
			Platform:     "lazada",
			Target:       val(i),
			PaidPrice:    100,
			DiscountRate: 0.1,
		}
	}
	return rows
}

func runConfig(horizon int) Config {
	return Config{
		Platform:      "lazada",
		Model:         "snaive",
		Target:        "revenue",
		Horizon:       horizon,
		LagOffsets:    []int{1, 7},
		RollingWindow: 7,
		ExogLags:      map[string][]int{features.ColPaidPrice: {1}},
	}
}

func flatPolicy() Policy {
	return Policy{EventPrice: 100, NonEventPrice: 100, EventDiscount: 0.1, NonEventDiscount: 0.1}
}

func newForecaster() *Forecaster {
	return New(features.NewBuilder(nil, nil), nil, nil, nil)
}

func TestForecastPersistenceRepeatsLastValue(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	hist := history(start, 60, func(i int) float64 { return float64(i + 1) })

	records, err := newForecaster().Forecast(context.Background(),
		predictor.NewPersistence("revenue"), hist, runConfig(14), flatPolicy())
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if len(records) != 14 {
		t.Fatalf("got %d records, want 14", len(records))
	}
	last := hist[len(hist)-1].Target
	for _, r := range records {
		if r.Value != last {
			t.Fatalf("persistence at %s = %v, want %v", r.Date.Format("2006-01-02"), r.Value, last)
		}
	}
}

func TestForecastClipsAtHistoricalMax(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	hist := history(start, 30, func(i int) float64 { return 50 + float64(i%7) })
	maxHist := 56.0

	over := &stubPredictor{
		features: []string{features.LagName("revenue", 1)},
		fn:       func(models.FeatureVector) (float64, error) { return 1e9, nil },
	}
	records, err := newForecaster().Forecast(context.Background(), over, hist, runConfig(10), flatPolicy())
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	for _, r := range records {
		if r.Value != maxHist {
			t.Fatalf("clipped value = %v, want %v", r.Value, maxHist)
		}
	}
}

func TestForecastSeasonalNaiveOnConstantSeries(t *testing.T) {
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	hist := history(start, 45, func(i int) float64 { return 10 })

	records, err := newForecaster().Forecast(context.Background(),
		predictor.NewSeasonalNaive("revenue"), hist, runConfig(21), flatPolicy())
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	for _, r := range records {
		if r.Value != 10 {
			t.Fatalf("value at %s = %v, want 10", r.Date.Format("2006-01-02"), r.Value)
		}
	}
}

func TestForecastDatesContiguous(t *testing.T) {
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	hist := history(start, 30, func(i int) float64 { return float64(20 + i%3) })

	records, err := newForecaster().Forecast(context.Background(),
		predictor.NewPersistence("revenue"), hist, runConfig(7), flatPolicy())
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	want := hist[len(hist)-1].Date.AddDate(0, 0, 1)
	for i, r := range records {
		if !r.Date.Equal(want.AddDate(0, 0, i)) {
			t.Fatalf("record %d date = %s, want %s", i,
				r.Date.Format("2006-01-02"), want.AddDate(0, 0, i).Format("2006-01-02"))
		}
		if r.Platform != "lazada" || r.Model != "snaive" {
			t.Fatalf("record %d mislabeled: %s/%s", i, r.Platform, r.Model)
		}
	}
}

func TestForecastPredictorFailureAbortsRun(t *testing.T) {
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	hist := history(start, 30, func(i int) float64 { return 5 })

	calls := 0
	failing := &stubPredictor{
		features: []string{features.LagName("revenue", 1)},
		fn: func(models.FeatureVector) (float64, error) {
			calls++
			if calls == 3 {
				return 0, fmt.Errorf("model service unavailable")
			}
			return 5, nil
		},
	}
	_, err := newForecaster().Forecast(context.Background(), failing, hist, runConfig(10), flatPolicy())
	if !errors.Is(err, models.ErrPrediction) {
		t.Fatalf("got %v, want prediction error", err)
	}
	if calls != 3 {
		t.Fatalf("predictor called %d times after failure, want 3", calls)
	}
}

func TestForecastValidation(t *testing.T) {
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	good := history(start, 30, func(i int) float64 { return 5 })
	pred := predictor.NewPersistence("revenue")
	f := newForecaster()
	ctx := context.Background()

	if _, err := f.Forecast(ctx, nil, good, runConfig(7), flatPolicy()); !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("nil predictor: got %v", err)
	}

	cfg := runConfig(0)
	if _, err := f.Forecast(ctx, pred, good, cfg, flatPolicy()); !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("zero horizon: got %v", err)
	}

	if _, err := f.Forecast(ctx, pred, nil, runConfig(7), flatPolicy()); !errors.Is(err, models.ErrData) {
		t.Fatalf("empty history: got %v", err)
	}

	gapped := history(start, 30, func(i int) float64 { return 5 })
	gapped[10].Date = gapped[10].Date.AddDate(0, 0, 1)
	if _, err := f.Forecast(ctx, pred, gapped, runConfig(7), flatPolicy()); !errors.Is(err, models.ErrData) {
		t.Fatalf("gapped history: got %v", err)
	}

	allNaN := history(start, 30, func(i int) float64 { return math.NaN() })
	if _, err := f.Forecast(ctx, pred, allNaN, runConfig(7), flatPolicy()); !errors.Is(err, models.ErrData) {
		t.Fatalf("all-null target: got %v", err)
	}

	misaligned := runConfig(7)
	misaligned.Start = good[len(good)-1].Date.AddDate(0, 0, 3)
	if _, err := f.Forecast(ctx, pred, good, misaligned, flatPolicy()); !errors.Is(err, models.ErrData) {
		t.Fatalf("misaligned start: got %v", err)
	}
}

func TestForecastAcceptsDSTHistory(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Spans the spring-forward transition on 2025-03-09; that day is only
	// 23 hours long, so consecutive midnights are not 24h apart.
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, loc)
	rows := history(start, 30, func(i int) float64 { return 5 })

	records, err := newForecaster().Forecast(context.Background(),
		predictor.NewPersistence("revenue"), rows, runConfig(7), flatPolicy())
	if err != nil {
		t.Fatalf("forecast over DST transition: %v", err)
	}
	if len(records) != 7 {
		t.Fatalf("expected 7 records, got %d", len(records))
	}
}

func TestForecastAlignedStartAccepted(t *testing.T) {
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	hist := history(start, 30, func(i int) float64 { return 5 })

	cfg := runConfig(7)
	cfg.Start = hist[len(hist)-1].Date.AddDate(0, 0, 1)
	if _, err := newForecaster().Forecast(context.Background(),
		predictor.NewPersistence("revenue"), hist, cfg, flatPolicy()); err != nil {
		t.Fatalf("aligned start rejected: %v", err)
	}
}
