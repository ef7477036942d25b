package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"SalesCast/internal/domain/models"
	drepo "SalesCast/internal/domain/repository"
)

type fakeStore struct {
	rows []*models.ObservationRow
}

func (s *fakeStore) Init(context.Context) error { return nil }
func (s *fakeStore) Store(_ context.Context, r *models.ObservationRow) error {
	s.rows = append(s.rows, r)
	return nil
}
func (s *fakeStore) StoreBatch(_ context.Context, rows []*models.ObservationRow) error {
	s.rows = append(s.rows, rows...)
	return nil
}
func (s *fakeStore) Query(context.Context, string, time.Time, time.Time, int) ([]*models.ObservationRow, error) {
	return nil, nil
}
func (s *fakeStore) Health(context.Context) error { return nil }
func (s *fakeStore) Close() error                 { return nil }

type fakeMetrics struct{}

func (fakeMetrics) RecordForecastStep(string, string)          {}
func (fakeMetrics) RecordClip(string, string)                  {}
func (fakeMetrics) RecordError(string)                         {}
func (fakeMetrics) RecordLastForecast(string, string, float64) {}
func (fakeMetrics) RecordLatency(string, float64)              {}
func (fakeMetrics) RecordMessageSent(string, string)           {}

func orderAt(platform string, day time.Time, paid, original float64, items int) *drepo.OrderEvent {
	return &drepo.OrderEvent{
		Platform:  platform,
		OrderID:   "o1",
		Timestamp: day.Unix(),
		Paid:      paid,
		Original:  original,
		Items:     items,
	}
}

func TestDayRolloverSealsPreviousDay(t *testing.T) {
	store := &fakeStore{}
	p := NewOrderProcessor(nil, store, fakeMetrics{}, nil, "clickhouse", 0, 0)
	ctx := context.Background()

	day1 := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	if err := p.Process(ctx, orderAt("lazada", day1, 100, 125, 4)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Process(ctx, orderAt("lazada", day1.Add(time.Hour), 50, 50, 1)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("day emitted before rollover")
	}

	if err := p.Process(ctx, orderAt("lazada", day2, 10, 10, 1)); err != nil {
		t.Fatalf("process rollover: %v", err)
	}
	if len(store.rows) != 1 {
		t.Fatalf("expected 1 sealed day, got %d", len(store.rows))
	}

	row := store.rows[0]
	if !row.Date.Equal(day1.Truncate(24 * time.Hour)) {
		t.Fatalf("wrong sealed day %v", row.Date)
	}
	if row.Revenue != 150 {
		t.Fatalf("expected revenue 150, got %v", row.Revenue)
	}
	if math.Abs(row.Target-math.Log1p(150)) > 1e-12 {
		t.Fatalf("target not log1p of revenue: %v", row.Target)
	}
	if math.Abs(row.PaidPrice-150.0/5) > 1e-12 {
		t.Fatalf("unexpected avg price %v", row.PaidPrice)
	}
	if math.Abs(row.DiscountRate-(1-150.0/175)) > 1e-12 {
		t.Fatalf("unexpected discount rate %v", row.DiscountRate)
	}
}

func TestFlushBeforeKeepsCurrentDay(t *testing.T) {
	store := &fakeStore{}
	p := NewOrderProcessor(nil, store, fakeMetrics{}, nil, "clickhouse", 0, 0)
	ctx := context.Background()

	day1 := time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 3, 1, 0, 0, 0, time.UTC)

	if err := p.Process(ctx, orderAt("shopee", day1, 100, 100, 1)); err != nil {
		t.Fatalf("process: %v", err)
	}
	// rollover seals day1; day2 stays open
	if err := p.Process(ctx, orderAt("shopee", day2, 20, 20, 1)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Process(ctx, orderAt("tiki", day2, 30, 30, 1)); err != nil {
		t.Fatalf("process: %v", err)
	}
	sealed := len(store.rows)

	cutoff := day2.Truncate(24 * time.Hour)
	if err := p.FlushBefore(ctx, cutoff); err != nil {
		t.Fatalf("flush before: %v", err)
	}
	if len(store.rows) != sealed {
		t.Fatalf("open current days were flushed early")
	}

	if err := p.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(store.rows) != sealed+2 {
		t.Fatalf("expected both open days sealed, got %d rows", len(store.rows))
	}
}
