package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"SalesCast/internal/domain/models"
	drepo "SalesCast/internal/domain/repository"
	"SalesCast/internal/services/calendar"
)

// OrderProcessor folds order events into per-platform daily aggregates and
// routes finished aggregates to the configured backend. A day's aggregate is
// emitted when the first event of the next day arrives, or on Flush.
type OrderProcessor struct {
	pub     drepo.Publisher
	store   drepo.AggregateStorage
	metrics drepo.Metrics
	oracle  *calendar.Oracle
	backend string
	batchSz int
	batchTO time.Duration

	mu   sync.Mutex
	open map[string]*dayAccumulator // keyed by platform
}

type dayAccumulator struct {
	platform string
	day      time.Time
	revenue  float64
	original float64
	items    int
	orders   int
}

// NewOrderProcessor creates a new OrderProcessor instance.
func NewOrderProcessor(
	pub drepo.Publisher,
	store drepo.AggregateStorage,
	metrics drepo.Metrics,
	oracle *calendar.Oracle,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *OrderProcessor {
	if oracle == nil {
		oracle = calendar.New()
	}
	return &OrderProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		oracle:  oracle,
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
		open:    make(map[string]*dayAccumulator),
	}
}

// Process folds one order event into its platform's open day. The first event
// past midnight seals the previous day and routes it downstream.
func (p *OrderProcessor) Process(ctx context.Context, ev *drepo.OrderEvent) error {
	if ev == nil {
		return fmt.Errorf("order event is nil")
	}
	day := time.Unix(ev.Timestamp, 0).UTC().Truncate(24 * time.Hour)

	p.mu.Lock()
	acc, ok := p.open[ev.Platform]
	var sealed *dayAccumulator
	if ok && !acc.day.Equal(day) {
		sealed = acc
		acc = nil
	}
	if acc == nil {
		acc = &dayAccumulator{platform: ev.Platform, day: day}
		p.open[ev.Platform] = acc
	}
	acc.revenue += ev.Paid
	acc.original += ev.Original
	acc.items += ev.Items
	acc.orders++
	p.mu.Unlock()

	if sealed != nil {
		return p.emit(ctx, sealed)
	}
	return nil
}

// Flush seals and routes every open aggregate, including partial days.
// Called on shutdown.
func (p *OrderProcessor) Flush(ctx context.Context) error {
	p.mu.Lock()
	accs := make([]*dayAccumulator, 0, len(p.open))
	for _, acc := range p.open {
		accs = append(accs, acc)
	}
	p.open = make(map[string]*dayAccumulator)
	p.mu.Unlock()

	var firstErr error
	for _, acc := range accs {
		if err := p.emit(ctx, acc); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// FlushBefore seals and routes only aggregates for days before cutoff,
// leaving the current day's partial accumulators open.
func (p *OrderProcessor) FlushBefore(ctx context.Context, cutoff time.Time) error {
	p.mu.Lock()
	var accs []*dayAccumulator
	for k, acc := range p.open {
		if acc.day.Before(cutoff) {
			accs = append(accs, acc)
			delete(p.open, k)
		}
	}
	p.mu.Unlock()

	var firstErr error
	for _, acc := range accs {
		if err := p.emit(ctx, acc); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *OrderProcessor) emit(ctx context.Context, acc *dayAccumulator) error {
	start := time.Now()
	row := p.toRow(acc)

	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.PublishAggregate(ctx, row)
	case "clickhouse":
		err = p.store.Store(ctx, row)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process aggregate: %w", err)
	}

	p.metrics.RecordMessageSent(p.backend, acc.platform)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	return nil
}

// StoreBatch routes a pre-aggregated batch, used by the Kafka consumer path.
func (p *OrderProcessor) StoreBatch(ctx context.Context, rows []*models.ObservationRow) error {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()
	if err := p.store.StoreBatch(ctx, rows); err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}
	for _, r := range rows {
		p.metrics.RecordMessageSent("clickhouse", r.Platform)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	return nil
}

func (p *OrderProcessor) toRow(acc *dayAccumulator) *models.ObservationRow {
	row := &models.ObservationRow{
		Date:     acc.day,
		Platform: acc.platform,
		Revenue:  acc.revenue,
		Target:   math.Log1p(acc.revenue),
		Payday:   calendar.IsPayday(acc.day),
		MegaSale: p.oracle.IsMegaSaleDay(acc.day),
	}
	if acc.items > 0 {
		row.PaidPrice = acc.revenue / float64(acc.items)
	}
	if acc.original > 0 {
		row.DiscountRate = 1 - acc.revenue/acc.original
	}
	return row
}

// Close closes underlying resources if available.
func (p *OrderProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
