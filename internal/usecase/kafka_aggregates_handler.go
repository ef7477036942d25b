package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"SalesCast/internal/domain/models"
	drepo "SalesCast/internal/domain/repository"
)

// aggregateMsg mirrors the wire format KafkaPublisher produces.
type aggregateMsg struct {
	Platform        string  `json:"platform"`
	Date            string  `json:"date"`
	Revenue         float64 `json:"revenue"`
	AvgPaidPrice    float64 `json:"avg_paid_price"`
	AvgDiscountRate float64 `json:"avg_discount_rate"`
	IsPayday        bool    `json:"is_payday"`
	IsMegaSale      bool    `json:"is_mega_sale"`
}

// KafkaAggregatesHandler consumes daily aggregates off Kafka and lands them
// in storage in batches. Implements pkg/kafka.MessageHandler.
type KafkaAggregatesHandler struct {
	topic     string
	store     drepo.AggregateStorage
	metrics   drepo.Metrics
	batchSize int
	batchTO   time.Duration

	mu      sync.Mutex
	pending []*models.ObservationRow
	lastAdd time.Time
}

func NewKafkaAggregatesHandler(topic string, store drepo.AggregateStorage, metrics drepo.Metrics, batchSize int, batchTO time.Duration) *KafkaAggregatesHandler {
	if batchSize <= 0 {
		batchSize = 100
	}
	if batchTO <= 0 {
		batchTO = 5 * time.Second
	}
	return &KafkaAggregatesHandler{
		topic:     topic,
		store:     store,
		metrics:   metrics,
		batchSize: batchSize,
		batchTO:   batchTO,
	}
}

func (h *KafkaAggregatesHandler) Topic() string { return h.topic }

func (h *KafkaAggregatesHandler) Handle(ctx context.Context, data []byte) error {
	var m aggregateMsg
	if err := json.Unmarshal(data, &m); err != nil {
		h.metrics.RecordError("aggregate_decode")
		return fmt.Errorf("decode aggregate: %w", err)
	}
	if m.Platform == "" || m.Date == "" {
		h.metrics.RecordError("aggregate_invalid")
		return fmt.Errorf("aggregate missing platform or date")
	}
	day, err := time.ParseInLocation("2006-01-02", m.Date, time.UTC)
	if err != nil {
		h.metrics.RecordError("aggregate_invalid")
		return fmt.Errorf("parse aggregate date %q: %w", m.Date, err)
	}

	row := &models.ObservationRow{
		Date:         day,
		Platform:     m.Platform,
		Revenue:      m.Revenue,
		Target:       math.Log1p(m.Revenue),
		PaidPrice:    m.AvgPaidPrice,
		DiscountRate: m.AvgDiscountRate,
		Payday:       m.IsPayday,
		MegaSale:     m.IsMegaSale,
	}

	h.mu.Lock()
	h.pending = append(h.pending, row)
	h.lastAdd = time.Now()
	flush := len(h.pending) >= h.batchSize
	h.mu.Unlock()

	if flush {
		return h.Flush(ctx)
	}
	return nil
}

// Flush writes all pending rows. Called when the batch fills, by the ticker,
// and on shutdown.
func (h *KafkaAggregatesHandler) Flush(ctx context.Context) error {
	h.mu.Lock()
	batch := h.pending
	h.pending = nil
	h.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	start := time.Now()
	if err := h.store.StoreBatch(ctx, batch); err != nil {
		h.metrics.RecordError("aggregate_store")
		// put the batch back; the consumer's retry loop will call again
		h.mu.Lock()
		h.pending = append(batch, h.pending...)
		h.mu.Unlock()
		return fmt.Errorf("store aggregate batch: %w", err)
	}
	for _, r := range batch {
		h.metrics.RecordMessageSent("clickhouse", r.Platform)
	}
	h.metrics.RecordLatency("aggregate_batch", time.Since(start).Seconds())
	return nil
}

// StartFlusher runs a background loop that flushes stale partial batches.
func (h *KafkaAggregatesHandler) StartFlusher(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(h.batchTO)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = h.Flush(context.Background())
				return
			case <-ticker.C:
				h.mu.Lock()
				stale := len(h.pending) > 0 && time.Since(h.lastAdd) >= h.batchTO
				h.mu.Unlock()
				if stale {
					_ = h.Flush(ctx)
				}
			}
		}
	}()
}
