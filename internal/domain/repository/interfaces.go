package repository

import (
	"context"
	"time"

	"SalesCast/internal/domain/models"
)

// OrderEvent is a single order-level event from a seller-center stream,
// aggregated downstream into daily ObservationRows.
type OrderEvent struct {
	Platform  string
	OrderID   string
	Timestamp int64
	Paid      float64
	Original  float64
	Items     int
}

type OrderStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *OrderEvent, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Publisher interface {
	PublishAggregate(ctx context.Context, row *models.ObservationRow) error
	PublishForecast(ctx context.Context, records []models.ForecastRecord) error
	Close() error
}

type AggregateStorage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, row *models.ObservationRow) error
	StoreBatch(ctx context.Context, rows []*models.ObservationRow) error
	Query(ctx context.Context, platform string, from, to time.Time, limit int) ([]*models.ObservationRow, error)
	Health(ctx context.Context) error // ping
	Close() error
}

type Metrics interface {
	RecordForecastStep(platform, model string)
	RecordClip(platform, model string)
	RecordError(kind string)
	RecordLastForecast(platform, model string, value float64)
	RecordLatency(op string, seconds float64)
	RecordMessageSent(backend, platform string)
}
