package repository

import (
	"context"
	"time"

	"SalesCast/internal/domain/models"
)

// SalesStore provides access to daily sales aggregates and forecast output.
// Rows come back date-ascending; callers are responsible for ensuring the
// series is daily-contiguous before feature building.
type SalesStore interface {
	GetDailyAggregates(ctx context.Context, platform string, from, to time.Time) ([]models.ObservationRow, error)
	GetLatestNDays(ctx context.Context, platform string, n int) ([]models.ObservationRow, error)
	StoreForecast(ctx context.Context, records []models.ForecastRecord) error
}
