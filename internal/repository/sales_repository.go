package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SalesCast/internal/domain/models"
	"SalesCast/internal/domain/repository"
	pkgkafka "SalesCast/pkg/kafka"
)

// ClickHouseStorage implements AggregateStorage and SalesStore for ClickHouse.
type ClickHouseStorage struct {
	db            *sql.DB
	table         string
	forecastTable string
}

// NewClickHouseStorage creates ClickHouse storage over the daily aggregate
// and forecast tables.
func NewClickHouseStorage(db *sql.DB, table, forecastTable string) *ClickHouseStorage {
	return &ClickHouseStorage{db: db, table: table, forecastTable: forecastTable}
}

func (s *ClickHouseStorage) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseStorage) Store(ctx context.Context, r *models.ObservationRow) error {
	q := fmt.Sprintf("INSERT INTO %s (date, platform, revenue, target, avg_paid_price, avg_discount_rate, is_payday, is_mega_sale, event_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	// Idempotency key: one aggregate per platform-day
	eventID := fmt.Sprintf("%s-%s", r.Platform, r.Date.Format("2006-01-02"))
	_, err := s.db.ExecContext(ctx, q,
		r.Date,
		r.Platform,
		r.Revenue,
		r.Target,
		r.PaidPrice,
		r.DiscountRate,
		boolToUInt8(r.Payday),
		boolToUInt8(r.MegaSale),
		eventID,
	)
	return err
}

func (s *ClickHouseStorage) StoreBatch(ctx context.Context, rows []*models.ObservationRow) error {
	if len(rows) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	// Chunk size tuned to 2000 rows per batch.
	const chunkSize = 2000
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*9)
		for _, r := range rows[start:end] {
			if r == nil || r.Platform == "" || r.Date.IsZero() {
				continue
			}
			eventID := fmt.Sprintf("%s-%s", r.Platform, r.Date.Format("2006-01-02"))
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				r.Date,
				r.Platform,
				r.Revenue,
				r.Target,
				r.PaidPrice,
				r.DiscountRate,
				boolToUInt8(r.Payday),
				boolToUInt8(r.MegaSale),
				eventID,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (date, platform, revenue, target, avg_paid_price, avg_discount_rate, is_payday, is_mega_sale, event_id) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseStorage) Query(ctx context.Context, platform string, from, to time.Time, limit int) ([]*models.ObservationRow, error) {
	q := fmt.Sprintf("SELECT date, platform, revenue, target, avg_paid_price, avg_discount_rate, is_payday, is_mega_sale FROM %s WHERE platform = ? AND date >= ? AND date <= ? ORDER BY date DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, platform, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.ObservationRow
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetDailyAggregates returns the platform's aggregates in [from, to],
// date-ascending, ready for feature building.
func (s *ClickHouseStorage) GetDailyAggregates(ctx context.Context, platform string, from, to time.Time) ([]models.ObservationRow, error) {
	q := fmt.Sprintf("SELECT date, platform, revenue, target, avg_paid_price, avg_discount_rate, is_payday, is_mega_sale FROM %s WHERE platform = ? AND date >= ? AND date <= ? ORDER BY date ASC", s.table)
	rows, err := s.db.QueryContext(ctx, q, platform, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ObservationRow
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// GetLatestNDays returns the most recent n aggregates, date-ascending.
func (s *ClickHouseStorage) GetLatestNDays(ctx context.Context, platform string, n int) ([]models.ObservationRow, error) {
	q := fmt.Sprintf("SELECT date, platform, revenue, target, avg_paid_price, avg_discount_rate, is_payday, is_mega_sale FROM %s WHERE platform = ? ORDER BY date DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, platform, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ObservationRow
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Flip DESC pagination back to ascending order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// StoreForecast appends a completed run's records.
func (s *ClickHouseStorage) StoreForecast(ctx context.Context, records []models.ForecastRecord) error {
	if len(records) == 0 {
		return nil
	}
	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*5)
	now := time.Now().UTC()
	for _, r := range records {
		values = append(values, "(?, ?, ?, ?, ?)")
		args = append(args, r.Date, r.Platform, r.Model, r.Value, now)
	}
	q := fmt.Sprintf("INSERT INTO %s (date, platform, model, value, created_at) VALUES %s", s.forecastTable, strings.Join(values, ","))
	_, err := s.db.ExecContext(ctx, q, args...)
	return err
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // Managed by pkg
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRow(rs rowScanner) (*models.ObservationRow, error) {
	var r models.ObservationRow
	var payday, megaSale uint8
	if err := rs.Scan(&r.Date, &r.Platform, &r.Revenue, &r.Target, &r.PaidPrice, &r.DiscountRate, &payday, &megaSale); err != nil {
		return nil, err
	}
	r.Payday = payday != 0
	r.MegaSale = megaSale != 0
	return &r, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer      *pkgkafka.Producer
	topic         string
	forecastTopic string
}

// NewKafkaPublisher creates Kafka publisher over the aggregate and forecast topics.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic, forecastTopic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic, forecastTopic: forecastTopic}
}

func (p *KafkaPublisher) PublishAggregate(ctx context.Context, r *models.ObservationRow) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.Platform), map[string]interface{}{
		"platform":          r.Platform,
		"date":              r.Date.Format("2006-01-02"),
		"revenue":           r.Revenue,
		"avg_paid_price":    r.PaidPrice,
		"avg_discount_rate": r.DiscountRate,
		"is_payday":         r.Payday,
		"is_mega_sale":      r.MegaSale,
	})
}

func (p *KafkaPublisher) PublishForecast(ctx context.Context, records []models.ForecastRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(records))
	for i, r := range records {
		msgs[i] = pkgkafka.Message{
			Key: []byte(r.Platform),
			Value: map[string]interface{}{
				"platform": r.Platform,
				"model":    r.Model,
				"date":     r.Date.Format("2006-01-02"),
				"value":    r.Value,
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.forecastTopic, msgs)
}

// PublishMessage sends an arbitrary payload to a topic. Satisfies the log
// collector's publisher so aggregated error logs ship through Kafka.
func (p *KafkaPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
