package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"SalesCast/internal/domain/repository"
	mid "SalesCast/internal/middleware"
	internalrepo "SalesCast/internal/repository"
	icache "SalesCast/internal/service/cache"
	"SalesCast/internal/service/sellerstream"
	"SalesCast/internal/services/calendar"
	"SalesCast/internal/services/features"
	"SalesCast/internal/services/forecast"
	"SalesCast/internal/services/predictor"
	"SalesCast/internal/usecase"
	pkgcache "SalesCast/pkg/cache"
	pkgch "SalesCast/pkg/clickhouse"
	"SalesCast/pkg/config"
	pkgkafka "SalesCast/pkg/kafka"
	applogger "SalesCast/pkg/logger"
	"SalesCast/pkg/metrics"
	"SalesCast/pkg/server"
)

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS salescast",
		"CREATE TABLE IF NOT EXISTS salescast.sales_daily (date Date, platform String, revenue Float64, target Float64, avg_paid_price Float64, avg_discount_rate Float64, is_payday UInt8, is_mega_sale UInt8, event_id String) ENGINE=ReplacingMergeTree ORDER BY (platform, date)",
		"CREATE TABLE IF NOT EXISTS salescast.sales_forecasts (date Date, platform String, model String, value Float64, created_at DateTime) ENGINE=MergeTree ORDER BY (platform, model, date, created_at)",
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideSalesStorage creates the ClickHouse sales repository.
func ProvideSalesStorage(chClient *pkgch.Client, cfg *config.Config) *internalrepo.ClickHouseStorage {
	db := cfg.ClickHouse.Database
	return internalrepo.NewClickHouseStorage(chClient.DB(), db+".sales_daily", db+".sales_forecasts")
}

// ProvideAggregateStorage exposes the sales repository as AggregateStorage.
func ProvideAggregateStorage(s *internalrepo.ClickHouseStorage) repository.AggregateStorage {
	return s
}

// ProvideSalesStore exposes the sales repository as SalesStore.
func ProvideSalesStore(s *internalrepo.ClickHouseStorage) repository.SalesStore {
	return s
}

// ProvidePublisher creates Kafka publisher repository.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic, cfg.Kafka.ForecastTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaAggregatesHandler registers handler for the aggregates topic.
func ProvideKafkaAggregatesHandler(store repository.AggregateStorage, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaAggregatesHandler {
	return usecase.NewKafkaAggregatesHandler(cfg.Kafka.Topic, store, metrics, cfg.Backend.BatchSize, cfg.Backend.BatchTimeout)
}

// ProvideCalendarOracle builds the event calendar with configured extras.
func ProvideCalendarOracle(cfg *config.Config) *calendar.Oracle {
	extras := make([]calendar.MonthDay, 0, len(cfg.Calendar.ExtraPromos))
	for _, s := range cfg.Calendar.ExtraPromos {
		parts := strings.SplitN(s, "-", 2)
		if len(parts) != 2 {
			continue
		}
		m, err1 := strconv.Atoi(parts[0])
		d, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil || m < 1 || m > 12 || d < 1 || d > 31 {
			continue
		}
		extras = append(extras, calendar.MonthDay{Month: time.Month(m), Day: d})
	}
	return calendar.New(extras...)
}

// ProvideSellerStream creates the seller-center WebSocket stream.
func ProvideSellerStream(cfg *config.Config) repository.OrderStream {
	return sellerstream.New(
		cfg.SellerStream.APIKey,
		cfg.SellerStream.WebSocketURL,
		cfg.SellerStream.Platforms,
		cfg.SellerStream.ReconnectDelay,
		cfg.SellerStream.PingInterval,
	)
}

// ProvideOrderProcessor creates the order processor use case.
func ProvideOrderProcessor(
	pub repository.Publisher,
	store repository.AggregateStorage,
	metrics repository.Metrics,
	oracle *calendar.Oracle,
	cfg *config.Config,
) *usecase.OrderProcessor {
	return usecase.NewOrderProcessor(
		pub,
		store,
		metrics,
		oracle,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideOrderCollector creates the order collector use case.
func ProvideOrderCollector(
	stream repository.OrderStream,
	processor *usecase.OrderProcessor,
	metrics repository.Metrics,
) *usecase.OrderCollector {
	// Build middleware pipeline between WebSocket and the backend
	pipe := mid.NewRealtimePipeline(processor, metrics,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewOrderCollector(stream, processor, metrics, pipe)
}

// ProvideForecaster creates the recursive forecaster over the feature builder.
func ProvideForecaster(oracle *calendar.Oracle, metrics repository.Metrics) *forecast.Forecaster {
	builder := features.NewBuilder(oracle, nil)
	return forecast.New(builder, oracle, metrics, nil)
}

// ProvidePredictorFactory creates the predictor factory.
func ProvidePredictorFactory(cfg *config.Config) *predictor.Factory {
	return predictor.NewFactory(cfg)
}

// ProvideSharedCache creates the cross-instance cache when Redis is enabled.
func ProvideSharedCache(cfg *config.Config) icache.BytesCache {
	if !cfg.ModelService.Redis.Enabled {
		return nil
	}
	return icache.NewRedisCache(icache.RedisConfig{
		Addr:     cfg.ModelService.Redis.Addr,
		Password: cfg.ModelService.Redis.Password,
		DB:       cfg.ModelService.Redis.DB,
	})
}

// ProvideRowCache builds the history row cache. With Redis enabled it layers
// an in-process cache over Redis so replicas share warm rows; otherwise a
// memory cache alone.
func ProvideRowCache(cfg *config.Config) pkgcache.Service {
	if cfg.ModelService.Redis.Enabled {
		host := cfg.ModelService.Redis.Addr
		port := 6379
		if h, p, err := net.SplitHostPort(cfg.ModelService.Redis.Addr); err == nil {
			host = h
			if n, err := strconv.Atoi(p); err == nil {
				port = n
			}
		}
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.ModelService.Redis.Password),
			pkgcache.WithRedisDB(cfg.ModelService.Redis.DB),
			pkgcache.WithRedisPrefix("salescast"),
		)
		if err == nil {
			return pkgcache.NewLayeredCache(rc)
		}
	}
	return pkgcache.NewMemoryCache()
}

// ProvideForecastOrchestrator creates the batch forecast orchestrator.
func ProvideForecastOrchestrator(
	store repository.SalesStore,
	pub repository.Publisher,
	fc *forecast.Forecaster,
	factory *predictor.Factory,
	shared icache.BytesCache,
	rows pkgcache.Service,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.ForecastOrchestrator {
	return usecase.NewForecastOrchestrator(store, pub, fc, factory, icache.NewTTLCache(), shared, rows, metrics, nil, cfg)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	collector *usecase.OrderCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaAggregatesHandler,
	chClient *pkgch.Client,
	orch *usecase.ForecastOrchestrator,
	oracle *calendar.Oracle,
	pub repository.Publisher,
) *server.App {
	// Attach hook to consumer: example NoopHook for now; can be replaced via config
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, collector, consumer, kh, chClient, orch, oracle)
	// attach order processor to app for closing resources via collector
	if collector != nil {
		app.OrderProc = collector.Processor()
	}
	// Kafka publisher doubles as the aggregated error-log sink
	if sink, ok := pub.(applogger.Publisher); ok {
		app.SetLogSink(sink)
	}
	return app
}
