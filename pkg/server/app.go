package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"SalesCast/internal/handler/api"
	"SalesCast/internal/services/calendar"
	"SalesCast/internal/usecase"
	pkgch "SalesCast/pkg/clickhouse"
	"SalesCast/pkg/config"
	xhttp "SalesCast/pkg/http"
	pkgkafka "SalesCast/pkg/kafka"
	applogger "SalesCast/pkg/logger"
	pkgqueue "SalesCast/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	collector   *usecase.OrderCollector
	consumer    *pkgkafka.Consumer
	kh          *usecase.KafkaAggregatesHandler
	chClient    *pkgch.Client
	orch        *usecase.ForecastOrchestrator
	oracle      *calendar.Oracle
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	OrderProc   *usecase.OrderProcessor

	// scheduled batch runs through the Redis queue, present only when
	// model_service.redis is enabled
	queueRdb *redis.Client
	runQueue *pkgqueue.RedisQueue
	runPub   *pkgqueue.RedisQueue

	logSink applogger.Publisher
}

// SetLogSink attaches a publisher for aggregated error logs.
func (a *App) SetLogSink(p applogger.Publisher) { a.logSink = p }

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	collector *usecase.OrderCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaAggregatesHandler,
	chClient *pkgch.Client,
	orch *usecase.ForecastOrchestrator,
	oracle *calendar.Oracle,
) *App {
	return &App{
		cfg:       cfg,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
		orch:      orch,
		oracle:    oracle,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// init app logger (console info by default)
	l, _ := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})

	// Ship aggregated error logs to Kafka when a sink is attached
	if a.logSink != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "salescast.logs",
			Publisher:      a.logSink,
		})
		defer l.RemoveCollector()
	}

	// Setup Echo HTTP server using pkg/http and register routes via handler
	var httpHandler xhttp.Handler
	if a.httpHandler != nil {
		httpHandler = a.httpHandler
	} else if a.orch != nil {
		httpHandler = api.NewForecastEchoHandler(l, a.orch, a.oracle)
	}

	a.httpServer = xhttp.NewServer(httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start collector
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			l.Error("collector error", applogger.Error(err))
		}
	}()
	l.Info("collector started", applogger.Strings("platforms", a.cfg.SellerStream.Platforms))

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		a.kh.StartFlusher(ctx)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Scheduled batch forecast runs go through the Redis queue so retries
	// and dead-lettering come for free and only one replica runs the batch
	if a.cfg.ModelService.Redis.Enabled && a.orch != nil {
		a.queueRdb = redis.NewClient(&redis.Options{
			Addr:     a.cfg.ModelService.Redis.Addr,
			Password: a.cfg.ModelService.Redis.Password,
			DB:       a.cfg.ModelService.Redis.DB,
		})
		a.runQueue = pkgqueue.NewRedisConsumer(l, &pkgqueue.QueueConfig{
			Workers:    1,
			QueueSize:  16,
			RetryLimit: 2,
			RetryDelay: time.Minute,
		}, a.queueRdb, []pkgqueue.Job{usecase.NewForecastRunJob(a.orch)})
		if err := a.runQueue.Start(); err != nil {
			l.Warn("forecast run queue start error", applogger.Error(err))
		} else {
			a.runPub = pkgqueue.NewRedisPublisher(l, a.queueRdb)
			go a.scheduleRuns(ctx, l)
		}
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// scheduleRuns enqueues a full batch forecast once per day.
func (a *App) scheduleRuns(ctx context.Context, l *applogger.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := a.runPub.PublishMessage(ctx, "forecast.run_all",
				usecase.ForecastRunPayload{Horizon: a.cfg.Forecast.Horizon})
			if err != nil {
				l.Warn("forecast run schedule error", applogger.Error(err))
			} else {
				l.Info("batch forecast run scheduled",
					applogger.Int("horizon", a.cfg.Forecast.Horizon))
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	// best-effort logging via stdout
	l, err := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		log.Printf("failed to create logger: %v", err)
		return err
	}
	l.Info("shutting down...")

	// Stop collector (pipeline + stream), sealing open aggregates
	if err := a.collector.Shutdown(ctx); err != nil {
		l.Warn("collector stop error", applogger.Error(err))
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Drain the scheduled-run queue before infrastructure goes away
	if a.runQueue != nil {
		stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		if err := a.runQueue.Stop(stopCtx); err != nil {
			l.Warn("forecast run queue stop error", applogger.Error(err))
		}
		cancel()
	}
	if a.runPub != nil {
		stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		if err := a.runPub.Stop(stopCtx); err != nil {
			l.Warn("forecast run publisher stop error", applogger.Error(err))
		}
		cancel()
	}
	if a.queueRdb != nil {
		if err := a.queueRdb.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}

	// Flush any partial consumer batch before closing clients
	if a.kh != nil {
		if err := a.kh.Flush(ctx); err != nil {
			l.Warn("aggregate flush error", applogger.Error(err))
		}
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close order processor resources (publisher/storage)
	if a.OrderProc != nil {
		a.OrderProc.Close()
	}

	l.Info("shutdown complete")
	return nil
}
