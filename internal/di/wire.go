//go:build wireinject
// +build wireinject

package di

import (
	"SalesCast/pkg/config"
	"SalesCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Metrics
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories (with business logic)
		ProvideSalesStorage,
		ProvideAggregateStorage,
		ProvideSalesStore,
		ProvidePublisher,
		ProvideSellerStream,

		// Domain services
		ProvideSharedCache,
		ProvideRowCache,
		ProvideCalendarOracle,
		ProvideForecaster,
		ProvidePredictorFactory,

		// Use cases
		ProvideOrderProcessor,
		ProvideOrderCollector,
		ProvideKafkaAggregatesHandler,
		ProvideForecastOrchestrator,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
