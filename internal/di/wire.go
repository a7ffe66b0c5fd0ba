//go:build wireinject
// +build wireinject

package di

import (
	"HistPull/pkg/config"
	"HistPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideResultCache,

		// Aggregation collaborators
		ProvideLocator,
		ProvideDecoder,
		ProvideClassifier,
		ProvideAggregationEngine,

		// Persistence
		ProvideCandleStore,
		ProvideCandlePublisher,
		ProvideCandleProcessor,

		// Use cases
		ProvideHistoricalDataUseCase,

		// HTTP
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
