//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"MarketRegime/pkg/config"
	"MarketRegime/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,
		ProvideCache,

		// Infrastructure clients
		ProvideSeriesStore,
		ProvideClickHouseClient,
		ProvideSignalMirror,
		ProvideKafkaProducer,
		ProvideEventRelay,
		ProvideLogDigest,

		// Providers and scoring
		ProvidePriceFetcher,
		ProvideNewsFetcher,
		ProvideSentimentScorer,
		ProvideImpactNarrator,

		// Use cases
		ProvideIngestor,
		ProvidePipelineRunner,
		ProvideDashboard,
		ProvideRunRequestHandler,

		// Delivery
		ProvideStreamHub,
		ProvideDashboardHandler,
		ProvideHTTPServer,
		ProvideScheduler,
		ProvideKafkaConsumer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
