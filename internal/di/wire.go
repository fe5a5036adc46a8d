//go:build wireinject
// +build wireinject

package di

import (
	"FinSignal/pkg/config"
	"FinSignal/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideMarketStore,
		ProvideSnapshotStore,
		ProvideCandleSource,
		ProvideQuoteSource,
		ProvideHub,
		ProvideSnapshotSink,

		// Engine
		ProvideFusionEngine,
		ProvideForecaster,

		// Use cases
		ProvideInstrumentAnalyzer,
		ProvideCycleRunner,
		ProvideSignalUseCase,
		ProvideCandlesUseCase,
		ProvideMarketDataHandler,
		ProvideKafkaConsumer,

		// Transport
		ProvideRateLimiter,
		ProvideSignalsHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
