//go:build wireinject
// +build wireinject

package di

import (
	"StreamPulse/pkg/config"
	"StreamPulse/pkg/server"

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
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideEventStore,
		ProvideAlertQueue,

		// Detectors and enrichment
		ProvideToxicityClassifier,
		ProvideChatDetector,
		ProvideMarketDetector,

		// Use cases
		ProvideEventProcessor,
		ProvideChatAdapter,
		ProvideMarketAdapter,

		// HTTP surface and application server
		ProvideStatusHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
