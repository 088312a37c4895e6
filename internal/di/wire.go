//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/Harry166/stro/pkg/config"
	"github.com/Harry166/stro/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(ctx context.Context, cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideRedisClient,

		// Providers and caches
		ProvideCacheStore,
		ProvideNewsBudget,
		ProvideMarketData,
		ProvideNewsClient,
		ProvideClassifier,
		ProvideTrendScorer,

		// Storage and streaming
		ProvideStore,
		ProvideClickHouseClient,
		ProvideAlertStore,
		ProvideKafkaProducer,
		ProvideKafkaPublisher,
		ProvideKafkaConsumer,
		ProvideHub,
		ProvideAlertPipeline,

		// Use cases
		ProvideSentimentAggregator,
		ProvideAlertEngine,
		ProvideWatchlistService,
		ProvideStockService,
		ProvideRankingService,
		ProvideQueue,
		ProvideScheduler,

		// Application server
		ProvideAPIHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
