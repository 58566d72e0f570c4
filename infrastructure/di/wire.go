//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"graphexplorer/application/ports"
	"graphexplorer/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideAWSConfig,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideTracer,
	ProvideMetrics,
	ProvideMetricsHandler,
	ProvideHTTPClient,
	ProvideGateway,
	ProvideSparqlClient,
	ProvideEventPublisher,
	ProvideMetadataResolver,
	ProvideLayoutEngine,
	ProvideGraphModelFactory,
	ProvideSessionRegistry,
	ProvideInMemoryCache,
	wire.Bind(new(ports.Cache), new(*InMemoryCache)),
	ProvideHookManager,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideJWTValidator,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
