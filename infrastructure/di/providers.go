package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"graphexplorer/application/commands/bus"
	commandhandlers "graphexplorer/application/commands/handlers"
	"graphexplorer/application/ports"
	"graphexplorer/application/queries"
	querybus "graphexplorer/application/queries/bus"
	queryhandlers "graphexplorer/application/queries/handlers"
	"graphexplorer/application/services"
	domainconfig "graphexplorer/domain/config"
	domainservices "graphexplorer/domain/services"
	"graphexplorer/infrastructure/config"
	"graphexplorer/infrastructure/layout"
	"graphexplorer/infrastructure/messaging"
	"graphexplorer/infrastructure/messaging/eventbridge"
	"graphexplorer/infrastructure/triplestore"
	"graphexplorer/pkg/auth"
	"graphexplorer/pkg/extensions"
	"graphexplorer/pkg/observability"
)

// MetricsHandler serves the Prometheus scrape endpoint. It is nil unless
// pull metrics are active.
type MetricsHandler http.Handler

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("environment", cfg.Environment)), nil
}

// ProvideDomainConfig selects graph limits for the environment
func ProvideDomainConfig(cfg *config.Config) (*domainconfig.DomainConfig, error) {
	domainCfg := domainconfig.LoadDomainConfig(cfg.Environment)
	if err := domainCfg.Validate(); err != nil {
		return nil, err
	}
	return domainCfg, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer("graphexplorer", cfg.EnableTracing)
}

// ProvideMetrics pushes to CloudWatch on Lambda and exposes Prometheus
// metrics elsewhere
func ProvideMetrics(cfg *config.Config, client *awscloudwatch.Client, logger *zap.Logger) ports.Metrics {
	switch {
	case !cfg.EnableMetrics:
		return observability.NoopMetrics{}
	case cfg.IsLambda:
		namespace := fmt.Sprintf("%s/%s", cfg.MetricsNamespace, cfg.Environment)
		return observability.NewCloudWatchMetrics(namespace, client, logger)
	default:
		return observability.NewPrometheusMetrics("graphexplorer")
	}
}

// ProvideMetricsHandler exposes the scrape handler when metrics are pulled
func ProvideMetricsHandler(metrics ports.Metrics) MetricsHandler {
	if prom, ok := metrics.(*observability.PrometheusMetrics); ok {
		return prom.Handler()
	}
	return nil
}

// ProvideHTTPClient creates the client used to reach the triple store
func ProvideHTTPClient(cfg *config.Config, tracer *observability.Tracer) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 16
	transport.IdleConnTimeout = 90 * time.Second

	return tracer.InstrumentClient(&http.Client{Transport: transport})
}

// ProvideGateway creates the SPARQL gateway
func ProvideGateway(cfg *config.Config, client *http.Client, metrics ports.Metrics, logger *zap.Logger) (*triplestore.Gateway, error) {
	breaker := triplestore.DefaultBreakerConfig()
	breaker.Enabled = cfg.SPARQL.BreakerEnabled
	if cfg.SPARQL.BreakerTimeout > 0 {
		breaker.Timeout = cfg.SPARQL.BreakerTimeout
	}
	if cfg.SPARQL.BreakerFailureRatio > 0 {
		breaker.FailureThreshold = cfg.SPARQL.BreakerFailureRatio
	}
	if cfg.SPARQL.BreakerMinRequests > 0 {
		breaker.MinRequests = cfg.SPARQL.BreakerMinRequests
	}

	return triplestore.NewGateway(triplestore.Config{
		Endpoint: cfg.SPARQL.Endpoint,
		Timeout:  cfg.SPARQL.Timeout,
		Breaker:  breaker,
	}, client, metrics, logger)
}

// ProvideSparqlClient exposes the gateway as the application port
func ProvideSparqlClient(gateway *triplestore.Gateway) ports.SparqlClient {
	return gateway
}

// ProvideEventPublisher sends events to EventBridge when enabled and to
// the log otherwise
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.EnableEvents {
		return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
	}
	return messaging.NewLogPublisher(logger)
}

// ProvideMetadataResolver creates the node resolver
func ProvideMetadataResolver(client ports.SparqlClient, cfg *config.Config, domainCfg *domainconfig.DomainConfig, logger *zap.Logger) *services.MetadataResolver {
	return services.NewMetadataResolver(client, services.ResolverConfig{
		Prefixes:              cfg.Explorer.Prefixes,
		LabelPredicates:       cfg.Explorer.LabelPredicates,
		DescriptionPredicates: cfg.Explorer.DescriptionPredicates,
		MetadataPredicates:    cfg.Explorer.MetadataPredicates,
		BlankNodeDepth:        domainCfg.BlankNodeDepth(cfg.Explorer.BlankNodeDepth),
	}, logger)
}

// ProvideLayoutEngine creates the layout engine over the layered solver
func ProvideLayoutEngine() *domainservices.LayoutEngine {
	return domainservices.NewLayoutEngine(layout.NewLayeredSolver(layout.DefaultConfig()))
}

// ProvideGraphModelFactory builds one GraphModel per session
func ProvideGraphModelFactory(
	cfg *config.Config,
	domainCfg *domainconfig.DomainConfig,
	client ports.SparqlClient,
	resolver *services.MetadataResolver,
	engine *domainservices.LayoutEngine,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	tracer *observability.Tracer,
	logger *zap.Logger,
) services.GraphModelFactory {
	modelCfg := services.GraphModelConfig{
		Prefixes:             cfg.Explorer.Prefixes,
		ExpansionPredicates:  cfg.Explorer.ExpansionPredicates,
		ExpansionConcurrency: domainCfg.ExpansionConcurrency(cfg.Explorer.ExpansionConcurrency),
		MaxNodes:             domainCfg.MaxNodesPerGraph,
	}
	return func(sessionID string) *services.GraphModel {
		return services.NewGraphModel(sessionID, modelCfg, client, resolver, engine, publisher, metrics, tracer,
			logger.With(zap.String("session_id", sessionID)))
	}
}

// ProvideSessionRegistry creates the session registry
func ProvideSessionRegistry(factory services.GraphModelFactory, domainCfg *domainconfig.DomainConfig, metrics ports.Metrics, logger *zap.Logger) *services.SessionRegistry {
	return services.NewSessionRegistry(factory, domainCfg.MaxSessions, domainCfg.SessionTimeout, metrics, logger)
}

// ProvideInMemoryCache creates the process-local query cache
func ProvideInMemoryCache() *InMemoryCache {
	return NewInMemoryCache(time.Minute)
}

// ProvideHookManager creates the command hook manager with the audit hook
// registered
func ProvideHookManager(logger *zap.Logger) *extensions.HookManager {
	hooks := extensions.NewHookManager()
	audit := logger.Named("audit")
	hooks.Register(extensions.HookAfterCommandExecute, func(_ context.Context, data extensions.HookData) error {
		audit.Info("Graph command applied",
			zap.String("operation", data.Operation),
			zap.String("sessionID", data.SessionID),
			zap.String("userID", data.UserID),
		)
		return nil
	})
	return hooks
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(registry *services.SessionRegistry, hooks *extensions.HookManager, logger *zap.Logger) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.RecoveryMiddleware(logger),
		bus.LoggingMiddleware(logger),
		bus.HooksMiddleware(hooks),
	)
	if err := commandhandlers.NewSessionCommandHandler(registry, logger).RegisterAll(commandBus); err != nil {
		return nil, err
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	registry *services.SessionRegistry,
	resolver *services.MetadataResolver,
	cache ports.Cache,
	cfg *config.Config,
	metrics ports.Metrics,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()
	measured := querybus.NewMetricsMiddleware(metrics)

	if err := queryBus.Register(queries.GetSessionGraphQuery{},
		measured.Wrap(queryhandlers.NewGetSessionGraphHandler(registry)),
	); err != nil {
		return nil, err
	}

	ttl := int(cfg.Explorer.PredicateCacheTTL / time.Second)
	var predicates querybus.QueryHandler = queryhandlers.NewListPredicatesHandler(resolver, logger)
	if ttl > 0 {
		predicates = querybus.NewCachingMiddleware(cache, ttl).Wrap(predicates)
	}
	if err := queryBus.Register(queries.ListPredicatesQuery{}, measured.Wrap(predicates)); err != nil {
		return nil, err
	}

	return queryBus, nil
}

// ProvideJWTValidator returns nil when authentication is disabled
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if !cfg.EnableAuth {
		return nil, nil
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	})
}
