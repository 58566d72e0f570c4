package di

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"graphexplorer/application/commands/bus"
	querybus "graphexplorer/application/queries/bus"
	"graphexplorer/application/ports"
	"graphexplorer/application/services"
	"graphexplorer/infrastructure/config"
	"graphexplorer/infrastructure/triplestore"
	"graphexplorer/interfaces/http/rest"
	"graphexplorer/pkg/auth"
	"graphexplorer/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	Gateway        *triplestore.Gateway
	Registry       *services.SessionRegistry
	CommandBus     *bus.CommandBus
	QueryBus       *querybus.QueryBus
	Cache          *InMemoryCache
	Metrics        ports.Metrics
	MetricsHandler MetricsHandler
	Tracer         *observability.Tracer
	Validator      *auth.JWTValidator
}

// HTTPHandler builds the REST router from the container
func (c *Container) HTTPHandler() http.Handler {
	opts := rest.Options{
		Validator:          c.Validator,
		RateLimitPerMinute: c.Config.RateLimitPerMinute,
		Tracer:             c.Tracer,
		Ready:              c.Gateway.Ready,
		RequestTimeout:     c.Config.SPARQL.Timeout + 15*time.Second,
		Debug:              c.Config.IsDevelopment(),
	}
	if c.Config.EnableCORS {
		opts.AllowedOrigins = c.Config.CORSAllowedOrigins
	}
	if c.MetricsHandler != nil {
		opts.MetricsHandler = c.MetricsHandler
	}
	return rest.NewRouter(c.CommandBus, c.QueryBus, opts, c.Logger).Setup()
}

// Close releases background resources and flushes the logger
func (c *Container) Close() {
	if c.Cache != nil {
		c.Cache.Close()
	}
	_ = c.Logger.Sync()
}
