package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"graphexplorer/application/commands/bus"
	"graphexplorer/application/queries"
	querybus "graphexplorer/application/queries/bus"
	"graphexplorer/interfaces/http/rest/handlers"
	"graphexplorer/interfaces/http/rest/middleware"
	"graphexplorer/pkg/auth"
	"graphexplorer/pkg/common"
	apperrors "graphexplorer/pkg/errors"
	"graphexplorer/pkg/observability"
)

// ReadinessCheck reports whether a dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// Options holds the optional parts of the router
type Options struct {
	AllowedOrigins []string
	// Validator enables bearer authentication on /api/v1 when set
	Validator          *auth.JWTValidator
	RateLimitPerMinute int
	MetricsHandler     http.Handler
	Tracer             *observability.Tracer
	Ready              ReadinessCheck
	RequestTimeout     time.Duration
	Debug              bool
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	opts       Options
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	opts Options,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		opts:       opts,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()
	errorHandler := apperrors.NewErrorHandler(rt.logger, rt.opts.Debug)

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.logger))
	router.Use(errorHandler.Middleware)
	if rt.opts.Tracer.Enabled() {
		router.Use(rt.opts.Tracer.Middleware)
	}

	origins := rt.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Location"},
		MaxAge:         300,
	}))

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.opts.MetricsHandler != nil {
		router.Method(http.MethodGet, "/metrics", rt.opts.MetricsHandler)
	}

	router.Route("/api/v1", func(r chi.Router) {
		if rt.opts.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(rt.opts.RequestTimeout))
		}
		if rt.opts.RateLimitPerMinute > 0 {
			limiter := auth.NewIPRateLimiter(rt.opts.RateLimitPerMinute)
			r.Use(middleware.RateLimit(limiter, rt.opts.RateLimitPerMinute, errorHandler, rt.logger))
		}
		if rt.opts.Validator != nil {
			r.Use(middleware.Authenticate(rt.opts.Validator, errorHandler, rt.logger))
		}

		sessionHandler := handlers.NewSessionHandler(rt.commandBus, rt.queryBus, errorHandler, rt.logger)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.CreateSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", sessionHandler.GetSession)
				r.Delete("/", sessionHandler.DeleteSession)
				r.Post("/expand", sessionHandler.ExpandNode)
				r.Get("/nodes", sessionHandler.GetView(queries.ViewNodes))
				r.Delete("/nodes", sessionHandler.RemoveNode)
				r.Get("/edges", sessionHandler.GetView(queries.ViewEdges))
				r.Delete("/edges", sessionHandler.RemoveEdge)
				r.Get("/layout", sessionHandler.GetView(queries.ViewLayout))
			})
		})

		r.Get("/predicates", handlers.NewPredicateHandler(rt.queryBus, errorHandler, rt.logger).ListPredicates)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errorHandler.HandleStatus(w, r, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errorHandler.HandleStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	_ = common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck reports the triple store breaker state
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	if rt.opts.Ready != nil {
		if err := rt.opts.Ready(r.Context()); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			_ = common.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"reason": err.Error(),
			})
			return
		}
	}
	_ = common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
