// Package triplestore is the HTTP boundary to a SPARQL 1.1 endpoint.
package triplestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"graphexplorer/application/ports"
	apperrors "graphexplorer/pkg/errors"
	"graphexplorer/pkg/sparql"
)

const (
	resultsMediaType = "application/sparql-results+json"
	maxResponseBytes = 32 << 20
	maxErrorSnippet  = 512
)

// BreakerConfig holds configuration for the circuit breaker around the endpoint
type BreakerConfig struct {
	Enabled          bool
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns a default configuration for the circuit breaker
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:          true,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// Config configures a Gateway.
type Config struct {
	Endpoint string
	Timeout  time.Duration
	Breaker  BreakerConfig
}

// ErrAbandoned marks a query given up because the caller's context ended
// first. It is not a store failure and never counts against the breaker.
var ErrAbandoned = errors.New("sparql query abandoned by caller")

// Gateway sends SELECT queries over HTTP GET and decodes JSON results.
// It neither caches nor retries; transient failures surface as retryable
// NETWORK errors.
type Gateway struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	metrics  ports.Metrics
	logger   *zap.Logger
}

var _ ports.SparqlClient = (*Gateway)(nil)

// NewGateway creates a gateway. A nil client means http.DefaultClient.
func NewGateway(cfg Config, client *http.Client, metrics ports.Metrics, logger *zap.Logger) (*Gateway, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid SPARQL endpoint %q", cfg.Endpoint))
	}
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	g := &Gateway{
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
		client:   client,
		metrics:  metrics,
		logger:   logger,
	}
	if cfg.Breaker.Enabled {
		g.breaker = newBreaker(cfg.Breaker, logger)
	}
	return g, nil
}

func newBreaker(cfg BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sparql-endpoint",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Only an unreachable store counts against the breaker; bad queries
		// and odd responses say nothing about its health.
		IsSuccessful: func(err error) bool {
			return err == nil || !apperrors.IsNetwork(err)
		},
	})
}

// Ready reports whether queries would be attempted. It fails while the
// breaker is open and never contacts the store.
func (g *Gateway) Ready(context.Context) error {
	if g.breaker != nil && g.breaker.State() == gobreaker.StateOpen {
		return apperrors.NewUnavailableError("sparql endpoint")
	}
	return nil
}

// Select implements ports.SparqlClient.
func (g *Gateway) Select(ctx context.Context, q *sparql.Query) (*sparql.Results, error) {
	text, err := q.Render()
	if err != nil {
		g.metrics.RecordQuery(ctx, q.Name, 0, err)
		return nil, err
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrAbandoned, ctxErr)
	}

	start := time.Now()
	res, err := g.execute(ctx, text)
	elapsed := time.Since(start)
	g.metrics.RecordQuery(ctx, q.Name, elapsed, err)

	if errors.Is(err, ErrAbandoned) {
		g.logger.Debug("SPARQL query abandoned",
			zap.String("query_name", q.Name),
			zap.Duration("duration", elapsed),
		)
		return nil, err
	}
	if err != nil {
		g.logger.Warn("SPARQL query failed",
			zap.String("query_name", q.Name),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	g.logger.Debug("SPARQL query completed",
		zap.String("query_name", q.Name),
		zap.Int("rows", len(res.Rows())),
		zap.Duration("duration", elapsed),
	)
	return res, nil
}

// execute runs one request through the breaker. A failure that happens
// after the caller's context ended is reported to the caller as
// ErrAbandoned and recorded as a success by the breaker.
func (g *Gateway) execute(ctx context.Context, text string) (*sparql.Results, error) {
	if g.breaker == nil {
		res, err := g.do(ctx, text)
		return res, abandoned(ctx, err)
	}

	var gone error
	out, err := g.breaker.Execute(func() (any, error) {
		res, err := g.do(ctx, text)
		err = abandoned(ctx, err)
		if errors.Is(err, ErrAbandoned) {
			gone = err
			return nil, nil
		}
		return res, err
	})
	if gone != nil {
		return nil, gone
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperrors.NewNetworkError("triple store circuit open", err)
	}
	if err != nil {
		return nil, err
	}
	return out.(*sparql.Results), nil
}

// abandoned rewrites err as ErrAbandoned when the caller's context has
// already ended.
func abandoned(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrAbandoned, ctxErr)
	}
	return err
}

func (g *Gateway) do(ctx context.Context, text string) (*sparql.Results, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.requestURL(text), nil)
	if err != nil {
		return nil, apperrors.NewNetworkError("could not build triple store request", err)
	}
	req.Header.Set("Accept", resultsMediaType)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("triple store request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, apperrors.NewNetworkError(
			fmt.Sprintf("triple store returned %d", resp.StatusCode), nil).
			WithDetails(map[string]interface{}{"status": resp.StatusCode})
	case resp.StatusCode == http.StatusBadRequest:
		return nil, apperrors.NewQueryError("triple store rejected the query").
			WithDetails(map[string]interface{}{"response": snippet(resp.Body)})
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, apperrors.NewProtocolError(
			fmt.Sprintf("unexpected triple store status %d", resp.StatusCode), nil)
	}

	res, err := sparql.Decode(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		// A body cut short by the deadline is a network failure, not a bad document
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperrors.NewNetworkError("triple store response timed out", ctxErr)
		}
		return nil, err
	}
	return res, nil
}

// requestURL appends query then format=json, keeping any query string the
// endpoint already carries.
func (g *Gateway) requestURL(text string) string {
	sep := "?"
	if strings.Contains(g.endpoint, "?") {
		sep = "&"
	}
	return g.endpoint + sep + "query=" + url.QueryEscape(text) + "&format=json"
}

func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorSnippet))
	return strings.TrimSpace(string(b))
}
