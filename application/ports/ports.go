package ports

import (
	"context"
	"time"

	"graphexplorer/domain/events"
	"graphexplorer/pkg/sparql"
)

// SparqlClient runs SELECT queries against a remote triple store.
// This is a port in hexagonal architecture - the application doesn't know
// whether results come over HTTP or from a fake.
type SparqlClient interface {
	// Select renders the query and returns its decoded rows. Failures are
	// NETWORK, PROTOCOL or QUERY application errors.
	Select(ctx context.Context, query *sparql.Query) (*sparql.Results, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}

// Metrics records service measurements
type Metrics interface {
	// RecordQuery records one triple store round trip
	RecordQuery(ctx context.Context, kind string, duration time.Duration, err error)

	// RecordOperation records one graph model operation
	RecordOperation(ctx context.Context, operation string, duration time.Duration, err error)

	// RecordGraphSize records node and edge counts after a mutation
	RecordGraphSize(ctx context.Context, nodes, edges int)

	// RecordSessions records the number of live sessions
	RecordSessions(ctx context.Context, count int)
}

// Tracer wraps units of work in trace segments
type Tracer interface {
	// Trace runs fn inside a named subsegment when tracing is active
	Trace(ctx context.Context, name string, fn func(context.Context) error) error
}
