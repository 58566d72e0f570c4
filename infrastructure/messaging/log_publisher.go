package messaging

import (
	"context"

	"go.uber.org/zap"

	"graphexplorer/domain/events"
)

// LogPublisher writes graph events to the structured log. It stands in for
// EventBridge when events are disabled or the service runs locally.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a new log publisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs a single event
func (p *LogPublisher) Publish(_ context.Context, event events.DomainEvent) error {
	p.logger.Debug("Graph event",
		zap.String("eventType", event.GetEventType()),
		zap.String("sessionID", event.GetAggregateID()),
		zap.Int("version", event.GetVersion()),
		zap.Any("event", event),
	)
	return nil
}

// PublishBatch logs every event in order
func (p *LogPublisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		_ = p.Publish(ctx, event)
	}
	return nil
}
