package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"graphexplorer/application/queries"
	"graphexplorer/application/queries/bus"
	"graphexplorer/application/services"
)

// GetSessionGraphHandler returns a session's graph, or one view of it
type GetSessionGraphHandler struct {
	registry *services.SessionRegistry
}

// NewGetSessionGraphHandler creates a new handler
func NewGetSessionGraphHandler(registry *services.SessionRegistry) *GetSessionGraphHandler {
	return &GetSessionGraphHandler{registry: registry}
}

// Handle executes the query. The full view returns a services.Snapshot;
// the partial views return the matching slice or map.
func (h *GetSessionGraphHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetSessionGraphQuery)
	if !ok {
		return nil, fmt.Errorf("%w: %T", bus.ErrUnexpectedQuery, query)
	}

	model, err := h.registry.Get(q.SessionID)
	if err != nil {
		return nil, err
	}

	switch q.View {
	case queries.ViewNodes:
		return model.Nodes(), nil
	case queries.ViewEdges:
		return model.Edges(), nil
	case queries.ViewLayout:
		return model.Layout(), nil
	default:
		return model.Snapshot(), nil
	}
}

// ListPredicatesHandler runs predicate discovery against the store
type ListPredicatesHandler struct {
	resolver *services.MetadataResolver
	logger   *zap.Logger
}

// NewListPredicatesHandler creates a new handler
func NewListPredicatesHandler(resolver *services.MetadataResolver, logger *zap.Logger) *ListPredicatesHandler {
	return &ListPredicatesHandler{
		resolver: resolver,
		logger:   logger,
	}
}

// Handle executes the query
func (h *ListPredicatesHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	if _, ok := query.(queries.ListPredicatesQuery); !ok {
		return nil, fmt.Errorf("%w: %T", bus.ErrUnexpectedQuery, query)
	}

	predicates, err := h.resolver.DiscoverPredicates(ctx)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("Discovered predicates", zap.Int("count", len(predicates)))
	return &queries.PredicateList{
		Predicates: predicates,
		Count:      len(predicates),
	}, nil
}
