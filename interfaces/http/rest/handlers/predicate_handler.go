package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"graphexplorer/application/queries"
	querybus "graphexplorer/application/queries/bus"
	"graphexplorer/pkg/common"
	apperrors "graphexplorer/pkg/errors"
)

// PredicateHandler serves predicate discovery
type PredicateHandler struct {
	queryBus     *querybus.QueryBus
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewPredicateHandler creates a new predicate handler
func NewPredicateHandler(queryBus *querybus.QueryBus, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *PredicateHandler {
	return &PredicateHandler{
		queryBus:     queryBus,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// ListPredicates handles GET /predicates
func (h *PredicateHandler) ListPredicates(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListPredicatesQuery{})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := common.RespondJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
