package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"graphexplorer/application/commands"
	"graphexplorer/application/commands/bus"
	"graphexplorer/application/queries"
	querybus "graphexplorer/application/queries/bus"
	"graphexplorer/pkg/common"
	apperrors "graphexplorer/pkg/errors"
)

// SessionHandler handles exploration session HTTP requests
type SessionHandler struct {
	commandBus   *bus.CommandBus
	queryBus     *querybus.QueryBus
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		commandBus:   commandBus,
		queryBus:     queryBus,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// CreateSessionRequest is the body of POST /sessions
type CreateSessionRequest struct {
	RootNodeID string `json:"root_node_id"`
	// SessionID is optional; one is generated when empty
	SessionID string `json:"session_id,omitempty"`
}

// ExpandNodeRequest is the body of POST /sessions/{sessionID}/expand
type ExpandNodeRequest struct {
	NodeID string `json:"node_id"`
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := common.ParseJSONBody(w, r, &req, common.MaxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	cmd := commands.CreateSessionCommand{
		SessionID:  sessionID,
		RootNodeID: req.RootNodeID,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("Session created",
		zap.String("sessionID", sessionID),
		zap.String("root", req.RootNodeID),
	)
	w.Header().Set("Location", "/api/v1/sessions/"+sessionID)
	h.respondGraph(w, r, http.StatusCreated, sessionID, queries.ViewAll)
}

// GetSession handles GET /sessions/{sessionID}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.respondGraph(w, r, http.StatusOK, chi.URLParam(r, "sessionID"), queries.ViewAll)
}

// GetView returns a handler for one read-only view of a session
func (h *SessionHandler) GetView(view queries.GraphView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.respondGraph(w, r, http.StatusOK, chi.URLParam(r, "sessionID"), view)
	}
}

// ExpandNode handles POST /sessions/{sessionID}/expand
func (h *SessionHandler) ExpandNode(w http.ResponseWriter, r *http.Request) {
	var req ExpandNodeRequest
	if err := common.ParseJSONBody(w, r, &req, common.MaxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	cmd := commands.ExpandNodeCommand{
		SessionID: sessionID,
		NodeID:    req.NodeID,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.respondGraph(w, r, http.StatusOK, sessionID, queries.ViewAll)
}

// RemoveNode handles DELETE /sessions/{sessionID}/nodes?id=...&cascade=...
func (h *SessionHandler) RemoveNode(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	query := r.URL.Query()

	cascade := false
	if raw := query.Get("cascade"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.errorHandler.Handle(w, r, apperrors.NewValidationError("cascade must be a boolean"))
			return
		}
		cascade = parsed
	}

	cmd := commands.RemoveNodeCommand{
		SessionID: sessionID,
		NodeID:    query.Get("id"),
		Cascade:   cascade,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.respondGraph(w, r, http.StatusOK, sessionID, queries.ViewAll)
}

// RemoveEdge handles DELETE /sessions/{sessionID}/edges?from=...&to=...&label=...
func (h *SessionHandler) RemoveEdge(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	query := r.URL.Query()

	cmd := commands.RemoveEdgeCommand{
		SessionID: sessionID,
		From:      query.Get("from"),
		To:        query.Get("to"),
		Label:     query.Get("label"),
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.respondGraph(w, r, http.StatusOK, sessionID, queries.ViewAll)
}

// DeleteSession handles DELETE /sessions/{sessionID}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	cmd := commands.DeleteSessionCommand{SessionID: chi.URLParam(r, "sessionID")}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) respondGraph(w http.ResponseWriter, r *http.Request, status int, sessionID string, view queries.GraphView) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetSessionGraphQuery{
		SessionID: sessionID,
		View:      view,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := common.RespondJSON(w, status, result); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
