package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"graphexplorer/application/commands"
	"graphexplorer/application/commands/bus"
	"graphexplorer/application/services"
)

// SessionCommandHandler handles every session command against the
// registry. One handler instance is registered once per command type.
type SessionCommandHandler struct {
	registry *services.SessionRegistry
	logger   *zap.Logger
}

// NewSessionCommandHandler creates a new handler instance
func NewSessionCommandHandler(registry *services.SessionRegistry, logger *zap.Logger) *SessionCommandHandler {
	return &SessionCommandHandler{
		registry: registry,
		logger:   logger,
	}
}

// RegisterAll registers the handler for every session command
func (h *SessionCommandHandler) RegisterAll(b *bus.CommandBus) error {
	for _, cmd := range []bus.Command{
		commands.CreateSessionCommand{},
		commands.ExpandNodeCommand{},
		commands.RemoveNodeCommand{},
		commands.RemoveEdgeCommand{},
		commands.DeleteSessionCommand{},
	} {
		if err := b.Register(cmd, h); err != nil {
			return err
		}
	}
	return nil
}

// Handle dispatches on the concrete command type
func (h *SessionCommandHandler) Handle(ctx context.Context, cmd bus.Command) error {
	switch c := cmd.(type) {
	case commands.CreateSessionCommand:
		return h.createSession(ctx, c)
	case commands.ExpandNodeCommand:
		return h.expandNode(ctx, c)
	case commands.RemoveNodeCommand:
		return h.removeNode(ctx, c)
	case commands.RemoveEdgeCommand:
		return h.removeEdge(ctx, c)
	case commands.DeleteSessionCommand:
		return h.registry.Delete(ctx, c.SessionID)
	default:
		return fmt.Errorf("%w: %T", bus.ErrUnexpectedCommand, cmd)
	}
}

func (h *SessionCommandHandler) createSession(ctx context.Context, cmd commands.CreateSessionCommand) error {
	_, err := h.registry.Create(ctx, cmd.SessionID, cmd.RootID())
	return err
}

func (h *SessionCommandHandler) expandNode(ctx context.Context, cmd commands.ExpandNodeCommand) error {
	model, err := h.registry.Get(cmd.SessionID)
	if err != nil {
		return err
	}

	if err := model.ExpandNode(ctx, cmd.Target()); err != nil {
		return err
	}

	nodes, edges := model.Size()
	h.logger.Debug("Node expanded",
		zap.String("session_id", cmd.SessionID),
		zap.String("node_id", cmd.NodeID),
		zap.Int("nodes", nodes),
		zap.Int("edges", edges),
	)
	return nil
}

func (h *SessionCommandHandler) removeNode(ctx context.Context, cmd commands.RemoveNodeCommand) error {
	model, err := h.registry.Get(cmd.SessionID)
	if err != nil {
		return err
	}
	if cmd.Cascade {
		return model.RemoveNodeCascade(ctx, cmd.Target())
	}
	return model.RemoveNode(ctx, cmd.Target())
}

func (h *SessionCommandHandler) removeEdge(ctx context.Context, cmd commands.RemoveEdgeCommand) error {
	model, err := h.registry.Get(cmd.SessionID)
	if err != nil {
		return err
	}
	return model.RemoveEdge(ctx, cmd.Edge())
}
