package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"graphexplorer/application/ports"
	"graphexplorer/domain/core/valueobjects"
	apperrors "graphexplorer/pkg/errors"
)

// GraphModelFactory builds an empty model for a new session.
type GraphModelFactory func(sessionID string) *GraphModel

type session struct {
	model    *GraphModel
	lastUsed time.Time
}

// SessionRegistry keeps the live exploration sessions. Each session owns
// one GraphModel. Idle sessions are evicted lazily on access.
type SessionRegistry struct {
	mu          sync.Mutex
	sessions    map[string]*session
	factory     GraphModelFactory
	maxSessions int
	idleTimeout time.Duration
	metrics     ports.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewSessionRegistry creates a registry. maxSessions <= 0 removes the cap
// and idleTimeout <= 0 disables eviction.
func NewSessionRegistry(factory GraphModelFactory, maxSessions int, idleTimeout time.Duration, metrics ports.Metrics, logger *zap.Logger) *SessionRegistry {
	return &SessionRegistry{
		sessions:    make(map[string]*session),
		factory:     factory,
		maxSessions: maxSessions,
		idleTimeout: idleTimeout,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Create builds a model for sessionID and seeds it with rootID. The
// session is only registered once the root node has been added.
func (r *SessionRegistry) Create(ctx context.Context, sessionID string, rootID valueobjects.NodeID) (*GraphModel, error) {
	r.mu.Lock()
	r.evictLocked()
	if _, exists := r.sessions[sessionID]; exists {
		r.mu.Unlock()
		return nil, apperrors.NewConflictError("session " + sessionID + " already exists")
	}
	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		r.mu.Unlock()
		return nil, apperrors.NewRateLimitError(r.maxSessions, "concurrent sessions")
	}
	r.mu.Unlock()

	model := r.factory(sessionID)
	if err := model.AddRootNode(ctx, rootID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check: another Create may have raced us while the root resolved
	if _, exists := r.sessions[sessionID]; exists {
		return nil, apperrors.NewConflictError("session " + sessionID + " already exists")
	}
	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		return nil, apperrors.NewRateLimitError(r.maxSessions, "concurrent sessions")
	}
	r.sessions[sessionID] = &session{model: model, lastUsed: r.now()}
	r.metrics.RecordSessions(ctx, len(r.sessions))

	r.logger.Info("Session created",
		zap.String("session_id", sessionID),
		zap.String("root_node_id", rootID.String()),
	)
	return model, nil
}

// Get returns the model of a live session and marks it used.
func (r *SessionRegistry) Get(sessionID string) (*GraphModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, apperrors.NewNotFoundError("session " + sessionID)
	}
	s.lastUsed = r.now()
	return s.model, nil
}

// Delete drops a session.
func (r *SessionRegistry) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()

	if _, ok := r.sessions[sessionID]; !ok {
		return apperrors.NewNotFoundError("session " + sessionID)
	}
	delete(r.sessions, sessionID)
	r.metrics.RecordSessions(ctx, len(r.sessions))

	r.logger.Info("Session deleted", zap.String("session_id", sessionID))
	return nil
}

// IDs lists the live session ids in sorted order
func (r *SessionRegistry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live sessions
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()
	return len(r.sessions)
}

func (r *SessionRegistry) evictLocked() {
	if r.idleTimeout <= 0 {
		return
	}
	cutoff := r.now().Add(-r.idleTimeout)
	evicted := 0
	for id, s := range r.sessions {
		if s.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			evicted++
			r.logger.Info("Session expired", zap.String("session_id", id))
		}
	}
	if evicted > 0 {
		r.metrics.RecordSessions(context.Background(), len(r.sessions))
	}
}
