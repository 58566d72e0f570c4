package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"graphexplorer/domain/core/valueobjects"
	apperrors "graphexplorer/pkg/errors"
	"graphexplorer/pkg/observability"
	"graphexplorer/pkg/sparql"
	"graphexplorer/pkg/testutil"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newRegistry(store *testutil.TripleStore, max int, idle time.Duration) (*SessionRegistry, *fakeClock) {
	factory := func(string) *GraphModel {
		return newModel(store, modelConfig(), nil)
	}
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	r := NewSessionRegistry(factory, max, idle, observability.NoopMetrics{}, zap.NewNop())
	r.now = clock.Now
	return r, clock
}

func TestSessionRegistry_CreateGetDelete(t *testing.T) {
	r, _ := newRegistry(broaderStore(), 10, time.Hour)
	ctx := context.Background()

	created, err := r.Create(ctx, "s1", valueobjects.MustNodeID(nodeA))
	require.NoError(t, err)
	assert.Len(t, created.Nodes(), 1)

	got, err := r.Get("s1")
	require.NoError(t, err)
	assert.Same(t, created, got)
	assert.Equal(t, []string{"s1"}, r.IDs())

	require.NoError(t, r.Delete(ctx, "s1"))
	_, err = r.Get("s1")
	assert.True(t, apperrors.IsNotFound(err))
	assert.True(t, apperrors.IsNotFound(r.Delete(ctx, "s1")))
}

func TestSessionRegistry_DuplicateIDConflicts(t *testing.T) {
	r, _ := newRegistry(broaderStore(), 10, time.Hour)

	_, err := r.Create(context.Background(), "s1", valueobjects.MustNodeID(nodeA))
	require.NoError(t, err)
	_, err = r.Create(context.Background(), "s1", valueobjects.MustNodeID(nodeB))

	assert.True(t, apperrors.IsConflict(err))
}

func TestSessionRegistry_EnforcesCap(t *testing.T) {
	r, _ := newRegistry(broaderStore(), 1, time.Hour)

	_, err := r.Create(context.Background(), "s1", valueobjects.MustNodeID(nodeA))
	require.NoError(t, err)
	_, err = r.Create(context.Background(), "s2", valueobjects.MustNodeID(nodeA))

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRateLimit))
}

func TestSessionRegistry_EvictsIdleSessions(t *testing.T) {
	r, clock := newRegistry(broaderStore(), 1, 30*time.Minute)

	_, err := r.Create(context.Background(), "s1", valueobjects.MustNodeID(nodeA))
	require.NoError(t, err)

	clock.now = clock.now.Add(20 * time.Minute)
	_, err = r.Get("s1")
	require.NoError(t, err, "access refreshes the idle timer")

	clock.now = clock.now.Add(20 * time.Minute)
	assert.Equal(t, 1, r.Len())

	clock.now = clock.now.Add(11 * time.Minute)
	_, err = r.Get("s1")
	assert.True(t, apperrors.IsNotFound(err))

	// the evicted slot is free again
	_, err = r.Create(context.Background(), "s2", valueobjects.MustNodeID(nodeA))
	assert.NoError(t, err)
}

func TestSessionRegistry_FailedSeedIsNotRegistered(t *testing.T) {
	store := broaderStore()
	store.FailWith = func(*sparql.Query) error { return apperrors.NewNetworkError("timeout", nil) }
	r, _ := newRegistry(store, 10, time.Hour)

	_, err := r.Create(context.Background(), "s1", valueobjects.MustNodeID(nodeA))

	require.Error(t, err)
	assert.True(t, apperrors.IsNetwork(err))
	assert.Zero(t, r.Len())
}

type sessionGauge struct {
	observability.NoopMetrics
	samples []int
}

func (g *sessionGauge) RecordSessions(_ context.Context, count int) {
	g.samples = append(g.samples, count)
}

func TestSessionRegistry_EvictionUpdatesSessionGauge(t *testing.T) {
	gauge := &sessionGauge{}
	r, clock := newRegistry(broaderStore(), 0, 30*time.Minute)
	r.metrics = gauge

	_, err := r.Create(context.Background(), "s1", valueobjects.MustNodeID(nodeA))
	require.NoError(t, err)
	_, err = r.Create(context.Background(), "s2", valueobjects.MustNodeID(nodeA))
	require.NoError(t, err)

	clock.now = clock.now.Add(31 * time.Minute)
	assert.Zero(t, r.Len())
	assert.Zero(t, r.Len(), "nothing left to evict, no new sample")

	assert.Equal(t, []int{1, 2, 0}, gauge.samples)
}
