package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "graphexplorer/pkg/errors"
)

type echoQuery struct {
	Term string
}

func (q echoQuery) Validate() error {
	if q.Term == "" {
		return errors.New("term is required")
	}
	return nil
}

type mapCache struct {
	mu    sync.Mutex
	items map[string]interface{}
	ttls  map[string]int
}

func newMapCache() *mapCache {
	return &mapCache{items: map[string]interface{}{}, ttls: map[string]int{}}
}

func (c *mapCache) Get(_ context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *mapCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = map[string]interface{}{}
	return nil
}

type operationRecorder struct {
	operations []string
	errs       []error
}

func (r *operationRecorder) RecordQuery(context.Context, string, time.Duration, error) {}
func (r *operationRecorder) RecordOperation(_ context.Context, op string, _ time.Duration, err error) {
	r.operations = append(r.operations, op)
	r.errs = append(r.errs, err)
}
func (r *operationRecorder) RecordGraphSize(context.Context, int, int) {}
func (r *operationRecorder) RecordSessions(context.Context, int)       {}

func countingHandler(calls *int, fail error) QueryHandler {
	return QueryHandlerFunc(func(_ context.Context, query Query) (interface{}, error) {
		*calls++
		if fail != nil {
			return nil, fail
		}
		return "echo:" + query.(echoQuery).Term, nil
	})
}

func TestQueryBus_AskDispatches(t *testing.T) {
	b := NewQueryBus()
	calls := 0
	require.NoError(t, b.Register(echoQuery{}, countingHandler(&calls, nil)))

	result, err := b.Ask(context.Background(), echoQuery{Term: "x"})

	require.NoError(t, err)
	assert.Equal(t, "echo:x", result)
	assert.Error(t, b.Register(echoQuery{}, countingHandler(&calls, nil)))
}

func TestQueryBus_ValidationAndMissingHandler(t *testing.T) {
	b := NewQueryBus()

	_, err := b.Ask(context.Background(), echoQuery{})
	assert.True(t, apperrors.IsValidation(err))

	_, err = b.Ask(context.Background(), echoQuery{Term: "x"})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestCachingMiddleware_CachesSuccessfulResultsPerQuery(t *testing.T) {
	cache := newMapCache()
	calls := 0
	handler := NewCachingMiddleware(cache, 300).Wrap(countingHandler(&calls, nil))
	ctx := context.Background()

	first, err := handler.Handle(ctx, echoQuery{Term: "a"})
	require.NoError(t, err)
	second, err := handler.Handle(ctx, echoQuery{Term: "a"})
	require.NoError(t, err)
	_, err = handler.Handle(ctx, echoQuery{Term: "b"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, calls)
	for _, ttl := range cache.ttls {
		assert.Equal(t, 300, ttl)
	}
}

func TestCachingMiddleware_SkipsFailures(t *testing.T) {
	cache := newMapCache()
	calls := 0
	fail := apperrors.NewNetworkError("store down", errors.New("refused"))
	handler := NewCachingMiddleware(cache, 300).Wrap(countingHandler(&calls, fail))

	for i := 0; i < 2; i++ {
		_, err := handler.Handle(context.Background(), echoQuery{Term: "a"})
		assert.True(t, apperrors.IsNetwork(err))
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, cache.items)
}

func TestMetricsMiddleware_RecordsOutcome(t *testing.T) {
	recorder := &operationRecorder{}
	calls := 0
	fail := errors.New("boom")
	ok := NewMetricsMiddleware(recorder).Wrap(countingHandler(&calls, nil))
	broken := NewMetricsMiddleware(recorder).Wrap(countingHandler(&calls, fail))

	_, _ = ok.Handle(context.Background(), echoQuery{Term: "a"})
	_, _ = broken.Handle(context.Background(), echoQuery{Term: "a"})

	assert.Equal(t, []string{"query.echoQuery", "query.echoQuery"}, recorder.operations)
	assert.NoError(t, recorder.errs[0])
	assert.ErrorIs(t, recorder.errs[1], fail)
}
