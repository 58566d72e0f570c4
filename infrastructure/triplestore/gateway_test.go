package triplestore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "graphexplorer/pkg/errors"
	"graphexplorer/pkg/observability"
	"graphexplorer/pkg/sparql"
)

const labelResult = `{"head":{"vars":["label"]},"results":{"bindings":[{"label":{"type":"literal","value":"Accuracy"}}]}}`

func labelQuery() *sparql.Query {
	return sparql.AnnotationQuery(
		sparql.NewPrefixTable(sparql.Prefix{Name: "rdfs", Namespace: "http://www.w3.org/2000/01/rdf-schema#"}),
		sparql.IRI("http://example.org/accuracy"),
		sparql.VarLabel,
		[]sparql.Term{sparql.PName("rdfs:label")},
	)
}

func newGateway(t *testing.T, endpoint string, cfg Config) *Gateway {
	t.Helper()
	cfg.Endpoint = endpoint
	g, err := NewGateway(cfg, nil, observability.NoopMetrics{}, zap.NewNop())
	require.NoError(t, err)
	return g
}

func TestSelect_SendsEncodedGet(t *testing.T) {
	var gotQuery, gotFormat, gotAccept, gotRaw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		gotQuery = r.URL.Query().Get("query")
		gotFormat = r.URL.Query().Get("format")
		gotAccept = r.Header.Get("Accept")
		gotRaw = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(labelResult))
	}))
	defer srv.Close()

	res, err := newGateway(t, srv.URL+"/sparql", Config{}).Select(context.Background(), labelQuery())
	require.NoError(t, err)

	want, _ := labelQuery().Render()
	assert.Equal(t, want, gotQuery)
	assert.Equal(t, "json", gotFormat)
	assert.Equal(t, "application/sparql-results+json", gotAccept)
	assert.True(t, strings.HasPrefix(gotRaw, "query="))
	assert.True(t, strings.HasSuffix(gotRaw, "&format=json"))

	require.Len(t, res.Rows(), 1)
	v, ok := res.Rows()[0].Get("label")
	require.True(t, ok)
	assert.Equal(t, "Accuracy", v.Value)
}

func TestSelect_KeepsEndpointQueryString(t *testing.T) {
	var gotDataset string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDataset = r.URL.Query().Get("default-graph-uri")
		_, _ = w.Write([]byte(labelResult))
	}))
	defer srv.Close()

	_, err := newGateway(t, srv.URL+"/sparql?default-graph-uri=http://g", Config{}).Select(context.Background(), labelQuery())
	require.NoError(t, err)
	assert.Equal(t, "http://g", gotDataset)
}

func TestSelect_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		check     func(error) bool
		retryable bool
	}{
		{"server error", http.StatusServiceUnavailable, "down", apperrors.IsNetwork, true},
		{"rejected query", http.StatusBadRequest, "Parse error", apperrors.IsQuery, false},
		{"unexpected status", http.StatusNotFound, "no such dataset", apperrors.IsProtocol, false},
		{"html body", http.StatusOK, "<html>login</html>", apperrors.IsProtocol, false},
		{"missing results", http.StatusOK, `{"head":{"vars":[]}}`, apperrors.IsProtocol, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newGateway(t, srv.URL, Config{}).Select(context.Background(), labelQuery())

			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
			assert.Equal(t, tt.retryable, apperrors.IsRetryable(err))
		})
	}
}

func TestSelect_TimeoutIsRetryableNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newGateway(t, srv.URL, Config{Timeout: 50 * time.Millisecond}).Select(context.Background(), labelQuery())

	require.Error(t, err)
	assert.True(t, apperrors.IsNetwork(err))
	assert.True(t, apperrors.IsRetryable(err))
}

func TestSelect_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	_, err := newGateway(t, endpoint, Config{}).Select(context.Background(), labelQuery())

	require.Error(t, err)
	assert.True(t, apperrors.IsNetwork(err))
}

func TestSelect_MalformedQueryNeverSent(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	_, err := newGateway(t, srv.URL, Config{}).Select(context.Background(), sparql.Select())

	require.Error(t, err)
	assert.True(t, apperrors.IsQuery(err))
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestSelect_BreakerOpensOnNetworkFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := Config{Breaker: BreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}}
	g := newGateway(t, srv.URL, cfg)
	require.NoError(t, g.Ready(context.Background()))

	for i := 0; i < 2; i++ {
		_, err := g.Select(context.Background(), labelQuery())
		require.Error(t, err)
	}
	assert.True(t, apperrors.IsType(g.Ready(context.Background()), apperrors.ErrorTypeUnavailable))
	_, err := g.Select(context.Background(), labelQuery())

	require.Error(t, err)
	assert.True(t, apperrors.IsNetwork(err))
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestSelect_QueryErrorsDoNotTripBreaker(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := Config{Breaker: BreakerConfig{Enabled: true, MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, FailureThreshold: 0.5, MinRequests: 2}}
	g := newGateway(t, srv.URL, cfg)

	for i := 0; i < 4; i++ {
		_, err := g.Select(context.Background(), labelQuery())
		require.Error(t, err)
		assert.True(t, apperrors.IsQuery(err))
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(&hits))
}

func TestNewGateway_RejectsBadEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "ftp://example.org/sparql", "not a url", "http://"} {
		_, err := NewGateway(Config{Endpoint: endpoint}, nil, observability.NoopMetrics{}, zap.NewNop())
		assert.Error(t, err, endpoint)
	}
}

func TestSelect_CallerCancellationDoesNotTripBreaker(t *testing.T) {
	// Arrange
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(labelResult))
	}))
	defer srv.Close()

	cfg := Config{Breaker: BreakerConfig{Enabled: true, MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, FailureThreshold: 0.5, MinRequests: 2}}
	g := newGateway(t, srv.URL, cfg)
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	for i := 0; i < 5; i++ {
		_, err := g.Select(cancelled, labelQuery())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAbandoned)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, apperrors.IsNetwork(err))
	}

	// Assert
	require.NoError(t, g.Ready(context.Background()))
	res, err := g.Select(context.Background(), labelQuery())
	require.NoError(t, err)
	assert.Len(t, res.Rows(), 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSelect_CancelledMidRequestIsAbandoned(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	cfg := Config{Breaker: BreakerConfig{Enabled: true, MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, FailureThreshold: 0.5, MinRequests: 1}}
	g := newGateway(t, srv.URL, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := g.Select(ctx, labelQuery())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAbandoned)
	assert.NoError(t, g.Ready(context.Background()))
}

func TestSelect_GatewayTimeoutStillTripsBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	cfg := Config{
		Timeout: 20 * time.Millisecond,
		Breaker: BreakerConfig{Enabled: true, MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, FailureThreshold: 0.5, MinRequests: 2},
	}
	g := newGateway(t, srv.URL, cfg)

	for i := 0; i < 2; i++ {
		_, err := g.Select(context.Background(), labelQuery())
		require.Error(t, err)
		assert.True(t, apperrors.IsNetwork(err))
		assert.NotErrorIs(t, err, ErrAbandoned)
	}

	assert.True(t, apperrors.IsType(g.Ready(context.Background()), apperrors.ErrorTypeUnavailable))
}
