package di

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"graphexplorer/infrastructure/config"
	"graphexplorer/infrastructure/messaging"
	"graphexplorer/infrastructure/messaging/eventbridge"
	"graphexplorer/pkg/extensions"
	"graphexplorer/pkg/observability"
)

const predicateResults = `{
  "head": {"vars": ["predicate"]},
  "results": {"bindings": [
    {"predicate": {"type": "uri", "value": "http://www.w3.org/2004/02/skos/core#broader"}},
    {"predicate": {"type": "uri", "value": "http://www.w3.org/2000/01/rdf-schema#label"}}
  ]}
}`

func sparqlServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(predicateResults))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestInitializeContainer_ServesPredicates(t *testing.T) {
	store, hits := sparqlServer(t)
	cfg := config.Defaults()
	cfg.SPARQL.Endpoint = store.URL + "/sparql"
	cfg.EnableMetrics = true
	require.NoError(t, cfg.Validate())

	container, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer container.Close()
	api := httptest.NewServer(container.HTTPHandler())
	defer api.Close()

	for i := 0; i < 2; i++ {
		resp, err := http.Get(api.URL + "/api/v1/predicates")
		require.NoError(t, err)
		var body struct {
			Predicates []string `json:"predicates"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{"skos:broader", "rdfs:label"}, body.Predicates)
	}
	assert.EqualValues(t, 1, hits.Load(), "second listing is served from the cache")

	resp, err := http.Get(api.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(api.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProvideMetrics(t *testing.T) {
	cfg := config.Defaults()

	assert.IsType(t, observability.NoopMetrics{}, ProvideMetrics(cfg, nil, zap.NewNop()))
	assert.Nil(t, ProvideMetricsHandler(ProvideMetrics(cfg, nil, zap.NewNop())))

	cfg.EnableMetrics = true
	metrics := ProvideMetrics(cfg, nil, zap.NewNop())
	assert.IsType(t, &observability.PrometheusMetrics{}, metrics)
	assert.NotNil(t, ProvideMetricsHandler(metrics))

	cfg.IsLambda = true
	assert.IsType(t, &observability.CloudWatchMetrics{}, ProvideMetrics(cfg, nil, zap.NewNop()))
}

func TestProvideEventPublisher(t *testing.T) {
	cfg := config.Defaults()

	assert.IsType(t, &messaging.LogPublisher{}, ProvideEventPublisher(cfg, nil, zap.NewNop()))

	cfg.EnableEvents = true
	assert.IsType(t, &eventbridge.Publisher{}, ProvideEventPublisher(cfg, nil, zap.NewNop()))
}

func TestProvideJWTValidator(t *testing.T) {
	cfg := config.Defaults()

	validator, err := ProvideJWTValidator(cfg)
	require.NoError(t, err)
	assert.Nil(t, validator)

	cfg.EnableAuth = true
	_, err = ProvideJWTValidator(cfg)
	assert.Error(t, err)

	cfg.JWTSecret = "secret"
	validator, err = ProvideJWTValidator(cfg)
	require.NoError(t, err)
	assert.NotNil(t, validator)
}

func TestProvideHookManager_AuditsAppliedCommands(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	hooks := ProvideHookManager(zap.New(core))

	err := hooks.Execute(context.Background(), extensions.HookAfterCommandExecute, extensions.HookData{
		Operation: "ExpandNodeCommand",
		SessionID: "s1",
		UserID:    "user-1",
	})

	require.NoError(t, err)
	entries := logs.FilterMessage("Graph command applied").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "audit", entries[0].LoggerName)
	assert.Equal(t, "s1", entries[0].ContextMap()["sessionID"])
}
