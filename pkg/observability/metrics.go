package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apperrors "graphexplorer/pkg/errors"
)

// outcome collapses an error into a low-cardinality status label.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return string(appErr.Type)
	}
	return "error"
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) RecordQuery(context.Context, string, time.Duration, error)     {}
func (NoopMetrics) RecordOperation(context.Context, string, time.Duration, error) {}
func (NoopMetrics) RecordGraphSize(context.Context, int, int)                     {}
func (NoopMetrics) RecordSessions(context.Context, int)                           {}

// CloudWatchAPI is the subset of the CloudWatch client used for metrics.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics pushes measurements with PutMetricData.
type CloudWatchMetrics struct {
	namespace string
	client    CloudWatchAPI
	logger    *zap.Logger
}

// NewCloudWatchMetrics creates a CloudWatch metrics sink
func NewCloudWatchMetrics(namespace string, client CloudWatchAPI, logger *zap.Logger) *CloudWatchMetrics {
	return &CloudWatchMetrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
	}
}

// RecordQuery records latency and count for one triple store query
func (m *CloudWatchMetrics) RecordQuery(ctx context.Context, kind string, duration time.Duration, err error) {
	m.put(ctx, m.timed("QueryLatency", "QueryCount", "Query", kind, outcome(err), duration)...)
}

// RecordOperation records latency and count for one graph operation
func (m *CloudWatchMetrics) RecordOperation(ctx context.Context, operation string, duration time.Duration, err error) {
	m.put(ctx, m.timed("OperationLatency", "OperationCount", "Operation", operation, outcome(err), duration)...)
}

// RecordGraphSize records the node and edge counts of a graph
func (m *CloudWatchMetrics) RecordGraphSize(ctx context.Context, nodes, edges int) {
	now := aws.Time(time.Now())
	m.put(ctx,
		types.MetricDatum{MetricName: aws.String("GraphNodes"), Value: aws.Float64(float64(nodes)), Unit: types.StandardUnitCount, Timestamp: now},
		types.MetricDatum{MetricName: aws.String("GraphEdges"), Value: aws.Float64(float64(edges)), Unit: types.StandardUnitCount, Timestamp: now},
	)
}

// RecordSessions records the live session count
func (m *CloudWatchMetrics) RecordSessions(ctx context.Context, count int) {
	m.put(ctx, types.MetricDatum{
		MetricName: aws.String("ActiveSessions"),
		Value:      aws.Float64(float64(count)),
		Unit:       types.StandardUnitCount,
		Timestamp:  aws.Time(time.Now()),
	})
}

func (m *CloudWatchMetrics) timed(latencyName, countName, dimension, name, status string, d time.Duration) []types.MetricDatum {
	dims := []types.Dimension{
		{Name: aws.String(dimension), Value: aws.String(name)},
		{Name: aws.String("Status"), Value: aws.String(status)},
	}
	now := aws.Time(time.Now())
	return []types.MetricDatum{
		{
			MetricName: aws.String(latencyName),
			Dimensions: dims,
			Value:      aws.Float64(float64(d.Milliseconds())),
			Unit:       types.StandardUnitMilliseconds,
			Timestamp:  now,
		},
		{
			MetricName: aws.String(countName),
			Dimensions: dims,
			Value:      aws.Float64(1),
			Unit:       types.StandardUnitCount,
			Timestamp:  now,
		},
	}
}

func (m *CloudWatchMetrics) put(ctx context.Context, data ...types.MetricDatum) {
	if m.client == nil {
		return
	}
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		// Metrics never fail the operation being measured
		m.logger.Warn("Failed to send metrics", zap.Error(err))
	}
}

// PrometheusMetrics exposes measurements for scraping.
type PrometheusMetrics struct {
	registry          *prometheus.Registry
	queryDuration     *prometheus.HistogramVec
	operationDuration *prometheus.HistogramVec
	graphNodes        prometheus.Gauge
	graphEdges        prometheus.Gauge
	sessions          prometheus.Gauge
}

// NewPrometheusMetrics registers the collectors on a fresh registry
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sparql_query_duration_seconds",
			Help:      "Triple store round trip latency by query and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query", "status"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_operation_duration_seconds",
			Help:      "Graph model operation latency by operation and status",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation", "status"}),
		graphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Node count of the most recently mutated graph",
		}),
		graphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Edge count of the most recently mutated graph",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Live exploration sessions",
		}),
	}
	m.registry.MustRegister(m.queryDuration, m.operationDuration, m.graphNodes, m.graphEdges, m.sessions)
	return m
}

// RecordQuery observes one triple store round trip
func (m *PrometheusMetrics) RecordQuery(_ context.Context, kind string, duration time.Duration, err error) {
	m.queryDuration.WithLabelValues(kind, outcome(err)).Observe(duration.Seconds())
}

// RecordOperation observes one graph operation
func (m *PrometheusMetrics) RecordOperation(_ context.Context, operation string, duration time.Duration, err error) {
	m.operationDuration.WithLabelValues(operation, outcome(err)).Observe(duration.Seconds())
}

// RecordGraphSize sets the graph size gauges
func (m *PrometheusMetrics) RecordGraphSize(_ context.Context, nodes, edges int) {
	m.graphNodes.Set(float64(nodes))
	m.graphEdges.Set(float64(edges))
}

// RecordSessions sets the session gauge
func (m *PrometheusMetrics) RecordSessions(_ context.Context, count int) {
	m.sessions.Set(float64(count))
}

// Registry exposes the underlying registry, mainly for tests
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
