package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "graphexplorer/pkg/errors"
)

type mockCloudWatch struct {
	mock.Mock
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	args := m.Called(ctx, params)
	return &cloudwatch.PutMetricDataOutput{}, args.Error(1)
}

func TestCloudWatchMetrics_RecordQuery(t *testing.T) {
	// Arrange
	client := new(mockCloudWatch)
	client.On("PutMetricData", mock.Anything, mock.MatchedBy(func(in *cloudwatch.PutMetricDataInput) bool {
		if *in.Namespace != "GraphExplorer" || len(in.MetricData) != 2 {
			return false
		}
		dims := in.MetricData[0].Dimensions
		return *in.MetricData[0].MetricName == "QueryLatency" &&
			*dims[0].Value == "label" &&
			*dims[1].Value == string(apperrors.ErrorTypeNetwork)
	})).Return(nil, nil)
	m := NewCloudWatchMetrics("GraphExplorer", client, zap.NewNop())

	// Act
	m.RecordQuery(context.Background(), "label", 120*time.Millisecond, apperrors.NewNetworkError("refused", nil))

	// Assert
	client.AssertExpectations(t)
}

func TestCloudWatchMetrics_SwallowsPutFailure(t *testing.T) {
	client := new(mockCloudWatch)
	client.On("PutMetricData", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))
	m := NewCloudWatchMetrics("GraphExplorer", client, zap.NewNop())

	assert.NotPanics(t, func() {
		m.RecordGraphSize(context.Background(), 3, 2)
	})
	client.AssertNumberOfCalls(t, "PutMetricData", 1)
}

func TestCloudWatchMetrics_NilClientIsNoop(t *testing.T) {
	m := NewCloudWatchMetrics("GraphExplorer", nil, zap.NewNop())
	assert.NotPanics(t, func() {
		m.RecordSessions(context.Background(), 1)
	})
}

func TestPrometheusMetrics(t *testing.T) {
	m := NewPrometheusMetrics("graphexplorer")

	m.RecordQuery(context.Background(), "children", 10*time.Millisecond, nil)
	m.RecordQuery(context.Background(), "children", 10*time.Millisecond, apperrors.NewProtocolError("html", nil))
	m.RecordGraphSize(context.Background(), 7, 4)
	m.RecordSessions(context.Background(), 2)

	assert.Equal(t, 2, testutil.CollectAndCount(m.queryDuration))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.graphNodes))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.graphEdges))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessions))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "graphexplorer_sparql_query_duration_seconds")
}

func TestTracer_DisabledRunsFunction(t *testing.T) {
	called := false
	err := NewTracer("graphexplorer", false).Trace(context.Background(), "expand", func(context.Context) error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
}

func TestTracer_NoSegmentRunsFunction(t *testing.T) {
	want := errors.New("boom")
	err := NewTracer("graphexplorer", true).Trace(context.Background(), "expand", func(context.Context) error {
		return want
	})

	assert.ErrorIs(t, err, want)
}
