package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		check     func(error) bool
		retryable bool
	}{
		{"network", NewNetworkError("dial failed", context.DeadlineExceeded), IsNetwork, true},
		{"protocol", NewProtocolError("not json", nil), IsProtocol, false},
		{"query", NewQueryError("empty projection"), IsQuery, false},
		{"wrapped network", fmt.Errorf("expand: %w", NewNetworkError("reset", nil)), IsNetwork, true},
		{"not found", NewNotFoundError("session"), IsNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestIsRetryable_PlainError(t *testing.T) {
	assert.False(t, IsRetryable(fmt.Errorf("boom")))
	assert.False(t, IsRetryable(nil))
}

func TestWrap_PreservesType(t *testing.T) {
	err := Wrap(NewProtocolError("bad body", nil), "label query")

	require.Error(t, err)
	assert.True(t, IsProtocol(err))
	assert.Contains(t, err.Error(), "label query: bad body")
}

func TestErrorHandler_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   ErrorType
	}{
		{"network", NewNetworkError("timeout", nil), http.StatusBadGateway, ErrorTypeNetwork},
		{"protocol", NewProtocolError("html body", nil), http.StatusBadGateway, ErrorTypeProtocol},
		{"query", NewQueryError("no projection"), http.StatusInternalServerError, ErrorTypeQuery},
		{"conflict", NewConflictError("superseded"), http.StatusConflict, ErrorTypeConflict},
		{"rate limit", NewRateLimitError(10, "session cap"), http.StatusTooManyRequests, ErrorTypeRateLimit},
	}

	h := NewErrorHandler(zap.NewNop(), false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/x", nil)

			h.Handle(rec, req, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tt.kind), body.Type)
		})
	}
}

func TestErrorHandler_RetryAfterOnNetworkError(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()

	h.Handle(rec, httptest.NewRequest(http.MethodPost, "/", nil), NewNetworkError("refused", nil))

	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Retryable)
}

func TestErrorHandler_GenericErrorHidesMessage(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()

	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("secret detail"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail")
}

func TestErrorHandler_UpstreamFailuresUseClientMessages(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		message    string
		retryAfter string
	}{
		{"network", NewNetworkError("dial tcp 10.0.0.4:7200: connection refused", nil), upstreamMessages[ErrorTypeNetwork], "1"},
		{"protocol", NewProtocolError("invalid character '<'", nil), upstreamMessages[ErrorTypeProtocol], ""},
		{"query", NewQueryError("MALFORMED QUERY: Lexical error at line 3"), upstreamMessages[ErrorTypeQuery], ""},
		{"breaker open", NewUnavailableError("triple store"), upstreamMessages[ErrorTypeUnavailable], "5"},
	}

	h := NewErrorHandler(zap.NewNop(), false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			h.Handle(rec, httptest.NewRequest(http.MethodPost, "/", nil), tt.err)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body.Message)
			assert.NotContains(t, rec.Body.String(), tt.err.Message)
			assert.Equal(t, tt.retryAfter, rec.Header().Get("Retry-After"))
		})
	}
}

func TestErrorHandler_DebugKeepsUpstreamDetail(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), true)
	rec := httptest.NewRecorder()

	h.Handle(rec, httptest.NewRequest(http.MethodPost, "/", nil), NewProtocolError("invalid character '<'", nil))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid character '<'", body.Message)
	assert.Contains(t, body.Details, "stack_trace")
}

func TestErrorHandler_ClientValidationMessagePassesThrough(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()

	h.Handle(rec, httptest.NewRequest(http.MethodPost, "/", nil), NewValidationError("node_id must be an absolute IRI"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "node_id must be an absolute IRI")
	assert.Empty(t, rec.Header().Get("Retry-After"))
}

func TestErrorHandler_AbandonedRequest(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := NewErrorHandler(zap.New(core), false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/x/expand", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	h.Handle(rec, req, fmt.Errorf("expand: %w", context.Canceled))

	assert.Equal(t, StatusClientClosedRequest, rec.Code)
	assert.Empty(t, rec.Body.String())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
}

func TestErrorHandler_CanceledCauseWithLiveRequest(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()

	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("%w: %w", errors.New("sparql query abandoned by caller"), context.Canceled))

	assert.Equal(t, StatusClientClosedRequest, rec.Code)
}

func TestErrorHandler_MiddlewareRecoversPanic(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()

	h.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("layout exploded")
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(ErrorTypeInternal), body.Type)
}

func TestErrorHandler_HandleStatus(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()

	h.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil), http.StatusNotFound, "route not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(ErrorTypeNotFound), body.Type)
	assert.Equal(t, "route not found", body.Message)
}
