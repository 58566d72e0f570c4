package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// StatusClientClosedRequest is written when the caller went away before the
// triple store answered. Nobody reads the body, so none is sent.
const StatusClientClosedRequest = 499

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Retryable bool                   `json:"retryable,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	TraceID   string                 `json:"trace_id,omitempty"`
}

// upstreamMessages replace the gateway's internal wording for failures that
// originate at the triple store. The raw message stays in the log.
var upstreamMessages = map[ErrorType]string{
	ErrorTypeNetwork:     "the triple store could not be reached, retry later",
	ErrorTypeProtocol:    "the triple store sent a response that is not a SPARQL JSON result",
	ErrorTypeQuery:       "the triple store rejected a generated query",
	ErrorTypeUnavailable: "the triple store is temporarily disabled after repeated failures, retry later",
}

// retryAfter is the Retry-After value, in seconds, per error type.
var retryAfter = map[ErrorType]string{
	ErrorTypeNetwork:     "1",
	ErrorTypeUnavailable: "5",
	ErrorTypeRateLimit:   "60",
}

// ErrorHandler turns errors returned by the graph services into HTTP
// responses.
type ErrorHandler struct {
	logger *zap.Logger
	debug  bool
}

func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	return &ErrorHandler{logger: logger, debug: debug}
}

// Handle writes the response for err. A nil err writes nothing.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	if callerGone(r, err) {
		h.logger.Debug("Request abandoned by client",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		w.WriteHeader(StatusClientClosedRequest)
		return
	}

	appErr := GetAppError(err)
	if appErr == nil {
		h.logger.Error("Unhandled error", append(requestFields(r, http.StatusInternalServerError), zap.Error(err))...)
		resp := h.base(r, ErrorTypeInternal, "An internal error occurred")
		if h.debug {
			resp.Message = err.Error()
		}
		h.write(w, http.StatusInternalServerError, resp)
		return
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	h.logAppError(r, appErr, status)

	resp := h.base(r, appErr.Type, appErr.Message)
	resp.Code = appErr.Code
	resp.Details = appErr.Details
	resp.Retryable = appErr.Retryable
	if msg, ok := upstreamMessages[appErr.Type]; ok && !h.debug {
		resp.Message = msg
	}
	if h.debug && appErr.StackTrace != "" {
		resp.Details = withEntry(resp.Details, "stack_trace", appErr.StackTrace)
	}
	if secs, ok := retryAfter[appErr.Type]; ok {
		w.Header().Set("Retry-After", secs)
	}
	h.write(w, status, resp)
}

// HandleStatus writes a bare status error, used for routing failures.
func (h *ErrorHandler) HandleStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.logger.Warn("HTTP error", append(requestFields(r, status), zap.String("message", message))...)
	h.write(w, status, h.base(r, statusType(status), message))
}

// Middleware converts handler panics into INTERNAL responses.
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.Handle(w, r, NewInternalError(fmt.Sprintf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *ErrorHandler) base(r *http.Request, kind ErrorType, message string) ErrorResponse {
	return ErrorResponse{
		Error:     true,
		Type:      string(kind),
		Message:   message,
		RequestID: r.Header.Get("X-Request-ID"),
		TraceID:   r.Header.Get("X-Trace-ID"),
	}
}

func (h *ErrorHandler) logAppError(r *http.Request, err *AppError, status int) {
	fields := append(requestFields(r, status), zap.String("error_type", string(err.Type)))
	if err.Code != "" {
		fields = append(fields, zap.String("error_code", err.Code))
	}
	if err.Cause != nil {
		fields = append(fields, zap.Error(err.Cause))
	}
	if err.Details != nil {
		fields = append(fields, zap.Any("details", err.Details))
	}

	switch {
	case status >= 500:
		h.logger.Error(err.Message, fields...)
	case status >= 400:
		h.logger.Warn(err.Message, fields...)
	default:
		h.logger.Info(err.Message, fields...)
	}
}

func (h *ErrorHandler) write(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err), zap.String("type", resp.Type))
	}
}

// callerGone reports whether the failure is only the echo of the client
// disconnecting.
func callerGone(r *http.Request, err error) bool {
	return r.Context().Err() != nil || errors.Is(err, context.Canceled)
}

func requestFields(r *http.Request, status int) []zap.Field {
	return []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", r.Header.Get("X-Request-ID")),
		zap.String("trace_id", r.Header.Get("X-Trace-ID")),
	}
}

func withEntry(details map[string]interface{}, key string, value interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(details)+1)
	for k, v := range details {
		out[k] = v
	}
	out[key] = value
	return out
}

func statusType(status int) ErrorType {
	switch status {
	case http.StatusBadRequest, http.StatusMethodNotAllowed:
		return ErrorTypeValidation
	case http.StatusUnauthorized:
		return ErrorTypeUnauthorized
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusConflict:
		return ErrorTypeConflict
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case http.StatusServiceUnavailable:
		return ErrorTypeUnavailable
	case http.StatusBadGateway:
		return ErrorTypeNetwork
	default:
		return ErrorTypeInternal
	}
}
