package common

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type body struct {
	Root string `json:"root"`
}

func TestParseJSONBody(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{name: "valid", payload: `{"root":"http://ex/a"}`},
		{name: "empty", payload: ``, wantErr: "empty"},
		{name: "unknown field", payload: `{"root":"x","extra":1}`, wantErr: "unknown field"},
		{name: "trailing object", payload: `{"root":"x"}{"root":"y"}`, wantErr: "single JSON object"},
		{name: "malformed", payload: `{"root":`, wantErr: "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			var got body

			err := ParseJSONBody(httptest.NewRecorder(), r, &got, MaxBodyBytes)

			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "http://ex/a", got.Root)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseJSONBody_EnforcesLimit(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"root":"`+strings.Repeat("a", 64)+`"}`))

	err := ParseJSONBody(httptest.NewRecorder(), r, &body{}, 16)

	assert.Error(t, err)
}

func TestRespondJSON(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, RespondJSON(w, http.StatusCreated, body{Root: "r"}))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"root":"r"}`, w.Body.String())

	w = httptest.NewRecorder()
	require.NoError(t, RespondJSON(w, http.StatusNoContent, nil))
	assert.Empty(t, w.Body.String())
}

func TestExtractRequestID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, ExtractRequestID(r))

	r.Header.Set("X-Amzn-Trace-Id", "Root=1-abc")
	assert.Equal(t, "Root=1-abc", ExtractRequestID(r))

	r.Header.Set("X-Request-ID", "req-1")
	assert.Equal(t, "req-1", ExtractRequestID(r))
}
