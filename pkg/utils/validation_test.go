package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "graphexplorer/pkg/errors"
)

func TestIsAbsoluteIRI(t *testing.T) {
	tests := []struct {
		iri  string
		want bool
	}{
		{"http://example.org/a", true},
		{"urn:isbn:0451450523", true},
		{"https://ex/q?x=1#frag", true},
		{"", false},
		{"relative/path", false},
		{"/A", false},
		{"http://ex/a b", false},
		{"http://ex/<a>", false},
	}

	for _, tt := range tests {
		t.Run(tt.iri, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAbsoluteIRI(tt.iri))
		})
	}
}

func TestValidateStruct_CollectsFieldMessages(t *testing.T) {
	type request struct {
		Node    string `validate:"required,iri"`
		Session string `validate:"required,uuid"`
	}

	err := ValidateStruct(request{Node: "not an iri", Session: ""})

	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	assert.Equal(t, "node must be an absolute IRI", appErr.Details["node"])
	assert.Equal(t, "session is required", appErr.Details["session"])

	assert.NoError(t, ValidateStruct(request{
		Node:    "http://example.org/a",
		Session: "6f1c3c43-3f39-4a35-9a48-8a0f6f7d7c11",
	}))
}
