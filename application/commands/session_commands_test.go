package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "graphexplorer/pkg/errors"
)

const sessionID = "6f1c2a9e-8d4b-4c1e-9f3a-2b7d5e8c1a40"

func TestCommandValidation(t *testing.T) {
	tests := []struct {
		name    string
		cmd     interface{ Validate() error }
		wantErr string
	}{
		{"valid create", CreateSessionCommand{SessionID: sessionID, RootNodeID: "https://ex/A"}, ""},
		{"missing root", CreateSessionCommand{SessionID: sessionID}, "rootnodeid is required"},
		{"relative root", CreateSessionCommand{SessionID: sessionID, RootNodeID: "/A"}, "rootnodeid must be an absolute IRI"},
		{"root with space", CreateSessionCommand{SessionID: sessionID, RootNodeID: "https://ex/A B"}, "rootnodeid must be an absolute IRI"},
		{"bad session", ExpandNodeCommand{SessionID: "abc", NodeID: "https://ex/A"}, "sessionid must be a UUID"},
		{"valid remove edge", RemoveEdgeCommand{SessionID: sessionID, From: "https://ex/A", To: "https://ex/B", Label: "rel"}, ""},
		{"edge without label", RemoveEdgeCommand{SessionID: sessionID, From: "https://ex/A", To: "https://ex/B"}, "label is required"},
		{"valid delete", DeleteSessionCommand{SessionID: sessionID}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRemoveEdgeCommand_Edge(t *testing.T) {
	cmd := RemoveEdgeCommand{SessionID: sessionID, From: "https://ex/A", To: "https://ex/B", Label: "rel"}

	edge := cmd.Edge()

	assert.Equal(t, "https://ex/A", edge.From.String())
	assert.Equal(t, "https://ex/B", edge.To.String())
	assert.Equal(t, "rel", edge.Label)
}
