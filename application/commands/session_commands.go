package commands

import (
	"graphexplorer/domain/core/entities"
	"graphexplorer/domain/core/valueobjects"
	"graphexplorer/pkg/utils"
)

// CreateSessionCommand starts a session rooted at one node
type CreateSessionCommand struct {
	SessionID  string `json:"session_id" validate:"required,uuid"`
	RootNodeID string `json:"root_node_id" validate:"required,iri"`
}

// Validate validates the command
func (c CreateSessionCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// Session returns the targeted session
func (c CreateSessionCommand) Session() string { return c.SessionID }

// RootID returns the root as a value object. Call after Validate.
func (c CreateSessionCommand) RootID() valueobjects.NodeID {
	id, _ := valueobjects.NewNodeID(c.RootNodeID)
	return id
}

// ExpandNodeCommand expands one node of a session along the configured
// predicates
type ExpandNodeCommand struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	NodeID    string `json:"node_id" validate:"required,iri"`
}

// Validate validates the command
func (c ExpandNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// Session returns the targeted session
func (c ExpandNodeCommand) Session() string { return c.SessionID }

// Target returns the node to expand. Call after Validate.
func (c ExpandNodeCommand) Target() valueobjects.NodeID {
	id, _ := valueobjects.NewNodeID(c.NodeID)
	return id
}

// RemoveNodeCommand removes a node. With Cascade set its incident edges
// are removed first.
type RemoveNodeCommand struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	NodeID    string `json:"node_id" validate:"required,iri"`
	Cascade   bool   `json:"cascade"`
}

// Validate validates the command
func (c RemoveNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// Session returns the targeted session
func (c RemoveNodeCommand) Session() string { return c.SessionID }

// Target returns the node to remove. Call after Validate.
func (c RemoveNodeCommand) Target() valueobjects.NodeID {
	id, _ := valueobjects.NewNodeID(c.NodeID)
	return id
}

// RemoveEdgeCommand removes the edge matching from, to and label
type RemoveEdgeCommand struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	From      string `json:"from" validate:"required,iri"`
	To        string `json:"to" validate:"required,iri"`
	Label     string `json:"label" validate:"required,max=2048"`
}

// Validate validates the command
func (c RemoveEdgeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// Session returns the targeted session
func (c RemoveEdgeCommand) Session() string { return c.SessionID }

// Edge returns the edge to remove. Call after Validate.
func (c RemoveEdgeCommand) Edge() entities.Edge {
	from, _ := valueobjects.NewNodeID(c.From)
	to, _ := valueobjects.NewNodeID(c.To)
	return entities.NewEdge(from, to, c.Label)
}

// DeleteSessionCommand drops a session and its graph
type DeleteSessionCommand struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
}

// Validate validates the command
func (c DeleteSessionCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// Session returns the targeted session
func (c DeleteSessionCommand) Session() string { return c.SessionID }
