package entities

import (
	"errors"

	"graphexplorer/domain/core/valueobjects"
)

// Node is the resolved record of one resource in the explored graph.
// Identity is the ID alone; every other field is replaced wholesale when a
// newer resolution of the same resource is merged.
type Node struct {
	ID          valueobjects.NodeID  `json:"id"`
	Label       string               `json:"label"`
	Description *string              `json:"description"`
	Classes     []string             `json:"classes"`
	Meta        map[string]MetaValue `json:"meta"`
}

// NewNode creates a record with the label defaulted to the node's IRI.
func NewNode(id valueobjects.NodeID) *Node {
	return &Node{
		ID:      id,
		Label:   id.String(),
		Classes: []string{},
		Meta:    map[string]MetaValue{},
	}
}

// Validate checks the record can be stored.
func (n *Node) Validate() error {
	if n == nil {
		return errors.New("node cannot be nil")
	}
	if n.ID.IsZero() {
		return errors.New("node ID required")
	}
	if n.Label == "" {
		return errors.New("node label required")
	}
	return nil
}

// Clone returns a deep copy.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		ID:      n.ID,
		Label:   n.Label,
		Classes: append([]string{}, n.Classes...),
		Meta:    make(map[string]MetaValue, len(n.Meta)),
	}
	if n.Description != nil {
		d := *n.Description
		out.Description = &d
	}
	for k, v := range n.Meta {
		out.Meta[k] = v.Clone()
	}
	return out
}
