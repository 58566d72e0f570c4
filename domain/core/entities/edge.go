package entities

import (
	"errors"

	"graphexplorer/domain/core/valueobjects"
)

// Edge is a labeled, directed connection. Its identity is the whole triple,
// so two edges between the same nodes with different labels coexist.
type Edge struct {
	From  valueobjects.NodeID `json:"from"`
	To    valueobjects.NodeID `json:"to"`
	Label string              `json:"label"`
}

// NewEdge creates an edge.
func NewEdge(from, to valueobjects.NodeID, label string) Edge {
	return Edge{From: from, To: to, Label: label}
}

// Equals compares all three components.
func (e Edge) Equals(other Edge) bool {
	return e.From.Equals(other.From) && e.To.Equals(other.To) && e.Label == other.Label
}

// Touches reports whether id is either endpoint.
func (e Edge) Touches(id valueobjects.NodeID) bool {
	return e.From.Equals(id) || e.To.Equals(id)
}

// Validate checks both endpoints are set.
func (e Edge) Validate() error {
	if e.From.IsZero() || e.To.IsZero() {
		return errors.New("edge endpoints required")
	}
	return nil
}
