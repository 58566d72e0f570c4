package valueobjects

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
)

// NodeID is a value object holding the absolute IRI of a graph node.
// Value objects are immutable and have no identity beyond their value
type NodeID struct {
	value string
}

// NewNodeID validates an IRI and wraps it.
func NewNodeID(iri string) (NodeID, error) {
	iri = strings.TrimSpace(iri)
	if iri == "" {
		return NodeID{}, errors.New("node ID cannot be empty")
	}
	if strings.ContainsAny(iri, " <>\"{}|^`\\\t\n\r") {
		return NodeID{}, errors.New("node ID contains characters not allowed in an IRI")
	}
	u, err := url.Parse(iri)
	if err != nil || !u.IsAbs() {
		return NodeID{}, errors.New("node ID must be an absolute IRI")
	}
	return NodeID{value: iri}, nil
}

// MustNodeID is NewNodeID for known-good literals; it panics on invalid input.
func MustNodeID(iri string) NodeID {
	id, err := NewNodeID(iri)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the IRI
func (id NodeID) String() string {
	return id.value
}

// Equals checks if two NodeIDs are equal
func (id NodeID) Equals(other NodeID) bool {
	return id.value == other.value
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id NodeID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// MarshalText lets NodeID key JSON objects.
func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *NodeID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.New("NodeID must be a string")
	}
	parsed, err := NewNodeID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// UnmarshalText is the inverse of MarshalText.
func (id *NodeID) UnmarshalText(text []byte) error {
	parsed, err := NewNodeID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
