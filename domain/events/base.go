package events

import (
	"time"

	"graphexplorer/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

const (
	TypeRootAdded    = "graph.root_added"
	TypeNodeExpanded = "graph.node_expanded"
	TypeNodesMerged  = "graph.nodes_merged"
	TypeEdgesMerged  = "graph.edges_merged"
	TypeNodeRemoved  = "graph.node_removed"
	TypeEdgeRemoved  = "graph.edge_removed"
)

func newBase(graphID, eventType string, version int, timestamp time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: graphID,
		EventType:   eventType,
		Timestamp:   timestamp,
		Version:     version,
	}
}

// RootAdded is raised when a graph is seeded with its first node
type RootAdded struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
}

// NewRootAdded creates a RootAdded event
func NewRootAdded(graphID string, version int, nodeID valueobjects.NodeID, timestamp time.Time) RootAdded {
	return RootAdded{
		BaseEvent: newBase(graphID, TypeRootAdded, version, timestamp),
		NodeID:    nodeID,
	}
}

// NodeExpanded is raised when the neighborhood of a node has been merged
type NodeExpanded struct {
	BaseEvent
	NodeID      valueobjects.NodeID `json:"node_id"`
	NodesMerged int                 `json:"nodes_merged"`
	EdgesMerged int                 `json:"edges_merged"`
}

// NewNodeExpanded creates a NodeExpanded event
func NewNodeExpanded(graphID string, version int, nodeID valueobjects.NodeID, nodes, edges int, timestamp time.Time) NodeExpanded {
	return NodeExpanded{
		BaseEvent:   newBase(graphID, TypeNodeExpanded, version, timestamp),
		NodeID:      nodeID,
		NodesMerged: nodes,
		EdgesMerged: edges,
	}
}

// NodesMerged is raised by a direct node merge
type NodesMerged struct {
	BaseEvent
	NodeIDs []valueobjects.NodeID `json:"node_ids"`
}

// NewNodesMerged creates a NodesMerged event
func NewNodesMerged(graphID string, version int, ids []valueobjects.NodeID, timestamp time.Time) NodesMerged {
	return NodesMerged{
		BaseEvent: newBase(graphID, TypeNodesMerged, version, timestamp),
		NodeIDs:   ids,
	}
}

// EdgesMerged is raised by a direct edge merge
type EdgesMerged struct {
	BaseEvent
	Count int `json:"count"`
}

// NewEdgesMerged creates an EdgesMerged event
func NewEdgesMerged(graphID string, version int, count int, timestamp time.Time) EdgesMerged {
	return EdgesMerged{
		BaseEvent: newBase(graphID, TypeEdgesMerged, version, timestamp),
		Count:     count,
	}
}

// NodeRemoved is raised when a node record is dropped
type NodeRemoved struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
}

// NewNodeRemoved creates a NodeRemoved event
func NewNodeRemoved(graphID string, version int, nodeID valueobjects.NodeID, timestamp time.Time) NodeRemoved {
	return NodeRemoved{
		BaseEvent: newBase(graphID, TypeNodeRemoved, version, timestamp),
		NodeID:    nodeID,
	}
}

// EdgeRemoved is raised when an edge is dropped
type EdgeRemoved struct {
	BaseEvent
	From  valueobjects.NodeID `json:"from"`
	To    valueobjects.NodeID `json:"to"`
	Label string              `json:"label"`
}

// NewEdgeRemoved creates an EdgeRemoved event
func NewEdgeRemoved(graphID string, version int, from, to valueobjects.NodeID, label string, timestamp time.Time) EdgeRemoved {
	return EdgeRemoved{
		BaseEvent: newBase(graphID, TypeEdgeRemoved, version, timestamp),
		From:      from,
		To:        to,
		Label:     label,
	}
}
