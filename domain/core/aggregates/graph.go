package aggregates

import (
	"errors"
	"fmt"
	"time"

	"graphexplorer/domain/core/entities"
	"graphexplorer/domain/core/valueobjects"
	"graphexplorer/domain/events"
)

var (
	ErrAlreadySeeded   = errors.New("graph already has a root node")
	ErrMaxNodesReached = errors.New("maximum nodes reached")
	ErrDanglingEdge    = errors.New("edge references a node that is not in the graph")
)

// Graph is the aggregate root for one explored graph. It holds the node
// records keyed by IRI and the edge multiset, and enforces that merges never
// introduce an edge whose endpoints are missing.
// Graph is not safe for concurrent use; callers serialize access.
type Graph struct {
	id       string
	nodes    map[valueobjects.NodeID]*entities.Node
	order    []valueobjects.NodeID
	edges    []entities.Edge
	maxNodes int
	seeded   bool
	version  int
	events   []events.DomainEvent
}

// MergeBatch is one unit of staged work: node records and the edges
// between them, merged nodes first.
type MergeBatch struct {
	Nodes []*entities.Node
	Edges []entities.Edge
}

// NewGraph creates an empty graph. maxNodes <= 0 disables the node cap.
func NewGraph(id string, maxNodes int) *Graph {
	return &Graph{
		id:       id,
		nodes:    make(map[valueobjects.NodeID]*entities.Node),
		maxNodes: maxNodes,
		events:   []events.DomainEvent{},
	}
}

// ID returns the graph's identifier
func (g *Graph) ID() string {
	return g.id
}

// Version increases on every successful mutation
func (g *Graph) Version() int {
	return g.version
}

// IsSeeded reports whether Seed has succeeded
func (g *Graph) IsSeeded() bool {
	return g.seeded
}

// Seed stores the root node of an empty graph. It may only succeed once.
func (g *Graph) Seed(root *entities.Node) error {
	if g.seeded {
		return ErrAlreadySeeded
	}
	if err := root.Validate(); err != nil {
		return err
	}
	if err := g.checkCapacity([]MergeBatch{{Nodes: []*entities.Node{root}}}); err != nil {
		return err
	}

	g.applyNodes([]*entities.Node{root})
	g.seeded = true
	g.touch()
	g.addEvent(events.NewRootAdded(g.id, g.version, root.ID, time.Now()))
	return nil
}

// MergeNodes replaces each record by id, inserting new ones.
func (g *Graph) MergeNodes(nodes []*entities.Node) error {
	if err := g.validate([]MergeBatch{{Nodes: nodes}}); err != nil {
		return err
	}

	ids := g.applyNodes(nodes)
	g.touch()
	g.addEvent(events.NewNodesMerged(g.id, g.version, ids, time.Now()))
	return nil
}

// MergeEdges upserts edges one at a time: an existing identical triple is
// removed and the edge is appended, so duplicates within the batch collapse
// too.
func (g *Graph) MergeEdges(edges []entities.Edge) error {
	if err := g.validate([]MergeBatch{{Edges: edges}}); err != nil {
		return err
	}

	g.applyEdges(edges)
	g.touch()
	g.addEvent(events.NewEdgesMerged(g.id, g.version, len(edges), time.Now()))
	return nil
}

// Expand applies staged batches in order as one transaction: either every
// batch is merged or the graph is left untouched.
func (g *Graph) Expand(target valueobjects.NodeID, batches []MergeBatch) error {
	if err := g.validate(batches); err != nil {
		return err
	}

	nodeCount, edgeCount := 0, 0
	for _, b := range batches {
		nodeCount += len(g.applyNodes(b.Nodes))
		g.applyEdges(b.Edges)
		edgeCount += len(b.Edges)
	}
	g.touch()
	g.addEvent(events.NewNodeExpanded(g.id, g.version, target, nodeCount, edgeCount, time.Now()))
	return nil
}

// RemoveEdge removes the edge matching all three components. It returns
// false when no such edge exists.
func (g *Graph) RemoveEdge(edge entities.Edge) bool {
	for i, e := range g.edges {
		if e.Equals(edge) {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			g.touch()
			g.addEvent(events.NewEdgeRemoved(g.id, g.version, edge.From, edge.To, edge.Label, time.Now()))
			return true
		}
	}
	return false
}

// RemoveNode removes a node record. Incident edges are left in place; use
// IncidentEdges first to cascade.
func (g *Graph) RemoveNode(id valueobjects.NodeID) bool {
	if _, exists := g.nodes[id]; !exists {
		return false
	}

	delete(g.nodes, id)
	for i, existing := range g.order {
		if existing.Equals(id) {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	g.touch()
	g.addEvent(events.NewNodeRemoved(g.id, g.version, id, time.Now()))
	return true
}

// HasNode checks if a node exists in the graph
func (g *Graph) HasNode(id valueobjects.NodeID) bool {
	_, exists := g.nodes[id]
	return exists
}

// Node returns a copy of one record
func (g *Graph) Node(id valueobjects.NodeID) (*entities.Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Nodes returns copies of all records in insertion order
func (g *Graph) Nodes() []*entities.Node {
	nodes := make([]*entities.Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id].Clone())
	}
	return nodes
}

// NodeIDs returns the node ids in insertion order
func (g *Graph) NodeIDs() []valueobjects.NodeID {
	ids := make([]valueobjects.NodeID, len(g.order))
	copy(ids, g.order)
	return ids
}

// Edges returns a copy of the edge list in merge order
func (g *Graph) Edges() []entities.Edge {
	edges := make([]entities.Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// IncidentEdges returns every edge with id as an endpoint
func (g *Graph) IncidentEdges(id valueobjects.NodeID) []entities.Edge {
	var out []entities.Edge
	for _, e := range g.edges {
		if e.Touches(id) {
			out = append(out, e)
		}
	}
	return out
}

// DanglingEdges returns edges with an endpoint that has been removed
func (g *Graph) DanglingEdges() []entities.Edge {
	var out []entities.Edge
	for _, e := range g.edges {
		if !g.HasNode(e.From) || !g.HasNode(e.To) {
			out = append(out, e)
		}
	}
	return out
}

// NodeCount returns the number of node records
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Clone returns an independent copy used to stage a mutation before it is
// adopted. Node records are shared: the graph replaces them wholesale and
// never edits one in place.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		id:       g.id,
		nodes:    make(map[valueobjects.NodeID]*entities.Node, len(g.nodes)),
		order:    append([]valueobjects.NodeID(nil), g.order...),
		edges:    append([]entities.Edge(nil), g.edges...),
		maxNodes: g.maxNodes,
		seeded:   g.seeded,
		version:  g.version,
		events:   append([]events.DomainEvent{}, g.events...),
	}
	for id, n := range g.nodes {
		out.nodes[id] = n
	}
	return out
}

// GetUncommittedEvents returns all uncommitted domain events
func (g *Graph) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(g.events))
	copy(out, g.events)
	return out
}

// MarkEventsAsCommitted clears all uncommitted events
func (g *Graph) MarkEventsAsCommitted() {
	g.events = []events.DomainEvent{}
}

// Private helper methods

// validate checks a sequence of batches against the current graph without
// mutating it. Edges may reference nodes already stored or merged by the
// same or an earlier batch.
func (g *Graph) validate(batches []MergeBatch) error {
	known := make(map[valueobjects.NodeID]bool)
	for _, b := range batches {
		for _, n := range b.Nodes {
			if err := n.Validate(); err != nil {
				return err
			}
			known[n.ID] = true
		}
		for _, e := range b.Edges {
			if err := e.Validate(); err != nil {
				return err
			}
			if !(known[e.From] || g.HasNode(e.From)) || !(known[e.To] || g.HasNode(e.To)) {
				return fmt.Errorf("%w: %s -[%s]-> %s", ErrDanglingEdge, e.From, e.Label, e.To)
			}
		}
	}
	return g.checkCapacity(batches)
}

func (g *Graph) checkCapacity(batches []MergeBatch) error {
	if g.maxNodes <= 0 {
		return nil
	}
	added := make(map[valueobjects.NodeID]bool)
	for _, b := range batches {
		for _, n := range b.Nodes {
			if !g.HasNode(n.ID) {
				added[n.ID] = true
			}
		}
	}
	if len(g.nodes)+len(added) > g.maxNodes {
		return fmt.Errorf("%w: limit is %d", ErrMaxNodesReached, g.maxNodes)
	}
	return nil
}

func (g *Graph) applyNodes(nodes []*entities.Node) []valueobjects.NodeID {
	ids := make([]valueobjects.NodeID, 0, len(nodes))
	for _, n := range nodes {
		if _, exists := g.nodes[n.ID]; !exists {
			g.order = append(g.order, n.ID)
		}
		g.nodes[n.ID] = n.Clone()
		ids = append(ids, n.ID)
	}
	return ids
}

func (g *Graph) applyEdges(edges []entities.Edge) {
	for _, edge := range edges {
		kept := g.edges[:0]
		for _, e := range g.edges {
			if !e.Equals(edge) {
				kept = append(kept, e)
			}
		}
		g.edges = append(kept, edge)
	}
}

func (g *Graph) touch() {
	g.version++
}

func (g *Graph) addEvent(event events.DomainEvent) {
	g.events = append(g.events, event)
}
