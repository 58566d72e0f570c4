package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"graphexplorer/application/ports"
	"graphexplorer/domain/core/aggregates"
	"graphexplorer/domain/core/entities"
	"graphexplorer/domain/core/valueobjects"
	"graphexplorer/domain/events"
	domainservices "graphexplorer/domain/services"
	apperrors "graphexplorer/pkg/errors"
	"graphexplorer/pkg/sparql"
)

// GraphModelConfig holds the per-session settings of a GraphModel.
type GraphModelConfig struct {
	Prefixes             *sparql.PrefixTable
	ExpansionPredicates  []string
	ExpansionConcurrency int
	MaxNodes             int
}

// Snapshot is a consistent read of the whole model.
type Snapshot struct {
	GraphID string                                       `json:"session_id"`
	Version int                                          `json:"version"`
	Nodes   []*entities.Node                             `json:"nodes"`
	Edges   []entities.Edge                              `json:"edges"`
	Layout  map[valueobjects.NodeID]valueobjects.Position `json:"layout"`
}

type expansion struct {
	generation uint64
	cancel     context.CancelFunc
}

// GraphModel owns one explored graph and its layout. It is the only entry
// point that mutates the graph: every mutation either commits completely
// and leaves the layout keyed by exactly the stored nodes, or changes
// nothing.
//
// Network work runs without the lock; only the commit step holds it.
type GraphModel struct {
	mu          sync.Mutex
	graph       *aggregates.Graph
	layout      map[valueobjects.NodeID]valueobjects.Position
	inflight    map[valueobjects.NodeID]*expansion
	generation  uint64
	prefixes    *sparql.PrefixTable
	predicates  []string
	concurrency int

	client       ports.SparqlClient
	resolver     *MetadataResolver
	layoutEngine *domainservices.LayoutEngine
	publisher    ports.EventPublisher
	metrics      ports.Metrics
	tracer       ports.Tracer
	logger       *zap.Logger
}

// NewGraphModel creates an empty model for one session.
func NewGraphModel(
	id string,
	cfg GraphModelConfig,
	client ports.SparqlClient,
	resolver *MetadataResolver,
	layoutEngine *domainservices.LayoutEngine,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	tracer ports.Tracer,
	logger *zap.Logger,
) *GraphModel {
	concurrency := cfg.ExpansionConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &GraphModel{
		graph:        aggregates.NewGraph(id, cfg.MaxNodes),
		layout:       map[valueobjects.NodeID]valueobjects.Position{},
		inflight:     map[valueobjects.NodeID]*expansion{},
		prefixes:     cfg.Prefixes,
		predicates:   append([]string(nil), cfg.ExpansionPredicates...),
		concurrency:  concurrency,
		client:       client,
		resolver:     resolver,
		layoutEngine: layoutEngine,
		publisher:    publisher,
		metrics:      metrics,
		tracer:       tracer,
		logger:       logger.With(zap.String("graph_id", id)),
	}
}

// ID returns the graph identifier
func (m *GraphModel) ID() string {
	return m.graph.ID()
}

// AddRootNode resolves id and seeds the empty graph with it. A graph can
// be seeded only once.
func (m *GraphModel) AddRootNode(ctx context.Context, id valueobjects.NodeID) error {
	return m.observe(ctx, "add_root_node", func(ctx context.Context) error {
		m.mu.Lock()
		seeded := m.graph.IsSeeded()
		m.mu.Unlock()
		if seeded {
			return apperrors.NewConflictError("graph already has a root node")
		}

		root, err := m.resolver.ResolveNode(ctx, id)
		if err != nil {
			return err
		}

		return m.commit(ctx, func(g *aggregates.Graph) error {
			return g.Seed(root)
		})
	})
}

// ExpandNode walks every expansion predicate from id in both directions
// and merges the neighbors and connecting edges it finds. Results for all
// predicates are staged first and committed together, then the layout is
// recomputed once.
//
// A newer ExpandNode for the same id cancels this one. A superseded
// expansion returns a conflict error and leaves the graph untouched.
func (m *GraphModel) ExpandNode(ctx context.Context, id valueobjects.NodeID) error {
	return m.observe(ctx, "expand_node", func(ctx context.Context) error {
		m.mu.Lock()
		if !m.graph.HasNode(id) {
			m.mu.Unlock()
			return apperrors.NewNotFoundError("node " + id.String())
		}
		m.generation++
		gen := m.generation
		if prev, ok := m.inflight[id]; ok {
			prev.cancel()
			m.logger.Debug("Superseding in-flight expansion", zap.String("node_id", id.String()))
		}
		expandCtx, cancel := context.WithCancel(ctx)
		m.inflight[id] = &expansion{generation: gen, cancel: cancel}
		m.mu.Unlock()

		defer func() {
			m.mu.Lock()
			if cur, ok := m.inflight[id]; ok && cur.generation == gen {
				delete(m.inflight, id)
			}
			m.mu.Unlock()
			cancel()
		}()

		batches, err := m.stage(expandCtx, id)
		if err != nil {
			if m.superseded(id, gen) {
				return supersededError(id)
			}
			return err
		}

		return m.commit(ctx, func(g *aggregates.Graph) error {
			if cur, ok := m.inflight[id]; !ok || cur.generation != gen {
				return supersededError(id)
			}
			if !g.HasNode(id) {
				return apperrors.NewConflictError("node " + id.String() + " was removed during expansion")
			}
			return g.Expand(id, batches)
		})
	})
}

// RemoveNode removes one node. Its incident edges stay in the edge list
// and are left out of the layout until removed.
func (m *GraphModel) RemoveNode(ctx context.Context, id valueobjects.NodeID) error {
	return m.observe(ctx, "remove_node", func(ctx context.Context) error {
		return m.commit(ctx, func(g *aggregates.Graph) error {
			if !g.RemoveNode(id) {
				return apperrors.NewNotFoundError("node " + id.String())
			}
			return nil
		})
	})
}

// RemoveNodeCascade removes every edge touching id and then the node,
// in one commit.
func (m *GraphModel) RemoveNodeCascade(ctx context.Context, id valueobjects.NodeID) error {
	return m.observe(ctx, "remove_node_cascade", func(ctx context.Context) error {
		return m.commit(ctx, func(g *aggregates.Graph) error {
			if !g.HasNode(id) {
				return apperrors.NewNotFoundError("node " + id.String())
			}
			for _, e := range g.IncidentEdges(id) {
				g.RemoveEdge(e)
			}
			g.RemoveNode(id)
			return nil
		})
	})
}

// RemoveEdge removes the edge matching all of from, to and label.
func (m *GraphModel) RemoveEdge(ctx context.Context, edge entities.Edge) error {
	return m.observe(ctx, "remove_edge", func(ctx context.Context) error {
		return m.commit(ctx, func(g *aggregates.Graph) error {
			if !g.RemoveEdge(edge) {
				return apperrors.NewNotFoundError(fmt.Sprintf("edge %s -[%s]-> %s", edge.From, edge.Label, edge.To))
			}
			return nil
		})
	})
}

// Nodes returns copies of the node records in insertion order
func (m *GraphModel) Nodes() []*entities.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph.Nodes()
}

// Edges returns a copy of the edge list
func (m *GraphModel) Edges() []entities.Edge {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph.Edges()
}

// Layout returns a copy of the current layout
func (m *GraphModel) Layout() map[valueobjects.NodeID]valueobjects.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyLayout()
}

// Snapshot returns nodes, edges and layout read under one lock
func (m *GraphModel) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		GraphID: m.graph.ID(),
		Version: m.graph.Version(),
		Nodes:   m.graph.Nodes(),
		Edges:   m.graph.Edges(),
		Layout:  m.copyLayout(),
	}
}

// Size returns the node and edge counts
func (m *GraphModel) Size() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph.NodeCount(), m.graph.EdgeCount()
}

// stage runs every query of an expansion and returns one batch per
// expansion predicate, in predicate order. Nothing is written.
func (m *GraphModel) stage(ctx context.Context, id valueobjects.NodeID) ([]aggregates.MergeBatch, error) {
	target, err := m.resolver.ResolveNode(ctx, id)
	if err != nil {
		return nil, err
	}

	resolved := map[valueobjects.NodeID]*entities.Node{id: target}
	batches := make([]aggregates.MergeBatch, 0, len(m.predicates))

	for _, predicate := range m.predicates {
		term := sparql.ParseTerm(predicate)

		parents, err := m.neighbors(ctx, sparql.ParentsQuery(m.prefixes, sparql.IRI(id.String()), term))
		if err != nil {
			return nil, err
		}
		children, err := m.neighbors(ctx, sparql.ChildrenQuery(m.prefixes, sparql.IRI(id.String()), term))
		if err != nil {
			return nil, err
		}

		if err := m.resolveAll(ctx, append(append([]valueobjects.NodeID{}, parents...), children...), resolved); err != nil {
			return nil, err
		}

		label, err := m.resolver.ResolveEdgeLabel(ctx, predicate)
		if err != nil {
			return nil, err
		}

		batch := aggregates.MergeBatch{Nodes: []*entities.Node{target}}
		for _, p := range parents {
			batch.Nodes = append(batch.Nodes, resolved[p])
			batch.Edges = append(batch.Edges, entities.NewEdge(p, id, label))
		}
		for _, c := range children {
			batch.Nodes = append(batch.Nodes, resolved[c])
			batch.Edges = append(batch.Edges, entities.NewEdge(id, c, label))
		}
		batches = append(batches, batch)

		m.logger.Debug("Staged expansion batch",
			zap.String("node_id", id.String()),
			zap.String("predicate", predicate),
			zap.Int("parents", len(parents)),
			zap.Int("children", len(children)),
		)
	}
	return batches, nil
}

// neighbors runs a parents or children query and returns the IRIs bound to
// ?newNode. Literal and blank node values cannot be graph nodes and are
// skipped.
func (m *GraphModel) neighbors(ctx context.Context, q *sparql.Query) ([]valueobjects.NodeID, error) {
	res, err := m.client.Select(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", q.Name, err)
	}

	var ids []valueobjects.NodeID
	for _, row := range res.Rows() {
		v, ok := row.Get(string(sparql.VarNewNode))
		if !ok || v.Type != sparql.TypeURI {
			continue
		}
		id, err := valueobjects.NewNodeID(v.Value)
		if err != nil {
			m.logger.Debug("Skipping neighbor", zap.String("value", v.Value), zap.Error(err))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// resolveAll fills resolved with a record for every id not already in it,
// running up to m.concurrency resolutions at once.
func (m *GraphModel) resolveAll(ctx context.Context, ids []valueobjects.NodeID, resolved map[valueobjects.NodeID]*entities.Node) error {
	var pending []valueobjects.NodeID
	seen := map[valueobjects.NodeID]bool{}
	for _, id := range ids {
		if _, ok := resolved[id]; ok || seen[id] {
			continue
		}
		seen[id] = true
		pending = append(pending, id)
	}
	if len(pending) == 0 {
		return nil
	}

	records := make([]*entities.Node, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, id := range pending {
		i, id := i, id
		g.Go(func() error {
			node, err := m.resolver.ResolveNode(gctx, id)
			if err != nil {
				return err
			}
			records[i] = node
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, id := range pending {
		resolved[id] = records[i]
	}
	return nil
}

// commit applies mutate to a staged copy of the graph under the lock and
// adopts it only once the layout for it is computed, so the store and the
// layout always change together. Events are published after the swap.
func (m *GraphModel) commit(ctx context.Context, mutate func(g *aggregates.Graph) error) error {
	m.mu.Lock()
	staged := m.graph.Clone()
	if err := mutate(staged); err != nil {
		m.mu.Unlock()
		return translateGraphError(err)
	}

	layout, err := m.layoutEngine.Compute(staged.NodeIDs(), staged.Edges())
	if err != nil {
		m.mu.Unlock()
		return apperrors.NewInternalError("layout failed").WithCause(err)
	}
	m.graph = staged
	m.layout = layout

	pending := staged.GetUncommittedEvents()
	staged.MarkEventsAsCommitted()
	nodes, edges := staged.NodeCount(), staged.EdgeCount()
	m.mu.Unlock()

	m.metrics.RecordGraphSize(ctx, nodes, edges)
	m.publish(ctx, pending)
	return nil
}

func (m *GraphModel) publish(ctx context.Context, pending []events.DomainEvent) {
	if m.publisher == nil || len(pending) == 0 {
		return
	}
	if err := m.publisher.PublishBatch(ctx, pending); err != nil {
		m.logger.Warn("Failed to publish graph events",
			zap.Int("count", len(pending)),
			zap.Error(err),
		)
	}
}

// observe traces and times one operation.
func (m *GraphModel) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()
	err := m.tracer.Trace(ctx, operation, fn)
	m.metrics.RecordOperation(ctx, operation, time.Since(start), err)

	if err != nil {
		m.logger.Info("Graph operation failed",
			zap.String("operation", operation),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
	}
	return err
}

func (m *GraphModel) superseded(id valueobjects.NodeID, gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.inflight[id]
	return !ok || cur.generation != gen
}

func (m *GraphModel) copyLayout() map[valueobjects.NodeID]valueobjects.Position {
	out := make(map[valueobjects.NodeID]valueobjects.Position, len(m.layout))
	for id, p := range m.layout {
		out[id] = p
	}
	return out
}

func supersededError(id valueobjects.NodeID) error {
	return apperrors.NewConflictError("expansion of " + id.String() + " was superseded by a newer request")
}

func translateGraphError(err error) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, aggregates.ErrAlreadySeeded):
		return apperrors.NewConflictError(err.Error())
	case errors.Is(err, aggregates.ErrMaxNodesReached):
		return apperrors.NewValidationError(err.Error())
	default:
		return apperrors.NewInternalError("graph update failed").WithCause(err)
	}
}
