package services

import (
	"fmt"

	"graphexplorer/domain/core/entities"
	"graphexplorer/domain/core/valueobjects"
)

// Point is an unnormalized coordinate produced by a solver.
type Point struct {
	X float64
	Y float64
}

// LayoutSolver assigns coordinates to the nodes of a directed graph. Node
// ids are opaque; edge labels are carried along but never affect position.
// Implementations must return a point for every node they are given.
type LayoutSolver interface {
	Solve(nodes []valueobjects.NodeID, edges []entities.Edge) (map[valueobjects.NodeID]Point, error)
}

// LayoutEngine runs the solver and rescales its output into the unit
// square: x is divided by the largest x when that is positive, otherwise
// left as is, and likewise for y. A lone node is always centred.
type LayoutEngine struct {
	solver LayoutSolver
}

// NewLayoutEngine creates a layout engine over a solver.
func NewLayoutEngine(solver LayoutSolver) *LayoutEngine {
	return &LayoutEngine{solver: solver}
}

// Compute lays out the given nodes. Edges with an endpoint outside nodes
// are not passed to the solver, so the result is keyed by exactly nodes.
func (e *LayoutEngine) Compute(nodes []valueobjects.NodeID, edges []entities.Edge) (map[valueobjects.NodeID]valueobjects.Position, error) {
	out := make(map[valueobjects.NodeID]valueobjects.Position, len(nodes))
	switch len(nodes) {
	case 0:
		return out, nil
	case 1:
		out[nodes[0]] = valueobjects.Center
		return out, nil
	}

	present := make(map[valueobjects.NodeID]bool, len(nodes))
	for _, id := range nodes {
		present[id] = true
	}
	usable := make([]entities.Edge, 0, len(edges))
	for _, edge := range edges {
		if present[edge.From] && present[edge.To] {
			usable = append(usable, edge)
		}
	}

	points, err := e.solver.Solve(nodes, usable)
	if err != nil {
		return nil, fmt.Errorf("layout solve failed: %w", err)
	}

	var maxX, maxY float64
	for _, id := range nodes {
		p, ok := points[id]
		if !ok {
			return nil, fmt.Errorf("layout solver returned no position for %s", id)
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	for _, id := range nodes {
		p := points[id]
		pos := valueobjects.Position{X: p.X, Y: p.Y}
		if maxX > 0 {
			pos.X = p.X / maxX
		}
		if maxY > 0 {
			pos.Y = p.Y / maxY
		}
		out[id] = pos
	}
	return out, nil
}
