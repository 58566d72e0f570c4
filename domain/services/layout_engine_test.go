package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphexplorer/domain/core/entities"
	"graphexplorer/domain/core/valueobjects"
)

var (
	idA = valueobjects.MustNodeID("http://example.org/A")
	idB = valueobjects.MustNodeID("http://example.org/B")
	idC = valueobjects.MustNodeID("http://example.org/C")
)

// fixedSolver returns canned points and records what it was asked to solve.
type fixedSolver struct {
	points    map[valueobjects.NodeID]Point
	err       error
	gotNodes  []valueobjects.NodeID
	gotEdges  []entities.Edge
	callCount int
}

func (s *fixedSolver) Solve(nodes []valueobjects.NodeID, edges []entities.Edge) (map[valueobjects.NodeID]Point, error) {
	s.callCount++
	s.gotNodes = nodes
	s.gotEdges = edges
	return s.points, s.err
}

func TestCompute_Normalizes(t *testing.T) {
	solver := &fixedSolver{points: map[valueobjects.NodeID]Point{
		idA: {X: 50, Y: 0},
		idB: {X: 0, Y: 100},
		idC: {X: 100, Y: 100},
	}}

	layout, err := NewLayoutEngine(solver).Compute([]valueobjects.NodeID{idA, idB, idC}, nil)
	require.NoError(t, err)

	assert.Equal(t, valueobjects.Position{X: 0.5, Y: 0}, layout[idA])
	assert.Equal(t, valueobjects.Position{X: 0, Y: 1}, layout[idB])
	assert.Equal(t, valueobjects.Position{X: 1, Y: 1}, layout[idC])
}

func TestCompute_ZeroSpreadAxisLeftUnscaled(t *testing.T) {
	solver := &fixedSolver{points: map[valueobjects.NodeID]Point{
		idA: {X: 0, Y: 0},
		idB: {X: 0, Y: 40},
	}}

	layout, err := NewLayoutEngine(solver).Compute([]valueobjects.NodeID{idA, idB}, nil)
	require.NoError(t, err)

	assert.Equal(t, valueobjects.Position{X: 0, Y: 0}, layout[idA])
	assert.Equal(t, valueobjects.Position{X: 0, Y: 1}, layout[idB])
}

func TestCompute_SingleNodeCentredWithoutSolving(t *testing.T) {
	solver := &fixedSolver{}

	layout, err := NewLayoutEngine(solver).Compute([]valueobjects.NodeID{idA}, nil)
	require.NoError(t, err)

	assert.Equal(t, map[valueobjects.NodeID]valueobjects.Position{idA: valueobjects.Center}, layout)
	assert.Zero(t, solver.callCount)
}

func TestCompute_EmptyGraph(t *testing.T) {
	layout, err := NewLayoutEngine(&fixedSolver{}).Compute(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, layout)
}

func TestCompute_DropsEdgesToMissingNodes(t *testing.T) {
	solver := &fixedSolver{points: map[valueobjects.NodeID]Point{idA: {}, idC: {X: 10}}}
	kept := entities.NewEdge(idA, idC, "p")

	layout, err := NewLayoutEngine(solver).Compute(
		[]valueobjects.NodeID{idA, idC},
		[]entities.Edge{entities.NewEdge(idA, idB, "p"), kept},
	)
	require.NoError(t, err)

	assert.Equal(t, []entities.Edge{kept}, solver.gotEdges)
	assert.Len(t, layout, 2)
	_, hasB := layout[idB]
	assert.False(t, hasB)
}

func TestCompute_SolverErrors(t *testing.T) {
	t.Run("solver failure", func(t *testing.T) {
		_, err := NewLayoutEngine(&fixedSolver{err: errors.New("boom")}).Compute([]valueobjects.NodeID{idA, idB}, nil)
		assert.Error(t, err)
	})

	t.Run("missing position", func(t *testing.T) {
		solver := &fixedSolver{points: map[valueobjects.NodeID]Point{idA: {}}}
		_, err := NewLayoutEngine(solver).Compute([]valueobjects.NodeID{idA, idB}, nil)
		assert.Error(t, err)
	})
}
