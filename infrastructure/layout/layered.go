// Package layout provides a layered, top-to-bottom graph layout in the
// Sugiyama style: cycle removal, longest-path ranking, dummy nodes for long
// edges, barycentric crossing reduction and centred coordinate assignment.
package layout

import (
	"fmt"
	"sort"

	"graphexplorer/domain/core/entities"
	"graphexplorer/domain/core/valueobjects"
	"graphexplorer/domain/services"
)

// Config tunes the spacing of the layout.
type Config struct {
	NodeSep float64 // horizontal distance between neighbors in a layer
	RankSep float64 // vertical distance between layers
	Sweeps  int     // crossing reduction passes
}

// DefaultConfig matches the spacing most layered renderers use.
func DefaultConfig() Config {
	return Config{NodeSep: 50, RankSep: 50, Sweeps: 8}
}

// LayeredSolver implements services.LayoutSolver.
type LayeredSolver struct {
	cfg Config
}

var _ services.LayoutSolver = (*LayeredSolver)(nil)

// NewLayeredSolver creates a solver, filling zero config fields with defaults.
func NewLayeredSolver(cfg Config) *LayeredSolver {
	def := DefaultConfig()
	if cfg.NodeSep <= 0 {
		cfg.NodeSep = def.NodeSep
	}
	if cfg.RankSep <= 0 {
		cfg.RankSep = def.RankSep
	}
	if cfg.Sweeps <= 0 {
		cfg.Sweeps = def.Sweeps
	}
	return &LayeredSolver{cfg: cfg}
}

type arc struct{ from, to int }

// layered is the working graph. Vertices [0, real) are the caller's nodes,
// the rest are dummies splitting long edges.
type layered struct {
	real   int
	rank   []int
	up     [][]int
	down   [][]int
	layers [][]int
}

// Solve lays out nodes and returns unnormalized, non-negative coordinates.
func (s *LayeredSolver) Solve(nodes []valueobjects.NodeID, edges []entities.Edge) (map[valueobjects.NodeID]services.Point, error) {
	index := make(map[valueobjects.NodeID]int, len(nodes))
	for i, id := range nodes {
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("duplicate node %s", id)
		}
		index[id] = i
	}

	arcs := make([]arc, 0, len(edges))
	for _, e := range edges {
		from, okFrom := index[e.From]
		to, okTo := index[e.To]
		if !okFrom || !okTo {
			return nil, fmt.Errorf("edge %s -> %s references an unknown node", e.From, e.To)
		}
		if from != to {
			arcs = append(arcs, arc{from, to})
		}
	}

	n := len(nodes)
	arcs = dedupe(makeAcyclic(n, arcs))
	rank := longestPathRanks(n, arcs)
	g := split(n, rank, arcs)
	s.reduceCrossings(g)

	out := make(map[valueobjects.NodeID]services.Point, n)
	for id, p := range s.coordinates(g) {
		out[nodes[id]] = p
	}
	return out, nil
}

// makeAcyclic reverses every DFS back edge.
func makeAcyclic(n int, arcs []arc) []arc {
	out := make([][]int, n)
	for i, a := range arcs {
		out[a.from] = append(out[a.from], i)
	}

	const (
		white = iota
		grey
		black
	)
	state := make([]int, n)
	reversed := make([]bool, len(arcs))

	var visit func(v int)
	visit = func(v int) {
		state[v] = grey
		for _, i := range out[v] {
			w := arcs[i].to
			switch state[w] {
			case white:
				visit(w)
			case grey:
				reversed[i] = true
			}
		}
		state[v] = black
	}
	for v := 0; v < n; v++ {
		if state[v] == white {
			visit(v)
		}
	}

	result := make([]arc, len(arcs))
	for i, a := range arcs {
		if reversed[i] {
			a = arc{a.to, a.from}
		}
		result[i] = a
	}
	return result
}

func dedupe(arcs []arc) []arc {
	seen := make(map[arc]bool, len(arcs))
	out := arcs[:0]
	for _, a := range arcs {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

// longestPathRanks gives sources rank 0 and every other vertex one more
// than its deepest predecessor. arcs must be acyclic.
func longestPathRanks(n int, arcs []arc) []int {
	indegree := make([]int, n)
	succ := make([][]int, n)
	for _, a := range arcs {
		succ[a.from] = append(succ[a.from], a.to)
		indegree[a.to]++
	}

	rank := make([]int, n)
	queue := make([]int, 0, n)
	for v := 0; v < n; v++ {
		if indegree[v] == 0 {
			queue = append(queue, v)
		}
	}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range succ[v] {
			if rank[v]+1 > rank[w] {
				rank[w] = rank[v] + 1
			}
			indegree[w]--
			if indegree[w] == 0 {
				queue = append(queue, w)
			}
		}
	}
	return rank
}

// split inserts dummy vertices so every arc joins adjacent ranks, then
// buckets vertices into layers in order of first appearance.
func split(n int, rank []int, arcs []arc) *layered {
	g := &layered{
		real: n,
		rank: append([]int(nil), rank...),
		up:   make([][]int, n),
		down: make([][]int, n),
	}
	link := func(u, v int) {
		g.down[u] = append(g.down[u], v)
		g.up[v] = append(g.up[v], u)
	}

	for _, a := range arcs {
		prev := a.from
		for r := g.rank[a.from] + 1; r < g.rank[a.to]; r++ {
			dummy := len(g.rank)
			g.rank = append(g.rank, r)
			g.up = append(g.up, nil)
			g.down = append(g.down, nil)
			link(prev, dummy)
			prev = dummy
		}
		link(prev, a.to)
	}

	maxRank := 0
	for _, r := range g.rank {
		if r > maxRank {
			maxRank = r
		}
	}
	g.layers = make([][]int, maxRank+1)
	for v, r := range g.rank {
		g.layers[r] = append(g.layers[r], v)
	}
	return g
}

// reduceCrossings alternates downward and upward barycenter sweeps and
// keeps the ordering with the fewest crossings seen.
func (s *LayeredSolver) reduceCrossings(g *layered) {
	best := cloneLayers(g.layers)
	bestCrossings := countCrossings(g)

	for sweep := 0; sweep < s.cfg.Sweeps && bestCrossings > 0; sweep++ {
		if sweep%2 == 0 {
			for r := 1; r < len(g.layers); r++ {
				orderByBarycenter(g.layers[r], g.up, positions(g.layers[r-1]))
			}
		} else {
			for r := len(g.layers) - 2; r >= 0; r-- {
				orderByBarycenter(g.layers[r], g.down, positions(g.layers[r+1]))
			}
		}
		if c := countCrossings(g); c < bestCrossings {
			bestCrossings = c
			best = cloneLayers(g.layers)
		}
	}
	g.layers = best
}

func orderByBarycenter(layer []int, neighbors [][]int, fixed map[int]int) {
	current := positions(layer)
	weight := make(map[int]float64, len(layer))
	for _, v := range layer {
		sum, count := 0.0, 0
		for _, w := range neighbors[v] {
			if p, ok := fixed[w]; ok {
				sum += float64(p)
				count++
			}
		}
		if count == 0 {
			weight[v] = float64(current[v])
		} else {
			weight[v] = sum / float64(count)
		}
	}
	sort.SliceStable(layer, func(i, j int) bool {
		return weight[layer[i]] < weight[layer[j]]
	})
}

func countCrossings(g *layered) int {
	total := 0
	for r := 0; r+1 < len(g.layers); r++ {
		upper := positions(g.layers[r])
		lower := positions(g.layers[r+1])
		var segs [][2]int
		for _, u := range g.layers[r] {
			for _, v := range g.down[u] {
				segs = append(segs, [2]int{upper[u], lower[v]})
			}
		}
		for i := 0; i < len(segs); i++ {
			for j := i + 1; j < len(segs); j++ {
				a, b := segs[i], segs[j]
				if (a[0] < b[0] && a[1] > b[1]) || (a[0] > b[0] && a[1] < b[1]) {
					total++
				}
			}
		}
	}
	return total
}

// coordinates centres every layer on the widest one.
func (s *LayeredSolver) coordinates(g *layered) map[int]services.Point {
	widest := 0
	for _, layer := range g.layers {
		if len(layer) > widest {
			widest = len(layer)
		}
	}

	out := make(map[int]services.Point, g.real)
	for r, layer := range g.layers {
		offset := float64(widest-len(layer)) / 2
		for i, v := range layer {
			if v >= g.real {
				continue
			}
			out[v] = services.Point{
				X: (offset + float64(i)) * s.cfg.NodeSep,
				Y: float64(r) * s.cfg.RankSep,
			}
		}
	}
	return out
}

func positions(layer []int) map[int]int {
	pos := make(map[int]int, len(layer))
	for i, v := range layer {
		pos[v] = i
	}
	return pos
}

func cloneLayers(layers [][]int) [][]int {
	out := make([][]int, len(layers))
	for i, l := range layers {
		out[i] = append([]int(nil), l...)
	}
	return out
}
