// Package testutil holds fakes shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"graphexplorer/pkg/sparql"
)

type triple struct {
	s, p, o sparql.Value
}

type solution map[string]sparql.Value

// TripleStore is an in-memory stand-in for a SPARQL endpoint. It evaluates
// the query AST directly: basic graph patterns, nested OPTIONAL groups,
// equality FILTERs and DISTINCT. Rows come back in insertion order.
type TripleStore struct {
	mu      sync.Mutex
	triples []triple
	queries []*sparql.Query

	// FailWith, when set, is consulted before every query; a non-nil
	// return is handed back as the query's error.
	FailWith func(q *sparql.Query) error

	// Hook runs before evaluation with the caller's context, outside the
	// store lock. Tests use it to block or slow specific queries.
	Hook func(ctx context.Context, q *sparql.Query) error
}

// NewTripleStore creates an empty store.
func NewTripleStore() *TripleStore {
	return &TripleStore{}
}

// Add stores a triple.
func (s *TripleStore) Add(subject, predicate, object sparql.Value) *TripleStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triples = append(s.triples, triple{subject, predicate, object})
	return s
}

// AddURI stores a triple whose terms are all IRIs.
func (s *TripleStore) AddURI(subject, predicate, object string) *TripleStore {
	return s.Add(sparql.URI(subject), sparql.URI(predicate), sparql.URI(object))
}

// AddLiteral stores a triple with a literal object.
func (s *TripleStore) AddLiteral(subject, predicate, object string) *TripleStore {
	return s.Add(sparql.URI(subject), sparql.URI(predicate), sparql.Literal(object))
}

// Queries returns every query received so far.
func (s *TripleStore) Queries() []*sparql.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*sparql.Query(nil), s.queries...)
}

// Count returns how many queries with the given name were received.
func (s *TripleStore) Count(name string) int {
	n := 0
	for _, q := range s.Queries() {
		if q.Name == name {
			n++
		}
	}
	return n
}

// Select implements ports.SparqlClient.
func (s *TripleStore) Select(ctx context.Context, q *sparql.Query) (*sparql.Results, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("query abandoned: %w", err)
	}

	s.mu.Lock()
	s.queries = append(s.queries, q)
	fail := s.FailWith
	hook := s.Hook
	s.mu.Unlock()

	if fail != nil {
		if err := fail(q); err != nil {
			return nil, err
		}
	}
	if hook != nil {
		if err := hook(ctx, q); err != nil {
			return nil, err
		}
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	sols := s.evalGroup(q, q.Where, []solution{{}})
	s.mu.Unlock()

	return project(q, sols), nil
}

func (s *TripleStore) evalGroup(q *sparql.Query, g sparql.Group, input []solution) []solution {
	sols := input
	var filters []*sparql.Filter

	for _, e := range g.Elements {
		switch el := e.(type) {
		case sparql.Triple:
			sols = s.join(q, sols, el)
		case *sparql.Optional:
			var next []solution
			for _, sol := range sols {
				ext := s.evalGroup(q, el.Group, []solution{sol})
				if len(ext) == 0 {
					next = append(next, sol)
				} else {
					next = append(next, ext...)
				}
			}
			sols = next
		case *sparql.Filter:
			filters = append(filters, el)
		}
	}

	for _, f := range filters {
		kept := sols[:0:0]
		for _, sol := range sols {
			if passes(q, f, sol) {
				kept = append(kept, sol)
			}
		}
		sols = kept
	}
	return sols
}

func (s *TripleStore) join(q *sparql.Query, sols []solution, pattern sparql.Triple) []solution {
	var out []solution
	for _, sol := range sols {
		for _, t := range s.triples {
			next, ok := match(q, pattern.Subject, t.s, sol)
			if !ok {
				continue
			}
			next, ok = match(q, pattern.Predicate, t.p, next)
			if !ok {
				continue
			}
			next, ok = match(q, pattern.Object, t.o, next)
			if !ok {
				continue
			}
			out = append(out, next)
		}
	}
	return out
}

// match unifies a pattern term with a stored value, extending sol on a
// fresh variable. sol itself is never modified.
func match(q *sparql.Query, term sparql.Term, v sparql.Value, sol solution) (solution, bool) {
	if name, ok := term.(sparql.Var); ok {
		if bound, exists := sol[string(name)]; exists {
			return sol, bound == v
		}
		next := make(solution, len(sol)+1)
		for k, val := range sol {
			next[k] = val
		}
		next[string(name)] = v
		return next, true
	}
	return sol, denotes(q, term, v)
}

func denotes(q *sparql.Query, term sparql.Term, v sparql.Value) bool {
	iri, ok := q.Prefixes.ResolveIRI(term)
	return ok && v.Type == sparql.TypeURI && v.Value == iri
}

func passes(q *sparql.Query, f *sparql.Filter, sol solution) bool {
	v, bound := sol[string(f.Variable)]
	if !bound {
		return false
	}
	for _, c := range f.Candidates {
		hit := denotes(q, c, v)
		if f.Combinator == sparql.Or && hit {
			return true
		}
		if f.Combinator == sparql.And && !hit {
			return false
		}
	}
	return f.Combinator == sparql.And
}

func project(q *sparql.Query, sols []solution) *sparql.Results {
	res := &sparql.Results{Results: sparql.ResultSet{Bindings: []sparql.Binding{}}}
	for _, v := range q.Vars {
		res.Head.Vars = append(res.Head.Vars, string(v))
	}

	seen := map[string]bool{}
	for _, sol := range sols {
		row := sparql.Binding{}
		for _, v := range q.Vars {
			if val, ok := sol[string(v)]; ok {
				row[string(v)] = val
			}
		}
		if q.Distinct {
			key := rowKey(row)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		res.Results.Bindings = append(res.Results.Bindings, row)
	}
	return res
}

func rowKey(row sparql.Binding) string {
	parts := make([]string, 0, len(row))
	for k, v := range row {
		parts = append(parts, k+"="+string(v.Type)+":"+v.Value)
	}
	sort.Strings(parts)
	return strings.Join(parts, "\x00")
}
