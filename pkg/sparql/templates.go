package sparql

import "fmt"

// Variable names shared between the query templates and their readers.
const (
	VarPredicate = Var("predicate")
	VarLabel     = Var("label")
	VarDesc      = Var("description")
	VarClass     = Var("class")
	VarNewNode   = Var("newNode")
	VarBNode     = Var("bnode")
	VarNode      = Var("node")
)

// PredicateDiscoveryQuery lists every predicate used in the store.
func PredicateDiscoveryQuery(p *PrefixTable) *Query {
	return Select(VarPredicate).
		Named("predicates").
		WithPrefixes(p).
		WithDistinct().
		Match(T(Var("a"), VarPredicate, Var("b")))
}

// AnnotationQuery selects the objects of node under any of predicates into
// the variable out. With no predicates the filter is absent and every
// predicate matches, so callers are expected to skip the query instead.
func AnnotationQuery(p *PrefixTable, node IRI, out Var, predicates []Term) *Query {
	return Select(out).
		Named(string(out)).
		WithPrefixes(p).
		Match(
			Opt(T(node, VarPredicate, out)),
			BuildFilter(VarPredicate, predicates, Or),
		)
}

// ClassQuery selects the rdf:type values of node.
func ClassQuery(p *PrefixTable, node IRI) *Query {
	return Select(VarClass).
		Named("classes").
		WithPrefixes(p).
		Match(Opt(T(node, A, VarClass)))
}

// ParentsQuery selects ?newNode where ?newNode predicate node.
func ParentsQuery(p *PrefixTable, node IRI, predicate Term) *Query {
	return Select(VarNewNode).
		Named("parents").
		WithPrefixes(p).
		Match(T(VarNewNode, predicate, node))
}

// ChildrenQuery selects ?newNode where node predicate ?newNode.
func ChildrenQuery(p *PrefixTable, node IRI, predicate Term) *Query {
	return Select(VarNewNode).
		Named("children").
		WithPrefixes(p).
		Match(T(node, predicate, VarNewNode))
}

// MetadataQuery batches every metadata predicate into one query, one
// OPTIONAL and one variable per predicate.
func MetadataQuery(p *PrefixTable, node IRI, vars []Var, predicates []Term) *Query {
	q := Select(vars...).Named("metadata").WithPrefixes(p)
	for i, pred := range predicates {
		q.Match(Opt(T(node, pred, vars[i])))
	}
	return q
}

// BlankNodeLevelVars returns the predicate and value variables used at a
// given level of a blank node expansion. Level 0 uses ?predicate and ?node.
func BlankNodeLevelVars(level int) (Var, Var) {
	if level == 0 {
		return VarPredicate, VarNode
	}
	return Var(fmt.Sprintf("predicate_%d", level)), Var(fmt.Sprintf("node_%d", level))
}

// BlankNodeQuery selects the properties of the blank nodes reached from node
// through predicate. Each level past the first is a nested OPTIONAL so that
// every level comes back in the same response and blank node ids agree.
func BlankNodeQuery(p *PrefixTable, node IRI, predicate Term, depth int) *Query {
	if depth < 1 {
		depth = 1
	}

	vars := []Var{VarBNode}
	for level := 0; level < depth; level++ {
		pv, nv := BlankNodeLevelVars(level)
		vars = append(vars, pv, nv)
	}

	q := Select(vars...).Named("blank_nodes").WithPrefixes(p).Match(
		T(node, predicate, VarBNode),
		T(VarBNode, VarPredicate, VarNode),
	)

	var innermost *Optional
	for level := depth - 1; level >= 1; level-- {
		_, parent := BlankNodeLevelVars(level - 1)
		pv, nv := BlankNodeLevelVars(level)
		opt := Opt(T(parent, pv, nv))
		if innermost != nil {
			opt.Add(innermost)
		}
		innermost = opt
	}
	if innermost != nil {
		q.Match(innermost)
	}
	return q
}
