package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"graphexplorer/application/ports"
	"graphexplorer/domain/core/entities"
	"graphexplorer/domain/core/valueobjects"
	"graphexplorer/pkg/sparql"
)

// ResolverConfig lists the predicates consulted while resolving a node.
type ResolverConfig struct {
	Prefixes              *sparql.PrefixTable
	LabelPredicates       []string
	DescriptionPredicates []string
	MetadataPredicates    []string
	BlankNodeDepth        int
}

type metaField struct {
	key       string
	predicate sparql.Term
	variable  sparql.Var
}

// MetadataResolver turns SPARQL results into node records. It never treats
// missing data as an error: a node with no label is labeled by its IRI,
// and absent descriptions, classes and metadata stay empty.
type MetadataResolver struct {
	client       ports.SparqlClient
	prefixes     *sparql.PrefixTable
	labels       []sparql.Term
	descriptions []sparql.Term
	meta         []metaField
	depth        int
	logger       *zap.Logger
}

// NewMetadataResolver creates a resolver.
func NewMetadataResolver(client ports.SparqlClient, cfg ResolverConfig, logger *zap.Logger) *MetadataResolver {
	depth := cfg.BlankNodeDepth
	if depth < 1 {
		depth = 1
	}
	return &MetadataResolver{
		client:       client,
		prefixes:     cfg.Prefixes,
		labels:       parseTerms(cfg.LabelPredicates),
		descriptions: parseTerms(cfg.DescriptionPredicates),
		meta:         metaFields(cfg.MetadataPredicates),
		depth:        depth,
		logger:       logger,
	}
}

func parseTerms(tokens []string) []sparql.Term {
	terms := make([]sparql.Term, 0, len(tokens))
	for _, t := range tokens {
		terms = append(terms, sparql.ParseTerm(t))
	}
	return terms
}

// metaFields assigns each predicate a distinct variable derived from its
// token, suffixing a counter when two tokens sanitize to the same name.
func metaFields(tokens []string) []metaField {
	fields := make([]metaField, 0, len(tokens))
	used := map[sparql.Var]bool{}
	for _, token := range tokens {
		v := sparql.SafeVar(token)
		for i := 2; used[v]; i++ {
			v = sparql.Var(fmt.Sprintf("%s_%d", sparql.SafeVar(token), i))
		}
		used[v] = true
		fields = append(fields, metaField{key: token, predicate: sparql.ParseTerm(token), variable: v})
	}
	return fields
}

// ResolveNode builds the complete record for one node.
func (r *MetadataResolver) ResolveNode(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error) {
	node := entities.NewNode(id)

	label, err := r.ResolveLabel(ctx, id)
	if err != nil {
		return nil, err
	}
	if label != nil && *label != "" {
		node.Label = *label
	}

	if node.Description, err = r.ResolveDescription(ctx, id); err != nil {
		return nil, err
	}
	if node.Classes, err = r.ResolveClasses(ctx, id); err != nil {
		return nil, err
	}
	if node.Meta, err = r.ResolveMetadata(ctx, id); err != nil {
		return nil, err
	}
	return node, nil
}

// ResolveLabel returns the label bound by the last matching row, or nil.
// Every row overwrites the running value, bound or not.
func (r *MetadataResolver) ResolveLabel(ctx context.Context, id valueobjects.NodeID) (*string, error) {
	return r.resolveLabelIRI(ctx, id.String())
}

func (r *MetadataResolver) resolveLabelIRI(ctx context.Context, iri string) (*string, error) {
	if len(r.labels) == 0 {
		return nil, nil
	}

	res, err := r.client.Select(ctx, sparql.AnnotationQuery(r.prefixes, sparql.IRI(iri), sparql.VarLabel, r.labels))
	if err != nil {
		return nil, fmt.Errorf("resolve label of %s: %w", iri, err)
	}

	var label *string
	for _, row := range res.Rows() {
		label = nil
		if v, ok := row.Get(string(sparql.VarLabel)); ok {
			value := v.Value
			label = &value
		}
	}
	return label, nil
}

// ResolveDescription returns the description bound by the last row that
// binds one. Rows without a value leave the running value alone.
func (r *MetadataResolver) ResolveDescription(ctx context.Context, id valueobjects.NodeID) (*string, error) {
	if len(r.descriptions) == 0 {
		return nil, nil
	}

	res, err := r.client.Select(ctx, sparql.AnnotationQuery(r.prefixes, sparql.IRI(id.String()), sparql.VarDesc, r.descriptions))
	if err != nil {
		return nil, fmt.Errorf("resolve description of %s: %w", id, err)
	}

	var desc *string
	for _, row := range res.Rows() {
		if v, ok := row.Get(string(sparql.VarDesc)); ok {
			value := v.Value
			desc = &value
		}
	}
	return desc, nil
}

// ResolveClasses returns every bound rdf:type value in result order.
// Duplicates are kept.
func (r *MetadataResolver) ResolveClasses(ctx context.Context, id valueobjects.NodeID) ([]string, error) {
	res, err := r.client.Select(ctx, sparql.ClassQuery(r.prefixes, sparql.IRI(id.String())))
	if err != nil {
		return nil, fmt.Errorf("resolve classes of %s: %w", id, err)
	}

	classes := []string{}
	for _, row := range res.Rows() {
		if v, ok := row.Get(string(sparql.VarClass)); ok {
			classes = append(classes, v.Value)
		}
	}
	return classes, nil
}

// ResolveEdgeLabel labels an edge by the label of its predicate, falling
// back to the predicate token as configured.
func (r *MetadataResolver) ResolveEdgeLabel(ctx context.Context, predicate string) (string, error) {
	iri, ok := r.prefixes.ResolveIRI(sparql.ParseTerm(predicate))
	if !ok {
		return predicate, nil
	}
	label, err := r.resolveLabelIRI(ctx, iri)
	if err != nil {
		return "", err
	}
	if label == nil || *label == "" {
		return predicate, nil
	}
	return *label, nil
}

// ResolveMetadata fetches every metadata predicate in one query. Every
// configured predicate gets an entry, empty when nothing is bound. Plain
// values are collected without duplicates; blank nodes never enter the
// value list, a predicate that yields them is expanded once and the result
// nested under blank_nodes.
func (r *MetadataResolver) ResolveMetadata(ctx context.Context, id valueobjects.NodeID) (map[string]entities.MetaValue, error) {
	meta := map[string]entities.MetaValue{}
	if len(r.meta) == 0 {
		return meta, nil
	}

	vars := make([]sparql.Var, len(r.meta))
	preds := make([]sparql.Term, len(r.meta))
	for i, f := range r.meta {
		vars[i] = f.variable
		preds[i] = f.predicate
	}

	res, err := r.client.Select(ctx, sparql.MetadataQuery(r.prefixes, sparql.IRI(id.String()), vars, preds))
	if err != nil {
		return nil, fmt.Errorf("resolve metadata of %s: %w", id, err)
	}

	for _, f := range r.meta {
		meta[f.key] = entities.MetaValue{Values: []string{}}
	}

	needsExpansion := map[string]bool{}
	for _, row := range res.Rows() {
		for _, f := range r.meta {
			v, ok := row.Get(string(f.variable))
			if !ok {
				continue
			}
			if v.IsBlank() {
				needsExpansion[f.key] = true
				continue
			}
			mv := meta[f.key]
			mv.AddValue(v.Value)
			meta[f.key] = mv
		}
	}

	for _, f := range r.meta {
		if !needsExpansion[f.key] {
			continue
		}
		bnodes, err := r.ExpandBlankNode(ctx, id, f.predicate, r.depth)
		if err != nil {
			return nil, err
		}
		mv := meta[f.key]
		mv.BlankNodes = bnodes
		meta[f.key] = mv
	}
	return meta, nil
}

// ExpandBlankNode reads the properties of every blank node reachable from
// id through predicate, descending up to maxDepth levels. All levels come
// from a single query, so blank node ids are consistent across levels.
func (r *MetadataResolver) ExpandBlankNode(ctx context.Context, id valueobjects.NodeID, predicate sparql.Term, maxDepth int) (map[string]*entities.BlankNode, error) {
	if maxDepth < 1 {
		maxDepth = 1
	}

	res, err := r.client.Select(ctx, sparql.BlankNodeQuery(r.prefixes, sparql.IRI(id.String()), predicate, maxDepth))
	if err != nil {
		return nil, fmt.Errorf("expand blank nodes of %s: %w", id, err)
	}

	out := map[string]*entities.BlankNode{}
	for _, row := range res.Rows() {
		b, ok := row.Get(string(sparql.VarBNode))
		if !ok {
			continue
		}
		current, exists := out[b.Value]
		if !exists {
			current = entities.NewBlankNode(b.Value)
			out[b.Value] = current
		}

		for level := 0; level < maxDepth && current != nil; level++ {
			pv, nv := sparql.BlankNodeLevelVars(level)
			p, okP := row.Get(string(pv))
			v, okV := row.Get(string(nv))
			if !okP || !okV {
				break
			}
			current.Properties[p.Value] = v.Value
			if !v.IsBlank() {
				break
			}
			if level+1 < maxDepth {
				current = current.Child(v.Value)
			}
		}
	}

	if len(out) > 0 {
		r.logger.Debug("Expanded blank nodes",
			zap.String("node_id", id.String()),
			zap.String("predicate", predicate.String()),
			zap.Strings("blank_nodes", sortedKeys(out)),
		)
	}
	return out, nil
}

// DiscoverPredicates lists every predicate in the store, compacted through
// the prefix table where possible.
func (r *MetadataResolver) DiscoverPredicates(ctx context.Context) ([]string, error) {
	res, err := r.client.Select(ctx, sparql.PredicateDiscoveryQuery(r.prefixes))
	if err != nil {
		return nil, fmt.Errorf("discover predicates: %w", err)
	}

	predicates := []string{}
	seen := map[string]bool{}
	for _, row := range res.Rows() {
		v, ok := row.Get(string(sparql.VarPredicate))
		if !ok {
			continue
		}
		p := r.prefixes.Compact(v.Value)
		if !seen[p] {
			seen[p] = true
			predicates = append(predicates, p)
		}
	}
	return predicates, nil
}

func sortedKeys(m map[string]*entities.BlankNode) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
