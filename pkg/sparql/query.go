// Package sparql builds SELECT queries as a small AST and decodes SPARQL 1.1
// JSON results. Queries are only turned into text by Render, so string
// concatenation never leaks into the callers.
package sparql

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "graphexplorer/pkg/errors"
)

// RDFType is the IRI abbreviated by the `a` keyword.
const RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

var (
	varNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	pnamePattern   = regexp.MustCompile(`^[A-Za-z][\w.-]*:[^\s<>"{}|^` + "`" + `\\]*$|^:[^\s<>"{}|^` + "`" + `\\]*$`)
	iriForbidden   = " <>\"{}|^`\\\t\n\r"
)

// Term is anything that can sit in a triple pattern position.
type Term interface {
	String() string
	validate() error
}

// IRI is an absolute IRI, rendered as <iri>.
type IRI string

func (i IRI) String() string { return "<" + string(i) + ">" }

func (i IRI) validate() error {
	if i == "" {
		return apperrors.NewQueryError("empty IRI")
	}
	if strings.ContainsAny(string(i), iriForbidden) {
		return apperrors.NewQueryError(fmt.Sprintf("IRI %q contains characters not allowed in a query", string(i)))
	}
	return nil
}

// PName is a prefixed name such as skos:broader, rendered verbatim.
type PName string

func (p PName) String() string { return string(p) }

func (p PName) validate() error {
	if !pnamePattern.MatchString(string(p)) {
		return apperrors.NewQueryError(fmt.Sprintf("invalid prefixed name %q", string(p)))
	}
	return nil
}

// Var is a query variable, rendered as ?name.
type Var string

func (v Var) String() string { return "?" + string(v) }

func (v Var) validate() error {
	if !varNamePattern.MatchString(string(v)) {
		return apperrors.NewQueryError(fmt.Sprintf("invalid variable name %q", string(v)))
	}
	return nil
}

type rdfTypeKeyword struct{}

func (rdfTypeKeyword) String() string  { return "a" }
func (rdfTypeKeyword) validate() error { return nil }

// A is the rdf:type keyword.
var A Term = rdfTypeKeyword{}

// ParseTerm maps a configured token onto a term: `a`, `?var`, `<iri>`,
// a bare absolute IRI, or a prefixed name.
func ParseTerm(token string) Term {
	token = strings.TrimSpace(token)
	switch {
	case token == "a":
		return A
	case strings.HasPrefix(token, "?"):
		return Var(token[1:])
	case strings.HasPrefix(token, "<") && strings.HasSuffix(token, ">"):
		return IRI(token[1 : len(token)-1])
	case strings.Contains(token, "://"):
		return IRI(token)
	default:
		return PName(token)
	}
}

// SafeVar derives a variable name from an arbitrary token by replacing
// every character outside [A-Za-z0-9_] with an underscore.
func SafeVar(token string) Var {
	var b strings.Builder
	for _, r := range token {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return Var("v")
	}
	return Var(b.String())
}

// Element is a member of a group graph pattern.
type Element interface {
	render(b *strings.Builder, depth int)
	validate() error
}

// Triple is a single triple pattern.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// T is shorthand for building a triple pattern.
func T(s, p, o Term) Triple {
	return Triple{Subject: s, Predicate: p, Object: o}
}

func (t Triple) render(b *strings.Builder, depth int) {
	indent(b, depth)
	fmt.Fprintf(b, "%s %s %s .\n", t.Subject, t.Predicate, t.Object)
}

func (t Triple) validate() error {
	for _, term := range []Term{t.Subject, t.Predicate, t.Object} {
		if term == nil {
			return apperrors.NewQueryError("triple pattern has an empty position")
		}
		if err := term.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Group is a brace-delimited group graph pattern.
type Group struct {
	Elements []Element
}

// Add appends elements, silently skipping absent filters.
func (g *Group) Add(elems ...Element) {
	for _, e := range elems {
		if f, ok := e.(*Filter); ok && f == nil {
			continue
		}
		if e == nil {
			continue
		}
		g.Elements = append(g.Elements, e)
	}
}

func (g Group) render(b *strings.Builder, depth int) {
	b.WriteString("{\n")
	for _, e := range g.Elements {
		e.render(b, depth+1)
	}
	indent(b, depth)
	b.WriteString("}")
}

func (g Group) validate() error {
	if len(g.Elements) == 0 {
		return apperrors.NewQueryError("empty group graph pattern")
	}
	for _, e := range g.Elements {
		if err := e.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Optional is an OPTIONAL { ... } block.
type Optional struct {
	Group
}

// Opt builds an OPTIONAL block from its members.
func Opt(elems ...Element) *Optional {
	o := &Optional{}
	o.Add(elems...)
	return o
}

func (o *Optional) render(b *strings.Builder, depth int) {
	indent(b, depth)
	b.WriteString("OPTIONAL ")
	o.Group.render(b, depth)
	b.WriteString("\n")
}

// Combinator joins filter comparisons.
type Combinator string

const (
	Or  Combinator = "||"
	And Combinator = "&&"
)

// Filter constrains one variable to a list of candidate terms.
type Filter struct {
	Variable   Var
	Candidates []Term
	Combinator Combinator
}

// BuildFilter returns FILTER (?v = c1 || ?v = c2 ...). It returns nil when
// there are no candidates, so the filter is left out of the query entirely.
func BuildFilter(v Var, candidates []Term, c Combinator) *Filter {
	if len(candidates) == 0 {
		return nil
	}
	if c == "" {
		c = Or
	}
	return &Filter{Variable: v, Candidates: append([]Term(nil), candidates...), Combinator: c}
}

// Expression renders the boolean expression inside FILTER ( ... ).
func (f *Filter) Expression() string {
	parts := make([]string, len(f.Candidates))
	for i, c := range f.Candidates {
		parts[i] = fmt.Sprintf("%s = %s", f.Variable, c)
	}
	return strings.Join(parts, " "+string(f.Combinator)+" ")
}

func (f *Filter) render(b *strings.Builder, depth int) {
	indent(b, depth)
	fmt.Fprintf(b, "FILTER (%s)\n", f.Expression())
}

func (f *Filter) validate() error {
	if len(f.Candidates) == 0 {
		return apperrors.NewQueryError("filter has no candidate values")
	}
	if f.Combinator != Or && f.Combinator != And {
		return apperrors.NewQueryError(fmt.Sprintf("unknown filter combinator %q", f.Combinator))
	}
	if err := f.Variable.validate(); err != nil {
		return err
	}
	for _, c := range f.Candidates {
		if c == nil {
			return apperrors.NewQueryError("nil filter candidate")
		}
		if err := c.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Query is a SELECT query. Name is not rendered; it labels the query in
// logs and metrics.
type Query struct {
	Name     string
	Prefixes *PrefixTable
	Distinct bool
	Vars     []Var
	Where    Group
}

// Select starts a query projecting the given variables.
func Select(vars ...Var) *Query {
	return &Query{Vars: vars}
}

// Named sets the query's name.
func (q *Query) Named(name string) *Query {
	q.Name = name
	return q
}

// WithPrefixes attaches the prefix table rendered ahead of the query.
func (q *Query) WithPrefixes(p *PrefixTable) *Query {
	q.Prefixes = p
	return q
}

// WithDistinct marks the projection DISTINCT.
func (q *Query) WithDistinct() *Query {
	q.Distinct = true
	return q
}

// Match appends elements to the WHERE clause.
func (q *Query) Match(elems ...Element) *Query {
	q.Where.Add(elems...)
	return q
}

// Validate checks the query is structurally well formed.
func (q *Query) Validate() error {
	if len(q.Vars) == 0 {
		return apperrors.NewQueryError("query projects no variables")
	}
	for _, v := range q.Vars {
		if err := v.validate(); err != nil {
			return err
		}
	}
	return q.Where.validate()
}

// Render produces the query text. All PREFIX lines precede the query body
// in prefix table order.
func (q *Query) Render() (string, error) {
	if err := q.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, p := range q.Prefixes.Entries() {
		fmt.Fprintf(&b, "PREFIX %s: <%s>\n", p.Name, p.Namespace)
	}

	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	for _, v := range q.Vars {
		b.WriteString(v.String())
		b.WriteString(" ")
	}
	b.WriteString("WHERE ")
	q.Where.render(&b, 0)
	return b.String(), nil
}

// String renders the query for logging; malformed queries render as their error.
func (q *Query) String() string {
	s, err := q.Render()
	if err != nil {
		return err.Error()
	}
	return s
}

func indent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
}
