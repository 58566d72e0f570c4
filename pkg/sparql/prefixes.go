package sparql

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prefix binds a short name to a namespace IRI.
type Prefix struct {
	Name      string `json:"name" yaml:"name"`
	Namespace string `json:"namespace" yaml:"namespace"`
}

// PrefixTable is an ordered prefix -> namespace table. Iteration order is
// insertion order, which keeps rendered queries deterministic.
type PrefixTable struct {
	entries []Prefix
}

// NewPrefixTable creates a table from the given entries.
func NewPrefixTable(entries ...Prefix) *PrefixTable {
	t := &PrefixTable{}
	for _, e := range entries {
		t.Set(e.Name, e.Namespace)
	}
	return t
}

// Set adds a prefix, or rebinds an existing one in place.
func (t *PrefixTable) Set(name, namespace string) {
	for i := range t.entries {
		if t.entries[i].Name == name {
			t.entries[i].Namespace = namespace
			return
		}
	}
	t.entries = append(t.entries, Prefix{Name: name, Namespace: namespace})
}

// Entries returns a copy of the table in order.
func (t *PrefixTable) Entries() []Prefix {
	if t == nil {
		return nil
	}
	out := make([]Prefix, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of prefixes.
func (t *PrefixTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Namespace looks up a prefix.
func (t *PrefixTable) Namespace(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	for _, e := range t.entries {
		if e.Name == name {
			return e.Namespace, true
		}
	}
	return "", false
}

// Expand turns prefix:local into a full IRI.
func (t *PrefixTable) Expand(pname string) (string, bool) {
	name, local, ok := strings.Cut(pname, ":")
	if !ok {
		return "", false
	}
	ns, found := t.Namespace(name)
	if !found {
		return "", false
	}
	return ns + local, true
}

// Compact rewrites an IRI into prefix:local form using the longest matching
// namespace. IRIs outside every namespace are returned unchanged.
func (t *PrefixTable) Compact(iri string) string {
	best := -1
	for i, e := range t.Entries() {
		if e.Namespace == "" || !strings.HasPrefix(iri, e.Namespace) {
			continue
		}
		if best < 0 || len(e.Namespace) > len(t.entries[best].Namespace) {
			best = i
		}
	}
	if best < 0 {
		return iri
	}
	e := t.entries[best]
	return e.Name + ":" + strings.TrimPrefix(iri, e.Namespace)
}

// ResolveIRI returns the absolute IRI a term denotes, if it denotes one.
func (t *PrefixTable) ResolveIRI(term Term) (string, bool) {
	switch v := term.(type) {
	case IRI:
		return string(v), true
	case PName:
		return t.Expand(string(v))
	case rdfTypeKeyword:
		return RDFType, true
	default:
		return "", false
	}
}

// UnmarshalYAML reads a mapping of prefix: namespace, keeping document order.
func (t *PrefixTable) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("prefixes: expected a mapping, got %s", node.Tag)
	}
	table := &PrefixTable{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name, ns string
		if err := node.Content[i].Decode(&name); err != nil {
			return fmt.Errorf("prefixes: %w", err)
		}
		if err := node.Content[i+1].Decode(&ns); err != nil {
			return fmt.Errorf("prefixes: %s: %w", name, err)
		}
		table.Set(name, ns)
	}
	*t = *table
	return nil
}

// ParsePrefixList parses "name=namespace,name=namespace" as used in
// environment variables.
func ParsePrefixList(s string) (*PrefixTable, error) {
	table := &PrefixTable{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, ns, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(ns) == "" {
			return nil, fmt.Errorf("invalid prefix entry %q, want name=namespace", part)
		}
		table.Set(strings.TrimSpace(name), strings.TrimSpace(ns))
	}
	return table, nil
}
