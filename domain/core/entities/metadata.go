package entities

// MetaValue holds what one metadata predicate yielded for a node: the
// distinct plain values in first-seen order, and any blank nodes expanded
// into their own property maps.
type MetaValue struct {
	Values     []string              `json:"values"`
	BlankNodes map[string]*BlankNode `json:"blank_nodes,omitempty"`
}

// AddValue appends v unless it is already present.
func (m *MetaValue) AddValue(v string) {
	for _, existing := range m.Values {
		if existing == v {
			return
		}
	}
	m.Values = append(m.Values, v)
}

// Clone returns a deep copy.
func (m MetaValue) Clone() MetaValue {
	out := MetaValue{Values: append([]string{}, m.Values...)}
	if m.BlankNodes != nil {
		out.BlankNodes = make(map[string]*BlankNode, len(m.BlankNodes))
		for id, b := range m.BlankNodes {
			out.BlankNodes[id] = b.Clone()
		}
	}
	return out
}

// BlankNode is an anonymous resource flattened into predicate -> value.
// Its ID is only meaningful within the response it was read from.
// Children holds nested blank nodes when expansion ran deeper than one level.
type BlankNode struct {
	ID         string                `json:"id"`
	Properties map[string]string     `json:"properties"`
	Children   map[string]*BlankNode `json:"children,omitempty"`
}

// NewBlankNode creates an empty blank node record.
func NewBlankNode(id string) *BlankNode {
	return &BlankNode{ID: id, Properties: map[string]string{}}
}

// Child returns the nested blank node with the given id, creating it.
func (b *BlankNode) Child(id string) *BlankNode {
	if b.Children == nil {
		b.Children = map[string]*BlankNode{}
	}
	c, ok := b.Children[id]
	if !ok {
		c = NewBlankNode(id)
		b.Children[id] = c
	}
	return c
}

// Clone returns a deep copy.
func (b *BlankNode) Clone() *BlankNode {
	if b == nil {
		return nil
	}
	out := NewBlankNode(b.ID)
	for k, v := range b.Properties {
		out.Properties[k] = v
	}
	for id, c := range b.Children {
		if out.Children == nil {
			out.Children = map[string]*BlankNode{}
		}
		out.Children[id] = c.Clone()
	}
	return out
}
