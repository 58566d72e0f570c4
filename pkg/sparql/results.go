package sparql

import (
	"encoding/json"
	"io"

	apperrors "graphexplorer/pkg/errors"
)

// TermType is the "type" field of a bound RDF term.
type TermType string

const (
	TypeURI          TermType = "uri"
	TypeLiteral      TermType = "literal"
	TypeTypedLiteral TermType = "typed-literal"
	TypeBNode        TermType = "bnode"
)

// Value is an RDF term as it appears in a result binding.
type Value struct {
	Type     TermType `json:"type"`
	Value    string   `json:"value"`
	Lang     string   `json:"xml:lang,omitempty"`
	Datatype string   `json:"datatype,omitempty"`
}

// IsBlank reports whether the term is a blank node.
func (v Value) IsBlank() bool {
	return v.Type == TypeBNode
}

// URI, Literal and BlankNode build result terms.
func URI(v string) Value { return Value{Type: TypeURI, Value: v} }
func Literal(v string) Value { return Value{Type: TypeLiteral, Value: v} }
func BlankNode(id string) Value { return Value{Type: TypeBNode, Value: id} }

// Binding is one result row. Unbound variables are absent.
type Binding map[string]Value

// Get returns the term bound to a variable.
func (b Binding) Get(name string) (Value, bool) {
	v, ok := b[name]
	return v, ok
}

// Head lists the projected variables.
type Head struct {
	Vars []string `json:"vars"`
}

// ResultSet holds the rows.
type ResultSet struct {
	Bindings []Binding `json:"bindings"`
}

// Results is a decoded SPARQL 1.1 JSON result document.
type Results struct {
	Head    Head      `json:"head"`
	Results ResultSet `json:"results"`
}

// Rows returns the result rows in store order.
func (r *Results) Rows() []Binding {
	if r == nil {
		return nil
	}
	return r.Results.Bindings
}

// Decode reads a SPARQL JSON result document. Bodies that are not JSON, or
// that lack head or results, are protocol errors.
func Decode(r io.Reader) (*Results, error) {
	var doc struct {
		Head    *Head      `json:"head"`
		Results *ResultSet `json:"results"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, apperrors.NewProtocolError("response is not a SPARQL JSON document", err)
	}
	if doc.Head == nil {
		return nil, apperrors.NewProtocolError("response has no head", nil)
	}
	if doc.Results == nil {
		return nil, apperrors.NewProtocolError("response has no results", nil)
	}
	for i, row := range doc.Results.Bindings {
		for name, v := range row {
			if v.Type == "" {
				return nil, apperrors.NewProtocolError("binding without a term type", nil).
					WithDetails(map[string]interface{}{"row": i, "var": name})
			}
		}
	}
	return &Results{Head: *doc.Head, Results: *doc.Results}, nil
}
