package queries

import (
	"graphexplorer/pkg/utils"
)

// GraphView selects which part of a session graph to return
type GraphView string

const (
	ViewAll    GraphView = ""
	ViewNodes  GraphView = "nodes"
	ViewEdges  GraphView = "edges"
	ViewLayout GraphView = "layout"
)

// GetSessionGraphQuery reads a session's graph
type GetSessionGraphQuery struct {
	SessionID string    `json:"session_id" validate:"required,uuid"`
	View      GraphView `json:"view" validate:"omitempty,oneof=nodes edges layout"`
}

// Validate validates the query
func (q GetSessionGraphQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListPredicatesQuery lists every predicate known to the triple store
type ListPredicatesQuery struct{}

// Validate validates the query
func (q ListPredicatesQuery) Validate() error {
	return nil
}

// PredicateList is the result of ListPredicatesQuery
type PredicateList struct {
	Predicates []string `json:"predicates"`
	Count      int      `json:"count"`
}
