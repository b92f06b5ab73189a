package core

import (
	"fmt"
	"time"
)

// ItemState represents the lifecycle state of a recorded item.
type ItemState string

const (
	// ItemDecided marks an item the user has committed to.
	ItemDecided ItemState = "decided"

	// ItemExploring marks an idea still under discussion.
	ItemExploring ItemState = "exploring"

	// ItemParked marks an item deferred for later.
	ItemParked ItemState = "parked"
)

// ValidItemState checks if a state string is a valid item state.
func ValidItemState(s ItemState) bool {
	switch s {
	case ItemDecided, ItemExploring, ItemParked:
		return true
	default:
		return false
	}
}

// ParseItemState converts a string to an ItemState with validation.
func ParseItemState(s string) (ItemState, error) {
	st := ItemState(s)
	if !ValidItemState(st) {
		return "", fmt.Errorf("invalid item state: %s", s)
	}
	return st, nil
}

// Citation records the provenance of an item: the user quote that produced
// it, when it was recorded, and the recording agent's confidence.
type Citation struct {
	UserQuote  string    `json:"user_quote"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
}

// Item is one entry in a project's append-only decision trail.
//
// Text, Citation and CreatedAt are immutable once the item exists. Only
// State and IsArchived may transition, and only through explicit later
// turns, never inside reconciliation. Corrections are new items layered on
// top of history, not edits.
type Item struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	State      ItemState `json:"state"`
	Citation   *Citation `json:"citation,omitempty"`
	IsArchived bool      `json:"is_archived"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProjectState is the full recorded state of one project. It is fetched
// fresh for every turn and never cached as mutable shared state.
type ProjectState struct {
	ID       string `json:"id"`
	Items    []Item `json:"items"`
	Revision int    `json:"revision"`
}

// ActiveItems returns the non-archived items, optionally filtered by state.
// An empty state matches all states.
func (p *ProjectState) ActiveItems(state ItemState) []Item {
	var out []Item
	for _, it := range p.Items {
		if it.IsArchived {
			continue
		}
		if state != "" && it.State != state {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Clone returns a deep copy of the project state. Reconciliation operates
// on a clone so the fetched state is never mutated in place.
func (p *ProjectState) Clone() *ProjectState {
	cp := &ProjectState{
		ID:       p.ID,
		Revision: p.Revision,
		Items:    make([]Item, len(p.Items)),
	}
	copy(cp.Items, p.Items)
	for i, it := range p.Items {
		if it.Citation != nil {
			c := *it.Citation
			cp.Items[i].Citation = &c
		}
	}
	return cp
}

// ReferenceSummary is a condensed view of reference material attached to a
// project, produced by an external collaborator.
type ReferenceSummary struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// DocumentSummary is a condensed view of a project document section.
type DocumentSummary struct {
	ID      string `json:"id"`
	Section string `json:"section"`
	Summary string `json:"summary"`
}
