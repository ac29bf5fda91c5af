package model

import "strconv"

// Identity is the (tab, graph) pair used for debouncing, cancellation, and
// filter-job supersession throughout the orchestrator.
type Identity struct {
	TabID   string
	GraphID string
}

// String renders a stable key suitable for map lookups and log fields.
func (id Identity) String() string {
	return id.TabID + "/" + id.GraphID
}

// NewIdentity builds an Identity, accepting integer graph indices as a
// convenience for callers addressing graphs positionally within a tab.
func NewIdentity(tabID string, graphIndex int) Identity {
	return Identity{TabID: tabID, GraphID: strconv.Itoa(graphIndex)}
}
