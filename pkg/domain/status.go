package domain

import "time"

// ExecutionStatus is the lifecycle of a node's most recent generation request.
type ExecutionStatus string

const (
	StatusIdle    ExecutionStatus = "idle"
	StatusLoading ExecutionStatus = "loading"
	StatusSuccess ExecutionStatus = "success"
	StatusError   ExecutionStatus = "error"
)

// Source is a web reference returned by search-grounded text generation.
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// NodeStatus is the transient, per-node display state of the content adapter.
// It is never part of the graph or its history.
type NodeStatus struct {
	NodeID    string          `json:"node_id"`
	Status    ExecutionStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	Error     string          `json:"error,omitempty"`
	Sources   []Source        `json:"sources,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}
