package domain

import "time"

// Checkpoint is the persisted form of a canvas: the current graph and pan.
// Undo history is deliberately absent; a restored canvas starts with a single step.
type Checkpoint struct {
	SessionID   string       `json:"session_id" yaml:"session_id"`
	Nodes       []Node       `json:"nodes" yaml:"nodes"`
	Connections []Connection `json:"connections" yaml:"connections"`
	Pan         Point        `json:"pan" yaml:"pan"`
	SavedAt     time.Time    `json:"saved_at" yaml:"saved_at"`
	// Sealed holds the encrypted checkpoint when an encrypting store wraps the backend.
	// Nodes and Connections are empty in that case.
	Sealed string `json:"sealed,omitempty" yaml:"sealed,omitempty"`
}
