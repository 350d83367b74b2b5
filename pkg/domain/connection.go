package domain

// Connection is a directed edge from one node's output to another node's input.
type Connection struct {
	ID       string `json:"id" yaml:"id"`
	SourceID string `json:"source_id" yaml:"source"`
	TargetID string `json:"target_id" yaml:"target"`
}

// ConnectionID derives the identity of the edge between source and target.
// At most one connection exists per ordered pair.
func ConnectionID(sourceID, targetID string) string {
	return sourceID + "->" + targetID
}

// NewConnection builds the connection for an ordered pair.
func NewConnection(sourceID, targetID string) Connection {
	return Connection{
		ID:       ConnectionID(sourceID, targetID),
		SourceID: sourceID,
		TargetID: targetID,
	}
}

// Touches reports whether the connection has nodeID as one of its endpoints.
func (c Connection) Touches(nodeID string) bool {
	return c.SourceID == nodeID || c.TargetID == nodeID
}
