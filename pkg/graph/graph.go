// Package graph is the authoritative store of a canvas: its nodes and its
// connections.
//
// Graph is a value type. Every operation returns a new Graph and never writes
// into the receiver's slices, so a Graph held by the history stack can be
// shared freely and callers simply replace the value they hold.
package graph

import (
	"slices"

	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/google/uuid"
)

// Placement controls where new nodes appear: Base + Step * existing node count,
// so successive adds cascade instead of stacking.
type Placement struct {
	Base domain.Point `yaml:"base" json:"base"`
	Step domain.Point `yaml:"step" json:"step"`
}

// DefaultPlacement matches the sidebar "add tool" behavior.
var DefaultPlacement = Placement{
	Base: domain.Point{X: 100, Y: 100},
	Step: domain.Point{X: 30, Y: 30},
}

// IDFunc produces node identifiers. It must never return the same ID twice.
type IDFunc func() string

// Graph is an immutable (nodes, connections) pair.
type Graph struct {
	Nodes       []domain.Node       `json:"nodes" yaml:"nodes"`
	Connections []domain.Connection `json:"connections" yaml:"connections"`
}

// Empty returns a graph without nodes or connections.
func Empty() Graph { return Graph{} }

// Node returns the node with the given ID.
func (g Graph) Node(id string) (domain.Node, bool) {
	i := g.indexOf(id)
	if i < 0 {
		return domain.Node{}, false
	}
	return g.Nodes[i], true
}

func (g Graph) indexOf(id string) int {
	return slices.IndexFunc(g.Nodes, func(n domain.Node) bool { return n.ID == id })
}

// HasConnection reports whether the ordered pair is already connected.
func (g Graph) HasConnection(sourceID, targetID string) bool {
	return slices.ContainsFunc(g.Connections, func(c domain.Connection) bool {
		return c.SourceID == sourceID && c.TargetID == targetID
	})
}

// AddNode appends a node of the given kind using uuid identifiers and the
// default placement.
func (g Graph) AddNode(kind domain.Kind) (Graph, domain.Node) {
	return g.AddNodeWith(kind, DefaultPlacement, NewID)
}

// NewID returns a fresh random node ID.
func NewID() string { return uuid.NewString() }

// AddNodeWith appends a node of the given kind. The node is always appended,
// never inserted. Kinds missing from the registry get the default width.
func (g Graph) AddNodeWith(kind domain.Kind, p Placement, newID IDFunc) (Graph, domain.Node) {
	n := float64(len(g.Nodes))
	node := domain.Node{
		ID:       newID(),
		Kind:     kind,
		Title:    string(kind),
		Position: p.Base.Add(p.Step.Scale(n)),
		Width:    domain.DefaultNodeWidth,
	}
	if info, ok := domain.LookupKind(kind); ok {
		node.Title = info.Name
		node.Width = info.Width
	}

	next := Graph{
		Nodes:       append(slices.Clip(g.Nodes), node),
		Connections: g.Connections,
	}
	return next, node
}

// MoveNode sets the position of the matching node. Unknown IDs return g unchanged.
func (g Graph) MoveNode(id string, x, y float64) Graph {
	i := g.indexOf(id)
	if i < 0 {
		return g
	}
	nodes := slices.Clone(g.Nodes)
	nodes[i].Position = domain.Point{X: x, Y: y}
	return Graph{Nodes: nodes, Connections: g.Connections}
}

// RemoveNode drops the node and every connection that has it as an endpoint.
// Both halves of the result reflect the same removal.
func (g Graph) RemoveNode(id string) Graph {
	if g.indexOf(id) < 0 {
		return g
	}
	nodes := slices.DeleteFunc(slices.Clone(g.Nodes), func(n domain.Node) bool { return n.ID == id })
	conns := slices.DeleteFunc(slices.Clone(g.Connections), func(c domain.Connection) bool { return c.Touches(id) })
	return Graph{Nodes: nodes, Connections: conns}
}

// Connect adds the edge source -> target. Self-loops, duplicates and edges to
// unknown nodes are rejected silently: the returned graph is g and changed is false.
func (g Graph) Connect(sourceID, targetID string) (next Graph, changed bool) {
	if sourceID == targetID || g.HasConnection(sourceID, targetID) {
		return g, false
	}
	if g.indexOf(sourceID) < 0 || g.indexOf(targetID) < 0 {
		return g, false
	}
	conns := append(slices.Clip(g.Connections), domain.NewConnection(sourceID, targetID))
	return Graph{Nodes: g.Nodes, Connections: conns}, true
}

// Disconnect removes the connection with the given ID.
func (g Graph) Disconnect(connectionID string) (next Graph, changed bool) {
	i := slices.IndexFunc(g.Connections, func(c domain.Connection) bool { return c.ID == connectionID })
	if i < 0 {
		return g, false
	}
	conns := slices.Delete(slices.Clone(g.Connections), i, i+1)
	return Graph{Nodes: g.Nodes, Connections: conns}, true
}

// SetOutput replaces the output payload of a node. It is the content path used
// by history amends and never touches positions or topology.
func (g Graph) SetOutput(id, payload string) (next Graph, changed bool) {
	i := g.indexOf(id)
	if i < 0 || g.Nodes[i].Output == payload {
		return g, false
	}
	nodes := slices.Clone(g.Nodes)
	nodes[i].Output = payload
	return Graph{Nodes: nodes, Connections: g.Connections}, true
}

// ResolveInputs returns the outputs of every node feeding nodeID, in connection
// insertion order. Sources without an output are skipped.
func (g Graph) ResolveInputs(nodeID string) []string {
	var inputs []string
	for _, c := range g.Connections {
		if c.TargetID != nodeID {
			continue
		}
		src, ok := g.Node(c.SourceID)
		if !ok || !src.HasOutput() {
			continue
		}
		inputs = append(inputs, src.Output)
	}
	return inputs
}

// PrimaryInput is the first resolved input, used by single-input kinds.
func (g Graph) PrimaryInput(nodeID string) (string, bool) {
	inputs := g.ResolveInputs(nodeID)
	if len(inputs) == 0 {
		return "", false
	}
	return inputs[0], true
}

// Upstream returns the IDs of nodes connected into nodeID, in connection order.
func (g Graph) Upstream(nodeID string) []string {
	var ids []string
	for _, c := range g.Connections {
		if c.TargetID == nodeID {
			ids = append(ids, c.SourceID)
		}
	}
	return ids
}
