package graph

import (
	"fmt"
	"testing"

	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("n%d", n)
	}
}

func build(t *testing.T, kinds ...domain.Kind) Graph {
	t.Helper()
	g := Empty()
	next := sequentialIDs()
	for _, k := range kinds {
		g, _ = g.AddNodeWith(k, DefaultPlacement, next)
	}
	return g
}

func TestAddNode_CascadingPlacement(t *testing.T) {
	g, first := Empty().AddNode(domain.KindImageGenerator)
	g, second := g.AddNode(domain.KindImageSource)

	assert.Equal(t, domain.Point{X: 100, Y: 100}, first.Position)
	assert.Equal(t, domain.Point{X: 130, Y: 130}, second.Position)
	assert.Equal(t, float64(domain.DefaultNodeWidth), first.Width)
	assert.Equal(t, "Image Generator", first.Title)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, g.Nodes, 2)
	assert.Equal(t, second.ID, g.Nodes[1].ID, "nodes are appended")
}

func TestAddNode_DoesNotAliasPreviousValue(t *testing.T) {
	g := build(t, domain.KindImageGenerator)
	a, _ := g.AddNodeWith(domain.KindImageSource, DefaultPlacement, func() string { return "a" })
	b, _ := g.AddNodeWith(domain.KindVideoSource, DefaultPlacement, func() string { return "b" })

	assert.Len(t, g.Nodes, 1)
	assert.Equal(t, "a", a.Nodes[1].ID)
	assert.Equal(t, "b", b.Nodes[1].ID)
}

func TestMoveNode(t *testing.T) {
	g := build(t, domain.KindImageGenerator, domain.KindImageSource)

	moved := g.MoveNode("n1", 250, 180)
	n, ok := moved.Node("n1")
	require.True(t, ok)
	assert.Equal(t, domain.Point{X: 250, Y: 180}, n.Position)

	orig, _ := g.Node("n1")
	assert.Equal(t, domain.Point{X: 100, Y: 100}, orig.Position, "receiver must not change")

	same := g.MoveNode("missing", 1, 1)
	assert.Equal(t, g, same)
}

func TestConnect(t *testing.T) {
	g := build(t, domain.KindImageSource, domain.KindVideoGenerator)

	g, changed := g.Connect("n1", "n2")
	require.True(t, changed)

	t.Run("Duplicate Is Idempotent", func(t *testing.T) {
		again, changed := g.Connect("n1", "n2")
		assert.False(t, changed)
		assert.Len(t, again.Connections, 1)
	})

	t.Run("Self Loop Rejected", func(t *testing.T) {
		self, changed := g.Connect("n1", "n1")
		assert.False(t, changed)
		assert.Equal(t, g, self)
	})

	t.Run("Reverse Direction Allowed", func(t *testing.T) {
		rev, changed := g.Connect("n2", "n1")
		assert.True(t, changed)
		assert.Len(t, rev.Connections, 2)
	})

	t.Run("Unknown Endpoint Rejected", func(t *testing.T) {
		_, changed := g.Connect("n1", "ghost")
		assert.False(t, changed)
	})

	assert.Equal(t, "n1->n2", g.Connections[0].ID)
}

func TestDisconnect(t *testing.T) {
	g := build(t, domain.KindImageSource, domain.KindVideoGenerator)
	g, _ = g.Connect("n1", "n2")

	next, changed := g.Disconnect(domain.ConnectionID("n1", "n2"))
	assert.True(t, changed)
	assert.Empty(t, next.Connections)
	assert.Len(t, g.Connections, 1)

	_, changed = next.Disconnect("nope")
	assert.False(t, changed)
}

func TestRemoveNode_Cascades(t *testing.T) {
	g := build(t, domain.KindImageSource, domain.KindVideoGenerator, domain.KindSequencer)
	g, _ = g.Connect("n1", "n2")
	g, _ = g.Connect("n2", "n3")
	g, _ = g.Connect("n1", "n3")
	g, _ = g.Connect("n3", "n2")

	next := g.RemoveNode("n2")

	assert.Len(t, next.Nodes, 2)
	require.Len(t, next.Connections, 1)
	assert.Equal(t, "n1->n3", next.Connections[0].ID)

	for _, c := range next.Connections {
		_, okSrc := next.Node(c.SourceID)
		_, okDst := next.Node(c.TargetID)
		assert.True(t, okSrc && okDst, "dangling connection %s", c.ID)
	}

	assert.Len(t, g.Connections, 4, "receiver must not change")
	assert.Equal(t, next, next.RemoveNode("missing"))
}

func TestResolveInputs(t *testing.T) {
	g := build(t, domain.KindImageSource, domain.KindVideoSource, domain.KindVideoSource, domain.KindSequencer)
	g, _ = g.Connect("n3", "n4")
	g, _ = g.Connect("n1", "n4")
	g, _ = g.Connect("n2", "n4")

	assert.Empty(t, g.ResolveInputs("n4"))
	_, ok := g.PrimaryInput("n4")
	assert.False(t, ok)

	g, _ = g.SetOutput("n1", "img")
	g, _ = g.SetOutput("n3", "blob:c")

	assert.Equal(t, []string{"blob:c", "img"}, g.ResolveInputs("n4"), "connection order, not spatial order")
	primary, ok := g.PrimaryInput("n4")
	assert.True(t, ok)
	assert.Equal(t, "blob:c", primary)
	assert.Equal(t, []string{"n3", "n1", "n2"}, g.Upstream("n4"))
}

func TestSetOutput(t *testing.T) {
	g := build(t, domain.KindImageSource)

	next, changed := g.SetOutput("n1", "data:image/png;base64,AAA")
	assert.True(t, changed)
	n, _ := next.Node("n1")
	assert.Equal(t, "data:image/png;base64,AAA", n.Output)

	_, changed = next.SetOutput("n1", "data:image/png;base64,AAA")
	assert.False(t, changed)

	_, changed = g.SetOutput("ghost", "x")
	assert.False(t, changed)
}
