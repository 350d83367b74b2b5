package domain

import "fmt"

// DefaultNodeWidth is the rendered width of every tool box, in canvas units.
const DefaultNodeWidth = 400

// HandleOffsetY is the vertical distance from a node's top-left corner to its
// input and output handles.
const HandleOffsetY = 35

// Point is a 2D coordinate, either in screen space or in canvas space depending
// on where it is used.
type Point struct {
	X float64 `json:"x" yaml:"x" mapstructure:"x"`
	Y float64 `json:"y" yaml:"y" mapstructure:"y"`
}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p multiplied by k.
func (p Point) Scale(k float64) Point { return Point{X: p.X * k, Y: p.Y * k} }

func (p Point) String() string { return fmt.Sprintf("(%g,%g)", p.X, p.Y) }

// Node represents a tool instance placed on the canvas.
type Node struct {
	ID       string  `json:"id" yaml:"id"`
	Kind     Kind    `json:"kind" yaml:"kind"`
	Title    string  `json:"title" yaml:"title"`
	Position Point   `json:"position" yaml:"position"`
	Width    float64 `json:"width" yaml:"width"`

	// Output is the opaque payload produced by the node (URL, data URI or text).
	// An empty string means the node has not produced anything yet.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}

// HasOutput reports whether the node currently carries a payload.
func (n Node) HasOutput() bool { return n.Output != "" }

// OutputHandle returns the canvas position of the node's output handle (right edge).
func (n Node) OutputHandle() Point {
	return Point{X: n.Position.X + n.Width, Y: n.Position.Y + HandleOffsetY}
}

// InputHandle returns the canvas position of the node's input handle (left edge).
func (n Node) InputHandle() Point {
	return Point{X: n.Position.X, Y: n.Position.Y + HandleOffsetY}
}
