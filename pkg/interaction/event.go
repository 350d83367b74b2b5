package interaction

import "github.com/aretw0/intheflow/pkg/domain"

// EventType enumerates the discrete input events a canvas reacts to.
type EventType string

const (
	PointerDown  EventType = "pointer_down"
	PointerMove  EventType = "pointer_move"
	PointerUp    EventType = "pointer_up"
	PointerLeave EventType = "pointer_leave"
	TouchStart   EventType = "touch_start"
	TouchMove    EventType = "touch_move"
	TouchEnd     EventType = "touch_end"
)

// TargetKind is the region of the canvas an event landed on.
type TargetKind string

const (
	TargetCanvas       TargetKind = "canvas"
	TargetNodeHeader   TargetKind = "node_header"
	TargetNodeControl  TargetKind = "node_control"
	TargetNodeBody     TargetKind = "node_body"
	TargetOutputHandle TargetKind = "output_handle"
	TargetInputHandle  TargetKind = "input_handle"
)

// Target identifies what is under the pointer. NodeID is empty for the canvas.
type Target struct {
	Kind   TargetKind `json:"kind" yaml:"kind" mapstructure:"kind"`
	NodeID string     `json:"node_id,omitempty" yaml:"node_id,omitempty" mapstructure:"node_id"`
}

// PrimaryButton is the main mouse button.
const PrimaryButton = 0

// Event is one pointer or touch event in screen coordinates.
type Event struct {
	Type EventType `json:"type" yaml:"type" mapstructure:"type"`
	// Pos is the pointer position for pointer events.
	Pos    domain.Point `json:"pos" yaml:"pos" mapstructure:"pos"`
	Button int          `json:"button,omitempty" yaml:"button,omitempty" mapstructure:"button"`
	// Touches lists the touch points still active after a touch event.
	Touches []domain.Point `json:"touches,omitempty" yaml:"touches,omitempty" mapstructure:"touches"`
	Target  Target         `json:"target" yaml:"target" mapstructure:"target"`
}

// pointer returns the single-pointer position of an event: Pos for pointer
// events, the only touch for single-touch events.
func (e Event) pointer() (domain.Point, bool) {
	switch e.Type {
	case PointerDown, PointerMove, PointerUp, PointerLeave:
		return e.Pos, true
	}
	if len(e.Touches) == 1 {
		return e.Touches[0], true
	}
	return domain.Point{}, false
}
