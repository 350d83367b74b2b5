package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/intheflow/pkg/domain"
)

var sourcePrefixes = map[domain.Kind][]string{
	domain.KindImageSource: {"data:image/", "blob:", "http://", "https://"},
	domain.KindVideoSource: {"data:video/", "blob:", "http://", "https://"},
}

// SetSource writes an uploaded reference into an image or video source node.
// An empty payload clears the node. Like generated results, the write does not
// create an undo step.
func SetSource(ctx context.Context, c Canvas, nodeID, payload string) error {
	node, ok := c.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
	}
	prefixes, ok := sourcePrefixes[node.Kind]
	if !ok {
		return fmt.Errorf("%w: %s is not a source", domain.ErrInvalidParams, node.Kind)
	}
	if payload != "" && !hasAnyPrefix(payload, prefixes) {
		return fmt.Errorf("%w: unsupported %s payload", domain.ErrInvalidParams, node.Kind)
	}
	if !c.AmendOutput(ctx, nodeID, payload) {
		return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
	}
	return nil
}

// IsVideoRef reports whether a payload can be played as a video clip.
func IsVideoRef(payload string) bool {
	return hasAnyPrefix(payload, []string{"blob:", "http", "data:video/"})
}

// Playlist returns the clips a sequencer plays: its resolved inputs that are
// video references, in connection order.
func Playlist(c Canvas, nodeID string) ([]string, error) {
	node, ok := c.Node(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
	}
	if node.Kind != domain.KindSequencer {
		return nil, fmt.Errorf("%w: %s is not a sequencer", domain.ErrInvalidParams, node.Kind)
	}
	var clips []string
	for _, in := range c.ResolveInputs(nodeID) {
		if IsVideoRef(in) {
			clips = append(clips, in)
		}
	}
	return clips, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
