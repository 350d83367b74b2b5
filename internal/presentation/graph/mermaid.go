package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/intheflow/pkg/domain"
)

// GraphOverlay contains transient canvas state to visualize on the graph.
type GraphOverlay struct {
	Statuses map[string]domain.ExecutionStatus
	// ActiveNode is the node bound to the current gesture, if any.
	ActiveNode string
}

// NewOverlay builds an overlay from node statuses and the node bound to the
// current gesture.
func NewOverlay(statuses map[string]domain.NodeStatus, active string) *GraphOverlay {
	o := &GraphOverlay{Statuses: make(map[string]domain.ExecutionStatus, len(statuses)), ActiveNode: active}
	for id, st := range statuses {
		o.Statuses[id] = st.Status
	}
	return o
}

// GenerateMermaid produces a left-to-right Mermaid flowchart of a canvas.
// It applies semantic styling:
// - Sources: [/Parallelogram/]
// - Sequencer: [[Subroutine]]
// - Generators: [Rectangle]
// Connections into kinds that ignore their inputs are drawn dotted.
// It also applies overlay styles (generation status, active node) if provided.
func GenerateMermaid(nodes []domain.Node, connections []domain.Connection, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	arity := make(map[string]domain.Arity, len(nodes))
	for _, node := range nodes {
		safeID := sanitizeMermaidID(node.ID)
		info, _ := domain.LookupKind(node.Kind)
		arity[node.ID] = info.Arity

		opener, closer := "[", "]"
		switch node.Kind {
		case domain.KindImageSource, domain.KindVideoSource:
			opener, closer = "[/", "/]"
		case domain.KindSequencer:
			opener, closer = "[[", "]]"
		}

		title := node.Title
		if title == "" {
			title = info.Name
		}
		label := escapeLabel(title)
		if node.HasOutput() {
			label += " <br/> ✓ " + string(info.Output)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)
	}

	for _, c := range connections {
		arrow := "-->"
		if arity[c.TargetID] == domain.ArityNone {
			arrow = "-.->"
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(c.SourceID), arrow, sanitizeMermaidID(c.TargetID))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast on light fills in both themes.
		sb.WriteString("    classDef loading fill:#fff8e1,stroke:#f9a825,stroke-dasharray:4,color:#000;\n")
		sb.WriteString("    classDef success fill:#e8f5e9,stroke:#2e7d32,color:#000;\n")
		sb.WriteString("    classDef error fill:#ffebee,stroke:#c62828,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef active fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		for _, node := range nodes {
			switch s := overlay.Statuses[node.ID]; s {
			case domain.StatusLoading, domain.StatusSuccess, domain.StatusError:
				fmt.Fprintf(&sb, "    class %s %s;\n", sanitizeMermaidID(node.ID), s)
			}
		}
		if overlay.ActiveNode != "" {
			fmt.Fprintf(&sb, "    class %s active;\n", sanitizeMermaidID(overlay.ActiveNode))
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	sb.WriteString("n_")
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
