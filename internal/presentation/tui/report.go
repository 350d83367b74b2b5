package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/intheflow/pkg/domain"
)

// Report renders a canvas as a markdown document: a node table, the
// connections, the history position and an optional mermaid diagram.
func Report(state domain.CanvasState, statuses map[string]domain.NodeStatus, mermaid string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Canvas `%s`\n\n", state.SessionID)
	fmt.Fprintf(&sb, "History **%d / %d** · pan %s · gesture `%s`\n\n", state.Cursor+1, state.Depth, state.Pan, state.Gesture)

	sb.WriteString("## Nodes\n\n")
	if len(state.Nodes) == 0 {
		sb.WriteString("_empty canvas_\n\n")
	} else {
		sb.WriteString("| ID | Kind | Position | Status | Output |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, n := range state.Nodes {
			status := string(domain.StatusIdle)
			if s, ok := statuses[n.ID]; ok {
				status = string(s.Status)
				if s.Error != "" {
					status += ": " + s.Error
				}
			}
			fmt.Fprintf(&sb, "| `%s` | %s | %s | %s | %s |\n", n.ID, n.Kind, n.Position, status, summarize(n.Output))
		}
		sb.WriteString("\n")
	}

	if len(state.Connections) > 0 {
		sb.WriteString("## Connections\n\n")
		ids := make([]string, 0, len(state.Connections))
		for _, c := range state.Connections {
			ids = append(ids, c.ID)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(&sb, "- `%s`\n", id)
		}
		sb.WriteString("\n")
	}

	if mermaid != "" {
		sb.WriteString("## Graph\n\n```mermaid\n")
		sb.WriteString(mermaid)
		sb.WriteString("```\n")
	}
	return sb.String()
}

// summarize shortens payloads for table cells. Data URIs are reduced to their
// media type.
func summarize(output string) string {
	switch {
	case output == "":
		return "-"
	case strings.HasPrefix(output, "data:"):
		mime, _, _ := strings.Cut(strings.TrimPrefix(output, "data:"), ";")
		return fmt.Sprintf("%s (%d bytes)", mime, len(output))
	}
	output = strings.ReplaceAll(output, "\n", " ")
	output = strings.ReplaceAll(output, "|", "\\|")
	if len(output) > 48 {
		return output[:45] + "..."
	}
	return output
}
