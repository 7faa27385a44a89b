package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/pkg/domain"
)

// GraphOverlay marks the position of a live session on the graph.
type GraphOverlay struct {
	Domain      domain.Domain
	Answered    []domain.FlowState
	CurrentNode domain.FlowState
}

// maxListed caps the option labels written into a question node.
const maxListed = 6

// GenerateMermaid produces a Mermaid flowchart of the question sequences.
// It applies semantic styling:
// - Domain entry: ((Circle))
// - Question: [/Parallelogram/]
// - Backend search: [[Subroutine]]
// Questions fed by a remote source are drawn with a dotted entry edge.
func GenerateMermaid(flows []concierge.Flow, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, flow := range flows {
		d := string(flow.Domain)
		fmt.Fprintf(&sb, "    subgraph %s\n", d)
		fmt.Fprintf(&sb, "    %s((\"%s\"))\n", nodeID(flow.Domain, domain.StateInitial), d)

		prev := domain.StateInitial
		for _, step := range flow.Steps {
			id := nodeID(flow.Domain, step.State)
			fmt.Fprintf(&sb, "    %s[/\"%s <br/> %s\"/]\n", id, step.State, escape(step.Prompt))

			arrow := "-->"
			if label := optionsLabel(step); label != "" {
				arrow = fmt.Sprintf("-- \"%s\" -->", escape(label))
			}
			if step.Source != nil && !step.Source.Static() {
				arrow = "-. \"remote options\" .->"
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", nodeID(flow.Domain, prev), arrow, id)
			prev = step.State
		}

		search := nodeID(flow.Domain, domain.StateProcessing)
		fmt.Fprintf(&sb, "    %s[[\"%s <br/> %s search\"]]\n", search, domain.StateProcessing, d)
		fmt.Fprintf(&sb, "    %s --> %s\n", nodeID(flow.Domain, prev), search)
		fmt.Fprintf(&sb, "    %s -. \"follow-up\" .-> %s\n", search, search)
		sb.WriteString("    end\n")
	}

	if overlay != nil && overlay.Domain != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[domain.FlowState]bool)
		for _, s := range overlay.Answered {
			if !visited[s] && s != overlay.CurrentNode {
				visited[s] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", nodeID(overlay.Domain, s))
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", nodeID(overlay.Domain, overlay.CurrentNode))
		}
	}

	return sb.String()
}

// Overlay derives the overlay of a session snapshot. Every guided state before the current
// one of the session's flow counts as answered.
func Overlay(flows []concierge.Flow, snap domain.Snapshot) *GraphOverlay {
	o := &GraphOverlay{Domain: snap.Domain, CurrentNode: snap.FlowState}
	for _, flow := range flows {
		if flow.Domain != snap.Domain {
			continue
		}
		for _, step := range flow.Steps {
			if step.State == snap.FlowState {
				break
			}
			o.Answered = append(o.Answered, step.State)
		}
	}
	return o
}

// optionsLabel lists the labels of a static source, shortened past maxListed.
func optionsLabel(step concierge.Step) string {
	if step.Source == nil {
		return "any answer"
	}
	if !step.Source.Static() {
		return ""
	}
	labels, err := step.Source.Options(context.Background())
	if err != nil || len(labels) == 0 {
		return ""
	}
	if len(labels) > maxListed {
		return fmt.Sprintf("%s, … (%d)", strings.Join(labels[:maxListed], ", "), len(labels))
	}
	return strings.Join(labels, ", ")
}

func nodeID(d domain.Domain, s domain.FlowState) string {
	return sanitizeMermaidID(string(d) + "_" + strings.ToLower(string(s)))
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
