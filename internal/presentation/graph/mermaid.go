package graph

import (
	"fmt"
	"strings"

	"github.com/utopium/chatflow/internal/runtime"
	"github.com/utopium/chatflow/pkg/domain"
)

// Overlay contains session data to visualize on the graph.
type Overlay struct {
	Visited []domain.Step
	Current domain.Step
}

// GenerateMermaid produces a Mermaid flowchart of the post-creation flow.
// Shapes:
// - Idle: ((Circle))
// - Confirm (publishes): [[Subroutine]]
// - File: [/Parallelogram/]
// - Question: [Rectangle]
func GenerateMermaid(edges []runtime.Edge, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	seen := make(map[domain.Step]bool)
	for _, e := range edges {
		for _, step := range []domain.Step{e.From, e.To} {
			if seen[step] {
				continue
			}
			seen[step] = true
			opener, closer := shape(step)
			fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(step), opener, step, closer)
		}
	}

	for _, e := range edges {
		arrow := "-->"
		if e.Label != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", strings.ReplaceAll(e.Label, "\"", "'"))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.From), arrow, sanitizeMermaidID(e.To))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[domain.Step]bool)
		for _, step := range overlay.Visited {
			if visited[step] || !seen[step] {
				continue
			}
			visited[step] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", sanitizeMermaidID(step))
		}
		if overlay.Current != "" && seen[overlay.Current] {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.Current))
		}
	}

	return sb.String()
}

// OverlayFor marks the steps a post in progress has gone through.
func OverlayFor(state *domain.State) *Overlay {
	o := &Overlay{Current: state.Step}
	current := state.Step.Index()
	for i := 0; i < current; i++ {
		o.Visited = append(o.Visited, domain.StepAt(i))
	}
	return o
}

func shape(step domain.Step) (string, string) {
	switch step {
	case domain.StepIdle:
		return "((", "))"
	case domain.StepConfirm:
		return "[[", "]]"
	case domain.StepFile:
		return "[/", "/]"
	}
	return "[", "]"
}

func sanitizeMermaidID(step domain.Step) string {
	s := strings.ReplaceAll(string(step), ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	return s
}
