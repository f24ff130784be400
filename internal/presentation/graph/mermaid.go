// Package graph renders compiled menus as Mermaid flowcharts for inspection
// and documentation.
package graph

import (
	"fmt"
	"strings"

	"github.com/espalierhq/espalier/pkg/template"
)

// Overlay marks dynamic session state on the rendered graph.
type Overlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// Mermaid produces a Mermaid flowchart from a compiled menu. Shapes carry
// meaning:
//   - the start node is a ((circle))
//   - terminal nodes (no options) are [[subroutines]]
//   - everything else is a [rectangle]
//
// Plain node transitions are solid arrows labeled with the option key;
// callable targets are dashed, since the destination is only known at
// runtime. Overlay styles (visited/current) are appended if given.
func Mermaid(menu *template.Menu, startNode string, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, name := range menu.Nodes() {
		safeID := sanitizeID(name)
		options := menu.Options(name)

		opener, closer := "[", "]"
		switch {
		case name == startNode:
			opener, closer = "((", "))"
		case len(options) == 0:
			opener, closer = "[[", "]]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, name, closer))

		for _, opt := range options {
			label := strings.ReplaceAll(opt.Key, `"`, "'")
			if isCall(opt.Target) {
				// runtime-resolved destination
				callee := sanitizeID(callName(opt.Target))
				sb.WriteString(fmt.Sprintf("    %s -. \"%s\" .-> %s\n", safeID, label, callee))
				continue
			}
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", safeID, label, sanitizeID(opt.Target)))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, name := range overlay.VisitedNodes {
			safeID := sanitizeID(name)
			if safeID != "" && !seen[safeID] {
				seen[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}
		if overlay.CurrentNode != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeID(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

func isCall(target string) bool { return strings.HasSuffix(target, ")") }

func callName(target string) string {
	name, _, _ := strings.Cut(target, "(")
	return name
}

func sanitizeID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
