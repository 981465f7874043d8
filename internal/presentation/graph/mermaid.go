package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/resist/pkg/runner"
)

// GenerateMermaid produces a Mermaid flowchart of the containment tree.
// Shapes follow what an entity is:
// - Escape-capable: (Rounded), annotated with its base resist time
// - Uncontested container (storage, inventory, stash): [(Cylinder)]
// - Default: [Rectangle]
// Edges run from container to contained and are labelled with the hold (hand,
// swallowed, pinned). Carrying is drawn dotted. Entities with an attempt in
// flight get the "escaping" class.
func GenerateMermaid(views []runner.View) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var escaping []string
	for _, v := range views {
		e := v.Entity
		safeID := sanitizeMermaidID(string(e.ID))

		opener, closer := "[", "]"
		switch {
		case v.State != nil:
			opener, closer = "(", ")"
		case e.Features.Uncontested():
			opener, closer = "[(", ")]"
		}

		label := string(e.ID)
		if v.State != nil {
			label = fmt.Sprintf("%s <br/> ⏱️ %s", e.ID, v.State.BaseResistTime)
			if v.State.IsEscaping() {
				escaping = append(escaping, safeID)
			}
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		if e.Parent != "" {
			arrow := "-->"
			if hold := holdOf(e.InHand, e.Swallowed, e.Pinned); hold != "" {
				arrow = fmt.Sprintf("-- \"%s\" -->", hold)
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(string(e.Parent)), arrow, safeID)
		}
		if e.CarriedBy != "" {
			fmt.Fprintf(&sb, "    %s -. carries .-> %s\n", sanitizeMermaidID(string(e.CarriedBy)), safeID)
		}
	}

	if len(escaping) > 0 {
		sb.WriteString("\n    %% Attempts in flight\n")
		// Black text keeps the highlight readable on light and dark themes.
		sb.WriteString("    classDef escaping fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		for _, id := range escaping {
			fmt.Fprintf(&sb, "    class %s escaping;\n", id)
		}
	}

	return sb.String()
}

func holdOf(inHand, swallowed, pinned bool) string {
	var parts []string
	if inHand {
		parts = append(parts, "hand")
	}
	if swallowed {
		parts = append(parts, "swallowed")
	}
	if pinned {
		parts = append(parts, "pinned")
	}
	return strings.Join(parts, ", ")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
