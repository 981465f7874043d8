package graph_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aretw0/resist/internal/presentation/graph"
	"github.com/aretw0/resist/pkg/adapters/memory"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/runner"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	escaping := domain.NewEscapeState("cat", 2*time.Second)
	escaping.Attempt = "attempt-1"
	escaping.CancelAffordance = "affordance-1"

	tests := []struct {
		name     string
		views    []runner.View
		contains []string
		excludes []string
	}{
		{
			name: "Container Shapes",
			views: []runner.View{
				{Entity: memory.Entity{ID: "room"}},
				{Entity: memory.Entity{ID: "crate", Parent: "room", Features: domain.FeatureStorage}},
			},
			contains: []string{
				"room[\"room\"]",
				"crate[(\"crate\")]",
				"room --> crate",
			},
		},
		{
			name: "Escape Capable",
			views: []runner.View{
				{Entity: memory.Entity{ID: "mouse", Parent: "crate"}, State: domain.NewEscapeState("mouse", time.Second)},
			},
			contains: []string{
				"mouse(\"mouse <br/> ⏱️ 1s\")",
			},
			excludes: []string{"classDef escaping"},
		},
		{
			name: "Holds And Carrying",
			views: []runner.View{
				{Entity: memory.Entity{ID: "frog", Parent: "dog", Swallowed: true, Pinned: true}},
				{Entity: memory.Entity{ID: "sword", Parent: "knight", CarriedBy: "knight"}},
			},
			contains: []string{
				"dog -- \"swallowed, pinned\" --> frog",
				"knight -. carries .-> sword",
			},
		},
		{
			name: "ID Sanitization",
			views: []runner.View{
				{Entity: memory.Entity{ID: "giant-rat.1", Parent: "cellar/box"}},
			},
			contains: []string{
				"giant_rat_1[\"giant-rat.1\"]",
				"cellar_box --> giant_rat_1",
			},
		},
		{
			name: "Escaping Overlay",
			views: []runner.View{
				{Entity: memory.Entity{ID: "human"}},
				{Entity: memory.Entity{ID: "cat", Parent: "human", InHand: true}, State: escaping},
			},
			contains: []string{
				"human -- \"hand\" --> cat",
				"classDef escaping",
				"class cat escaping;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.views)
			assert.True(t, strings.HasPrefix(got, "graph TD\n"))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, got, unwanted)
			}
		})
	}
}
