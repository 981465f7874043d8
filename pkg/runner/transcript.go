package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/resist/pkg/domain"
)

// LineKind classifies transcript lines.
type LineKind string

const (
	LineStep    LineKind = "step"
	LineNotice  LineKind = "notice"
	LineEvent   LineKind = "event"
	LineFailure LineKind = "failure"
)

// Line is one transcript entry.
type Line struct {
	At     time.Duration   `json:"at"`
	Kind   LineKind        `json:"kind"`
	Entity domain.EntityID `json:"entity,omitempty"`
	Text   string          `json:"text"`
}

// Transcript is what happened while playing a scenario.
type Transcript struct {
	Name  string `json:"name"`
	Lines []Line `json:"lines"`
}

// Failures returns the expectation failures.
func (t *Transcript) Failures() []Line {
	var out []Line
	for _, l := range t.Lines {
		if l.Kind == LineFailure {
			out = append(out, l)
		}
	}
	return out
}

// Failed reports whether any expectation failed.
func (t *Transcript) Failed() bool {
	return len(t.Failures()) > 0
}

// Markdown renders the transcript as a markdown document.
func (t *Transcript) Markdown() string {
	var b strings.Builder
	name := t.Name
	if name == "" {
		name = "Scenario"
	}
	fmt.Fprintf(&b, "# %s\n\n", name)
	b.WriteString("| t | kind | entity | |\n|---|---|---|---|\n")
	for _, l := range t.Lines {
		text := strings.ReplaceAll(l.Text, "|", `\|`)
		if l.Kind == LineFailure {
			text = "**" + text + "**"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", l.At, l.Kind, l.Entity, text)
	}
	if t.Failed() {
		fmt.Fprintf(&b, "\n%d expectation(s) failed.\n", len(t.Failures()))
	} else {
		b.WriteString("\nAll expectations met.\n")
	}
	return b.String()
}
