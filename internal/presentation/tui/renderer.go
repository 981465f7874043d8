package tui

import (
	"fmt"

	"github.com/aretw0/resist/pkg/runner"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// Renderer transforms markdown before it is written out.
type Renderer func(string) (string, error)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() Renderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return PlainRenderer
	}
	return r.Render
}

// PlainRenderer leaves markdown untouched, for pipes and files.
func PlainRenderer(markdown string) (string, error) {
	return markdown, nil
}

// RenderTranscript renders a transcript with r.
func RenderTranscript(r Renderer, t *runner.Transcript) (string, error) {
	return r(t.Markdown())
}

var lineColors = map[runner.LineKind]string{
	runner.LineStep:    "#94a3b8",
	runner.LineNotice:  "#fbbf24",
	runner.LineEvent:   "#818cf8",
	runner.LineFailure: "#f87171",
}

// FormatLine styles one transcript line for a terminal with profile p.
// The Ascii profile yields plain text.
func FormatLine(p termenv.Profile, l runner.Line) string {
	kind := p.String(fmt.Sprintf("%-7s", l.Kind)).Foreground(p.Color(lineColors[l.Kind]))
	text := p.String(l.Text)
	switch l.Kind {
	case runner.LineFailure:
		text = text.Foreground(p.Color(lineColors[l.Kind])).Bold()
	case runner.LineNotice:
		text = text.Italic()
	}

	entity := string(l.Entity)
	if entity == "" {
		entity = "-"
	}
	return fmt.Sprintf("%8s  %s  %-10s %s", l.At, kind, entity, text)
}
