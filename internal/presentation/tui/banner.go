package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`                _     _   `, "#818cf8"},
	{` _ __ ___  ___ (_)___| |_ `, "#a78bfa"},
	{`| '__/ _ \/ __|| / __| __|`, "#c084fc"},
	{`| | |  __/\__ \| \__ \ |_ `, "#e879f9"},
	{`|_|  \___||___/|_|___/\__|`, "#f472b6"},
}

// PrintBanner writes the resist banner to w using the given color profile.
func PrintBanner(w io.Writer, p termenv.Profile, version string) {
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, p.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
