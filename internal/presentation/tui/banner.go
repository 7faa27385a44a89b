package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Concierge ASCII art banner with the version underneath.
func PrintBanner(w io.Writer, profile termenv.Profile, version string) {
	lines := []struct{ text, color string }{
		{"   ___                _                    ", "#2dd4bf"},
		{"  / __|___ _ _  __ __(_)___ _ _ __ _ ___   ", "#22d3ee"},
		{" | (__/ _ \\ ' \\/ _/ _| / -_) '_/ _` / -_)  ", "#38bdf8"},
		{"  \\___\\___/_||_\\__\\__|_\\___|_| \\__, \\___|  ", "#60a5fa"},
		{"                               |___/       ", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, profile.String(l.text).Foreground(profile.Color(l.color)))
	}
	fmt.Fprintln(w, profile.String("  marketplace assistant "+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}
