package tui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/muesli/termenv"
)

// Printer writes a conversation transcript to a terminal.
type Printer struct {
	out     io.Writer
	profile termenv.Profile
	render  func(string) (string, error)
}

// PrinterOption configures a Printer.
type PrinterOption func(*Printer)

// WithProfile sets the color profile (default: termenv.Ascii, no colors).
func WithProfile(p termenv.Profile) PrinterOption {
	return func(pr *Printer) {
		pr.profile = p
	}
}

// WithMarkdown renders bot messages through render (see NewRenderer).
func WithMarkdown(render func(string) (string, error)) PrinterOption {
	return func(pr *Printer) {
		pr.render = render
	}
}

// NewPrinter creates a Printer writing to out.
func NewPrinter(out io.Writer, opts ...PrinterOption) *Printer {
	p := &Printer{out: out, profile: termenv.Ascii}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Message prints one transcript entry.
func (p *Printer) Message(m domain.Message) {
	switch m.Author {
	case domain.AuthorUser:
		fmt.Fprintln(p.out, p.profile.String("you: "+m.Text).Foreground(p.profile.Color("#94a3b8")))
	case domain.AuthorInfo:
		fmt.Fprintln(p.out, p.profile.String("… "+m.Text).Italic().Faint())
	default:
		text := m.Text
		if p.render != nil {
			if rendered, err := p.render(text); err == nil {
				text = rendered
			}
		}
		fmt.Fprintln(p.out, p.profile.String("concierge:").Bold().Foreground(p.profile.Color("#2dd4bf")))
		fmt.Fprintln(p.out, text)
	}
}

// Options prints the numbered option list.
func (p *Printer) Options(options []string) {
	for i, o := range options {
		num := p.profile.String(strconv.Itoa(i+1) + ")").Foreground(p.profile.Color("#818cf8"))
		fmt.Fprintf(p.out, "  %s %s\n", num, o)
	}
}

// Note prints a system line.
func (p *Printer) Note(format string, args ...any) {
	fmt.Fprintln(p.out, p.profile.String(">>> "+strings.TrimSpace(fmt.Sprintf(format, args...))).Faint())
}

// Prompt prints the input marker without a newline.
func (p *Printer) Prompt() {
	fmt.Fprint(p.out, "> ")
}
