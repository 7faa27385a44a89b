// Package format renders backend payloads into the text of a single bot message.
//
// Payloads are first mapped onto a small Document (sections of items) and only turned into
// markdown at the edge, so the rules about which sections appear can be tested on structure.
package format

import (
	"strconv"
	"strings"
)

// ListStyle controls how the items of a section are prefixed.
type ListStyle int

const (
	Plain ListStyle = iota
	Numbered
	Bulleted
)

// Item is one entry of a section. Details are rendered indented beneath the text.
type Item struct {
	Text    string
	Details []string
}

// Section is a titled group of items.
type Section struct {
	Title string
	Style ListStyle
	Items []Item
}

// Document is an ordered list of sections.
type Document struct {
	Sections []Section
}

// Add appends a section unless it has no items; absent data never renders as an empty block.
func (d *Document) Add(s Section) {
	if len(s.Items) == 0 {
		return
	}
	d.Sections = append(d.Sections, s)
}

// Empty reports whether the document has nothing to render.
func (d Document) Empty() bool {
	return len(d.Sections) == 0
}

// Markdown renders the document. Sections are separated by a blank line and
// trailing whitespace is trimmed.
func (d Document) Markdown() string {
	var b strings.Builder
	for i, s := range d.Sections {
		if i > 0 {
			b.WriteString("\n")
		}
		writeSection(&b, s)
	}
	return strings.TrimRight(b.String(), " \t\r\n")
}

func writeSection(b *strings.Builder, s Section) {
	if s.Title != "" {
		b.WriteString(s.Title)
		b.WriteString("\n")
	}
	for i, item := range s.Items {
		prefix := ""
		switch s.Style {
		case Numbered:
			prefix = strconv.Itoa(i+1) + ". "
		case Bulleted:
			prefix = "• "
		}
		b.WriteString(prefix)
		b.WriteString(item.Text)
		b.WriteString("\n")

		indent := strings.Repeat(" ", len([]rune(prefix)))
		for _, detail := range item.Details {
			b.WriteString(indent)
			b.WriteString(detail)
			b.WriteString("\n")
		}
	}
}
