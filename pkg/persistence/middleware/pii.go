package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

// DefaultPIIPatterns match e-mail addresses and phone numbers.
var DefaultPIIPatterns = []string{
	`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
	`\+?\d[\d\s-]{7,}\d`,
}

type piiMiddleware struct {
	next     ports.Archive
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the parts of follow-up text and error
// messages matching the patterns. Collected fields are option labels and are kept as is.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.Archive) ports.Archive {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Record(ctx context.Context, event *domain.DispatchEvent) error {
	// Copy so the hook chain keeps seeing the original event.
	cloned := *event
	cloned.Text = m.mask(cloned.Text)
	cloned.Error = m.mask(cloned.Error)

	return m.next.Record(ctx, &cloned)
}

func (m *piiMiddleware) Recent(ctx context.Context, limit int) ([]domain.DispatchRecord, error) {
	return m.next.Recent(ctx, limit)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
