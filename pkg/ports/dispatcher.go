package ports

import (
	"context"

	"github.com/aretw0/concierge/pkg/domain"
)

// Dispatcher defines how remote queries are executed.
// The conversation guarantees that at most one call is outstanding per session.
type Dispatcher interface {
	// Query sends the fully collected fields to the domain endpoint and decodes the answer.
	Query(ctx context.Context, fields domain.Fields) (domain.Response, error)

	// FollowUp sends free text together with the collected fields and returns the
	// display-ready reply.
	FollowUp(ctx context.Context, fields domain.Fields, text string) (string, error)
}
