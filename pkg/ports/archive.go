package ports

import (
	"context"

	"github.com/aretw0/concierge/pkg/domain"
)

// Archive records finished dispatches. It is an audit trail and is never read back
// to restore a conversation.
type Archive interface {
	Record(ctx context.Context, event *domain.DispatchEvent) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]domain.DispatchRecord, error)
}
