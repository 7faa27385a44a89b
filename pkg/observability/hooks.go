package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
)

// LogHooks logs conversation events. Messages and transitions go to Debug, dispatches to Info.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnMessage: func(ctx context.Context, e *domain.MessageEvent) {
			logger.DebugContext(ctx, "message",
				"session_id", e.SessionID,
				"message_id", e.Message.ID,
				"author", e.Message.Author,
			)
		},
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.DebugContext(ctx, "transition",
				"session_id", e.SessionID,
				"domain", e.Domain,
				"from", e.From,
				"to", e.To,
			)
		},
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) {
			logger.InfoContext(ctx, "dispatch",
				"session_id", e.SessionID,
				"domain", e.Domain,
				"kind", e.Kind,
				"generation", e.Generation,
			)
		},
		OnDispatchReturn: func(ctx context.Context, e *domain.DispatchEvent) {
			logger.InfoContext(ctx, "dispatch_return",
				"session_id", e.SessionID,
				"domain", e.Domain,
				"kind", e.Kind,
				"duration", e.Duration,
				"is_error", e.IsError,
				"stale", e.Stale,
			)
		},
	}
}

// ArchiveHooks records every finished dispatch, stale ones included.
func ArchiveHooks(archive ports.Archive, logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatchReturn: func(ctx context.Context, e *domain.DispatchEvent) {
			if err := archive.Record(context.WithoutCancel(ctx), e); err != nil {
				logger.WarnContext(ctx, "failed to archive dispatch", "session_id", e.SessionID, "error", err)
			}
		},
	}
}
