package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventMessage        EventType = "message"
	EventTransition     EventType = "transition"
	EventDispatch       EventType = "dispatch"
	EventDispatchReturn EventType = "dispatch_return"
)

// DispatchKind distinguishes the initial query from free-text follow-ups.
type DispatchKind string

const (
	DispatchQuery    DispatchKind = "query"
	DispatchFollowUp DispatchKind = "follow_up"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	SessionID  string    `json:"session_id"`
	Generation uint64    `json:"generation"`
}

// MessageEvent reports a message appended to the log.
type MessageEvent struct {
	EventBase
	Message Message `json:"message"`
}

// TransitionEvent reports a flow state change.
type TransitionEvent struct {
	EventBase
	Domain Domain    `json:"domain"`
	From   FlowState `json:"from"`
	To     FlowState `json:"to"`
	Input  string    `json:"input,omitempty"`
}

// DispatchEvent reports a remote query and, on return, its outcome.
type DispatchEvent struct {
	EventBase
	Domain   Domain        `json:"domain"`
	Kind     DispatchKind  `json:"kind"`
	Fields   Fields        `json:"fields"`
	Text     string        `json:"text,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
	Error    string        `json:"error,omitempty"`
	// Stale is set when the result arrived after the session was reset and was dropped.
	Stale bool `json:"stale,omitempty"`
}

// LifecycleHooks defines callbacks for conversation observability.
// Hooks run synchronously after the conversation state has been updated and must not block.
type LifecycleHooks struct {
	OnMessage        func(context.Context, *MessageEvent)
	OnTransition     func(context.Context, *TransitionEvent)
	OnDispatch       func(context.Context, *DispatchEvent)
	OnDispatchReturn func(context.Context, *DispatchEvent)
	// OnChange receives the full snapshot after every mutation.
	OnChange func(context.Context, Snapshot)
}

// ChainHooks fans every callback out to each of the given hook sets, in order.
func ChainHooks(sets ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnMessage: func(ctx context.Context, e *MessageEvent) {
			for _, h := range sets {
				if h.OnMessage != nil {
					h.OnMessage(ctx, e)
				}
			}
		},
		OnTransition: func(ctx context.Context, e *TransitionEvent) {
			for _, h := range sets {
				if h.OnTransition != nil {
					h.OnTransition(ctx, e)
				}
			}
		},
		OnDispatch: func(ctx context.Context, e *DispatchEvent) {
			for _, h := range sets {
				if h.OnDispatch != nil {
					h.OnDispatch(ctx, e)
				}
			}
		},
		OnDispatchReturn: func(ctx context.Context, e *DispatchEvent) {
			for _, h := range sets {
				if h.OnDispatchReturn != nil {
					h.OnDispatchReturn(ctx, e)
				}
			}
		},
		OnChange: func(ctx context.Context, s Snapshot) {
			for _, h := range sets {
				if h.OnChange != nil {
					h.OnChange(ctx, s)
				}
			}
		},
	}
}
