package domain

import "slices"

// Session represents the current snapshot of one conversation.
// Values are treated as immutable: transitions return a modified copy.
type Session struct {
	// ID identifies the conversation for adapters (HTTP, MCP).
	ID string `json:"id"`

	// Generation increments every time the session is reset (Start, SwitchDomain).
	// Background completions carrying an older generation are discarded.
	Generation uint64 `json:"generation"`

	Domain    Domain    `json:"domain"`
	FlowState FlowState `json:"flow_state"`
	Fields    Fields    `json:"fields"`

	// Options holds the labels offered for the current guided state.
	Options []string `json:"options"`

	// OptionsPending is true while an asynchronous option source is being queried.
	OptionsPending bool `json:"options_pending"`

	// Loading is true while a remote query is outstanding.
	Loading bool `json:"loading"`

	// OptionsLocked is true while the acknowledgment delay of the last answer is pending.
	OptionsLocked bool `json:"options_locked"`
}

// NewSession creates a session in the transient INITIAL state.
func NewSession(id string) Session {
	return Session{
		ID:        id,
		FlowState: StateInitial,
	}
}

// Clone returns a copy that shares no mutable memory with s.
func (s Session) Clone() Session {
	next := s
	next.Options = slices.Clone(s.Options)
	return next
}

// Busy reports whether a transition or a dispatch is in flight.
func (s Session) Busy() bool {
	return s.Loading || s.OptionsLocked
}

// Snapshot is the read-only view handed to the presentation layer.
type Snapshot struct {
	Session
	Messages []Message `json:"messages"`
}
