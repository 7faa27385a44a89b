package domain

import "time"

// DispatchRecord is the archived form of a finished dispatch.
// Fields is kept as the JSON document that was sent to the backend.
type DispatchRecord struct {
	ID         int64         `json:"id"`
	At         time.Time     `json:"at"`
	SessionID  string        `json:"session_id"`
	Generation uint64        `json:"generation"`
	Domain     Domain        `json:"domain"`
	Kind       DispatchKind  `json:"kind"`
	Fields     string        `json:"fields"`
	Text       string        `json:"text,omitempty"`
	Duration   time.Duration `json:"duration"`
	IsError    bool          `json:"is_error"`
	Error      string        `json:"error,omitempty"`
	Stale      bool          `json:"stale"`
}
