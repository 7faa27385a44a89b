package domain

import "slices"

// SnapshotDiff represents the changes between two snapshots of the same conversation.
// It is designed to be serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	// Reset is true when the session was restarted: the client must drop its message list
	// before applying Appended.
	Reset bool `json:"reset,omitempty"`

	Domain         *Domain    `json:"domain,omitempty"`
	FlowState      *FlowState `json:"flow_state,omitempty"`
	Options        []string   `json:"options,omitempty"`
	OptionsPending *bool      `json:"options_pending,omitempty"`
	Loading        *bool      `json:"loading,omitempty"`
	OptionsLocked  *bool      `json:"options_locked,omitempty"`

	// Appended contains only messages not present in the old snapshot.
	Appended []Message `json:"appended,omitempty"`
}

// Diff calculates the difference between old and next.
// If old is nil, it returns a diff representing the entire next snapshot (initial load).
// It returns nil when nothing changed.
func Diff(old *Snapshot, next *Snapshot) *SnapshotDiff {
	if next == nil {
		return nil
	}

	diff := &SnapshotDiff{SessionID: next.ID}

	if old == nil || old.Generation != next.Generation {
		diff.Reset = old != nil
		old = nil
	}

	if old == nil || old.Domain != next.Domain {
		diff.Domain = &next.Domain
	}
	if old == nil || old.FlowState != next.FlowState {
		diff.FlowState = &next.FlowState
	}
	if old == nil || !slices.Equal(old.Options, next.Options) {
		diff.Options = slices.Clone(next.Options)
		if diff.Options == nil {
			diff.Options = []string{}
		}
	}
	if old == nil || old.OptionsPending != next.OptionsPending {
		diff.OptionsPending = &next.OptionsPending
	}
	if old == nil || old.Loading != next.Loading {
		diff.Loading = &next.Loading
	}
	if old == nil || old.OptionsLocked != next.OptionsLocked {
		diff.OptionsLocked = &next.OptionsLocked
	}

	diff.Appended = diffMessages(old, next)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// diffMessages assumes the append-only behavior of the message log.
func diffMessages(old *Snapshot, next *Snapshot) []Message {
	if old == nil {
		return slices.Clone(next.Messages)
	}
	if len(next.Messages) > len(old.Messages) {
		return slices.Clone(next.Messages[len(old.Messages):])
	}
	return nil
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return !d.Reset &&
		d.Domain == nil &&
		d.FlowState == nil &&
		d.Options == nil &&
		d.OptionsPending == nil &&
		d.Loading == nil &&
		d.OptionsLocked == nil &&
		len(d.Appended) == 0
}
