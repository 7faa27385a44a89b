package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func snap(gen uint64, state FlowState, msgs ...string) *Snapshot {
	s := &Snapshot{
		Session: Session{
			ID:         "sess-1",
			Generation: gen,
			Domain:     DomainVendor,
			FlowState:  state,
			Options:    []string{"a", "b"},
		},
	}
	for i, m := range msgs {
		s.Messages = append(s.Messages, Message{ID: int64(i + 1), Author: AuthorBot, Text: m})
	}
	return s
}

func TestDiff(t *testing.T) {
	t.Run("Initial Load (Old is Nil)", func(t *testing.T) {
		d := Diff(nil, snap(1, StateAskingService, "hello"))
		if d == nil {
			t.Fatal("expected a diff")
		}
		if d.Reset {
			t.Error("initial load is not a reset")
		}
		if d.FlowState == nil || *d.FlowState != StateAskingService {
			t.Errorf("expected flow state, got %v", d.FlowState)
		}
		if len(d.Appended) != 1 {
			t.Errorf("expected 1 appended message, got %d", len(d.Appended))
		}
	})

	t.Run("No Changes", func(t *testing.T) {
		if d := Diff(snap(1, StateAskingService, "hello"), snap(1, StateAskingService, "hello")); d != nil {
			t.Errorf("expected nil diff, got %+v", d)
		}
	})

	t.Run("Append Only", func(t *testing.T) {
		d := Diff(snap(1, StateAskingService, "hello"), snap(1, StateAskingBudget, "hello", "Photography", "budget?"))
		if d == nil {
			t.Fatal("expected a diff")
		}
		if d.FlowState == nil || *d.FlowState != StateAskingBudget {
			t.Errorf("expected ASKING_BUDGET, got %v", d.FlowState)
		}
		if len(d.Appended) != 2 || d.Appended[0].Text != "Photography" {
			t.Errorf("unexpected appended messages: %+v", d.Appended)
		}
		if d.Domain != nil {
			t.Error("domain did not change")
		}
	})

	t.Run("Generation Change Is Reset", func(t *testing.T) {
		old := snap(1, StateProcessing, "a", "b", "c")
		next := snap(2, StateAskingService, "hello")
		d := Diff(old, next)
		if d == nil || !d.Reset {
			t.Fatalf("expected reset diff, got %+v", d)
		}
		if len(d.Appended) != 1 || d.Appended[0].Text != "hello" {
			t.Errorf("expected the whole new log, got %+v", d.Appended)
		}
	})

	t.Run("Flags Only", func(t *testing.T) {
		old := snap(1, StateProcessing, "a")
		next := snap(1, StateProcessing, "a")
		next.Loading = true
		d := Diff(old, next)
		if d == nil || d.Loading == nil || !*d.Loading {
			t.Fatalf("expected loading diff, got %+v", d)
		}
		if d.OptionsLocked != nil {
			t.Error("options_locked did not change")
		}
	})
}

func TestDiff_JSONOmitsUnchanged(t *testing.T) {
	old := snap(1, StateProcessing, "a")
	next := snap(1, StateProcessing, "a", "b")
	d := Diff(old, next)

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	s := string(data)
	for _, key := range []string{"flow_state", "domain", "loading", "reset"} {
		if strings.Contains(s, `"`+key+`"`) {
			t.Errorf("expected %q to be omitted in %s", key, s)
		}
	}
	if !strings.Contains(s, `"appended"`) {
		t.Errorf("expected appended messages in %s", s)
	}
}
