package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/domain"
)

// Frame is one message sent over a session stream.
type Frame struct {
	// Type is "snapshot" (full state, sent on connect), "diff" or "error".
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	// Ignored marks validation errors: the action had no effect.
	Ignored bool `json:"ignored,omitempty"`
}

// StreamManager fans conversation changes out to the connected stream clients.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan []byte]struct{} // SessionID -> Set of Channels
	last        map[string]domain.Snapshot          // SessionID -> last published snapshot
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
// A nil logger discards output.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan []byte]struct{}),
		last:        make(map[string]domain.Snapshot),
		logger:      logger,
	}
}

// Hooks returns the lifecycle hooks that feed the manager. Install them on every conversation.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnChange: func(_ context.Context, snap domain.Snapshot) {
			sm.Publish(snap)
		},
	}
}

// Subscribe registers a client for sessionID. The returned function unsubscribes it.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan []byte, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan []byte, 32)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan []byte]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

// Publish broadcasts the difference between snap and the previously published snapshot.
func (sm *StreamManager) Publish(snap domain.Snapshot) {
	sm.mu.Lock()
	var prev *domain.Snapshot
	if last, ok := sm.last[snap.ID]; ok {
		prev = &last
	}
	sm.last[snap.ID] = snap
	sm.mu.Unlock()

	diff := domain.Diff(prev, &snap)
	if diff == nil {
		return
	}
	payload, err := json.Marshal(Frame{Type: "diff", Data: diff})
	if err != nil {
		sm.logger.Error("failed to encode diff", "session_id", snap.ID, "error", err)
		return
	}
	sm.Broadcast(snap.ID, payload)
}

// Broadcast sends msg to every subscriber of sessionID. Slow clients lose messages.
func (sm *StreamManager) Broadcast(sessionID string, msg []byte) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("stream client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// Forget drops the state of a closed session and disconnects its clients.
func (sm *StreamManager) Forget(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.last, sessionID)
	for ch := range sm.subscribers[sessionID] {
		close(ch)
	}
	delete(sm.subscribers, sessionID)
}

// Subscribers returns the number of clients connected to sessionID.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}
