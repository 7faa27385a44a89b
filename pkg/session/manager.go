package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/google/uuid"
)

// ErrTooManySessions is returned by Open when the session limit is reached.
var ErrTooManySessions = errors.New("too many open sessions")

// Factory builds the conversation of a new session.
type Factory func(id string) (*concierge.Conversation, error)

// Info describes a live session.
type Info struct {
	ID        string           `json:"id"`
	Domain    domain.Domain    `json:"domain"`
	FlowState domain.FlowState `json:"flow_state"`
	Loading   bool             `json:"loading"`
	Messages  int              `json:"messages"`
	CreatedAt time.Time        `json:"created_at"`
	LastSeen  time.Time        `json:"last_seen"`
}

type entry struct {
	conv      *concierge.Conversation
	createdAt time.Time
	lastSeen  time.Time
}

// Manager orchestrates the live conversations.
// Safe for concurrent use.
type Manager struct {
	factory Factory

	mu      sync.Mutex
	entries map[string]*entry
	pending int // slots reserved by Open calls still building their conversation

	max     int
	onClose []func(id string)
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMaxSessions caps the number of live sessions (0 means unlimited).
func WithMaxSessions(n int) Option {
	return func(m *Manager) {
		m.max = n
	}
}

// WithOnClose registers fn to run after a session is discarded, whether by Close, Reap or
// CloseAll. fn runs outside the Manager's lock.
func WithOnClose(fn func(id string)) Option {
	return func(m *Manager) {
		m.onClose = append(m.onClose, fn)
	}
}

// NewManager creates a new Session Manager that builds conversations with factory.
func NewManager(factory Factory, opts ...Option) *Manager {
	m := &Manager{
		factory: factory,
		entries: make(map[string]*entry),
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open creates a session and starts it on domain d.
func (m *Manager) Open(ctx context.Context, d domain.Domain) (*concierge.Conversation, error) {
	if !d.Valid() {
		return nil, domain.ErrUnknownDomain
	}

	m.mu.Lock()
	if m.max > 0 && len(m.entries)+m.pending >= m.max {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	m.pending++
	m.mu.Unlock()

	id := uuid.Must(uuid.NewV7()).String()
	conv, err := m.factory(id)
	if err == nil {
		if err = conv.Start(ctx, d); err != nil {
			_ = conv.Close()
		}
	}

	now := m.now()
	m.mu.Lock()
	m.pending--
	if err == nil {
		m.entries[id] = &entry{conv: conv, createdAt: now, lastSeen: now}
	}
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}

	m.logger.Info("session opened", "session_id", id, "domain", d)
	return conv, nil
}

// Get returns a live session and marks it as seen.
func (m *Manager) Get(id string) (*concierge.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	e.lastSeen = m.now()
	return e.conv, nil
}

// Touch marks a session as seen without returning it. Stream adapters call it for every
// inbound action so an active stream is never reaped.
func (m *Manager) Touch(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	e.lastSeen = m.now()
	return nil
}

// Close discards a session.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	delete(m.entries, id)
	m.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	m.logger.Info("session closed", "session_id", id)
	err := e.conv.Close()
	m.closed(id)
	return err
}

// List describes every live session, oldest first.
func (m *Manager) List() []Info {
	m.mu.Lock()
	type item struct {
		conv      *concierge.Conversation
		createdAt time.Time
		lastSeen  time.Time
	}
	items := make([]item, 0, len(m.entries))
	for _, e := range m.entries {
		items = append(items, item{e.conv, e.createdAt, e.lastSeen})
	}
	m.mu.Unlock()

	infos := make([]Info, 0, len(items))
	for _, it := range items {
		snap := it.conv.Snapshot()
		infos = append(infos, Info{
			ID:        snap.ID,
			Domain:    snap.Domain,
			FlowState: snap.FlowState,
			Loading:   snap.Loading,
			Messages:  len(snap.Messages),
			CreatedAt: it.createdAt,
			LastSeen:  it.lastSeen,
		})
	}
	// UUIDv7 ids sort by creation time.
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Reap closes the sessions not seen for longer than idle and returns how many were closed.
func (m *Manager) Reap(idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	expired := make(map[string]*entry)
	for id, e := range m.entries {
		if e.lastSeen.Before(cutoff) {
			expired[id] = e
			delete(m.entries, id)
		}
	}
	m.mu.Unlock()

	for id, e := range expired {
		_ = e.conv.Close()
		m.closed(id)
	}
	if len(expired) > 0 {
		m.logger.Info("reaped idle sessions", "count", len(expired))
	}
	return len(expired)
}

// Run reaps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Reap(idle)
		}
	}
}

// CloseAll discards every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	entries := m.entries
	m.entries = make(map[string]*entry)
	m.mu.Unlock()

	for id, e := range entries {
		_ = e.conv.Close()
		m.closed(id)
	}
}

func (m *Manager) closed(id string) {
	for _, fn := range m.onClose {
		fn(id)
	}
}
