package concierge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/concierge/internal/format"
	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/internal/normalize"
	"github.com/aretw0/concierge/internal/runtime"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/google/uuid"
)

// Conversation drives one chat session: it owns the Session, its message log and the
// single in-flight transition or remote query.
//
// All methods are safe for concurrent use. Hooks are delivered in mutation order, outside the
// internal lock, and must not call back into the Conversation.
type Conversation struct {
	id         string
	dispatcher ports.Dispatcher
	flows      []Flow
	categories ports.OptionSource
	formatter  *format.Formatter
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	texts      Texts
	ackDelay   time.Duration
	timeout    time.Duration
	now        func() time.Time

	machine *runtime.Machine

	mu       sync.Mutex
	session  domain.Session
	log      *domain.Log
	closed   bool
	timer    *time.Timer
	inflight context.CancelFunc
	queue    []func()

	// base lives as long as the conversation; background work derives from it.
	base context.Context
	stop context.CancelFunc

	emitMu sync.Mutex
}

// New creates a Conversation in the INITIAL state. Call Start to post the first prompt.
func New(opts ...Option) (*Conversation, error) {
	c := &Conversation{
		texts:    DefaultTexts(),
		ackDelay: DefaultAckDelay,
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.dispatcher == nil {
		return nil, errors.New("a dispatcher is required")
	}
	if c.ackDelay < 0 {
		return nil, fmt.Errorf("negative acknowledgment delay: %s", c.ackDelay)
	}
	if c.flows == nil {
		c.flows = DefaultFlows(c.categories)
	}
	if c.formatter == nil {
		c.formatter = format.New()
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	if c.id == "" {
		c.id = uuid.Must(uuid.NewV7()).String()
	}

	machine, err := runtime.NewMachine(c.flows...)
	if err != nil {
		return nil, err
	}
	c.machine = machine

	c.logger = c.logger.With("session_id", c.id)
	c.session = domain.NewSession(c.id)
	c.log = domain.NewLog()
	c.base, c.stop = context.WithCancel(context.Background())

	return c, nil
}

// ID returns the session identifier.
func (c *Conversation) ID() string {
	return c.id
}

// Domains returns the domains this conversation can be switched to.
func (c *Conversation) Domains() []domain.Domain {
	return c.machine.Domains()
}

// Flows returns the question sequences the conversation was built with.
func (c *Conversation) Flows() []Flow {
	return slices.Clone(c.flows)
}

// Start opens the chat on domain d and posts its first prompt.
// It is the same reset as SwitchDomain and exists for hosts that open the widget.
func (c *Conversation) Start(ctx context.Context, d domain.Domain) error {
	return c.SwitchDomain(ctx, d)
}

// SwitchDomain discards the current session, clears the message log and restarts on d.
// An outstanding query is canceled and its result, should it still arrive, is dropped.
func (c *Conversation) SwitchDomain(ctx context.Context, d domain.Domain) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrClosed
	}

	prev := c.session
	next, step, err := c.machine.Start(prev, d)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	c.cancelPending()
	c.session = next
	c.log.Reset()
	c.addMessage(ctx, domain.AuthorBot, step.Prompt)
	c.transitioned(ctx, prev.FlowState, "")
	c.offer(ctx, step)
	c.changed(ctx)
	c.mu.Unlock()

	c.logger.Debug("domain selected", "domain", d, "generation", next.Generation)
	c.flush()
	return nil
}

// SelectOption answers the current guided question with an offered label.
//
// Validation failures (options locked, query in flight, label not offered, wrong state) are
// returned as errors matching domain.IsValidation and leave the conversation untouched.
func (c *Conversation) SelectOption(ctx context.Context, value string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrClosed
	}

	out, err := c.machine.Advance(c.session, value)
	if err != nil {
		state := c.session.FlowState
		c.mu.Unlock()
		c.logger.Debug("option ignored", "value", value, "state", state, "error", err)
		return err
	}

	c.session = out.Session
	c.addMessage(ctx, domain.AuthorUser, out.Answer)
	c.transitioned(ctx, out.From, out.Answer)
	c.changed(ctx)

	if c.ackDelay == 0 {
		c.settle(ctx, out)
	} else {
		gen := c.session.Generation
		c.timer = time.AfterFunc(c.ackDelay, func() {
			c.mu.Lock()
			if c.closed || c.session.Generation != gen {
				c.mu.Unlock()
				return
			}
			c.timer = nil
			c.settle(c.base, out)
			c.mu.Unlock()
			c.flush()
		})
	}
	c.mu.Unlock()

	c.flush()
	return nil
}

// SubmitText sends free text as a follow-up question. It is only accepted once the guided
// questions are done.
func (c *Conversation) SubmitText(ctx context.Context, text string) error {
	clean, err := normalize.SanitizeText(text)
	if err != nil {
		return err
	}
	if clean == "" {
		return domain.ErrEmptyInput
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrClosed
	}
	if c.session.Loading {
		c.mu.Unlock()
		return domain.ErrBusy
	}
	if c.session.OptionsLocked {
		// The query of the last answer has not started yet.
		c.mu.Unlock()
		return domain.ErrOptionsLocked
	}
	if c.session.FlowState != domain.StateProcessing {
		c.mu.Unlock()
		return domain.ErrTextNotAccepted
	}

	c.addMessage(ctx, domain.AuthorUser, clean)
	c.dispatch(ctx, domain.DispatchFollowUp, clean)
	c.changed(ctx)
	c.mu.Unlock()

	c.flush()
	return nil
}

// RetryOptions queries the option source of the current question again. It is the way out
// of an empty service list after a failed category fetch.
func (c *Conversation) RetryOptions(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrClosed
	}
	switch {
	case !c.session.FlowState.Guided():
		c.mu.Unlock()
		return domain.ErrNotGuided
	case c.session.OptionsLocked:
		c.mu.Unlock()
		return domain.ErrOptionsLocked
	case c.session.OptionsPending:
		c.mu.Unlock()
		return domain.ErrOptionsPending
	}

	step, ok := c.machine.Step(c.session.Domain, c.session.FlowState)
	if !ok {
		c.mu.Unlock()
		return &runtime.TransitionError{Domain: c.session.Domain, State: c.session.FlowState}
	}
	c.offer(ctx, step)
	c.changed(ctx)
	c.mu.Unlock()

	c.flush()
	return nil
}

// Snapshot returns a copy of the session and its messages.
func (c *Conversation) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Close discards the session. Pending prompts are dropped and an outstanding query is
// canceled. Close is idempotent.
func (c *Conversation) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.cancelPending()
	c.stop()
	return nil
}

// settle runs once the acknowledgment delay has passed: it either posts the next prompt or
// starts the query. The caller holds c.mu.
func (c *Conversation) settle(ctx context.Context, out runtime.Outcome) {
	c.session.OptionsLocked = false

	if out.Dispatch {
		c.addMessage(ctx, domain.AuthorInfo, c.texts.searching(c.session.Domain))
		c.dispatch(ctx, domain.DispatchQuery, "")
		c.changed(ctx)
		return
	}

	c.addMessage(ctx, domain.AuthorBot, out.Prompt)
	c.offer(ctx, out.Next)
	c.changed(ctx)
}

// offer loads the options of step into the session. Remote sources are queried in the
// background with the session marked as pending. The caller holds c.mu.
func (c *Conversation) offer(ctx context.Context, step Step) {
	c.session.Options = nil
	c.session.OptionsPending = false
	if step.Source == nil {
		return
	}

	if step.Source.Static() {
		opts, err := step.Source.Options(ctx)
		if err != nil {
			c.logger.Warn("static options failed", "state", step.State, "error", err)
			return
		}
		c.session.Options = opts
		return
	}

	c.session.OptionsPending = true
	gen := c.session.Generation
	fetchCtx := c.startInflight()

	go func() {
		opts, err := step.Source.Options(fetchCtx)

		c.mu.Lock()
		if c.closed || c.session.Generation != gen || c.session.FlowState != step.State {
			c.mu.Unlock()
			return
		}
		c.inflight = nil
		c.session.OptionsPending = false
		if err != nil {
			c.logger.Warn("failed to load options", "domain", c.session.Domain, "state", step.State, "error", err)
			c.session.Options = nil
		} else {
			c.session.Options = opts
		}
		c.changed(c.base)
		c.mu.Unlock()

		c.flush()
	}()
}

// dispatch marks the session as loading and runs the remote call in the background.
// The caller holds c.mu.
func (c *Conversation) dispatch(ctx context.Context, kind domain.DispatchKind, text string) {
	c.session.Loading = true
	gen := c.session.Generation
	fields := c.session.Fields
	d := c.session.Domain

	callCtx := c.startInflight()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, c.timeout)
		parent := c.inflight
		c.inflight = func() {
			cancel()
			parent()
		}
	}
	cancelCall := c.inflight

	started := c.now()
	event := domain.DispatchEvent{
		EventBase: c.eventBase(domain.EventDispatch, started),
		Domain:    d,
		Kind:      kind,
		Fields:    fields,
		Text:      text,
	}
	c.enqueue(func() {
		if c.hooks.OnDispatch != nil {
			e := event
			c.hooks.OnDispatch(ctx, &e)
		}
	})

	go func() {
		defer cancelCall()

		reply, err := c.call(callCtx, kind, fields, text)
		finished := c.now()

		ret := event
		ret.EventBase = domain.EventBase{
			Timestamp:  finished,
			Type:       domain.EventDispatchReturn,
			SessionID:  c.id,
			Generation: gen,
		}
		ret.Duration = finished.Sub(started)
		if err != nil {
			ret.IsError = true
			ret.Error = err.Error()
		}

		c.mu.Lock()
		if c.closed || c.session.Generation != gen {
			ret.Stale = true
			c.enqueue(func() { c.returned(&ret) })
			c.mu.Unlock()
			c.logger.Debug("dropped stale result", "domain", d, "generation", gen)
			c.flush()
			return
		}

		c.inflight = nil
		c.session.Loading = false
		if err != nil {
			c.logger.Warn("remote query failed", "domain", d, "kind", kind, "generation", gen, "error", err)
			reply = c.texts.Apology
		}
		c.addMessage(c.base, domain.AuthorBot, reply)
		c.enqueue(func() { c.returned(&ret) })
		c.changed(c.base)
		c.mu.Unlock()

		c.flush()
	}()
}

// call performs the remote request and turns its result into message text.
func (c *Conversation) call(ctx context.Context, kind domain.DispatchKind, fields domain.Fields, text string) (string, error) {
	if kind == domain.DispatchFollowUp {
		reply, err := c.dispatcher.FollowUp(ctx, fields, text)
		if err != nil {
			return "", err
		}
		if reply == "" {
			return "", errors.New("empty follow-up reply")
		}
		return reply, nil
	}

	resp, err := c.dispatcher.Query(ctx, fields)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Domain() != fields.Domain() {
		return "", fmt.Errorf("unexpected response %T for %s query", resp, fields.Domain())
	}
	return c.formatter.Render(resp), nil
}

func (c *Conversation) returned(e *domain.DispatchEvent) {
	if c.hooks.OnDispatchReturn != nil {
		c.hooks.OnDispatchReturn(c.base, e)
	}
}

// startInflight cancels the previous background call and returns the context of the next.
// The caller holds c.mu.
func (c *Conversation) startInflight() context.Context {
	if c.inflight != nil {
		c.inflight()
	}
	ctx, cancel := context.WithCancel(c.base)
	c.inflight = cancel
	return ctx
}

// cancelPending stops the acknowledgment timer and the background call. The caller holds c.mu.
func (c *Conversation) cancelPending() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.inflight != nil {
		c.inflight()
		c.inflight = nil
	}
}

func (c *Conversation) snapshot() domain.Snapshot {
	return domain.Snapshot{
		Session:  c.session.Clone(),
		Messages: c.log.Messages(),
	}
}

func (c *Conversation) eventBase(t domain.EventType, at time.Time) domain.EventBase {
	return domain.EventBase{
		Timestamp:  at,
		Type:       t,
		SessionID:  c.id,
		Generation: c.session.Generation,
	}
}

// addMessage appends to the log and queues the message hook. The caller holds c.mu.
func (c *Conversation) addMessage(ctx context.Context, author domain.Author, text string) {
	msg := c.log.Add(author, text)
	event := &domain.MessageEvent{
		EventBase: c.eventBase(domain.EventMessage, msg.CreatedAt),
		Message:   msg,
	}
	c.enqueue(func() {
		if c.hooks.OnMessage != nil {
			c.hooks.OnMessage(ctx, event)
		}
	})
}

// transitioned queues the transition hook for the state the session is now in. The caller holds c.mu.
func (c *Conversation) transitioned(ctx context.Context, from domain.FlowState, input string) {
	event := &domain.TransitionEvent{
		EventBase: c.eventBase(domain.EventTransition, c.now()),
		Domain:    c.session.Domain,
		From:      from,
		To:        c.session.FlowState,
		Input:     input,
	}
	c.enqueue(func() {
		if c.hooks.OnTransition != nil {
			c.hooks.OnTransition(ctx, event)
		}
	})
}

// changed queues the snapshot hook. The caller holds c.mu.
func (c *Conversation) changed(ctx context.Context) {
	if c.hooks.OnChange == nil {
		return
	}
	snap := c.snapshot()
	c.enqueue(func() {
		c.hooks.OnChange(ctx, snap)
	})
}

func (c *Conversation) enqueue(fn func()) {
	c.queue = append(c.queue, fn)
}

// flush delivers queued hooks in order. It must be called without holding c.mu.
func (c *Conversation) flush() {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	queue := c.queue
	c.queue = nil
	c.mu.Unlock()

	for _, fn := range queue {
		fn()
	}
}
