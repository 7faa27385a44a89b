package concierge

import (
	"log/slog"
	"time"

	"github.com/aretw0/concierge/internal/format"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
)

// Default timings.
const (
	DefaultAckDelay = 600 * time.Millisecond
	DefaultTimeout  = 30 * time.Second
)

// Texts are the fixed messages the conversation writes on its own.
type Texts struct {
	// Apology replaces the answer of a failed remote query.
	Apology string
	// VendorSearch and EventSearch are posted as info notes when a query starts.
	VendorSearch string
	EventSearch  string
}

// DefaultTexts returns the marketplace wording.
func DefaultTexts() Texts {
	return Texts{
		Apology:      "Sorry, something went wrong while contacting the marketplace. Please try again in a moment.",
		VendorSearch: "Searching for vendors…",
		EventSearch:  "Putting together your event plan…",
	}
}

func (t Texts) searching(d domain.Domain) string {
	if d == domain.DomainVendor {
		return t.VendorSearch
	}
	return t.EventSearch
}

// Option defines a functional option for configuring the Conversation.
type Option func(*Conversation)

// WithDispatcher sets the backend used for queries and follow-ups. Required.
func WithDispatcher(d ports.Dispatcher) Option {
	return func(c *Conversation) {
		c.dispatcher = d
	}
}

// WithFlows replaces the default question sequences.
func WithFlows(flows ...Flow) Option {
	return func(c *Conversation) {
		c.flows = flows
	}
}

// WithCategories sets the option source of the vendor service question.
// It is ignored when WithFlows is used.
func WithCategories(src ports.OptionSource) Option {
	return func(c *Conversation) {
		c.categories = src
	}
}

// WithFormatter overrides the response formatter.
func WithFormatter(f *format.Formatter) Option {
	return func(c *Conversation) {
		c.formatter = f
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conversation) {
		c.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Conversation) {
		c.hooks = hooks
	}
}

// WithAckDelay sets the pause between an answer and the next prompt (or query).
// Zero posts the prompt in the same call.
func WithAckDelay(d time.Duration) Option {
	return func(c *Conversation) {
		c.ackDelay = d
	}
}

// WithTimeout bounds every remote query. Expiry is treated like any other network failure.
func WithTimeout(d time.Duration) Option {
	return func(c *Conversation) {
		c.timeout = d
	}
}

// WithTexts overrides the fixed messages.
func WithTexts(t Texts) Option {
	return func(c *Conversation) {
		c.texts = t
	}
}

// WithSessionID sets the session identifier (default: a fresh UUIDv7).
func WithSessionID(id string) Option {
	return func(c *Conversation) {
		c.id = id
	}
}
