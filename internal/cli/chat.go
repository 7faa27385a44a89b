package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/internal/presentation/tui"
	"github.com/aretw0/concierge/pkg/domain"
)

const chatHelp = `Pick an option by number or by name. Once the search is done, type any question.
Commands: /vendor, /event (start over), /retry (reload options), /quit`

// Chat is the terminal front end of one conversation.
type Chat struct {
	in      io.Reader
	printer *tui.Printer

	changes chan domain.Snapshot

	lastID     int64 // last printed message
	optionsFor int64 // bot prompt whose options were printed
	waiting    bool  // a "loading options" note was printed
}

// NewChat creates a Chat reading lines from in. Install Hooks on the conversation before
// calling Run.
func NewChat(in io.Reader, printer *tui.Printer) *Chat {
	return &Chat{
		in:      in,
		printer: printer,
		changes: make(chan domain.Snapshot, 1),
	}
}

// Hooks forwards conversation changes to the chat loop. Only the latest pending snapshot is
// kept; the message log is append-only so nothing is lost.
func (c *Chat) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnChange: func(_ context.Context, snap domain.Snapshot) {
			for {
				select {
				case c.changes <- snap:
					return
				default:
				}
				select {
				case <-c.changes:
				default:
				}
			}
		},
	}
}

// Run starts conv on d and serves the terminal until the input ends, /quit is typed or ctx
// is cancelled.
func (c *Chat) Run(ctx context.Context, conv *concierge.Conversation, d domain.Domain) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := conv.Start(ctx, d); err != nil {
		return err
	}
	c.printer.Note("Type /help for commands.")

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-c.changes:
			c.show(snap)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := c.handle(ctx, conv, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

// show prints what changed since the last snapshot and, when the conversation waits for the
// user, the options and the input marker.
func (c *Chat) show(snap domain.Snapshot) {
	for _, m := range snap.Messages {
		if m.ID > c.lastID {
			c.printer.Message(m)
			c.lastID = m.ID
		}
	}

	if snap.Loading || snap.OptionsLocked {
		return
	}
	if snap.OptionsPending {
		if !c.waiting {
			c.printer.Note("Loading options…")
			c.waiting = true
		}
		return
	}
	c.waiting = false

	if snap.FlowState.Guided() && c.optionsFor != c.lastID {
		c.optionsFor = c.lastID
		if len(snap.Options) > 0 {
			c.printer.Options(snap.Options)
		} else {
			c.printer.Note("No options to show. Type your answer, or /retry to reload them.")
		}
	}
	c.printer.Prompt()
}

func (c *Chat) handle(ctx context.Context, conv *concierge.Conversation, line string) bool {
	if line == "" {
		return false
	}

	var err error
	switch strings.ToLower(line) {
	case "/quit", "/exit":
		return true
	case "/help":
		c.printer.Note(chatHelp)
		return false
	case "/retry":
		err = conv.RetryOptions(ctx)
	case "/vendor":
		err = conv.SwitchDomain(ctx, domain.DomainVendor)
	case "/event":
		err = conv.SwitchDomain(ctx, domain.DomainEvent)
	default:
		snap := conv.Snapshot()
		if snap.FlowState.Guided() {
			err = conv.SelectOption(ctx, pick(line, snap.Options))
		} else {
			err = conv.SubmitText(ctx, line)
		}
	}

	if err != nil {
		c.printer.Note("%s", describe(err))
		c.printer.Prompt()
	}
	return false
}

// pick resolves a 1-based option number; anything else is taken as the label itself.
func pick(line string, options []string) string {
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(options) {
		return line
	}
	return options[n-1]
}

func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrOptionsLocked), errors.Is(err, domain.ErrBusy), errors.Is(err, domain.ErrOptionsPending):
		return "One moment, please."
	case errors.Is(err, domain.ErrUnknownOption):
		return "Please pick one of the listed options."
	case errors.Is(err, domain.ErrTextNotAccepted):
		return "Please answer the question above first."
	case errors.Is(err, domain.ErrNotGuided):
		return "There is nothing to choose right now."
	default:
		return err.Error()
	}
}
