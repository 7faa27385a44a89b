package domain

import "errors"

// Validation errors: the action is ignored and nothing is written to the message log.
var (
	// ErrOptionsLocked is returned when an option is selected during the acknowledgment delay.
	ErrOptionsLocked = errors.New("options are locked")
	// ErrBusy is returned while a remote query is outstanding.
	ErrBusy = errors.New("a remote query is in flight")
	// ErrTextNotAccepted is returned when free text arrives before the guided questions are done.
	ErrTextNotAccepted = errors.New("free text is not accepted in the current state")
	// ErrOptionsPending is returned while the option list of the current state is still loading.
	ErrOptionsPending = errors.New("options are still loading")
	// ErrNotGuided is returned when an option is selected outside a guided state.
	ErrNotGuided = errors.New("the current state does not take an option")
	// ErrUnknownOption is returned when the selected label is not among the offered options.
	ErrUnknownOption = errors.New("option is not offered")
	// ErrEmptyInput is returned for blank selections or messages.
	ErrEmptyInput = errors.New("input is empty")
)

// ErrUnknownDomain is returned for domains other than vendor and event.
var ErrUnknownDomain = errors.New("unknown domain")

// ErrClosed is returned by a conversation that has been closed.
var ErrClosed = errors.New("conversation closed")

// ErrSessionNotFound is returned when a session ID cannot be found.
var ErrSessionNotFound = errors.New("session not found")

// IsValidation reports whether err is a validation failure that callers should ignore silently.
func IsValidation(err error) bool {
	return errors.Is(err, ErrOptionsLocked) ||
		errors.Is(err, ErrBusy) ||
		errors.Is(err, ErrTextNotAccepted) ||
		errors.Is(err, ErrOptionsPending) ||
		errors.Is(err, ErrNotGuided) ||
		errors.Is(err, ErrUnknownOption) ||
		errors.Is(err, ErrEmptyInput)
}
