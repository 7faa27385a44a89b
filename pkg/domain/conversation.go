package domain

import (
	"fmt"
	"strings"
)

// Domain selects which question sequence and field set a conversation uses.
type Domain string

const (
	DomainVendor Domain = "vendor" // Find a vendor
	DomainEvent  Domain = "event"  // Get event-planning advice
)

// Domains lists every supported domain in display order.
var Domains = []Domain{DomainVendor, DomainEvent}

// ParseDomain maps user or wire input onto a Domain.
func ParseDomain(s string) (Domain, error) {
	switch Domain(strings.ToLower(strings.TrimSpace(s))) {
	case DomainVendor:
		return DomainVendor, nil
	case DomainEvent:
		return DomainEvent, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDomain, s)
}

// Valid reports whether d is one of the supported domains.
func (d Domain) Valid() bool {
	return d == DomainVendor || d == DomainEvent
}

// FlowState is the position inside a domain's question sequence.
type FlowState string

const (
	StateInitial         FlowState = "INITIAL" // Transient, before Start selects the domain's first state
	StateAskingEventType FlowState = "ASKING_EVENT_TYPE"
	StateAskingGuests    FlowState = "ASKING_GUEST_COUNT"
	StateAskingService   FlowState = "ASKING_SERVICE_TYPE"
	StateAskingBudget    FlowState = "ASKING_BUDGET"
	StateAskingLocation  FlowState = "ASKING_LOCATION"
	StateProcessing      FlowState = "PROCESSING" // Guided portion done; free text goes to follow-up queries
)

// Guided reports whether the state expects an option selection.
func (s FlowState) Guided() bool {
	switch s {
	case StateAskingEventType, StateAskingGuests, StateAskingService, StateAskingBudget, StateAskingLocation:
		return true
	}
	return false
}
