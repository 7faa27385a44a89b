package runtime

import "github.com/aretw0/concierge/pkg/domain"

// transitions is the edge table of each domain. A state absent from a domain's table
// cannot be reached in that domain.
var transitions = map[domain.Domain]map[domain.FlowState]domain.FlowState{
	domain.DomainEvent: {
		domain.StateAskingEventType: domain.StateAskingGuests,
		domain.StateAskingGuests:    domain.StateAskingLocation,
		domain.StateAskingLocation:  domain.StateProcessing,
	},
	domain.DomainVendor: {
		domain.StateAskingService:  domain.StateAskingBudget,
		domain.StateAskingBudget:   domain.StateAskingLocation,
		domain.StateAskingLocation: domain.StateProcessing,
	},
}

// initial is the first guided state of each domain.
var initial = map[domain.Domain]domain.FlowState{
	domain.DomainEvent:  domain.StateAskingEventType,
	domain.DomainVendor: domain.StateAskingService,
}

// Sequence returns the guided states of a domain in order, excluding PROCESSING.
func Sequence(d domain.Domain) []domain.FlowState {
	state, ok := initial[d]
	if !ok {
		return nil
	}
	var seq []domain.FlowState
	for state != domain.StateProcessing {
		seq = append(seq, state)
		state = transitions[d][state]
	}
	return seq
}

// next returns the successor of state in the domain's table.
func next(d domain.Domain, state domain.FlowState) (domain.FlowState, bool) {
	to, ok := transitions[d][state]
	return to, ok
}
