package runtime

import (
	"github.com/aretw0/concierge/internal/normalize"
	"github.com/aretw0/concierge/pkg/domain"
)

// apply stores the answer of state into the field set.
// Numeric questions go through the normalizer; the rest are stored verbatim.
func apply(fields domain.Fields, state domain.FlowState, input string) (domain.Fields, bool) {
	switch f := fields.(type) {
	case domain.EventFields:
		switch state {
		case domain.StateAskingEventType:
			f.EventType = input
		case domain.StateAskingGuests:
			f.GuestCount = normalize.GuestCount(input)
		case domain.StateAskingLocation:
			f.Location = input
		default:
			return nil, false
		}
		return f, true

	case domain.VendorFields:
		switch state {
		case domain.StateAskingService:
			f.ServiceType = input
		case domain.StateAskingBudget:
			f.Budget = normalize.Budget(input)
		case domain.StateAskingLocation:
			f.Location = input
		default:
			return nil, false
		}
		return f, true
	}
	return nil, false
}
