package concierge

import (
	"github.com/aretw0/concierge/internal/runtime"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
)

// Flow is the ordered question sequence of one domain.
type Flow = runtime.Flow

// Step is one guided question of a Flow.
type Step = runtime.Step

// StaticOptions is an option list known up front.
type StaticOptions = runtime.StaticOptions

// Option labels of the marketplace catalog.
var (
	EventTypes  = StaticOptions{"Wedding", "Birthday", "Graduation", "Corporate Event", "Baby Shower", "Engagement"}
	GuestCounts = StaticOptions{"1 - 50", "50 - 100", "100 - 200", "200 - 500", "500+"}
	Budgets     = StaticOptions{
		"Under 100,000",
		"100,000 – 250,000",
		"250,000 – 500,000",
		"500,000 – 1,000,000",
		"1,000,000 – 5,000,000",
		"5,000,000+",
	}
	Locations = StaticOptions{"Addis Ababa", "Bahirdar", "Hawassa", "Gondar", "Adama", "Dire Dawa", "Mekelle"}
)

// DefaultFlows returns the marketplace question sequences.
// categories feeds the service-type question; nil leaves that question open to any label.
func DefaultFlows(categories ports.OptionSource) []Flow {
	return []Flow{
		{
			Domain: domain.DomainVendor,
			Steps: []Step{
				{State: domain.StateAskingService, Prompt: "Hi! What kind of service are you looking for?", Source: categories},
				{State: domain.StateAskingBudget, Prompt: "Great choice. What is your budget?", Source: Budgets},
				{State: domain.StateAskingLocation, Prompt: "Where do you need the service?", Source: Locations},
			},
		},
		{
			Domain: domain.DomainEvent,
			Steps: []Step{
				{State: domain.StateAskingEventType, Prompt: "Hi! What type of event are you planning?", Source: EventTypes},
				{State: domain.StateAskingGuests, Prompt: "How many guests are you expecting?", Source: GuestCounts},
				{State: domain.StateAskingLocation, Prompt: "Where will the event take place?", Source: Locations},
			},
		},
	}
}
