package graph_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/internal/presentation/graph"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/stretchr/testify/assert"
)

type remoteSource struct{}

func (remoteSource) Options(context.Context) ([]string, error) { return []string{"Catering"}, nil }
func (remoteSource) Static() bool                             { return false }

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(concierge.DefaultFlows(remoteSource{}), nil)

	contains := []string{
		"graph TD\n",
		"subgraph vendor",
		"subgraph event",
		`vendor_initial(("vendor"))`,
		`event_asking_event_type[/"ASKING_EVENT_TYPE <br/> Hi! What type of event are you planning?"/]`,
		`vendor_initial -. "remote options" .-> vendor_asking_service_type`,
		`event_asking_guest_count -- "Addis Ababa, Bahirdar, Hawassa, Gondar, Adama, Dire Dawa, … (7)" --> event_asking_location`,
		`event_processing[["PROCESSING <br/> event search"]]`,
		"event_asking_location --> event_processing",
		`event_processing -. "follow-up" .-> event_processing`,
	}
	for _, want := range contains {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_FreeChoice(t *testing.T) {
	out := graph.GenerateMermaid(concierge.DefaultFlows(nil), nil)
	assert.Contains(t, out, `vendor_initial -- "any answer" --> vendor_asking_service_type`)
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	flows := concierge.DefaultFlows(nil)
	overlay := graph.Overlay(flows, domain.Snapshot{Session: domain.Session{
		Domain:    domain.DomainEvent,
		FlowState: domain.StateAskingLocation,
	}})
	assert.Equal(t, []domain.FlowState{domain.StateAskingEventType, domain.StateAskingGuests}, overlay.Answered)

	out := graph.GenerateMermaid(flows, overlay)
	assert.Contains(t, out, "class event_asking_event_type visited;")
	assert.Contains(t, out, "class event_asking_guest_count visited;")
	assert.Contains(t, out, "class event_asking_location current;")
	assert.Equal(t, 1, strings.Count(out, "current;"))
}

func TestOverlay_Processing(t *testing.T) {
	overlay := graph.Overlay(concierge.DefaultFlows(nil), domain.Snapshot{Session: domain.Session{
		Domain:    domain.DomainVendor,
		FlowState: domain.StateProcessing,
	}})
	assert.Len(t, overlay.Answered, 3)
	assert.Equal(t, domain.StateProcessing, overlay.CurrentNode)
}
