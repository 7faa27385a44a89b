package concierge_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/pkg/domain"
)

// plannerStub answers every event query with the same advice.
type plannerStub struct{}

func (plannerStub) Query(context.Context, domain.Fields) (domain.Response, error) {
	return domain.EventAdvice{Steps: []string{"Book the venue", "Hire a photographer"}}, nil
}

func (plannerStub) FollowUp(context.Context, domain.Fields, string) (string, error) {
	return "Live music works well for weddings.", nil
}

// ExampleNew walks the event flow with an in-process dispatcher. Real hosts pass the
// backend client from pkg/adapters/backend instead.
func ExampleNew() {
	conv, err := concierge.New(
		concierge.WithDispatcher(plannerStub{}),
		concierge.WithAckDelay(0),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer conv.Close()

	ctx := context.Background()
	if err := conv.Start(ctx, domain.DomainEvent); err != nil {
		log.Fatal(err)
	}
	for _, answer := range []string{"wedding", "50 - 100", "Bahirdar"} {
		if err := conv.SelectOption(ctx, answer); err != nil {
			log.Fatal(err)
		}
	}

	snap := exampleWaitIdle(conv)
	fmt.Println(snap.FlowState)
	fmt.Printf("%+v\n", snap.Fields)
	for _, m := range snap.Messages {
		fmt.Printf("[%s] %s\n", m.Author, m.Text)
	}

	// Output:
	// PROCESSING
	// {EventType:Wedding GuestCount:75 Location:Bahirdar}
	// [bot] Hi! What type of event are you planning?
	// [user] Wedding
	// [bot] How many guests are you expecting?
	// [user] 50 - 100
	// [bot] Where will the event take place?
	// [user] Bahirdar
	// [info] Putting together your event plan…
	// [bot] Planning steps:
	// 1. Book the venue
	// 2. Hire a photographer
}

// ExampleConversation_SelectOption shows that answers outside the offered options are
// refused without changing the session.
func ExampleConversation_SelectOption() {
	conv, err := concierge.New(
		concierge.WithDispatcher(plannerStub{}),
		concierge.WithAckDelay(0),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer conv.Close()

	ctx := context.Background()
	_ = conv.Start(ctx, domain.DomainEvent)

	err = conv.SelectOption(ctx, "Picnic")
	fmt.Println(domain.IsValidation(err))
	fmt.Println(conv.Snapshot().FlowState)
	fmt.Println(conv.Snapshot().Options)

	// Output:
	// true
	// ASKING_EVENT_TYPE
	// [Wedding Birthday Graduation Corporate Event Baby Shower Engagement]
}

func exampleWaitIdle(conv *concierge.Conversation) domain.Snapshot {
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := conv.Snapshot()
		if !snap.Loading || time.Now().After(deadline) {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
}
