/*
Package concierge is the conversational flow engine behind the marketplace chat assistant.

It offers two guided services, finding a vendor and getting event-planning advice, and
drives each of them as a deterministic state machine: an ordered sequence of questions
whose answers are normalized into typed fields and then sent to the matching backend.

# Concept

A Conversation owns exactly one Session and its message log. Inputs arrive through
SelectOption (answers to guided questions) and SubmitText (free text once the questions are
done). At most one transition is in flight at a time: an answered question locks the options
until the next prompt has been posted, and a remote query marks the session as loading until
its reply has been formatted and appended.

Side effects are isolated behind ports: the Dispatcher talks to the backends, OptionSources
yield the option labels, and LifecycleHooks let hosts (HTTP, MCP, CLI, metrics, archive)
observe every message, transition and dispatch.

# Usage

	conv, err := concierge.New(
		concierge.WithDispatcher(backend.New(cfg.Backend.BaseURL)),
		concierge.WithCategories(categories),
		concierge.WithLogger(logger),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer conv.Close()

	ctx := context.Background()
	if err := conv.Start(ctx, domain.DomainEvent); err != nil {
		log.Fatal(err)
	}

	// Answers are ignored (with a validation error) while a previous one is still settling.
	if err := conv.SelectOption(ctx, "Wedding"); err != nil && !domain.IsValidation(err) {
		log.Fatal(err)
	}

	for _, msg := range conv.Snapshot().Messages {
		fmt.Println(msg.Author, msg.Text)
	}
*/
package concierge
