package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
)

// Step describes one guided question.
type Step struct {
	State  domain.FlowState
	Prompt string
	// Source yields the options of the question. Nil means free choice.
	Source ports.OptionSource
}

// Flow is the ordered question sequence of one domain.
type Flow struct {
	Domain domain.Domain
	Steps  []Step
}

// Outcome is the result of answering a guided question.
type Outcome struct {
	// Session is the advanced session. OptionsLocked is set: the caller releases it once
	// the prompt (or the dispatch) has been enqueued.
	Session domain.Session

	From domain.FlowState
	// Answer is the stored label, canonicalized to the offered option when one matched.
	Answer string

	// Prompt and Next describe the following question. Both are empty when Dispatch is set.
	Prompt string
	Next   Step

	// Dispatch is set when the answer completed the field set.
	Dispatch bool
}

// Machine is the dialogue state machine.
type Machine struct {
	steps map[domain.Domain]map[domain.FlowState]Step
}

// NewMachine validates the flows against the transition table.
func NewMachine(flows ...Flow) (*Machine, error) {
	m := &Machine{steps: make(map[domain.Domain]map[domain.FlowState]Step)}

	for _, flow := range flows {
		if !flow.Domain.Valid() {
			return nil, &FlowError{Domain: flow.Domain, Reason: "unknown domain"}
		}
		if _, dup := m.steps[flow.Domain]; dup {
			return nil, &FlowError{Domain: flow.Domain, Reason: "defined twice"}
		}

		seq := Sequence(flow.Domain)
		if len(flow.Steps) != len(seq) {
			return nil, &FlowError{Domain: flow.Domain, Reason: fmt.Sprintf("expected %d steps, got %d", len(seq), len(flow.Steps))}
		}

		byState := make(map[domain.FlowState]Step, len(seq))
		for i, step := range flow.Steps {
			if step.State != seq[i] {
				return nil, &FlowError{Domain: flow.Domain, Reason: fmt.Sprintf("step %d must be %s, got %s", i, seq[i], step.State)}
			}
			if strings.TrimSpace(step.Prompt) == "" {
				return nil, &FlowError{Domain: flow.Domain, Reason: fmt.Sprintf("step %s has no prompt", step.State)}
			}
			byState[step.State] = step
		}
		m.steps[flow.Domain] = byState
	}

	return m, nil
}

// Domains returns the domains this machine can run.
func (m *Machine) Domains() []domain.Domain {
	var out []domain.Domain
	for _, d := range domain.Domains {
		if _, ok := m.steps[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Step returns the definition of a guided state.
func (m *Machine) Step(d domain.Domain, state domain.FlowState) (Step, bool) {
	step, ok := m.steps[d][state]
	return step, ok
}

// Start resets the session onto the first question of d.
// Fields are cleared, guard flags released and the generation bumped.
func (m *Machine) Start(s domain.Session, d domain.Domain) (domain.Session, Step, error) {
	if _, ok := m.steps[d]; !ok {
		return s, Step{}, fmt.Errorf("%w: %q", domain.ErrUnknownDomain, d)
	}

	fields, err := domain.EmptyFields(d)
	if err != nil {
		return s, Step{}, err
	}

	first := m.steps[d][initial[d]]

	next := s.Clone()
	next.Generation++
	next.Domain = d
	next.FlowState = first.State
	next.Fields = fields
	next.Options = nil
	next.OptionsPending = false
	next.Loading = false
	next.OptionsLocked = false

	return next, first, nil
}

// Advance answers the current guided question with input.
func (m *Machine) Advance(s domain.Session, input string) (Outcome, error) {
	if s.Loading {
		return Outcome{}, domain.ErrBusy
	}
	if s.OptionsLocked {
		return Outcome{}, domain.ErrOptionsLocked
	}
	if !s.FlowState.Guided() {
		return Outcome{}, domain.ErrNotGuided
	}

	step, ok := m.steps[s.Domain][s.FlowState]
	if !ok || s.Fields == nil || s.Fields.Domain() != s.Domain {
		return Outcome{}, &TransitionError{Domain: s.Domain, State: s.FlowState}
	}

	answer, err := resolve(step, s, input)
	if err != nil {
		return Outcome{}, err
	}

	to, ok := next(s.Domain, s.FlowState)
	if !ok {
		return Outcome{}, &TransitionError{Domain: s.Domain, State: s.FlowState}
	}
	fields, ok := apply(s.Fields, s.FlowState, answer)
	if !ok {
		return Outcome{}, &TransitionError{Domain: s.Domain, State: s.FlowState}
	}

	advanced := s.Clone()
	advanced.Fields = fields
	advanced.FlowState = to
	advanced.Options = nil
	advanced.OptionsPending = false
	advanced.OptionsLocked = true

	out := Outcome{
		Session: advanced,
		From:    s.FlowState,
		Answer:  answer,
	}
	if to == domain.StateProcessing {
		out.Dispatch = true
		return out, nil
	}

	out.Next = m.steps[s.Domain][to]
	out.Prompt = out.Next.Prompt
	return out, nil
}

// resolve validates input against the options currently offered.
func resolve(step Step, s domain.Session, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", domain.ErrEmptyInput
	}
	if s.OptionsPending {
		return "", domain.ErrOptionsPending
	}

	if len(s.Options) == 0 {
		// A remote list that is empty (still loading or failed) cannot be answered.
		if step.Source != nil && !step.Source.Static() {
			return "", domain.ErrOptionsPending
		}
		return input, nil
	}

	for _, opt := range s.Options {
		if strings.EqualFold(strings.TrimSpace(opt), input) {
			return opt, nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownOption, input)
}
