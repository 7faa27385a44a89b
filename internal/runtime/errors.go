package runtime

import (
	"fmt"

	"github.com/aretw0/concierge/pkg/domain"
)

// TransitionError reports a session whose state does not belong to its domain's table.
type TransitionError struct {
	Domain domain.Domain
	State  domain.FlowState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("state '%s' is not part of the %s flow", e.State, e.Domain)
}

// FlowError reports an invalid flow definition handed to NewMachine.
type FlowError struct {
	Domain domain.Domain
	Reason string
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("invalid %s flow: %s", e.Domain, e.Reason)
}
