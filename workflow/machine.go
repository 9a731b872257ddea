package workflow

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/scanpool/scanpool/interfaces"
)

// events converts interfaces.WorkflowTransitions into looplab/fsm EventDesc
// format. Transitions sharing an event and destination are consolidated into
// one EventDesc with multiple source states, so the fail event collapses to a
// single entry covering every non-terminal state.
var events = buildEvents()

func buildEvents() []loopfsm.EventDesc {
	type key struct {
		event string
		dst   string
	}
	grouped := make(map[key][]string)
	order := make([]key, 0)

	for _, t := range interfaces.WorkflowTransitions {
		k := key{event: string(t.Event), dst: string(t.Dst)}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], string(t.Src))
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		out = append(out, loopfsm.EventDesc{
			Name: k.event,
			Src:  grouped[k],
			Dst:  k.dst,
		})
	}
	return out
}

// machine tracks one provisioning attempt through the workflow states.
// looplab/fsm is stateful, so every attempt owns a fresh machine initialized
// at StateCreated.
type machine struct {
	fsm *loopfsm.FSM
}

func newMachine() *machine {
	return &machine{fsm: loopfsm.NewFSM(string(interfaces.StateCreated), events, nil)}
}

// fire applies one event and returns the resulting state. An event that is
// not legal from the current state is reported as interfaces.TransitionError.
func (m *machine) fire(ctx context.Context, event interfaces.WorkflowEvent) (interfaces.ProvisioningState, error) {
	current := m.current()
	if err := m.fsm.Event(ctx, string(event)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &noTransition) {
			return "", &interfaces.TransitionError{Current: current, Event: event}
		}
		return "", err
	}
	return m.current(), nil
}

func (m *machine) current() interfaces.ProvisioningState {
	return interfaces.ProvisioningState(m.fsm.Current())
}
