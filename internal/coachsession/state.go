package coachsession

import "sync"

type State string

const (
	StateConnecting  State = "connecting"
	StateOpen        State = "open"
	StateStreaming   State = "streaming"
	StateInterrupted State = "interrupted"
	StateClosed      State = "closed"
)

// legalTransitions encodes the session lifecycle: connecting -> open ->
// streaming <-> interrupted, with closed terminal from every state.
var legalTransitions = map[State][]State{
	StateConnecting:  {StateOpen, StateClosed},
	StateOpen:        {StateStreaming, StateClosed},
	StateStreaming:   {StateOpen, StateInterrupted, StateClosed},
	StateInterrupted: {StateOpen, StateClosed},
	StateClosed:      {},
}

type stateMachine struct {
	mu       sync.Mutex
	state    State
	onChange func(State)

	// notifyMu is acquired before mu is released so that onChange callbacks
	// are delivered one at a time, in transition order, without holding the
	// state lock during the callback.
	notifyMu sync.Mutex
}

func newStateMachine(onChange func(State)) *stateMachine {
	return &stateMachine{
		state:    StateConnecting,
		onChange: onChange,
	}
}

func (m *stateMachine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// transition moves to the target state if the lifecycle allows it. Illegal
// transitions are rejected, not panicked on; callbacks from an already-closed
// transport must not resurrect the session.
func (m *stateMachine) transition(to State) bool {
	m.mu.Lock()
	if m.state == to {
		m.mu.Unlock()
		return false
	}
	allowed := false
	for _, next := range legalTransitions[m.state] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		m.mu.Unlock()
		return false
	}
	m.state = to
	onChange := m.onChange
	m.notifyMu.Lock()
	m.mu.Unlock()

	if onChange != nil {
		onChange(to)
	}
	m.notifyMu.Unlock()
	return true
}
