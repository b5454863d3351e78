package coachsession

import (
	"sync"
	"testing"
)

func TestStateMachine_InitialState(t *testing.T) {
	m := newStateMachine(nil)
	if m.State() != StateConnecting {
		t.Errorf("expected initial state %s, got %s", StateConnecting, m.State())
	}
}

func TestStateMachine_LifecyclePath(t *testing.T) {
	m := newStateMachine(nil)
	path := []State{StateOpen, StateStreaming, StateInterrupted, StateOpen, StateStreaming, StateOpen, StateClosed}
	for i, to := range path {
		if !m.transition(to) {
			t.Fatalf("step %d: transition to %s rejected from %s", i, to, m.State())
		}
	}
	if m.State() != StateClosed {
		t.Errorf("expected final state %s, got %s", StateClosed, m.State())
	}
}

func TestStateMachine_IllegalTransitionsAreNoOps(t *testing.T) {
	tests := []struct {
		name string
		path []State
		to   State
	}{
		{"connecting to streaming", nil, StateStreaming},
		{"connecting to interrupted", nil, StateInterrupted},
		{"open to interrupted", []State{StateOpen}, StateInterrupted},
		{"interrupted to streaming", []State{StateOpen, StateStreaming, StateInterrupted}, StateStreaming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newStateMachine(nil)
			for _, s := range tt.path {
				if !m.transition(s) {
					t.Fatalf("setup transition to %s failed", s)
				}
			}
			before := m.State()
			if m.transition(tt.to) {
				t.Errorf("transition %s -> %s should be rejected", before, tt.to)
			}
			if m.State() != before {
				t.Errorf("state changed from %s to %s on rejected transition", before, m.State())
			}
		})
	}
}

func TestStateMachine_ClosedIsTerminal(t *testing.T) {
	m := newStateMachine(nil)
	m.transition(StateOpen)
	m.transition(StateClosed)

	for _, to := range []State{StateConnecting, StateOpen, StateStreaming, StateInterrupted} {
		if m.transition(to) {
			t.Errorf("closed session transitioned to %s", to)
		}
	}
}

func TestStateMachine_ClosedFromEveryState(t *testing.T) {
	paths := map[string][]State{
		"connecting":  nil,
		"open":        {StateOpen},
		"streaming":   {StateOpen, StateStreaming},
		"interrupted": {StateOpen, StateStreaming, StateInterrupted},
	}
	for name, path := range paths {
		t.Run(name, func(t *testing.T) {
			m := newStateMachine(nil)
			for _, s := range path {
				m.transition(s)
			}
			if !m.transition(StateClosed) {
				t.Errorf("close from %s rejected", name)
			}
		})
	}
}

func TestStateMachine_ConcurrentTransitionsDeliverInOrder(t *testing.T) {
	// Callbacks are serialized in transition order, so a plain slice append is
	// safe here and the race detector will catch any regression.
	var seen []State
	m := newStateMachine(func(s State) { seen = append(seen, s) })
	m.transition(StateOpen)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.transition(StateStreaming)
				m.transition(StateOpen)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.transition(StateClosed)
	}()
	wg.Wait()

	if len(seen) == 0 || seen[len(seen)-1] != StateClosed {
		t.Fatalf("expected %s delivered last, got %v", StateClosed, seen)
	}
	for i, st := range seen[:len(seen)-1] {
		if st == StateClosed {
			t.Fatalf("%s delivered at position %d with %d events after it", StateClosed, i, len(seen)-1-i)
		}
	}
}

func TestStateMachine_OnChangeFiresOnlyOnRealTransitions(t *testing.T) {
	var seen []State
	m := newStateMachine(func(s State) { seen = append(seen, s) })

	m.transition(StateOpen)
	m.transition(StateOpen)        // same state
	m.transition(StateInterrupted) // illegal from open
	m.transition(StateStreaming)

	want := []State{StateOpen, StateStreaming}
	if len(seen) != len(want) {
		t.Fatalf("expected %d notifications, got %d: %v", len(want), len(seen), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("notification %d: expected %s, got %s", i, want[i], seen[i])
		}
	}
}
