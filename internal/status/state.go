package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/feedchat/feedchat/internal/bus"
)

// State is the client's view of the feed's reachability.
type State string

const (
	Booting     State = "BOOTING"
	Online      State = "ONLINE"
	Unreachable State = "UNREACHABLE"
	Stopped     State = "STOPPED"
)

var validTransitions = map[State][]State{
	Booting:     {Online, Unreachable, Stopped},
	Online:      {Unreachable, Stopped},
	Unreachable: {Online, Stopped},
	Stopped:     {},
}

// Machine tracks feed reachability and announces changes on the bus.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a machine in the Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{current: Booting, bus: b}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition moves to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(to)
}

// Observe records the outcome of a feed round trip. Repeating the current
// state is not a change and publishes nothing. Once stopped, it is ignored.
func (m *Machine) Observe(reachable bool) {
	to := Unreachable
	if reachable {
		to = Online
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == to || m.current == Stopped {
		return
	}
	_ = m.transitionLocked(to)
}

func (m *Machine) transitionLocked(to State) error {
	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Emit(bus.KindStatusChanged, StatusChange{From: from, To: to})
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
