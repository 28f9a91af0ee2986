package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/gchat/internal/bus"
)

// State is the daemon's view of its platform socket connection.
type State string

const (
	Booting      State = "BOOTING"
	Connecting   State = "CONNECTING"
	Connected    State = "CONNECTED"
	Reconnecting State = "RECONNECTING"
	Offline      State = "OFFLINE"
	Error        State = "ERROR"
)

// KindStatusChanged is published on every successful transition.
const KindStatusChanged = "gateway.status_changed"

var validTransitions = map[State][]State{
	Booting:      {Connecting, Offline, Error},
	Connecting:   {Connected, Reconnecting, Offline, Error},
	Connected:    {Reconnecting, Offline, Error},
	Reconnecting: {Connecting, Offline, Error},
	Offline:      {Connecting, Booting},
	Error:        {Booting, Offline},
}

// Machine tracks and enforces connection state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a machine in the Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// IsConnected reports whether the socket is usable.
func (m *Machine) IsConnected() bool {
	return m.Current() == Connected
}

// Transition moves to a new state, or returns an error if the move is not allowed.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.bus.Emit(KindStatusChanged, StatusChange{From: from, To: to})
	return nil
}

// StatusChange is the payload of status change events.
type StatusChange struct {
	From State `json:"from"`
	To   State `json:"to"`
}
