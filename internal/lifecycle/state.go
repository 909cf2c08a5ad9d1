package lifecycle

// State is the lifecycle state of one component instance.
type State string

const (
	StateAbsent         State = "Absent"
	StateCreating       State = "Creating"
	StateHealthChecking State = "HealthChecking"
	StateHealthy        State = "Healthy"
	StateTimedOut       State = "TimedOut"
)

// StateChangeCallback is called when an instance changes state. err is the
// cause of a transition into StateTimedOut and nil otherwise.
type StateChangeCallback func(instance string, oldState, newState State, err error)

// State returns the last known state of an instance. Instances never seen
// are StateAbsent.
func (m *Manager) State(instance string) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.states[instance]; ok {
		return s
	}
	return StateAbsent
}

// SetStateChangeCallback sets the state change callback
func (m *Manager) SetStateChangeCallback(callback StateChangeCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateChangeCb = callback
}

// setState updates the state of an instance and notifies the callback
func (m *Manager) setState(instance string, newState State, err error) {
	m.mu.Lock()
	oldState, ok := m.states[instance]
	if !ok {
		oldState = StateAbsent
	}
	if newState == StateAbsent {
		delete(m.states, instance)
	} else {
		m.states[instance] = newState
	}
	callback := m.stateChangeCb
	m.mu.Unlock()

	// Call the callback outside of the lock to avoid deadlocks
	if callback != nil && oldState != newState {
		callback(instance, oldState, newState, err)
	}
}
