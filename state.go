package enginesim

import (
	"sync"
)

// nominal startup values
const (
	DefaultCoolantTemperature        = 15
	DefaultEngineSpeed               = 0
	DefaultAmbientAirTemperature     = -40
	DefaultIntakeManifoldTemperature = -40
)

type StateSnapshot struct {
	Values  [numSignals]int
	Enabled [numSignals]bool
}

func DefaultSnapshot() StateSnapshot {
	return StateSnapshot{
		Values: [numSignals]int{
			DefaultCoolantTemperature,
			DefaultEngineSpeed,
			DefaultAmbientAirTemperature,
			DefaultIntakeManifoldTemperature,
		},
		Enabled: [numSignals]bool{true, true, true, true},
	}
}

// TransmitterState holds the per-signal values and enabled flags shared
// between the controlling caller and the transmission loop.
type TransmitterState struct {
	mu   sync.RWMutex
	snap StateSnapshot
}

func NewTransmitterState(initial StateSnapshot) *TransmitterState {
	return &TransmitterState{
		snap: initial,
	}
}

func (st *TransmitterState) Value(s Signal) int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snap.Values[s]
}

func (st *TransmitterState) SetValue(s Signal, v int) {
	st.mu.Lock()
	st.snap.Values[s] = v
	st.mu.Unlock()
}

func (st *TransmitterState) Enabled(s Signal) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snap.Enabled[s]
}

func (st *TransmitterState) SetEnabled(s Signal, enabled bool) {
	st.mu.Lock()
	st.snap.Enabled[s] = enabled
	st.mu.Unlock()
}

func (st *TransmitterState) Snapshot() StateSnapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snap
}
