package enginesim

import (
	"github.com/pkg/errors"
	"strings"
)

type Signal int

// Signals are transmitted in declaration order every cycle.
const (
	CoolantTemperature Signal = iota
	EngineSpeed
	AmbientAirTemperature
	IntakeManifoldTemperature

	numSignals = iota
)

var Signals = [numSignals]Signal{
	CoolantTemperature,
	EngineSpeed,
	AmbientAirTemperature,
	IntakeManifoldTemperature,
}

var ErrUnknownSignal = errors.New("unknown signal")

const (
	idCoolantTemperature        uint32 = 0x18FEEE00
	idEngineSpeed                      = 0x0CF00400
	idAmbientAirTemperature            = 0x18FEF559
	idIntakeManifoldTemperature        = 0x18FEF600

	// 29-bit extended identifier
	maskExtendedID = 0x1FFFFFFF
)

var signalIDs = [numSignals]uint32{
	idCoolantTemperature,
	idEngineSpeed,
	idAmbientAirTemperature,
	idIntakeManifoldTemperature,
}

var signalNames = [numSignals]string{
	"coolant_temperature",
	"engine_speed",
	"ambient_air_temperature",
	"intake_manifold_temperature",
}

var signalAliases = map[string]Signal{
	"coolant": CoolantTemperature,
	"rpm":     EngineSpeed,
	"speed":   EngineSpeed,
	"ambient": AmbientAirTemperature,
	"intake":  IntakeManifoldTemperature,
}

func (s Signal) Valid() bool {
	return s >= 0 && s < numSignals
}

func (s Signal) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return signalNames[s]
}

// ID returns the extended CAN identifier the signal is transmitted on.
func (s Signal) ID() uint32 {
	if !s.Valid() {
		return 0
	}
	return signalIDs[s]
}

func SignalForID(id uint32) (Signal, bool) {
	for _, s := range Signals {
		if signalIDs[s] == id&maskExtendedID {
			return s, true
		}
	}
	return 0, false
}

func ParseSignal(name string) (Signal, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range Signals {
		if signalNames[s] == name {
			return s, nil
		}
	}
	if s, ok := signalAliases[name]; ok {
		return s, nil
	}
	return 0, errors.Wrapf(ErrUnknownSignal, "%q", name)
}

// UnmarshalText accepts the names understood by ParseSignal.
func (s *Signal) UnmarshalText(text []byte) error {
	v, err := ParseSignal(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
