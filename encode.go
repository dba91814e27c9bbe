package enginesim

// Transform maps an engineering value onto the raw integer packed into the
// payload: raw = (value + Offset) * Scale.
type Transform struct {
	Offset int
	Scale  int
}

func (t Transform) Raw(value int) int {
	return (value + t.Offset) * t.Scale
}

type Calibration struct {
	CoolantTemperature        Transform
	EngineSpeed               Transform
	AmbientAirTemperature     Transform
	IntakeManifoldTemperature Transform
}

func DefaultCalibration() Calibration {
	return Calibration{
		CoolantTemperature:        Transform{Offset: 40, Scale: 1},
		EngineSpeed:               Transform{Offset: 0, Scale: 8},
		AmbientAirTemperature:     Transform{Offset: 273, Scale: 32},
		IntakeManifoldTemperature: Transform{Offset: 40, Scale: 1},
	}
}

func (c *Calibration) Transform(s Signal) Transform {
	switch s {
	case CoolantTemperature:
		return c.CoolantTemperature
	case EngineSpeed:
		return c.EngineSpeed
	case AmbientAirTemperature:
		return c.AmbientAirTemperature
	case IntakeManifoldTemperature:
		return c.IntakeManifoldTemperature
	}
	return Transform{Scale: 1}
}

const (
	coolantFixedByte5 = 25
	intakeFill        = 0x80
)

// Encode builds the frame for signal carrying value. No range checks are
// made: single-byte fields keep the low 8 bits of the raw value and
// two-byte fields the low 16 bits.
func Encode(s Signal, value int, cal Calibration) (Frame, error) {
	if !s.Valid() {
		return Frame{}, ErrUnknownSignal
	}
	raw := cal.Transform(s).Raw(value)

	var data [FrameLength]byte
	switch s {
	case CoolantTemperature:
		data[0] = uint8(raw)
		data[5] = coolantFixedByte5
	case EngineSpeed, AmbientAirTemperature:
		data[3] = uint8(raw)
		data[4] = uint8(raw >> 8)
	case IntakeManifoldTemperature:
		data = [FrameLength]byte{intakeFill, intakeFill, uint8(raw),
			intakeFill, intakeFill, intakeFill, intakeFill, intakeFill}
	}
	return NewExtendedFrame(s.ID(), data), nil
}

// ZeroFrame carries the signal's identifier with an all-zero payload.
func ZeroFrame(s Signal) (Frame, error) {
	if !s.Valid() {
		return Frame{}, ErrUnknownSignal
	}
	return NewExtendedFrame(s.ID(), [FrameLength]byte{}), nil
}
