package enginesim

import (
	"context"
	log "github.com/sirupsen/logrus"
	"time"
)

type sweepRange struct {
	min, max, step int
}

// operator panel slider bounds and increments
var sweepRanges = [numSignals]sweepRange{
	CoolantTemperature:        {min: 0, max: 130, step: 1},
	EngineSpeed:               {min: 300, max: 3000, step: 50},
	AmbientAirTemperature:     {min: -10, max: 40, step: 5},
	IntakeManifoldTemperature: {min: -10, max: 110, step: 10},
}

// Sweep generates simulated engine values that ramp up and down between
// the operator panel bounds.
type Sweep struct {
	values [numSignals]int
	down   [numSignals]bool
}

func NewSweep() *Sweep {
	sw := &Sweep{}
	for _, s := range Signals {
		sw.values[s] = sweepRanges[s].min
	}
	return sw
}

func (sw *Sweep) Value(s Signal) int {
	return sw.values[s]
}

// Next advances every signal by one step, reversing at the bounds.
func (sw *Sweep) Next() [numSignals]int {
	for _, s := range Signals {
		r := sweepRanges[s]
		if sw.down[s] {
			sw.values[s] -= r.step
		} else {
			sw.values[s] += r.step
		}
		if sw.values[s] >= r.max {
			sw.values[s] = r.max
			sw.down[s] = true
		} else if sw.values[s] <= r.min {
			sw.values[s] = r.min
			sw.down[s] = false
		}
	}
	return sw.values
}

func RunSweep(ctx context.Context, setter ValueSetter, step time.Duration) error {
	sw := NewSweep()
	ticker := time.NewTicker(step)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		for s, v := range sw.Next() {
			if err := setter.SetSignalValue(Signal(s), v); err != nil {
				log.WithField("signal", Signal(s)).WithError(err).Warn("sweep: unable to set value")
			}
		}
	}
}
