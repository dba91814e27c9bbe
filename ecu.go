package enginesim

import (
	"context"
	"github.com/jd3nn1s/enginesim/kline"
	"github.com/jd3nn1s/kw1281"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"math"
	"strings"
)

// measuring group reporting engine speed, battery voltage, coolant and
// intake air temperature
const ecuGroup = 4

var ecuGroupSignals = []struct {
	index  int
	units  string
	signal Signal
}{
	{0, "RPM", EngineSpeed},
	{2, "C", CoolantTemperature},
	{3, "C", IntakeManifoldTemperature},
}

// to allow testing
var (
	ecuConnect = func(p string) (KW1281, error) {
		return kline.Open(p)
	}
	decodeGroup = kline.DecodeGroup
)

// ecuRetryable mirrors live KW1281 measurements into the transmitter.
type ecuRetryable struct {
	port   string
	c      KW1281
	setter ValueSetter
}

func (e *ecuRetryable) Name() string {
	return "ecu"
}

func (e *ecuRetryable) Open() error {
	c, err := ecuConnect(e.port)
	if err != nil {
		return err
	}
	e.c = c
	return nil
}

func (e *ecuRetryable) Close() error {
	if e.c == nil {
		return nil
	}
	err := e.c.Close()
	e.c = nil
	return err
}

// Start runs one ECU session: the identification blocks up to the first
// acknowledge, then the measuring group over and over.
func (e *ecuRetryable) Start(ctx context.Context) error {
	if err := e.c.Init(); err != nil {
		return errors.Wrap(err, "ECU initialization failed")
	}
	startup := true
	var details []string
	for ctx.Err() == nil {
		blk, err := e.c.Recv()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return errors.Wrap(err, "unable to read block from ECU")
		}

		reply := &kw1281.Block{Type: kw1281.BlockTypeACK}
		switch {
		case startup && blk.Type == kw1281.BlockTypeACK:
			startup = false
			e.identified(details)
			reply = kw1281.MeasurementRequestBlock(ecuGroup)
		case startup:
			if blk.Type != kw1281.BlockTypeASCII {
				return errors.Errorf("unexpected block type %#x during ECU startup", byte(blk.Type))
			}
			details = append(details, strings.TrimSpace(string(blk.Data)))
		case blk.Type == kw1281.BlockTypeGroup:
			e.mirror(blk)
		case blk.Type == kw1281.BlockTypeACK:
			reply = kw1281.MeasurementRequestBlock(ecuGroup)
		}
		if err := e.c.Send(reply); err != nil {
			return errors.Wrapf(err, "unable to answer block type %#x", byte(blk.Type))
		}
	}
	return ctx.Err()
}

func (e *ecuRetryable) identified(details []string) {
	if len(details) == 0 {
		log.Info("ECU connected")
		return
	}
	log.WithField("partNumber", details[0]).Info("ECU connected")
	for _, line := range details[1:] {
		log.Infof("ECU: %s", line)
	}
}

func (e *ecuRetryable) mirror(blk *kw1281.Block) {
	measurements, err := decodeGroup(blk)
	if err != nil {
		log.WithError(err).Warn("unable to decode measuring group")
		return
	}
	for _, m := range ecuGroupSignals {
		if m.index >= len(measurements) || measurements[m.index].Units != m.units {
			continue
		}
		v, ok := measurementValue(measurements[m.index])
		if !ok {
			continue
		}
		if err := e.setter.SetSignalValue(m.signal, v); err != nil {
			log.WithField("signal", m.signal).WithError(err).Warn("unable to mirror ECU measurement")
		}
	}
}

func measurementValue(m kw1281.Measurement) (int, bool) {
	switch m.Type {
	case kw1281.MeasurementTypeInt:
		return m.IntVal, true
	case kw1281.MeasurementTypeFloat:
		return int(math.Round(m.FloatVal)), true
	}
	return 0, false
}

// RunECU mirrors engine speed, coolant and intake air temperature from the
// ECU on port until ctx is done, reconnecting after failures.
func RunECU(ctx context.Context, port string, setter ValueSetter) error {
	err := retry(ctx, &ecuRetryable{
		port:   port,
		setter: setter,
	})
	log.Infof("ecu done: %v", err)
	return err
}
