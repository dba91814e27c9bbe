//go:build linux

// Package socketcan sends frames through a Linux SocketCAN network
// interface.
package socketcan

import (
	"github.com/avast/retry-go"
	"github.com/brutella/can"
	"github.com/jd3nn1s/enginesim"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
	"sync"
	"time"
)

const (
	StatusOK             enginesim.Status = 0
	StatusOpenFailed     enginesim.Status = 0x01
	StatusNotInitialized enginesim.Status = 0x02
	StatusWriteFailed    enginesim.Status = 0x04
	StatusCloseFailed    enginesim.Status = 0x08
)

var statusTexts = map[enginesim.Status]string{
	StatusOK:             "ok",
	StatusOpenFailed:     "unable to open CAN interface",
	StatusNotInitialized: "CAN interface not initialized",
	StatusWriteFailed:    "unable to write to CAN interface",
	StatusCloseFailed:    "unable to close CAN interface",
}

type CANBus interface {
	Publish(can.Frame) error
	Disconnect() error
}

// to allow testing
var newBus = func(iface string) (CANBus, error) {
	return can.NewBusForInterfaceWithName(iface)
}

var retryDelay = 500 * time.Millisecond

// Adapter publishes frames on a SocketCAN interface. The bit rate is a
// property of the interface and is configured with ip-link, so the
// requested one is only logged.
type Adapter struct {
	iface    string
	attempts uint

	mu  sync.Mutex
	bus CANBus
}

func New(iface string, attempts uint) *Adapter {
	if attempts == 0 {
		attempts = 1
	}
	return &Adapter{
		iface:    iface,
		attempts: attempts,
	}
}

func (a *Adapter) Initialize(ch enginesim.Channel, baud enginesim.BaudRate) enginesim.Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bus != nil {
		return StatusOK
	}
	var bus CANBus
	err := retry.Do(func() error {
		var err error
		bus, err = newBus(a.iface)
		return err
	},
		retry.Attempts(a.attempts),
		retry.Delay(retryDelay),
		retry.OnRetry(func(n uint, err error) {
			log.WithField("interface", a.iface).WithError(err).Warnf("open attempt #%d failed", n+1)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		log.WithField("interface", a.iface).WithError(err).Error("unable to open CAN interface")
		return StatusOpenFailed
	}
	a.bus = bus
	log.WithField("interface", a.iface).
		WithField("baudRate", uint32(baud)).
		Info("CAN interface opened")
	return StatusOK
}

func (a *Adapter) Write(_ enginesim.Channel, f enginesim.Frame) enginesim.Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bus == nil {
		return StatusNotInitialized
	}
	if err := a.bus.Publish(toCANFrame(f)); err != nil {
		log.WithField("canID", f.ID).WithError(err).Error("unable to publish frame")
		return StatusWriteFailed
	}
	return StatusOK
}

func (a *Adapter) Uninitialize(enginesim.Channel) enginesim.Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bus == nil {
		return StatusNotInitialized
	}
	err := a.bus.Disconnect()
	a.bus = nil
	if err != nil {
		log.WithError(errors.Wrap(err, a.iface)).Warn("unable to disconnect CAN interface")
		return StatusCloseFailed
	}
	return StatusOK
}

func (a *Adapter) StatusText(s enginesim.Status) string {
	return statusTexts[s]
}

func toCANFrame(f enginesim.Frame) can.Frame {
	id := f.ID
	if f.Extended {
		id = (id & unix.CAN_EFF_MASK) | unix.CAN_EFF_FLAG
	}
	return can.Frame{
		ID:     id,
		Length: f.Length,
		Data:   f.Data,
	}
}
