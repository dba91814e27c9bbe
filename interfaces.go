package enginesim

import (
	"github.com/jd3nn1s/kw1281"
)

type Channel uint16

type BaudRate uint32

// Status is the integer result code of an adapter call. Zero is success,
// every other value is adapter specific.
type Status uint32

const (
	StatusOK Status = 0

	// PCAN-USB interface, channel 1
	DefaultChannel Channel = 0x51

	Baud125K BaudRate = 125000
	Baud250K BaudRate = 250000
	Baud500K BaudRate = 500000
	Baud1M   BaudRate = 1000000
)

// Adapter is the transport a Transmitter writes frames through. Every call
// is fire-and-forget: no queueing, no acknowledgement, no retry.
type Adapter interface {
	Initialize(Channel, BaudRate) Status
	Write(Channel, Frame) Status
	Uninitialize(Channel) Status
}

// StatusDescriber is implemented by adapters able to explain their codes.
type StatusDescriber interface {
	StatusText(Status) string
}

type ValueSetter interface {
	SetSignalValue(Signal, int) error
}

type Forwarder interface {
	Forward(Frame) error
}

// KW1281 is a block level session with an ECU.
type KW1281 interface {
	Init() error
	Recv() (*kw1281.Block, error)
	Send(*kw1281.Block) error
	Close() error
}
