package forwarder

import (
	"github.com/jd3nn1s/enginesim"
	"unsafe"
)

// Header prefixes every datagram sent by the UDP forwarder.
type Header struct {
	Type uint8
}

const (
	TypeFrame = 1
)

var maxDatagramSize = int(unsafe.Sizeof(Header{})) + enginesim.FrameWireSize
