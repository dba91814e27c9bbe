package enginesim

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	FrameLength = 8

	MessageTypeStandard uint8 = 0x00
	MessageTypeExtended uint8 = 0x02

	// identifier, type flag, length, payload
	FrameWireSize = 4 + 1 + 1 + FrameLength
)

type Frame struct {
	ID       uint32
	Extended bool
	Length   uint8
	Data     [FrameLength]byte
}

func NewExtendedFrame(id uint32, data [FrameLength]byte) Frame {
	return Frame{
		ID:       id & maskExtendedID,
		Extended: true,
		Length:   FrameLength,
		Data:     data,
	}
}

func (f Frame) MessageType() uint8 {
	if f.Extended {
		return MessageTypeExtended
	}
	return MessageTypeStandard
}

// MarshalBinary returns the logical adapter layout of the frame. Padding
// and alignment are left to the adapter.
func (f Frame) MarshalBinary() ([]byte, error) {
	buf := make([]byte, FrameWireSize)
	binary.LittleEndian.PutUint32(buf[0:4], f.ID)
	buf[4] = f.MessageType()
	buf[5] = f.Length
	copy(buf[6:], f.Data[:])
	return buf, nil
}

// Payload returns the first Length bytes of Data, capped at FrameLength.
func (f Frame) Payload() []byte {
	n := int(f.Length)
	if n > FrameLength {
		n = FrameLength
	}
	return f.Data[:n]
}

func (f Frame) String() string {
	var out strings.Builder
	if f.Extended {
		fmt.Fprintf(&out, "0x%08X", f.ID)
	} else {
		fmt.Fprintf(&out, "0x%03X", f.ID)
	}
	fmt.Fprintf(&out, " [%d]", f.Length)
	for _, b := range f.Payload() {
		fmt.Fprintf(&out, " %02X", b)
	}
	return out.String()
}
