package enginesim

import (
	"fmt"
	"github.com/pkg/errors"
)

var (
	ErrAlreadyRunning = errors.New("transmitter already running")
	ErrClosed         = errors.New("transmitter closed")
	ErrUnknownPolicy  = errors.New("unknown disabled signal policy")
)

func statusText(a Adapter, status Status) string {
	if d, ok := a.(StatusDescriber); ok {
		if text := d.StatusText(status); text != "" {
			return text
		}
	}
	return fmt.Sprintf("status 0x%X", uint32(status))
}

type AdapterInitError struct {
	Channel Channel
	Status  Status
	Text    string
}

func (e *AdapterInitError) Error() string {
	return fmt.Sprintf("unable to initialize channel 0x%X: %s", uint16(e.Channel), e.Text)
}

type AdapterWriteError struct {
	Signal Signal
	ID     uint32
	Status Status
	Text   string
}

func (e *AdapterWriteError) Error() string {
	return fmt.Sprintf("unable to write %s frame ID = 0x%08X: %s", e.Signal, e.ID, e.Text)
}

type AdapterUninitError struct {
	Channel Channel
	Status  Status
	Text    string
}

func (e *AdapterUninitError) Error() string {
	return fmt.Sprintf("unable to uninitialize channel 0x%X: %s", uint16(e.Channel), e.Text)
}
