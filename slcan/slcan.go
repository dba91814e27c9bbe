// Package slcan drives Lawicel compatible serial line CAN adapters such as
// the CANable and CANUSB.
package slcan

import (
	"fmt"
	"github.com/avast/retry-go"
	"github.com/jd3nn1s/enginesim"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	StatusOK             enginesim.Status = 0
	StatusOpenFailed     enginesim.Status = 0x01
	StatusBadBitRate     enginesim.Status = 0x02
	StatusNotInitialized enginesim.Status = 0x04
	StatusWriteFailed    enginesim.Status = 0x08
	StatusCloseFailed    enginesim.Status = 0x10
)

var statusTexts = map[enginesim.Status]string{
	StatusOK:             "ok",
	StatusOpenFailed:     "unable to open serial port",
	StatusBadBitRate:     "bit rate not supported by SLCAN",
	StatusNotInitialized: "SLCAN channel not open",
	StatusWriteFailed:    "unable to write to serial port",
	StatusCloseFailed:    "unable to close SLCAN channel",
}

// to allow testing
var openPort = func(name string, baudrate int) (io.ReadWriteCloser, error) {
	return serial.Open(name, &serial.Mode{
		BaudRate: baudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	})
}

var retryDelay = 500 * time.Millisecond

// BitRateCommand returns the S command selecting a standard bit rate.
func BitRateCommand(baud enginesim.BaudRate) (string, error) {
	switch baud {
	case 10000:
		return "S0", nil
	case 20000:
		return "S1", nil
	case 50000:
		return "S2", nil
	case 100000:
		return "S3", nil
	case enginesim.Baud125K:
		return "S4", nil
	case enginesim.Baud250K:
		return "S5", nil
	case enginesim.Baud500K:
		return "S6", nil
	case 800000:
		return "S7", nil
	case enginesim.Baud1M:
		return "S8", nil
	}
	return "", errors.Errorf("unknown rate: %d", baud)
}

// FrameCommand encodes a transmit command: T with an 8 digit identifier for
// extended frames, t with 3 digits for standard ones.
func FrameCommand(f enginesim.Frame) string {
	var sb strings.Builder
	if f.Extended {
		fmt.Fprintf(&sb, "T%08X", f.ID&0x1FFFFFFF)
	} else {
		fmt.Fprintf(&sb, "t%03X", f.ID&0x7FF)
	}
	length := f.Length
	if length > enginesim.FrameLength {
		length = enginesim.FrameLength
	}
	fmt.Fprintf(&sb, "%d", length)
	for _, b := range f.Data[:length] {
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// Adapter implements enginesim.Adapter for a serial line CAN device.
type Adapter struct {
	portName     string
	portBaudrate int
	attempts     uint

	mu   sync.Mutex
	port io.ReadWriteCloser
}

func New(portName string, portBaudrate int, attempts uint) *Adapter {
	if attempts == 0 {
		attempts = 1
	}
	return &Adapter{
		portName:     portName,
		portBaudrate: portBaudrate,
		attempts:     attempts,
	}
}

func (a *Adapter) Initialize(ch enginesim.Channel, baud enginesim.BaudRate) enginesim.Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port != nil {
		return StatusOK
	}
	rate, err := BitRateCommand(baud)
	if err != nil {
		log.WithError(err).Error("unable to configure SLCAN adapter")
		return StatusBadBitRate
	}

	var port io.ReadWriteCloser
	err = retry.Do(func() error {
		var err error
		port, err = openPort(a.portName, a.portBaudrate)
		if err != nil {
			return errors.Wrapf(err, "failed to open com port %q", a.portName)
		}
		return nil
	},
		retry.Attempts(a.attempts),
		retry.Delay(retryDelay),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).Warnf("retry #%d", n+1)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		log.WithError(err).Error("unable to open SLCAN adapter")
		return StatusOpenFailed
	}

	// close any channel left open, then set the rate and open
	for _, cmd := range []string{"C", rate, "O"} {
		if err := writeCommand(port, cmd); err != nil {
			log.WithError(err).Error("unable to initialize SLCAN adapter")
			port.Close()
			return StatusOpenFailed
		}
	}
	a.port = port
	log.WithField("port", a.portName).
		WithField("baudRate", uint32(baud)).
		Info("SLCAN channel opened")
	return StatusOK
}

func (a *Adapter) Write(_ enginesim.Channel, f enginesim.Frame) enginesim.Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return StatusNotInitialized
	}
	if err := writeCommand(a.port, FrameCommand(f)); err != nil {
		log.WithField("canID", f.ID).WithError(err).Error("unable to write frame")
		return StatusWriteFailed
	}
	return StatusOK
}

func (a *Adapter) Uninitialize(enginesim.Channel) enginesim.Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return StatusNotInitialized
	}
	status := StatusOK
	if err := writeCommand(a.port, "C"); err != nil {
		log.WithError(err).Warn("unable to close SLCAN channel")
		status = StatusCloseFailed
	}
	if err := a.port.Close(); err != nil {
		log.WithError(err).Warn("unable to close serial port")
		status = StatusCloseFailed
	}
	a.port = nil
	return status
}

func (a *Adapter) StatusText(s enginesim.Status) string {
	return statusTexts[s]
}

func writeCommand(w io.Writer, cmd string) error {
	_, err := w.Write([]byte(cmd + "\r"))
	return errors.Wrapf(err, "command %q", cmd)
}
