package slcan

import (
	"bytes"
	"github.com/jd3nn1s/enginesim"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
)

type portStub struct {
	bytes.Buffer
	closed   bool
	writeErr error
}

func (p *portStub) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.Buffer.Write(b)
}

func (p *portStub) Close() error {
	p.closed = true
	return nil
}

func stubPort(port *portStub, failures int) func() {
	origOpenPort := openPort
	origRetryDelay := retryDelay
	retryDelay = 0
	openPort = func(name string, baudrate int) (io.ReadWriteCloser, error) {
		if failures > 0 {
			failures--
			return nil, errors.New("port busy")
		}
		return port, nil
	}
	return func() {
		openPort = origOpenPort
		retryDelay = origRetryDelay
	}
}

func TestFrameCommand(t *testing.T) {
	f, err := enginesim.Encode(enginesim.EngineSpeed, 300, enginesim.DefaultCalibration())
	require.NoError(t, err)
	assert.Equal(t, "T0CF0040080000006009000000", FrameCommand(f))

	assert.Equal(t, "t1232AB01", FrameCommand(enginesim.Frame{
		ID:     0x123,
		Length: 2,
		Data:   [8]byte{0xAB, 0x01},
	}))
}

func TestBitRateCommand(t *testing.T) {
	cmd, err := BitRateCommand(enginesim.Baud250K)
	require.NoError(t, err)
	assert.Equal(t, "S5", cmd)
	cmd, err = BitRateCommand(enginesim.Baud1M)
	require.NoError(t, err)
	assert.Equal(t, "S8", cmd)
	_, err = BitRateCommand(33333)
	assert.Error(t, err)
}

func TestAdapter(t *testing.T) {
	port := &portStub{}
	defer stubPort(port, 1)()

	a := New("/dev/ttyACM0", 115200, 2)
	require.Equal(t, StatusOK, a.Initialize(enginesim.DefaultChannel, enginesim.Baud250K))
	assert.Equal(t, "C\rS5\rO\r", port.String())
	port.Reset()

	f, err := enginesim.Encode(enginesim.CoolantTemperature, 20, enginesim.DefaultCalibration())
	require.NoError(t, err)
	assert.Equal(t, StatusOK, a.Write(enginesim.DefaultChannel, f))
	assert.Equal(t, "T18FEEE0083C00000000190000\r", port.String())
	port.Reset()

	assert.Equal(t, StatusOK, a.Uninitialize(enginesim.DefaultChannel))
	assert.Equal(t, "C\r", port.String())
	assert.True(t, port.closed)
	assert.Equal(t, StatusNotInitialized, a.Write(enginesim.DefaultChannel, f))
}

func TestAdapterOpenFailure(t *testing.T) {
	defer stubPort(&portStub{}, 5)()

	a := New("/dev/ttyACM0", 115200, 2)
	status := a.Initialize(enginesim.DefaultChannel, enginesim.Baud250K)
	assert.Equal(t, StatusOpenFailed, status)
	assert.Equal(t, "unable to open serial port", a.StatusText(status))
}

func TestAdapterBadBitRate(t *testing.T) {
	defer stubPort(&portStub{}, 0)()

	assert.Equal(t, StatusBadBitRate, New("/dev/ttyACM0", 115200, 1).Initialize(enginesim.DefaultChannel, 12345))
}

func TestAdapterWriteFailure(t *testing.T) {
	port := &portStub{}
	defer stubPort(port, 0)()

	a := New("/dev/ttyACM0", 115200, 1)
	require.Equal(t, StatusOK, a.Initialize(enginesim.DefaultChannel, enginesim.Baud250K))
	port.writeErr = errors.New("device disconnected")
	assert.Equal(t, StatusWriteFailed, a.Write(enginesim.DefaultChannel, enginesim.Frame{Extended: true, Length: 8}))
}
