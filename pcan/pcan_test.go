package pcan

import (
	"github.com/jd3nn1s/enginesim"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

type driverStub struct {
	channel uint16
	btr     uint16
	msgs    []Msg
	status  uint32
	uninit  int
}

func (d *driverStub) Initialize(channel uint16, btr uint16) uint32 {
	d.channel = channel
	d.btr = btr
	return d.status
}

func (d *driverStub) Write(channel uint16, msg *Msg) uint32 {
	d.msgs = append(d.msgs, *msg)
	return d.status
}

func (d *driverStub) Uninitialize(channel uint16) uint32 {
	d.uninit++
	return d.status
}

func withDriver(drv driver, err error) func() {
	origLoadDriver := loadDriver
	loadDriver = func() (driver, error) {
		return drv, err
	}
	return func() {
		loadDriver = origLoadDriver
	}
}

func TestAdapter(t *testing.T) {
	drv := &driverStub{}
	defer withDriver(drv, nil)()

	a := New()
	assert.Equal(t, ErrorOK, a.Initialize(USBBus1, enginesim.Baud250K))
	assert.Equal(t, uint16(0x51), drv.channel)
	assert.Equal(t, Baud250K, drv.btr)

	f, err := enginesim.Encode(enginesim.CoolantTemperature, 20, enginesim.DefaultCalibration())
	require.NoError(t, err)
	assert.Equal(t, ErrorOK, a.Write(USBBus1, f))
	require.Len(t, drv.msgs, 1)
	assert.Equal(t, Msg{
		ID:      0x18FEEE00,
		MsgType: 0x02,
		Len:     8,
		Data:    [8]byte{60, 0, 0, 0, 0, 25, 0, 0},
	}, drv.msgs[0])

	assert.Equal(t, ErrorOK, a.Uninitialize(USBBus1))
	assert.Equal(t, 1, drv.uninit)
}

func TestAdapterPassesStatus(t *testing.T) {
	drv := &driverStub{status: uint32(ErrorQXmtFull)}
	defer withDriver(drv, nil)()

	a := New()
	f, err := enginesim.ZeroFrame(enginesim.EngineSpeed)
	require.NoError(t, err)
	assert.Equal(t, ErrorQXmtFull, a.Write(USBBus1, f))
}

func TestAdapterUnsupportedBaud(t *testing.T) {
	drv := &driverStub{}
	defer withDriver(drv, nil)()

	assert.Equal(t, ErrorIllParamVal, New().Initialize(USBBus1, 333333))
}

func TestAdapterNoDriver(t *testing.T) {
	defer withDriver(nil, errors.New("no dll"))()

	a := New()
	assert.Equal(t, ErrorNoDriver, a.Initialize(USBBus1, enginesim.Baud250K))
	assert.Equal(t, ErrorNoDriver, a.Write(USBBus1, enginesim.Frame{}))
	assert.Equal(t, ErrorNoDriver, a.Uninitialize(USBBus1))
}

func TestBaudRegister(t *testing.T) {
	btr, ok := BaudRegister(enginesim.Baud500K)
	assert.True(t, ok)
	assert.Equal(t, uint16(0x001C), btr)
	btr, ok = BaudRegister(enginesim.Baud1M)
	assert.True(t, ok)
	assert.Equal(t, uint16(0x0014), btr)
	_, ok = BaudRegister(42)
	assert.False(t, ok)
}

func TestStatusText(t *testing.T) {
	a := New()
	assert.Equal(t, "driver not loaded", a.StatusText(ErrorNoDriver))
	assert.Equal(t, "hardware handle is invalid", a.StatusText(ErrorIllHW))
	assert.Equal(t,
		"transmit queue is full, bus error: an error counter reached the 'light' limit",
		a.StatusText(ErrorQXmtFull|ErrorBusLight))
	assert.Equal(t, "", a.StatusText(0x1000000))
}
