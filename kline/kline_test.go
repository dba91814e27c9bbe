package kline

import (
	"bytes"
	"github.com/jd3nn1s/kw1281"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
	"time"
)

// portStub replays what the ECU and the interface echo would send and
// records everything written and every line change.
type portStub struct {
	rx      bytes.Buffer
	tx      []byte
	lines   []string
	flushed int
	closed  bool
}

func (p *portStub) Read(b []byte) (int, error) {
	if p.rx.Len() == 0 {
		return 0, io.EOF
	}
	return p.rx.Read(b[:1])
}

func (p *portStub) Write(b []byte) (int, error) {
	p.tx = append(p.tx, b...)
	return len(b), nil
}

func (p *portStub) Flush() error {
	p.flushed++
	return nil
}

func (p *portStub) Close() error {
	p.closed = true
	return nil
}

func (p *portStub) SetDtrOn() error {
	p.lines = append(p.lines, "dtr+")
	return nil
}

func (p *portStub) SetDtrOff() error {
	p.lines = append(p.lines, "dtr-")
	return nil
}

func (p *portStub) SetRtsOn() error {
	return nil
}

func (p *portStub) SetRtsOff() error {
	return nil
}

func (p *portStub) SetBreakOn() error {
	p.lines = append(p.lines, "0")
	return nil
}

func (p *portStub) SetBreakOff() error {
	p.lines = append(p.lines, "1")
	return nil
}

func init() {
	sleep = func(time.Duration) {}
}

func openStub(t *testing.T) (*Conn, *portStub) {
	p := &portStub{}
	origOpenPort := openPort
	t.Cleanup(func() {
		openPort = origOpenPort
	})
	openPort = func(name string) (Port, error) {
		assert.Equal(t, "/dev/obd", name)
		return p, nil
	}
	c, err := Open("/dev/obd")
	require.NoError(t, err)
	return c, p
}

// blockBytes is what the port reads while a block is exchanged in either
// direction. A received byte is followed by the echo of our complement, a
// sent byte by its echo and the ECU's complement. The end marker is never
// acknowledged.
func blockBytes(counter byte, blkType byte, data ...byte) []byte {
	var out []byte
	for _, b := range append([]byte{byte(len(data) + 3), counter, blkType}, data...) {
		out = append(out, b, 0xFF-b)
	}
	return append(out, kw1281.BlockEnd)
}

func TestInit(t *testing.T) {
	c, p := openStub(t)
	p.rx.Write([]byte{0x55, 0x01, 0x8A, 0x75})

	require.NoError(t, c.Init())
	assert.Equal(t, []byte{0x75}, p.tx)
	// idle, start bit, address 0x01 LSB first, stop bit
	assert.Equal(t, []string{
		"dtr-",
		"1",
		"0",
		"1", "0", "0", "0", "0", "0", "0", "0",
		"1",
		"dtr+",
	}, p.lines)
	assert.Equal(t, uint8(1), c.counter)
}

func TestInitBadSync(t *testing.T) {
	c, p := openStub(t)
	p.rx.Write([]byte{0x55, 0x01, 0x0A})
	assert.True(t, errors.Is(c.Init(), ErrSync))

	c, p = openStub(t)
	p.rx.Write([]byte{0x55})
	assert.Error(t, c.Init(), "the ECU stopped answering")
}

func TestRecv(t *testing.T) {
	c, p := openStub(t)
	c.counter = 1
	p.rx.Write(blockBytes(1, kw1281.BlockTypeASCII, '0', '3', '8'))

	blk, err := c.Recv()
	require.NoError(t, err)
	assert.Equal(t, kw1281.BlockType(kw1281.BlockTypeASCII), blk.Type)
	assert.Equal(t, []byte("038"), blk.Data)
	assert.Equal(t, uint8(2), c.counter)
	// complements of length, counter, type and data
	assert.Equal(t, []byte{0xF9, 0xFE, 0x09, 0xCF, 0xCC, 0xC7}, p.tx)
}

func TestRecvErrors(t *testing.T) {
	c, p := openStub(t)
	c.counter = 4
	p.rx.Write(blockBytes(1, kw1281.BlockTypeACK))
	_, err := c.Recv()
	assert.Error(t, err, "counter mismatch")

	c, p = openStub(t)
	c.counter = 1
	blk := blockBytes(1, kw1281.BlockTypeACK)
	blk[len(blk)-1] = 0x04
	p.rx.Write(blk)
	_, err = c.Recv()
	assert.Error(t, err, "missing block end")

	c, p = openStub(t)
	c.counter = 1
	p.rx.Write([]byte{0x02, 0xFD})
	_, err = c.Recv()
	assert.Error(t, err, "block shorter than its header")

	c, _ = openStub(t)
	_, err = c.Recv()
	assert.Error(t, err, "nothing to read")
}

func TestSend(t *testing.T) {
	c, p := openStub(t)
	c.counter = 3
	p.rx.Write(blockBytes(3, kw1281.BlockTypeGetGroup, 0x04))

	require.NoError(t, c.Send(kw1281.MeasurementRequestBlock(4)))
	assert.Equal(t, []byte{0x04, 0x03, 0x29, 0x04, kw1281.BlockEnd}, p.tx)
	assert.Equal(t, uint8(4), c.counter)
}

func TestSendMissingAck(t *testing.T) {
	c, p := openStub(t)
	c.counter = 1
	// size echoed but never acknowledged
	p.rx.Write([]byte{0x03, 0x03})
	assert.Error(t, c.Send(&kw1281.Block{Type: kw1281.BlockTypeACK}))
}

func TestClose(t *testing.T) {
	c, p := openStub(t)
	assert.NoError(t, c.Close())
	assert.True(t, p.closed)
	assert.Equal(t, 1, p.flushed)
}

func TestOpenFailure(t *testing.T) {
	origOpenPort := openPort
	defer func() {
		openPort = origOpenPort
	}()
	openPort = func(string) (Port, error) {
		return nil, errors.New("no such device")
	}
	_, err := Open("/dev/obd")
	assert.Error(t, err)
}

func TestDecodeGroup(t *testing.T) {
	m, err := DecodeGroup(&kw1281.Block{
		Type: kw1281.BlockTypeGroup,
		Data: []byte{
			1, 200, 80,
			6, 100, 140,
			5, 10, 190,
			99, 1, 2,
		},
	})
	require.NoError(t, err)
	require.Len(t, m, 4)

	assert.Equal(t, kw1281.MeasurementTypeInt, m[0].Type)
	assert.Equal(t, 3200, m[0].IntVal)
	assert.Equal(t, "RPM", m[0].Units)
	assert.InDelta(t, 14.0, m[1].FloatVal, 0.001)
	assert.Equal(t, "V", m[1].Units)
	assert.Equal(t, kw1281.MeasurementTypeFloat, m[2].Type)
	assert.InDelta(t, 90.0, m[2].FloatVal, 0.001)
	assert.Equal(t, "C", m[2].Units)
	assert.Empty(t, m[3].Units)

	_, err = DecodeGroup(&kw1281.Block{Type: kw1281.BlockTypeGroup, Data: []byte{1, 2}})
	assert.Error(t, err)
	_, err = DecodeGroup(&kw1281.Block{Type: kw1281.BlockTypeACK})
	assert.Error(t, err)
}
