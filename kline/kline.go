// Package kline exchanges KW1281 blocks with an ECU over a serial K-line
// interface. The block and measurement types come from the kw1281 package.
package kline

import (
	"github.com/jd3nn1s/kw1281"
	"github.com/jd3nn1s/serial"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"time"
)

const (
	DefaultBaud = 9600

	wakeupBaud  = 5
	readTimeout = 300 * time.Millisecond
)

// ECU address sent during the wakeup, 7 bits plus odd parity
const engineAddress byte = 0x01

var ErrSync = errors.New("unexpected sync sequence from ECU")

var syncSequence = []byte{0x55, 0x01, 0x8A}

// Port is the part of a serial port the K-line interface needs. The break
// and RTS lines drive the bus during the 5 baud wakeup.
type Port interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	Flush() error
	Close() error
	SetDtrOn() error
	SetDtrOff() error
	SetRtsOn() error
	SetRtsOff() error
	SetBreakOn() error
	SetBreakOff() error
}

// to allow testing
var (
	openPort = func(name string) (Port, error) {
		return serial.OpenPort(&serial.Config{
			Name:        name,
			Baud:        DefaultBaud,
			ReadTimeout: readTimeout,
		})
	}
	sleep = time.Sleep
)

// Conn is one KW1281 session. Every byte written is echoed back by the
// interface and every block byte except the end marker is acknowledged with
// its complement.
type Conn struct {
	port    Port
	counter uint8
}

func Open(name string) (*Conn, error) {
	p, err := openPort(name)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open K-line port %s", name)
	}
	if err := p.Flush(); err != nil {
		p.Close()
		return nil, errors.Wrapf(err, "unable to flush K-line port %s", name)
	}
	return &Conn{port: p}, nil
}

func (c *Conn) Close() error {
	return c.port.Close()
}

// Init wakes the ECU with its address at 5 baud and completes the sync
// handshake. The ECU then starts sending its identification blocks.
func (c *Conn) Init() error {
	bit := time.Second / wakeupBaud

	log.Infof("waking ECU at %d baud", wakeupBaud)
	if err := c.port.Flush(); err != nil {
		return errors.Wrap(err, "unable to flush port")
	}
	if err := c.port.SetDtrOff(); err != nil {
		return err
	}

	// idle, start bit, address LSB first, stop bit
	if err := c.setBit(true); err != nil {
		return err
	}
	sleep(300 * time.Millisecond)
	if err := c.setBit(false); err != nil {
		return err
	}
	sleep(bit)
	for n := uint(0); n < 8; n++ {
		if err := c.setBit((engineAddress>>n)&0x1 == 1); err != nil {
			return err
		}
		sleep(bit)
	}
	if err := c.setBit(true); err != nil {
		return err
	}
	sleep(bit)

	if err := c.port.Flush(); err != nil {
		return errors.Wrap(err, "unable to flush port")
	}
	if err := c.port.SetDtrOn(); err != nil {
		return err
	}

	buf := make([]byte, len(syncSequence))
	for i := range buf {
		b, err := c.readByte()
		if err != nil {
			return errors.Wrapf(err, "unable to read sync byte %d", i)
		}
		buf[i] = b
	}
	log.Debugf("received sync bytes % X", buf)
	for i := range buf {
		if buf[i] != syncSequence[i] {
			return errors.Wrapf(ErrSync, "% X", buf)
		}
	}
	if err := c.sendByte(complement(buf[2])); err != nil {
		return errors.Wrap(err, "unable to send sync complement")
	}
	c.counter = 1
	log.Info("ECU initialization complete")
	return nil
}

// Recv reads the next block sent by the ECU.
func (c *Conn) Recv() (*kw1281.Block, error) {
	size, err := c.recvByte()
	if err != nil {
		return nil, errors.Wrap(err, "unable to read block length")
	}
	if size < 3 {
		return nil, errors.Errorf("invalid block length %d", size)
	}
	counter, err := c.recvByte()
	if err != nil {
		return nil, errors.Wrap(err, "unable to read block counter")
	}
	if counter != c.counter {
		return nil, errors.Errorf("unexpected counter value %d, expected %d", counter, c.counter)
	}
	blkType, err := c.recvByte()
	if err != nil {
		return nil, errors.Wrap(err, "unable to read block type")
	}

	// length counts itself, the counter and the type
	data := make([]byte, size-3)
	for i := range data {
		if data[i], err = c.recvByte(); err != nil {
			return nil, errors.Wrapf(err, "unable to read block byte %d of %d", i, len(data))
		}
	}
	end, err := c.readByte()
	if err != nil {
		return nil, errors.Wrap(err, "unable to read block end")
	}
	if end != kw1281.BlockEnd {
		return nil, errors.Errorf("expected block end %#x but received %#x", kw1281.BlockEnd, end)
	}
	c.counter++

	blk := &kw1281.Block{Type: kw1281.BlockType(blkType), Data: data}
	log.WithField("type", blk.Type).WithField("size", blk.Size()).Debug("received block")
	return blk, nil
}

// Send writes blk, waiting for the ECU to acknowledge every byte.
func (c *Conn) Send(blk *kw1281.Block) error {
	log.WithField("type", blk.Type).
		WithField("size", blk.Size()).
		WithField("counter", c.counter).
		Debug("sending block")
	if err := c.sendByteAck(byte(blk.Size())); err != nil {
		return errors.Wrap(err, "unable to send block size")
	}
	if err := c.sendByteAck(c.counter); err != nil {
		return errors.Wrap(err, "unable to send counter")
	}
	c.counter++
	if err := c.sendByteAck(byte(blk.Type)); err != nil {
		return errors.Wrap(err, "unable to send block type")
	}
	for i, b := range blk.Data {
		if err := c.sendByteAck(b); err != nil {
			return errors.Wrapf(err, "unable to send block byte %d", i)
		}
	}
	return c.sendByte(kw1281.BlockEnd)
}

func (c *Conn) setBit(one bool) error {
	if one {
		if err := c.port.SetBreakOff(); err != nil {
			return err
		}
		return c.port.SetRtsOff()
	}
	if err := c.port.SetBreakOn(); err != nil {
		return err
	}
	return c.port.SetRtsOn()
}

func (c *Conn) readByte() (byte, error) {
	buf := make([]byte, 1)
	n, err := c.port.Read(buf)
	if err != nil {
		return 0, err
	}
	if n != 1 {
		return 0, errors.New("read timed out")
	}
	return buf[0], nil
}

// sendByte writes b and consumes its echo.
func (c *Conn) sendByte(b byte) error {
	n, err := c.port.Write([]byte{b})
	if err != nil {
		return err
	}
	if n != 1 {
		return errors.New("did not write expected number of bytes")
	}
	echo, err := c.readByte()
	if err != nil {
		return errors.Wrap(err, "unable to read echo")
	}
	if echo != b {
		return errors.Errorf("expected echo %#x but received %#x", b, echo)
	}
	return nil
}

func (c *Conn) sendByteAck(b byte) error {
	if err := c.sendByte(b); err != nil {
		return err
	}
	ack, err := c.readByte()
	if err != nil {
		return errors.Wrap(err, "unable to read complement")
	}
	if ack != complement(b) {
		return errors.Errorf("expected complement %#x but received %#x", complement(b), ack)
	}
	return nil
}

func (c *Conn) recvByte() (byte, error) {
	b, err := c.readByte()
	if err != nil {
		return 0, err
	}
	return b, c.sendByte(complement(b))
}

func complement(b byte) byte {
	return 0xFF - b
}
