package forwarder

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"github.com/jd3nn1s/enginesim"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"io"
	"net"
	"time"
)

const fwdQueueSize = 16

var sendInterval = 100 * time.Millisecond

// UDPForwarder sends every frame it is handed to a UDP server as one
// datagram: a Header followed by the frame's binary form.
type UDPForwarder struct {
	Config *UDPConfig

	conn     net.Conn
	fwdChan  chan enginesim.Frame
	interval time.Duration
}

func NewUDPForwarder(config *UDPConfig) (*UDPForwarder, error) {
	udp := &UDPForwarder{
		Config:   config,
		fwdChan:  make(chan enginesim.Frame, fwdQueueSize),
		interval: sendInterval,
	}
	if err := udp.connect(); err != nil {
		return nil, err
	}
	return udp, nil
}

func NewUDPForwarderFromReader(configReader io.Reader) (*UDPForwarder, error) {
	config, err := DecodeConfig(configReader)
	if err != nil {
		return nil, err
	}
	if config.UDP == nil {
		return nil, errors.New("no [UDP] section in forwarder configuration")
	}
	return NewUDPForwarder(config.UDP)
}

func (udp *UDPForwarder) Close() error {
	return udp.conn.Close()
}

func (udp *UDPForwarder) Forward(f enginesim.Frame) error {
	select {
	case udp.fwdChan <- f:
	default:
		// if channel is full, skip
	}
	return nil
}

func (udp *UDPForwarder) Start(ctx context.Context) error {
	limiter := time.NewTicker(udp.interval)
	defer limiter.Stop()
	for {
		select {
		case <-limiter.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		// send everything queued since the last tick
		for pending := len(udp.fwdChan); pending > 0; pending-- {
			if err := udp.forward(<-udp.fwdChan); err != nil {
				log.Error("unable to forward frame to server ", err)
			}
		}
	}
}

func (udp *UDPForwarder) forward(f enginesim.Frame) error {
	buf := bytes.NewBuffer(make([]byte, 0, maxDatagramSize))
	hdr := Header{
		Type: TypeFrame,
	}
	if err := binary.Write(buf, binary.LittleEndian, &hdr); err != nil {
		return errors.Wrap(err, "unable to write udp packet header")
	}
	frameData, err := f.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "unable to encode frame")
	}
	buf.Write(frameData)
	_, err = udp.conn.Write(buf.Bytes())
	return err
}

func (udp *UDPForwarder) connect() error {
	writeBufSize := maxDatagramSize * fwdQueueSize

	conn, err := net.Dial("udp", fmt.Sprintf("%s:%d",
		udp.Config.Server,
		udp.Config.Port))
	if err != nil {
		return err
	}
	udpConn := conn.(*net.UDPConn)
	if err = udpConn.SetWriteBuffer(writeBufSize); err != nil {
		conn.Close()
		return errors.Wrapf(err, "unable to set OS write buffer to %v", writeBufSize)
	}

	udp.conn = conn
	return nil
}
