package enginesim

import (
	"context"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"sync"
)

const frameBufferSize = 64

// Session owns a transmitter for the lifetime of an operator session. It
// hands every written frame to the registered forwarders and drives the
// configured value sources.
type Session struct {
	tx  *Transmitter
	cfg *Config

	frames chan Frame

	mu         sync.RWMutex
	forwarders []Forwarder
}

func NewSession(adapter Adapter, cfg *Config, cb Callbacks, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	sess := &Session{
		cfg:    cfg,
		frames: make(chan Frame, frameBufferSize),
	}
	sessionCallbacks := Callbacks{
		FrameWritten: func(f Frame) {
			sess.queue(f)
			if cb.FrameWritten != nil {
				cb.FrameWritten(f)
			}
		},
		Error: cb.Error,
		Stopped: func() {
			log.Info("transmission stopped")
			if cb.Stopped != nil {
				cb.Stopped()
			}
		},
	}
	tx, err := NewTransmitter(adapter, cfg, append(opts, WithCallbacks(sessionCallbacks))...)
	if err != nil {
		return nil, err
	}
	sess.tx = tx
	return sess, nil
}

func (sess *Session) Transmitter() *Transmitter {
	return sess.tx
}

func (sess *Session) AddForwarder(fwd Forwarder) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.forwarders = append(sess.forwarders, fwd)
}

// queue never blocks the transmission loop; frames are dropped when the
// forwarders fall behind.
func (sess *Session) queue(f Frame) {
	select {
	case sess.frames <- f:
	default:
		log.WithField("canID", f.ID).Debug("forward queue full, dropping frame")
	}
}

func (sess *Session) forward(f Frame) {
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	for _, fwd := range sess.forwarders {
		if err := fwd.Forward(f); err != nil {
			log.WithError(err).Error("unable to forward frame")
		}
	}
}

// Run forwards written frames and runs the sweep and ECU value sources when
// they are configured. It returns when ctx is done.
func (sess *Session) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case f := <-sess.frames:
				sess.forward(f)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
	if sess.cfg.Sweep.Enabled {
		g.Go(func() error {
			return RunSweep(ctx, sess.tx, sess.cfg.Sweep.Step.Duration)
		})
	}
	if sess.cfg.ECU.Port != "" {
		g.Go(func() error {
			return RunECU(ctx, sess.cfg.ECU.Port, sess.tx)
		})
	}
	return g.Wait()
}

// Close stops transmission and releases the adapter channel.
func (sess *Session) Close() {
	sess.tx.Close()
}
