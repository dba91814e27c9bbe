package enginesim

import (
	"context"
	"fmt"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"sync"
	"sync/atomic"
	"time"
)

// Callbacks report what the transmission loop did. They run on the loop
// goroutine and must not block. Stop and Close wait for that goroutine, as
// does Start after RequestStop, so a callback must not call them.
// RequestStop ends transmission from a callback.
type Callbacks struct {
	FrameWritten func(Frame)
	Error        func(error)
	Stopped      func()
}

type Option func(*Transmitter)

func WithCallbacks(cb Callbacks) Option {
	return func(t *Transmitter) {
		t.cb = cb
	}
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(t *Transmitter) {
		t.meterProvider = mp
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(t *Transmitter) {
		t.tracerProvider = tp
	}
}

// Transmitter periodically encodes every enabled signal and writes its frame
// through the adapter. Stopping takes effect at the next cycle boundary, so
// Stop may block for up to one interval.
type Transmitter struct {
	adapter  Adapter
	channel  Channel
	baud     BaudRate
	interval time.Duration
	policy   DisabledPolicy
	cal      Calibration
	cb       Callbacks

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	in             *instruments

	state *TransmitterState

	// serializes Start, Stop and Close
	lifecycle sync.Mutex
	running   atomic.Bool
	open      atomic.Bool
	done      chan struct{}
	closed    bool
}

// NewTransmitter opens the adapter channel. A failed initialization is
// reported but does not prevent transmission attempts.
func NewTransmitter(adapter Adapter, cfg *Config, opts ...Option) (*Transmitter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Transmitter{
		adapter:  adapter,
		channel:  cfg.Channel,
		baud:     cfg.BaudRate,
		interval: cfg.Interval.Duration,
		policy:   cfg.DisabledPolicy,
		cal:      cfg.Calibration,
		state:    NewTransmitterState(cfg.InitialState()),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.in = newInstruments(t.meterProvider, t.tracerProvider)
	t.initialize()
	return t, nil
}

func (t *Transmitter) SetSignalValue(s Signal, value int) error {
	if !s.Valid() {
		return ErrUnknownSignal
	}
	log.WithField("signal", s).WithField("value", value).Debug("signal value updated")
	t.state.SetValue(s, value)
	return nil
}

func (t *Transmitter) SetSignalEnabled(s Signal, enabled bool) error {
	if !s.Valid() {
		return ErrUnknownSignal
	}
	log.WithField("signal", s).WithField("enabled", enabled).Debug("signal toggled")
	t.state.SetEnabled(s, enabled)
	return nil
}

func (t *Transmitter) SignalValue(s Signal) int {
	if !s.Valid() {
		return 0
	}
	return t.state.Value(s)
}

func (t *Transmitter) SignalEnabled(s Signal) bool {
	if !s.Valid() {
		return false
	}
	return t.state.Enabled(s)
}

func (t *Transmitter) State() StateSnapshot {
	return t.state.Snapshot()
}

func (t *Transmitter) Interval() time.Duration {
	return t.interval
}

// Frame encodes the current value of s without transmitting it.
func (t *Transmitter) Frame(s Signal) (Frame, error) {
	if !s.Valid() {
		return Frame{}, ErrUnknownSignal
	}
	return Encode(s, t.state.Value(s), t.cal)
}

func (t *Transmitter) Running() bool {
	return t.running.Load()
}

// Start launches the transmission loop and returns immediately. A second
// Start without an intervening Stop is rejected with ErrAlreadyRunning.
// After RequestStop it first waits for the previous loop to exit.
func (t *Transmitter) Start() error {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.done != nil {
		if t.running.Load() {
			log.Warn("transmitter already running")
			return ErrAlreadyRunning
		}
		// stopped through RequestStop, the loop may still be finishing
		<-t.done
		t.done = nil
	}
	if !t.open.Load() {
		t.initialize()
	}

	t.running.Store(true)
	done := make(chan struct{})
	t.done = done
	go t.run(done)
	log.WithField("interval", t.interval).Info("transmission started")
	return nil
}

// Stop clears the running flag and waits until the loop has exited and the
// channel has been uninitialized.
func (t *Transmitter) Stop() {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()
	t.stop()
}

// RequestStop clears the running flag without waiting. The loop exits at the
// next cycle boundary, uninitializes the channel and reports Stopped. Unlike
// Stop it may be called from a callback.
func (t *Transmitter) RequestStop() {
	if t.running.Swap(false) {
		log.Info("transmission stop requested")
	}
}

func (t *Transmitter) stop() {
	if t.done == nil {
		return
	}
	t.running.Store(false)
	<-t.done
	t.done = nil
}

// Close ends the session. The channel is uninitialized whether or not the
// loop was running.
func (t *Transmitter) Close() {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	if t.done != nil {
		t.stop()
		return
	}
	if t.open.Load() {
		t.uninitialize()
	}
}

func (t *Transmitter) initialize() {
	status := t.adapter.Initialize(t.channel, t.baud)
	t.open.Store(true)
	if status != StatusOK {
		err := &AdapterInitError{
			Channel: t.channel,
			Status:  status,
			Text:    statusText(t.adapter, status),
		}
		log.WithField("status", uint32(status)).Error(err)
		t.reportError(err)
		return
	}
	log.WithField("channel", fmt.Sprintf("0x%X", uint16(t.channel))).
		WithField("baudRate", uint32(t.baud)).
		Info("CAN adapter initialized")
}

func (t *Transmitter) uninitialize() {
	status := t.adapter.Uninitialize(t.channel)
	t.open.Store(false)
	if status != StatusOK {
		err := &AdapterUninitError{
			Channel: t.channel,
			Status:  status,
			Text:    statusText(t.adapter, status),
		}
		log.WithField("status", uint32(status)).Error(err)
		t.reportError(err)
		return
	}
	log.Info("CAN adapter uninitialized")
}

func (t *Transmitter) run(done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	for t.running.Load() {
		t.cycle()
		<-ticker.C
	}
	ticker.Stop()

	t.uninitialize()
	if t.cb.Stopped != nil {
		t.cb.Stopped()
	}
}

func (t *Transmitter) cycle() {
	ctx, span := t.in.startCycle()
	defer span.End()

	snap := t.state.Snapshot()
	written := 0
	for _, s := range Signals {
		var frame Frame
		var err error
		switch {
		case snap.Enabled[s]:
			frame, err = Encode(s, snap.Values[s], t.cal)
		case t.policy == DisabledZeroFill:
			frame, err = ZeroFrame(s)
		default:
			continue
		}
		if err != nil {
			t.reportError(err)
			continue
		}
		if t.write(ctx, s, frame) {
			written++
		}
	}
	span.SetAttributes(attribute.Int("frames_written", written))
}

func (t *Transmitter) write(ctx context.Context, s Signal, frame Frame) bool {
	status := t.adapter.Write(t.channel, frame)
	if status != StatusOK {
		err := &AdapterWriteError{
			Signal: s,
			ID:     frame.ID,
			Status: status,
			Text:   statusText(t.adapter, status),
		}
		log.WithField("canID", fmt.Sprintf("0x%08X", frame.ID)).
			WithField("status", uint32(status)).
			Error(err)
		t.in.frameFailed(ctx, s)
		t.reportError(err)
		return false
	}
	log.WithField("canID", fmt.Sprintf("0x%08X", frame.ID)).
		WithField("data", fmt.Sprintf("% X", frame.Data[:])).
		Debug("frame written")
	t.in.frameWritten(ctx, s)
	if t.cb.FrameWritten != nil {
		t.cb.FrameWritten(frame)
	}
	return true
}

func (t *Transmitter) reportError(err error) {
	if t.cb.Error != nil {
		t.cb.Error(err)
	}
}
