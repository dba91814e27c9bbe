package enginesim

import (
	"github.com/jd3nn1s/kw1281"
	"io"
	"sync"
)

type adapterStub struct {
	mu sync.Mutex

	initCount   int
	uninitCount int
	initStatus  Status
	uninitFn    func()
	writeStatus map[uint32]Status
	frames      []Frame

	writeChan chan Frame
}

func createAdapterStub() *adapterStub {
	return &adapterStub{
		writeStatus: map[uint32]Status{},
		writeChan:   make(chan Frame, 64),
	}
}

func (a *adapterStub) Initialize(Channel, BaudRate) Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.initCount++
	return a.initStatus
}

func (a *adapterStub) Write(_ Channel, f Frame) Status {
	a.mu.Lock()
	a.frames = append(a.frames, f)
	status := a.writeStatus[f.ID]
	a.mu.Unlock()
	select {
	case a.writeChan <- f:
	default:
	}
	return status
}

func (a *adapterStub) Uninitialize(Channel) Status {
	a.mu.Lock()
	a.uninitCount++
	fn := a.uninitFn
	a.mu.Unlock()
	if fn != nil {
		fn()
	}
	return StatusOK
}

func (a *adapterStub) StatusText(s Status) string {
	if s == 0x20 {
		return "fake bus error"
	}
	return ""
}

func (a *adapterStub) writes() []Frame {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Frame(nil), a.frames...)
}

func (a *adapterStub) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initCount, a.uninitCount
}

type setterStub struct {
	mu     sync.Mutex
	values map[Signal]int
	set    chan Signal
}

func createSetterStub() *setterStub {
	return &setterStub{
		values: map[Signal]int{},
		set:    make(chan Signal, 16),
	}
}

func (s *setterStub) SetSignalValue(sig Signal, v int) error {
	s.mu.Lock()
	s.values[sig] = v
	s.mu.Unlock()
	select {
	case s.set <- sig:
	default:
	}
	return nil
}

func (s *setterStub) value(sig Signal) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[sig]
	return v, ok
}

// kw1281Stub plays back ECU blocks and records the replies. Recv fails once
// the script is exhausted.
type kw1281Stub struct {
	mu      sync.Mutex
	initErr error
	script  []*kw1281.Block
	sent    []*kw1281.Block
	inits   int
	closed  bool
}

func createECUStub(script ...*kw1281.Block) *kw1281Stub {
	return &kw1281Stub{script: script}
}

func (k *kw1281Stub) Init() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.inits++
	return k.initErr
}

func (k *kw1281Stub) Recv() (*kw1281.Block, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.script) == 0 {
		return nil, io.EOF
	}
	blk := k.script[0]
	k.script = k.script[1:]
	return blk, nil
}

func (k *kw1281Stub) Send(blk *kw1281.Block) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.sent = append(k.sent, blk)
	return nil
}

func (k *kw1281Stub) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.closed = true
	return nil
}

func (k *kw1281Stub) replies() []kw1281.Block {
	k.mu.Lock()
	defer k.mu.Unlock()
	var out []kw1281.Block
	for _, blk := range k.sent {
		out = append(out, *blk)
	}
	return out
}

type forwarderStub struct {
	frames chan Frame
}

func (fwd *forwarderStub) Forward(f Frame) error {
	fwd.frames <- f
	return nil
}
