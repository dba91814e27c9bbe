package enginesim

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

func TestSessionForwardsWrittenFrames(t *testing.T) {
	a := createAdapterStub()
	var written []Frame
	var mu sync.Mutex
	sess, err := NewSession(a, testConfig(), Callbacks{
		FrameWritten: func(f Frame) {
			mu.Lock()
			written = append(written, f)
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	defer sess.Close()

	fwd := &forwarderStub{frames: make(chan Frame, frameBufferSize)}
	sess.AddForwarder(fwd)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- sess.Run(ctx)
	}()

	require.NoError(t, sess.Transmitter().Start())
	var forwarded []Frame
	for len(forwarded) < len(Signals) {
		select {
		case f := <-fwd.frames:
			forwarded = append(forwarded, f)
		case <-time.After(2 * time.Second):
			require.FailNow(t, "timed out waiting for forwarded frames")
		}
	}
	sess.Transmitter().Stop()
	assert.Equal(t, []uint32{
		CoolantTemperature.ID(),
		EngineSpeed.ID(),
		AmbientAirTemperature.ID(),
		IntakeManifoldTemperature.ID(),
	}, ids(forwarded))

	mu.Lock()
	assert.GreaterOrEqual(t, len(written), len(Signals), "caller callbacks still fire")
	mu.Unlock()

	cancel()
	assert.Equal(t, context.Canceled, <-done)
}

func TestSessionQueueDropsWhenFull(t *testing.T) {
	sess, err := NewSession(createAdapterStub(), testConfig(), Callbacks{})
	require.NoError(t, err)
	defer sess.Close()

	f, err := Encode(EngineSpeed, 800, DefaultCalibration())
	require.NoError(t, err)
	for i := 0; i < frameBufferSize+10; i++ {
		sess.queue(f)
	}
	assert.Len(t, sess.frames, frameBufferSize)
}

func TestSessionRunsSweep(t *testing.T) {
	cfg := testConfig()
	cfg.Sweep.Enabled = true
	cfg.Sweep.Step = Duration{time.Millisecond}

	sess, err := NewSession(createAdapterStub(), cfg, Callbacks{})
	require.NoError(t, err)
	defer sess.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- sess.Run(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for sess.Transmitter().SignalValue(EngineSpeed) == DefaultEngineSpeed {
		if time.Now().After(deadline) {
			require.FailNow(t, "sweep never updated the engine speed")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	assert.Equal(t, context.Canceled, <-done)
}

func TestSessionStoppedCallback(t *testing.T) {
	stopped := make(chan struct{}, 1)
	sess, err := NewSession(createAdapterStub(), testConfig(), Callbacks{
		Stopped: func() {
			stopped <- struct{}{}
		},
	})
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.Transmitter().Start())
	sess.Transmitter().Stop()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "stopped callback not called")
	}
}
