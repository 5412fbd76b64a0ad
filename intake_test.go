package modbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestOnByteRunProcessHandoff exercises the full producer/consumer path
// rather than calling handleFrame directly: DeliverByteRun fills the
// active buffer and flips ready, Process drains it exactly once.
func TestOnByteRunProcessHandoff(t *testing.T) {
	rf := NewRegisterFile(0, 0, 4, 0)
	defer rf.Close()
	ins, link := newTestInstance(rf, 0x01)
	ctx := context.Background()

	req := buildRequest(0x01, 0x03, []byte{0x00, 0x00, 0x00, 0x02})
	ins.DeliverByteRun(req)
	ins.Process(ctx)

	require.Equal(t, 1, link.frameCount())
	require.Equal(t, []byte{0x01, 0x03, 0x04, 0x00, 0x00, 0x00, 0x00}, link.lastFrame()[:7])

	// A second Process call with nothing pending must be a no-op.
	ins.Process(ctx)
	require.Equal(t, 1, link.frameCount())
}

// TestOnByteRunLossPolicy confirms the loss policy: if a second frame
// arrives before Process ever drains the first one, the stale pending
// frame is overwritten rather than queued.
func TestOnByteRunLossPolicy(t *testing.T) {
	rf := NewRegisterFile(0, 0, 4, 0)
	defer rf.Close()
	ins, link := newTestInstance(rf, 0x01)

	// first would read holding register 0; second (a single-register write,
	// which echoes its own request byte-for-byte) arrives before Process
	// ever drains the first.
	first := buildRequest(0x01, 0x03, []byte{0x00, 0x00, 0x00, 0x01})
	second := buildRequest(0x01, 0x06, []byte{0x00, 0x01, 0x00, 0x2A})
	ins.DeliverByteRun(first)
	ins.DeliverByteRun(second)

	// Process now drains whatever the last handoff left pending, not the
	// first, lost frame: exactly one response, and it is second's echo.
	ins.Process(context.Background())
	require.Equal(t, 1, link.frameCount())
	require.Equal(t, second, link.lastFrame())
}

// TestIdempotentWriteSingleRegister confirms that two identical
// write-single requests produce identical responses and leave the register
// file in the same state as one.
func TestIdempotentWriteSingleRegister(t *testing.T) {
	rf := NewRegisterFile(0, 0, 4, 0)
	defer rf.Close()
	ins, link := newTestInstance(rf, 0x01)
	ctx := context.Background()

	req := buildRequest(0x01, 0x06, []byte{0x00, 0x02, 0x00, 0x2A})
	ins.handleFrame(ctx, req)
	first := append([]byte(nil), link.lastFrame()...)

	ins.handleFrame(ctx, req)
	second := link.lastFrame()

	require.Equal(t, first, second)
	require.Equal(t, []uint16{0x2A}, rf.ReadHolding(2, 1))
}

// TestBufferIndependenceAcrossInstances confirms that, of two Instances
// sharing a RegisterFile, the second observes a completed write made
// through the first (read-your-writes per register).
func TestBufferIndependenceAcrossInstances(t *testing.T) {
	rf := NewRegisterFile(0, 0, 4, 0)
	defer rf.Close()
	ctx := context.Background()

	insA, linkA := newTestInstance(rf, 0x01)
	insB, linkB := newTestInstance(rf, 0x02)

	writeReq := buildRequest(0x01, 0x06, []byte{0x00, 0x00, 0x12, 0x34})
	insA.handleFrame(ctx, writeReq)
	require.NotNil(t, linkA.lastFrame())

	readReq := buildRequest(0x02, 0x03, []byte{0x00, 0x00, 0x00, 0x01})
	insB.handleFrame(ctx, readReq)
	require.Equal(t, []byte{0x02, 0x03, 0x02, 0x12, 0x34}, linkB.lastFrame()[:5])
}
