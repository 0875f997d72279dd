// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import (
	"bufio"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replyAndAck writes a reply frame and, for any non-"OK" payload, also
// drains the single "+" ack [PacketIO] sends back for it, so a script
// that reads another command frame right afterward doesn't see that
// ack byte prepended to it.
func replyAndAck(t *testing.T, stub *bufio.ReadWriter, payload string) {
	t.Helper()
	writeFrame(t, stub, payload)
	if payload != "OK" {
		ack := make([]byte, 1)
		_, err := stub.Read(ack)
		require.NoError(t, err)
		require.Equal(t, byte('+'), ack[0])
	}
}

func TestRspTargetCmdContinueSendsVCont(t *testing.T) {
	rt, stub := newTestRspTarget(t)
	ctx := context.Background()

	done := make(chan string, 1)
	go func() { done <- readFrame(t, stub) }()

	require.NoError(t, rt.CmdContinue(ctx))
	assert.Equal(t, "vCont;c", drainWithin(t, done, time.Second))
}

// cmd_step drains at most one stop packet off the queue, reads the new
// pc, and dispatches on_execute there.
func TestRspTargetCmdStepDrainsOneStopPacketAndDispatches(t *testing.T) {
	rt, stub := newTestRspTarget(t)
	ctx := context.Background()

	executed := make(chan uint64, 1)
	rt.SetOnExecuteCallback(func(addr uint64) { executed <- addr })

	go func() {
		got := readFrame(t, stub)
		require.Equal(t, "vCont;s", got)
		replyAndAck(t, stub, "S05")

		got2 := readFrame(t, stub)
		require.Equal(t, "p0", got2)
		replyAndAck(t, stub, "00100000") // pc == 0x1000, little-endian
	}()

	require.NoError(t, rt.CmdStep(ctx))

	select {
	case addr := <-executed:
		assert.Equal(t, uint64(0x1000), addr)
	case <-time.After(time.Second):
		t.Fatal("on_execute was not dispatched")
	}
}

// A saved breakpoint is re-armed exactly once, at its own address, not
// the newly-read pc.
func TestRspTargetCmdStepRearmsSavedBreakpointExactlyOnce(t *testing.T) {
	rt, stub := newTestRspTarget(t)
	ctx := context.Background()

	saved := uint64(0x2000)
	rt.savedBP = &saved

	go func() {
		got := readFrame(t, stub)
		require.Equal(t, "vCont;s", got)
		replyAndAck(t, stub, "S05")

		got2 := readFrame(t, stub)
		require.Equal(t, "p0", got2)
		replyAndAck(t, stub, "00100000")

		got3 := readFrame(t, stub)
		require.Equal(t, "Z0,00002000,4", got3)
		writeFrame(t, stub, "OK")
	}()

	require.NoError(t, rt.CmdStep(ctx))

	rt.mu.Lock()
	remaining := rt.savedBP
	rt.mu.Unlock()
	assert.Nil(t, remaining)
}

func TestRspTargetCmdStopSendsVCtrlCWhenRunning(t *testing.T) {
	rt, stub := newTestRspTarget(t)
	rt.targetIsStopped = false
	ctx := context.Background()

	done := make(chan string, 1)
	go func() { done <- readFrame(t, stub) }()

	require.NoError(t, rt.CmdStop(ctx))
	assert.Equal(t, "vCtrlC", drainWithin(t, done, time.Second))
}

// A second cmd_stop while already stopped sends no packet.
func TestRspTargetCmdStopNoOpWhenAlreadyStopped(t *testing.T) {
	rt, _ := newTestRspTarget(t) // targetIsStopped == true from the helper
	ctx := context.Background()

	require.NoError(t, rt.CmdStop(ctx))
	assert.Equal(t, 0, len(rt.pio.sendQueue))
}

// The stop-event loop classifies a trapped watchpoint stop via its
// follow-up "?" query, dispatches on_write, and resumes the target.
func TestStopEventLoopDispatchesWatchpointAndResumes(t *testing.T) {
	rt, stub := newTestRspTarget(t)

	written := make(chan uint64, 1)
	rt.SetOnWriteCallback(func(addr uint64) { written <- addr })

	go rt.stopEventLoop()
	t.Cleanup(func() { close(rt.eventDone) })

	resumed := make(chan string, 1)
	go func() {
		replyAndAck(t, stub, "T05")

		got := readFrame(t, stub)
		require.Equal(t, "?", got)
		replyAndAck(t, stub, "T05watch:2000;")

		resumed <- readFrame(t, stub)
	}()

	select {
	case addr := <-written:
		assert.Equal(t, uint64(0x2000), addr)
	case <-time.After(time.Second):
		t.Fatal("on_write was not dispatched")
	}
	assert.Equal(t, "vCont;c", drainWithin(t, resumed, time.Second))
}

// A T05 stop whose "?" follow-up carries no swbreak/hwbreak/watch
// annotation (e.g. just a thread id) still classifies as sw_exec: a
// bare SIGTRAP with no other detail is a software breakpoint trap.
func TestClassifyStopDefaultsToSWExecOnPlainSigtrap(t *testing.T) {
	rt, stub := newTestRspTarget(t)

	go func() {
		got := readFrame(t, stub)
		require.Equal(t, "?", got)
		replyAndAck(t, stub, "T05thread:p01.01;")
	}()

	kind, addr, ok := rt.classifyStop([]byte("T05"))
	require.True(t, ok)
	assert.Equal(t, BreakpointSWExec, kind)
	assert.Equal(t, uint64(0), addr)
}
