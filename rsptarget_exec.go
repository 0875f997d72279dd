// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// RSP signal codes relevant to stop classification.
const (
	sigINT  = 2
	sigTRAP = 5
)

// eventLoopID is set by [RspTarget.stopEventLoop] on its first tick so
// execution-command guards can recognize calls made from it.
func (rt *RspTarget) eventLoopID() uint64 {
	return atomic.LoadUint64(&rt.eventLoopGoroutineIDStore)
}

// isOwnerOrEventLoop reports whether the calling goroutine is the one
// that called [Connect] or the stop-event loop — the only two
// goroutines permitted to drive execution commands.
func (rt *RspTarget) isOwnerOrEventLoop() bool {
	id := currentGoroutineID()
	return id == rt.ownerGoroutineID || id == rt.eventLoopID()
}

// guardExecution is the Go analogue of the original's _guard_execution:
// it rejects calls from any goroutine other than the owner or the
// event loop, and reports whether the command should actually run (a
// continue/step issued while already running, or from the event loop
// while the user has requested a stop, is a silent no-op).
func (rt *RspTarget) guardExecution(command string) (bool, error) {
	if !rt.isOwnerOrEventLoop() {
		return false, &ErrNotOwningThread{Command: command}
	}

	isEventLoop := currentGoroutineID() == rt.eventLoopID()

	rt.mu.Lock()
	stopped := rt.targetIsStopped
	userStopped := rt.userStopped
	rt.mu.Unlock()

	if !stopped {
		rt.logDebug("execGuardSkipNotStopped", slog.String("command", command))
		return false, nil
	}
	if isEventLoop && userStopped {
		rt.logDebug("execGuardSkipUserStopped", slog.String("command", command))
		return false, nil
	}
	return true, nil
}

// CmdContinue implements "vCont;c". If a software breakpoint was
// temporarily removed to let its instruction execute (savedBP), it
// steps first — cmd_step re-arms the breakpoint as part of its own logic.
func (rt *RspTarget) CmdContinue(ctx context.Context) error {
	proceed, err := rt.guardExecution("continue")
	if err != nil || !proceed {
		return err
	}

	isOwner := currentGoroutineID() == rt.ownerGoroutineID

	rt.mu.Lock()
	rt.userStopped = false
	hasSaved := rt.savedBP != nil
	rt.mu.Unlock()

	if hasSaved {
		if err := rt.CmdStep(ctx); err != nil {
			return err
		}
	}

	if isOwner {
		rt.eventLock.Lock()
		defer rt.eventLock.Unlock()
	}

	rt.rspLock.Lock()
	defer rt.rspLock.Unlock()

	rt.mu.Lock()
	rt.targetIsStopped = false
	rt.mu.Unlock()

	rt.logDebug("cmdContinue")
	rt.pio.Send([]byte("vCont;c"))
	return nil
}

// CmdStep implements "vCont;s": wait for the stop queue to be observed
// empty before taking the event lock (so a pending event is handled
// first), single-step, dispatch any callbacks registered at the new
// PC, and re-arm a saved breakpoint exactly once.
func (rt *RspTarget) CmdStep(ctx context.Context) error {
	proceed, err := rt.guardExecution("step")
	if err != nil || !proceed {
		return err
	}

	isOwner := currentGoroutineID() == rt.ownerGoroutineID
	if isOwner {
		rt.acquireEventLockOnEmptyStopQueue()
		defer rt.eventLock.Unlock()
	}

	rt.rspLock.Lock()
	rt.pio.Send([]byte("vCont;s"))
	select {
	case <-rt.pio.StopQueue():
	case <-time.After(time.Second):
	}
	rt.rspLock.Unlock()

	addr, err := rt.readRegisterByName(ctx, "pc")
	if err == nil {
		rt.dispatchExecute(addr)
	}

	rt.mu.Lock()
	saved := rt.savedBP
	rt.savedBP = nil
	rt.mu.Unlock()

	if saved != nil {
		rt.logDebug("cmdStepRearm", slog.Uint64("addr", *saved))
		rt.setBreakpointWire(ctx, BreakpointSWExec, *saved, swExecBreakpointSize)
	}

	rt.logDebug("cmdStepDone")
	return nil
}

// acquireEventLockOnEmptyStopQueue acquires eventLock only once the
// stop queue is observed empty, releasing and briefly sleeping between
// checks so the event loop gets a chance to dispatch a pending event.
func (rt *RspTarget) acquireEventLockOnEmptyStopQueue() {
	for {
		rt.eventLock.Lock()
		if len(rt.pio.StopQueue()) == 0 {
			return
		}
		rt.eventLock.Unlock()
		time.Sleep(smallDelay)
	}
}

// CmdStop implements "vCtrlC". A second call while already stopped
// sends no packet, since the stub replies to vCtrlC only when the
// target was actually running.
func (rt *RspTarget) CmdStop(ctx context.Context) error {
	if !rt.isOwnerOrEventLoop() {
		return &ErrNotOwningThread{Command: "stop"}
	}

	rt.mu.Lock()
	rt.userStopped = true
	stopped := rt.targetIsStopped
	rt.mu.Unlock()
	if stopped {
		return nil
	}

	rt.eventLock.Lock()
	defer rt.eventLock.Unlock()
	rt.rspLock.Lock()
	defer rt.rspLock.Unlock()

	rt.mu.Lock()
	rt.targetIsStopped = true
	rt.mu.Unlock()

	rt.logDebug("cmdStop")
	rt.pio.Send([]byte("vCtrlC"))
	return nil
}

// Run implements [Backend] via [RspTarget.CmdContinue].
func (rt *RspTarget) Run(ctx context.Context) error { return rt.CmdContinue(ctx) }

// Stop implements [Backend] via [RspTarget.CmdStop].
func (rt *RspTarget) Stop(ctx context.Context) error { return rt.CmdStop(ctx) }

// Step implements [Backend] via [RspTarget.CmdStep].
func (rt *RspTarget) Step(ctx context.Context) error { return rt.CmdStep(ctx) }

// TargetIsRunning implements [Backend].
func (rt *RspTarget) TargetIsRunning() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return !rt.targetIsStopped
}

// stopEventLoop consumes the stop queue and dispatches events until
// [RspTarget.Close] signals shutdown. It records its own goroutine id
// on its first tick so execution-command guards recognize it.
func (rt *RspTarget) stopEventLoop() {
	atomic.StoreUint64(&rt.eventLoopGoroutineIDStore, currentGoroutineID())
	ctx := context.Background()

	for {
		select {
		case <-rt.eventDone:
			return
		default:
		}

		rt.eventLock.Lock()
		select {
		case packet := <-rt.pio.StopQueue():
			rt.handleStopPacket(ctx, packet)
			rt.eventLock.Unlock()
		default:
			rt.eventLock.Unlock()
			time.Sleep(smallDelay)
		}
	}
}

// handleStopPacket implements the software-breakpoint hit-handling
// sequence: classify the stop, and for a sw_exec/hw_exec hit, read PC,
// tolerantly remove the breakpoint there, dispatch on_execute, save the
// address for re-arming unless a callback already removed it, then
// resume.
func (rt *RspTarget) handleStopPacket(ctx context.Context, packet []byte) {
	rt.mu.Lock()
	rt.targetIsStopped = true
	rt.mu.Unlock()

	kind, watchAddr, recognized := rt.classifyStop(packet)

	switch {
	case recognized && (kind == BreakpointSWExec || kind == BreakpointHWExec):
		addr, err := rt.readRegisterByName(ctx, "pc")
		if err != nil {
			rt.logDebug("stopEventReadPCFailed", slog.Any("err", err))
			break
		}

		rt.mu.Lock()
		rt.callbackUnsetBP = false
		rt.mu.Unlock()

		rt.removeBreakpointWireTolerant(ctx, BreakpointSWExec, addr, swExecBreakpointSize)
		rt.dispatchExecute(addr)

		rt.mu.Lock()
		unset := rt.callbackUnsetBP
		if !unset {
			a := addr
			rt.savedBP = &a
		}
		rt.mu.Unlock()

	case recognized && kind == BreakpointReadWatch:
		rt.dispatchRead(watchAddr)
	case recognized && kind == BreakpointWriteWatch:
		rt.dispatchWrite(watchAddr)
	case recognized && kind == BreakpointAccessWatch:
		rt.dispatchAccess(watchAddr)
	default:
		rt.logDebug("stopEventUnrecognized", slog.String("packet", string(packet)))
	}

	rt.CmdContinue(ctx)
}

// classifyStop determines the reason a stop-reply packet was
// delivered. SIGINT-class stops are user-initiated and are not
// classified further. A SIGTRAP-class stop triggers a follow-up "?"
// query whose reply carries the swbreak/hwbreak/watch-kind annotation
// this function decodes.
func (rt *RspTarget) classifyStop(packet []byte) (BreakpointKind, uint64, bool) {
	if len(packet) < 3 || packet[0] != 'T' {
		return 0, 0, false
	}
	sig, err := strconv.ParseUint(string(packet[1:3]), 10, 8)
	if err != nil {
		return 0, 0, false
	}

	switch sig {
	case sigINT:
		return 0, 0, false
	case sigTRAP:
		rt.rspLock.Lock()
		rt.pio.Send([]byte("?"))
		var reply []byte
		select {
		case reply = <-rt.pio.StopQueue():
		case <-time.After(time.Second):
		}
		rt.rspLock.Unlock()
		if kind, addr, ok := classifyStopReply(reply); ok {
			return kind, addr, true
		}
		// No watch/hwbreak annotation on the reply: SIGTRAP with no
		// further detail is a software breakpoint trap.
		return BreakpointSWExec, 0, true
	default:
		return 0, 0, false
	}
}

// dispatchExecute, dispatchRead, dispatchWrite, dispatchAccess invoke
// the event-callback slots [CallbackManager] installs via [Backend].
func (rt *RspTarget) dispatchExecute(addr uint64) { rt.dispatch(rt.onExecute, addr) }
func (rt *RspTarget) dispatchRead(addr uint64)    { rt.dispatch(rt.onRead, addr) }
func (rt *RspTarget) dispatchWrite(addr uint64)   { rt.dispatch(rt.onWrite, addr) }
func (rt *RspTarget) dispatchAccess(addr uint64)  { rt.dispatch(rt.onAccess, addr) }

func (rt *RspTarget) dispatch(fn func(addr uint64), addr uint64) {
	rt.mu.Lock()
	f := fn
	rt.mu.Unlock()
	if f != nil {
		f(addr)
	}
}

// classifyStopReply decodes the swbreak/hwbreak/watch-kind annotation
// on a "?" reply. awatch is checked before rwatch and watch since
// "awatch:" and "rwatch:" both contain "watch:" as a substring.
func classifyStopReply(reply []byte) (BreakpointKind, uint64, bool) {
	s := string(reply)
	switch {
	case strings.Contains(s, "swbreak"):
		return BreakpointSWExec, 0, true
	case strings.Contains(s, "hwbreak"):
		return BreakpointHWExec, 0, true
	}
	if addr, ok := extractAnnotationAddr(s, "awatch:"); ok {
		return BreakpointAccessWatch, addr, true
	}
	if addr, ok := extractAnnotationAddr(s, "rwatch:"); ok {
		return BreakpointReadWatch, addr, true
	}
	if addr, ok := extractAnnotationAddr(s, "watch:"); ok {
		return BreakpointWriteWatch, addr, true
	}
	return 0, 0, false
}

func extractAnnotationAddr(s, token string) (uint64, bool) {
	idx := strings.Index(s, token)
	if idx < 0 {
		return 0, false
	}
	rest := s[idx+len(token):]
	end := strings.IndexByte(rest, ';')
	if end < 0 {
		end = len(rest)
	}
	val, err := strconv.ParseUint(rest[:end], 16, 64)
	if err != nil {
		return 0, false
	}
	return val, true
}
