// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import (
	"context"
	"log/slog"
	"time"
)

// setBreakpointWire issues "Z<kind>,<addr>,<size>".
func (rt *RspTarget) setBreakpointWire(ctx context.Context, kind BreakpointKind, addr uint64, size uint) error {
	rt.rspLock.Lock()
	rt.pio.Send([]byte("Z" + string(kind.wireCode()) + "," + hexAddr(addr, rt.addrSize) + "," + hexval(uint64(size), 1)))
	reply, ok := rt.pio.Recv(2 * time.Second)
	rt.rspLock.Unlock()

	if !ok || string(reply) != "OK" {
		return &ErrBreakpointSet{Kind: kind, Addr: addr, Err: &ErrUnexpectedReply{Command: "Z", Reply: string(reply)}}
	}
	return nil
}

// delBreakpointWire issues "z<kind>,<addr>,<size>".
func (rt *RspTarget) delBreakpointWire(ctx context.Context, kind BreakpointKind, addr uint64, size uint) error {
	rt.rspLock.Lock()
	rt.pio.Send([]byte("z" + string(kind.wireCode()) + "," + hexAddr(addr, rt.addrSize) + "," + hexval(uint64(size), 1)))
	reply, ok := rt.pio.Recv(2 * time.Second)
	rt.rspLock.Unlock()

	if !ok || string(reply) != "OK" {
		return &ErrBreakpointRemove{Kind: kind, Addr: addr, Err: &ErrUnexpectedReply{Command: "z", Reply: string(reply)}}
	}
	return nil
}

// removeBreakpointWireTolerant removes a breakpoint without propagating
// failure: the stop-event loop calls this on every software-breakpoint
// hit, and the stub frequently has already dropped the breakpoint by
// the time the removal reaches it.
func (rt *RspTarget) removeBreakpointWireTolerant(ctx context.Context, kind BreakpointKind, addr uint64, size uint) {
	if err := rt.delBreakpointWire(ctx, kind, addr, size); err != nil {
		rt.logDebug("breakpointRemoveTolerated", slog.Any("err", err))
	}
}

// SetReadBreakpoint implements [Backend].
func (rt *RspTarget) SetReadBreakpoint(ctx context.Context, addr uint64, size uint) error {
	return rt.setBreakpointWire(ctx, BreakpointReadWatch, addr, size)
}

// DelReadBreakpoint implements [Backend].
func (rt *RspTarget) DelReadBreakpoint(ctx context.Context, addr uint64, size uint) error {
	return rt.delBreakpointWire(ctx, BreakpointReadWatch, addr, size)
}

// SetWriteBreakpoint implements [Backend].
func (rt *RspTarget) SetWriteBreakpoint(ctx context.Context, addr uint64, size uint) error {
	return rt.setBreakpointWire(ctx, BreakpointWriteWatch, addr, size)
}

// DelWriteBreakpoint implements [Backend].
func (rt *RspTarget) DelWriteBreakpoint(ctx context.Context, addr uint64, size uint) error {
	return rt.delBreakpointWire(ctx, BreakpointWriteWatch, addr, size)
}

// SetAccessBreakpoint implements [Backend].
func (rt *RspTarget) SetAccessBreakpoint(ctx context.Context, addr uint64, size uint) error {
	return rt.setBreakpointWire(ctx, BreakpointAccessWatch, addr, size)
}

// DelAccessBreakpoint implements [Backend].
func (rt *RspTarget) DelAccessBreakpoint(ctx context.Context, addr uint64, size uint) error {
	return rt.delBreakpointWire(ctx, BreakpointAccessWatch, addr, size)
}

// swExecBreakpointSize is the length field sw_exec's "Z0"/"z0" commands
// carry; per the protocol this is always 4, not the instruction width.
const swExecBreakpointSize = 4

// SetExecBreakpoint implements [Backend].
func (rt *RspTarget) SetExecBreakpoint(ctx context.Context, addr uint64) error {
	return rt.setBreakpointWire(ctx, BreakpointSWExec, addr, swExecBreakpointSize)
}

// DelExecBreakpoint implements [Backend]. If called from a callback
// goroutine (neither the owner nor the stop-event loop) while the
// target's PC sits exactly at addr, it marks the pending re-arm in
// [RspTarget.handleStopPacket] as cancelled: the callback has taken
// responsibility for the breakpoint at the address it was invoked for.
func (rt *RspTarget) DelExecBreakpoint(ctx context.Context, addr uint64) error {
	if !rt.isOwnerOrEventLoop() {
		if pc, err := rt.readRegisterByName(ctx, "pc"); err == nil && pc == addr {
			rt.mu.Lock()
			rt.callbackUnsetBP = true
			rt.mu.Unlock()
		}
	}
	return rt.delBreakpointWire(ctx, BreakpointSWExec, addr, swExecBreakpointSize)
}
