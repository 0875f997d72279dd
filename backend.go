// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import "context"

// Backend is the narrow, language-neutral contract [CallbackManager]
// and [Target] consume. [*RspTarget] implements it; a second,
// in-process host-debugger backend is recognized by this interface but
// not implemented here — the contract is what matters.
type Backend interface {
	// GetReg reads register name and returns its value.
	GetReg(ctx context.Context, name string) (uint64, error)
	// WriteReg writes val to register name.
	WriteReg(ctx context.Context, name string, val uint64) error

	// ReadUint8, ReadUint16, ReadUint32, ReadUint64 read size bytes of
	// memory at addr and interpret them per [Config.Endian].
	ReadUint8(ctx context.Context, addr uint64) (uint8, error)
	ReadUint16(ctx context.Context, addr uint64) (uint16, error)
	ReadUint32(ctx context.Context, addr uint64) (uint32, error)
	ReadUint64(ctx context.Context, addr uint64) (uint64, error)

	// WriteUint8, WriteUint16, WriteUint32, WriteUint64 write val to
	// memory at addr.
	WriteUint8(ctx context.Context, addr uint64, val uint8) error
	WriteUint16(ctx context.Context, addr uint64, val uint16) error
	WriteUint32(ctx context.Context, addr uint64, val uint32) error
	WriteUint64(ctx context.Context, addr uint64, val uint64) error

	// Run resumes execution ("vCont;c").
	Run(ctx context.Context) error
	// Stop halts execution ("vCtrlC").
	Stop(ctx context.Context) error
	// Step single-steps ("vCont;s").
	Step(ctx context.Context) error
	// TargetIsRunning reports whether the target is known to be executing.
	TargetIsRunning() bool

	// SetReadBreakpoint, SetWriteBreakpoint, SetAccessBreakpoint,
	// SetExecBreakpoint install a breakpoint of the corresponding kind at
	// addr. DelReadBreakpoint, DelWriteBreakpoint, DelAccessBreakpoint,
	// DelExecBreakpoint remove one.
	SetReadBreakpoint(ctx context.Context, addr uint64, size uint) error
	DelReadBreakpoint(ctx context.Context, addr uint64, size uint) error
	SetWriteBreakpoint(ctx context.Context, addr uint64, size uint) error
	DelWriteBreakpoint(ctx context.Context, addr uint64, size uint) error
	SetAccessBreakpoint(ctx context.Context, addr uint64, size uint) error
	DelAccessBreakpoint(ctx context.Context, addr uint64, size uint) error
	SetExecBreakpoint(ctx context.Context, addr uint64) error
	DelExecBreakpoint(ctx context.Context, addr uint64) error

	// SetOnReadCallback, SetOnWriteCallback, SetOnAccessCallback,
	// SetOnExecuteCallback install the single event-dispatch slot
	// [CallbackManager] uses to learn that a watch/breakpoint fired. Each
	// accepts nil to clear the slot.
	SetOnReadCallback(fn func(addr uint64))
	SetOnWriteCallback(fn func(addr uint64))
	SetOnAccessCallback(fn func(addr uint64))
	SetOnExecuteCallback(fn func(addr uint64))

	// Endian returns the target's configured byte order.
	Endian() Endian

	// Shutdown tears down the backend's connection and goroutines.
	Shutdown(ctx context.Context) error
}
