// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import (
	"context"
	"errors"
	"log/slog"
)

// Target is the user-facing façade: it composes a [Backend] and a
// [CallbackManager] and owns both. Memory, register, and execution
// operations forward directly to the backend; hook installation and
// removal go through the callback manager.
type Target struct {
	backend Backend
	cb      *CallbackManager
	logger  SLogger
}

// NewTarget wires a [Target] over backend, creating its
// [CallbackManager]. logger may be nil.
func NewTarget(backend Backend, logger SLogger) *Target {
	if logger == nil {
		logger = DefaultSLogger()
	}
	return &Target{
		backend: backend,
		cb:      NewCallbackManager(backend, logger),
		logger:  logger,
	}
}

// ConnectTarget dials cfg and wraps the resulting [*RspTarget] in a [Target].
func ConnectTarget(ctx context.Context, cfg *Config) (*Target, error) {
	rt, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewTarget(rt, cfg.Logger), nil
}

// GetReg reads register name.
func (t *Target) GetReg(ctx context.Context, name string) (uint64, error) {
	return t.backend.GetReg(ctx, name)
}

// WriteReg writes val to register name.
func (t *Target) WriteReg(ctx context.Context, name string, val uint64) error {
	return t.backend.WriteReg(ctx, name, val)
}

// ReadUint8 reads one byte at addr.
func (t *Target) ReadUint8(ctx context.Context, addr uint64) (uint8, error) {
	return t.backend.ReadUint8(ctx, addr)
}

// ReadUint16 reads two bytes at addr.
func (t *Target) ReadUint16(ctx context.Context, addr uint64) (uint16, error) {
	return t.backend.ReadUint16(ctx, addr)
}

// ReadUint32 reads four bytes at addr.
func (t *Target) ReadUint32(ctx context.Context, addr uint64) (uint32, error) {
	return t.backend.ReadUint32(ctx, addr)
}

// ReadUint64 reads eight bytes at addr.
func (t *Target) ReadUint64(ctx context.Context, addr uint64) (uint64, error) {
	return t.backend.ReadUint64(ctx, addr)
}

// WriteUint8 writes one byte at addr.
func (t *Target) WriteUint8(ctx context.Context, addr uint64, val uint8) error {
	return t.backend.WriteUint8(ctx, addr, val)
}

// WriteUint16 writes two bytes at addr.
func (t *Target) WriteUint16(ctx context.Context, addr uint64, val uint16) error {
	return t.backend.WriteUint16(ctx, addr, val)
}

// WriteUint32 writes four bytes at addr.
func (t *Target) WriteUint32(ctx context.Context, addr uint64, val uint32) error {
	return t.backend.WriteUint32(ctx, addr, val)
}

// WriteUint64 writes eight bytes at addr.
func (t *Target) WriteUint64(ctx context.Context, addr uint64, val uint64) error {
	return t.backend.WriteUint64(ctx, addr, val)
}

// Run resumes execution.
func (t *Target) Run(ctx context.Context) error { return t.backend.Run(ctx) }

// Stop halts execution.
func (t *Target) Stop(ctx context.Context) error { return t.backend.Stop(ctx) }

// Step single-steps the target.
func (t *Target) Step(ctx context.Context) error { return t.backend.Step(ctx) }

// TargetIsRunning reports whether the target is known to be executing.
func (t *Target) TargetIsRunning() bool { return t.backend.TargetIsRunning() }

// Endian returns the target's configured byte order.
func (t *Target) Endian() Endian { return t.backend.Endian() }

// OnRead installs a read-watchpoint callback. size=0 uses the default
// watchpoint size.
func (t *Target) OnRead(ctx context.Context, addr uint64, size uint, cb Callback) (Handle, error) {
	return t.cb.OnRead(ctx, addr, size, cb)
}

// OnWrite installs a write-watchpoint callback.
func (t *Target) OnWrite(ctx context.Context, addr uint64, size uint, cb Callback) (Handle, error) {
	return t.cb.OnWrite(ctx, addr, size, cb)
}

// OnAccess installs a read/write-watchpoint callback.
func (t *Target) OnAccess(ctx context.Context, addr uint64, size uint, cb Callback) (Handle, error) {
	return t.cb.OnAccess(ctx, addr, size, cb)
}

// OnExecute installs an execute-breakpoint callback.
func (t *Target) OnExecute(ctx context.Context, addr uint64, cb Callback) (Handle, error) {
	return t.cb.OnExecute(ctx, addr, cb)
}

// RemoveCallback removes the registration identified by h. Breakpoint-
// remove failures reported by the backend are logged and swallowed: by
// the time a remove reaches the stub, the breakpoint has frequently
// already been cleared, and the façade's contract is "this hook no
// longer fires," which remains true either way.
func (t *Target) RemoveCallback(ctx context.Context, h Handle) error {
	err := t.cb.RemoveCallback(ctx, h)
	var removeErr *ErrBreakpointRemove
	if errors.As(err, &removeErr) {
		t.logger.Debug("breakpointRemoveSuppressed", slog.Any("err", err))
		return nil
	}
	return err
}

// Shutdown tears down the backend, which closes PacketIO and joins its
// goroutines.
func (t *Target) Shutdown(ctx context.Context) error {
	return t.backend.Shutdown(ctx)
}
