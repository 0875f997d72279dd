// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import "fmt"

// RspError is implemented by every error this package returns that
// callers may want to handle by category (via [errors.As]) rather than
// by matching error strings.
type RspError interface {
	error
	rspError()
}

// ErrConnect wraps a failure to establish the TCP connection to the
// gdbstub at Host:Port.
type ErrConnect struct {
	Host string
	Port uint16
	Err  error
}

func (e *ErrConnect) Error() string {
	return fmt.Sprintf("monk: connect %s:%d: %v", e.Host, e.Port, e.Err)
}

func (e *ErrConnect) Unwrap() error { return e.Err }
func (*ErrConnect) rspError()       {}

// ErrConnectionReset indicates the underlying connection was reset by
// the peer while a [PacketIO] send or receive was in flight.
type ErrConnectionReset struct {
	Err error
}

func (e *ErrConnectionReset) Error() string {
	return fmt.Sprintf("monk: connection reset: %v", e.Err)
}

func (e *ErrConnectionReset) Unwrap() error { return e.Err }
func (*ErrConnectionReset) rspError()       {}

// ErrBrokenPipe indicates a write to the underlying connection failed
// because the peer closed its read side.
type ErrBrokenPipe struct {
	Err error
}

func (e *ErrBrokenPipe) Error() string {
	return fmt.Sprintf("monk: broken pipe: %v", e.Err)
}

func (e *ErrBrokenPipe) Unwrap() error { return e.Err }
func (*ErrBrokenPipe) rspError()       {}

// ErrUnexpectedReply indicates the gdbstub replied with something
// other than what the issued command expects (e.g. neither "OK" nor an
// "E" error reply to a write).
type ErrUnexpectedReply struct {
	Command string
	Reply   string
}

func (e *ErrUnexpectedReply) Error() string {
	return fmt.Sprintf("monk: unexpected reply to %q: %q", e.Command, e.Reply)
}

func (*ErrUnexpectedReply) rspError() {}

// ErrRegisterUnknown indicates a register name has no entry in the
// layout discovered from the target's feature XML.
type ErrRegisterUnknown struct {
	Name string
}

func (e *ErrRegisterUnknown) Error() string {
	return fmt.Sprintf("monk: unknown register %q", e.Name)
}

func (*ErrRegisterUnknown) rspError() {}

// ErrRegisterRead indicates a register read (the RSP "p" command)
// failed or returned a malformed reply.
type ErrRegisterRead struct {
	Name string
	Err  error
}

func (e *ErrRegisterRead) Error() string {
	return fmt.Sprintf("monk: read register %q: %v", e.Name, e.Err)
}

func (e *ErrRegisterRead) Unwrap() error { return e.Err }
func (*ErrRegisterRead) rspError()       {}

// ErrMemoryWrite indicates a memory write (the RSP "M" command) was
// rejected by the target.
type ErrMemoryWrite struct {
	Addr uint64
	Size uint
	Err  error
}

func (e *ErrMemoryWrite) Error() string {
	return fmt.Sprintf("monk: write memory %#x (%d bytes): %v", e.Addr, e.Size, e.Err)
}

func (e *ErrMemoryWrite) Unwrap() error { return e.Err }
func (*ErrMemoryWrite) rspError()       {}

// ErrBreakpointSet indicates a breakpoint/watchpoint insert command
// ("Z") was rejected by the target.
type ErrBreakpointSet struct {
	Kind BreakpointKind
	Addr uint64
	Err  error
}

func (e *ErrBreakpointSet) Error() string {
	return fmt.Sprintf("monk: set %v breakpoint at %#x: %v", e.Kind, e.Addr, e.Err)
}

func (e *ErrBreakpointSet) Unwrap() error { return e.Err }
func (*ErrBreakpointSet) rspError()       {}

// ErrBreakpointRemove indicates a breakpoint/watchpoint remove command
// ("z") was rejected by the target.
type ErrBreakpointRemove struct {
	Kind BreakpointKind
	Addr uint64
	Err  error
}

func (e *ErrBreakpointRemove) Error() string {
	return fmt.Sprintf("monk: remove %v breakpoint at %#x: %v", e.Kind, e.Addr, e.Err)
}

func (e *ErrBreakpointRemove) Unwrap() error { return e.Err }
func (*ErrBreakpointRemove) rspError()       {}

// ErrExecutionDisallowed describes an execution command (continue,
// step, stop) rejected because of the target's state. The execution
// commands of [RspTarget] do not return it: a continue or step issued
// while the target is running is a silent no-op.
type ErrExecutionDisallowed struct {
	Command string
	Reason  string
}

func (e *ErrExecutionDisallowed) Error() string {
	return fmt.Sprintf("monk: %s disallowed: %s", e.Command, e.Reason)
}

func (*ErrExecutionDisallowed) rspError() {}

// ErrNotOwningThread indicates an execution command or [RspTarget.Close]
// was called from a goroutine other than the connection's owner or, for
// execution commands, the stop-event loop.
type ErrNotOwningThread struct {
	Command string
}

func (e *ErrNotOwningThread) Error() string {
	return fmt.Sprintf("monk: %s called from non-owning goroutine", e.Command)
}

func (*ErrNotOwningThread) rspError() {}

// ErrUnknownKind indicates an [EventKind] value outside the defined
// enum was passed to a [CallbackManager] method.
type ErrUnknownKind struct {
	Kind fmt.Stringer
}

func (e *ErrUnknownKind) Error() string {
	return fmt.Sprintf("monk: unknown kind %v", e.Kind)
}

func (*ErrUnknownKind) rspError() {}

// ErrNoSuchCallback indicates [CallbackManager.RemoveCallback] was
// called with a [Handle] that does not correspond to any registered
// callback (already removed, or never registered).
type ErrNoSuchCallback struct {
	Handle Handle
}

func (e *ErrNoSuchCallback) Error() string {
	return fmt.Sprintf("monk: no such callback %v", e.Handle)
}

func (*ErrNoSuchCallback) rspError() {}
