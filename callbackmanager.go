// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import (
	"context"
	"log/slog"
	"sync"
)

// registration is one entry in a [CallbackManager] registry: a
// callback plus the sequence number that makes its [Handle] unique.
type registration struct {
	seq uint64
	cb  Callback
}

// CallbackManager maps addresses to user callbacks per [EventKind],
// layered over a [Backend]. The first registration at an address
// installs a backend breakpoint; the last removal removes it. Backend
// event notifications are dispatched to callbacks in registration
// order, each on its own short-lived goroutine, joined before the
// next starts.
type CallbackManager struct {
	backend Backend
	logger  SLogger

	mu        sync.Mutex
	registry  map[EventKind]map[uint64][]registration
	nextSeq   uint64
	watchSize uint
}

// NewCallbackManager creates a [*CallbackManager] over backend and
// wires its dispatch functions into the backend's event-callback slots.
func NewCallbackManager(backend Backend, logger SLogger) *CallbackManager {
	if logger == nil {
		logger = DefaultSLogger()
	}
	m := &CallbackManager{
		backend: backend,
		logger:  logger,
		registry: map[EventKind]map[uint64][]registration{
			EventRead:    {},
			EventWrite:   {},
			EventAccess:  {},
			EventExecute: {},
		},
		watchSize: 4,
	}
	backend.SetOnReadCallback(m.dispatch(EventRead))
	backend.SetOnWriteCallback(m.dispatch(EventWrite))
	backend.SetOnAccessCallback(m.dispatch(EventAccess))
	backend.SetOnExecuteCallback(m.dispatch(EventExecute))
	return m
}

// OnRead registers cb to run when the target reads addr, arming a read
// watchpoint on first registration. size=0 uses the default watchpoint
// size of 4 bytes.
func (m *CallbackManager) OnRead(ctx context.Context, addr uint64, size uint, cb Callback) (Handle, error) {
	return m.breakOnEvent(ctx, EventRead, addr, size, cb)
}

// OnWrite registers cb to run when the target writes addr.
func (m *CallbackManager) OnWrite(ctx context.Context, addr uint64, size uint, cb Callback) (Handle, error) {
	return m.breakOnEvent(ctx, EventWrite, addr, size, cb)
}

// OnAccess registers cb to run when the target reads or writes addr.
func (m *CallbackManager) OnAccess(ctx context.Context, addr uint64, size uint, cb Callback) (Handle, error) {
	return m.breakOnEvent(ctx, EventAccess, addr, size, cb)
}

// OnExecute registers cb to run when the target executes the
// instruction at addr.
func (m *CallbackManager) OnExecute(ctx context.Context, addr uint64, cb Callback) (Handle, error) {
	return m.breakOnEvent(ctx, EventExecute, addr, 0, cb)
}

// RemoveCallback removes the registration identified by h. If it was
// the last registration for its (kind, addr), the corresponding
// backend breakpoint is removed.
func (m *CallbackManager) RemoveCallback(ctx context.Context, h Handle) error {
	m.mu.Lock()

	byAddr, ok := m.registry[h.kind]
	if !ok {
		m.mu.Unlock()
		return &ErrUnknownKind{Kind: h.kind}
	}

	entries := byAddr[h.addr]
	index := -1
	for i, r := range entries {
		if r.seq == h.seq {
			index = i
			break
		}
	}
	if index == -1 {
		m.mu.Unlock()
		return &ErrNoSuchCallback{Handle: h}
	}

	entries = append(entries[:index], entries[index+1:]...)
	byAddr[h.addr] = entries
	empty := len(entries) == 0
	m.mu.Unlock()

	m.logger.Debug("callbackRemoved", slog.String("kind", h.kind.String()), slog.Uint64("addr", h.addr))

	if empty {
		return m.delBreakpoint(ctx, h.kind, h.addr)
	}
	return nil
}

// breakOnEvent appends cb to the (kind, addr) registry, arming a
// breakpoint on first registration.
func (m *CallbackManager) breakOnEvent(ctx context.Context, kind EventKind, addr uint64, size uint, cb Callback) (Handle, error) {
	m.mu.Lock()

	byAddr, ok := m.registry[kind]
	if !ok {
		m.mu.Unlock()
		return Handle{}, &ErrUnknownKind{Kind: kind}
	}

	m.nextSeq++
	seq := m.nextSeq
	byAddr[addr] = append(byAddr[addr], registration{seq: seq, cb: cb})
	first := len(byAddr[addr]) == 1
	m.mu.Unlock()

	m.logger.Debug("callbackRegistered", slog.String("kind", kind.String()), slog.Uint64("addr", addr))

	if first {
		if err := m.setBreakpoint(ctx, kind, addr, size); err != nil {
			return Handle{}, err
		}
	}
	return Handle{kind: kind, addr: addr, seq: seq}, nil
}

func (m *CallbackManager) setBreakpoint(ctx context.Context, kind EventKind, addr uint64, size uint) error {
	if size == 0 {
		size = m.watchSize
	}
	switch kind {
	case EventRead:
		return m.backend.SetReadBreakpoint(ctx, addr, size)
	case EventWrite:
		return m.backend.SetWriteBreakpoint(ctx, addr, size)
	case EventAccess:
		return m.backend.SetAccessBreakpoint(ctx, addr, size)
	case EventExecute:
		return m.backend.SetExecBreakpoint(ctx, addr)
	default:
		return &ErrUnknownKind{Kind: kind}
	}
}

func (m *CallbackManager) delBreakpoint(ctx context.Context, kind EventKind, addr uint64) error {
	switch kind {
	case EventRead:
		return m.backend.DelReadBreakpoint(ctx, addr, m.watchSize)
	case EventWrite:
		return m.backend.DelWriteBreakpoint(ctx, addr, m.watchSize)
	case EventAccess:
		return m.backend.DelAccessBreakpoint(ctx, addr, m.watchSize)
	case EventExecute:
		return m.backend.DelExecBreakpoint(ctx, addr)
	default:
		return &ErrUnknownKind{Kind: kind}
	}
}

// dispatch returns the backend event-callback slot for kind: on
// notification, it runs every registered callback at addr, in
// registration order, each on its own goroutine joined before the
// next starts, then re-arms every execute breakpoint that still has
// registrations (the stub clears software breakpoints on every stop).
func (m *CallbackManager) dispatch(kind EventKind) func(addr uint64) {
	return func(addr uint64) {
		m.mu.Lock()
		entries := append([]registration(nil), m.registry[kind][addr]...)
		m.mu.Unlock()

		for _, r := range entries {
			if r.cb == nil {
				continue
			}
			done := make(chan struct{})
			go func(cb Callback) {
				defer close(done)
				cb(addr)
			}(r.cb)
			<-done
		}

		m.rearmExecuteBreakpoints()
	}
}

// rearmExecuteBreakpoints re-installs an exec breakpoint for every
// address with a non-empty execute registry, surviving the gdbstub's
// clear-all-software-breakpoints-on-stop behavior.
func (m *CallbackManager) rearmExecuteBreakpoints() {
	m.mu.Lock()
	addrs := make([]uint64, 0, len(m.registry[EventExecute]))
	for addr, entries := range m.registry[EventExecute] {
		if len(entries) > 0 {
			addrs = append(addrs, addr)
		}
	}
	m.mu.Unlock()

	for _, addr := range addrs {
		if err := m.backend.SetExecBreakpoint(context.Background(), addr); err != nil {
			m.logger.Debug("callbackRearmFailed", slog.Uint64("addr", addr), slog.Any("err", err))
		}
	}
}
