// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import (
	"context"
	"sync"
	"time"
)

// smallDelay is the polling interval the stop-event loop uses between
// empty stop-queue checks, kept short so main-thread callers waiting
// on event_lock are not starved.
const smallDelay = 100 * time.Microsecond

// RspTarget is a stateful controller over one [PacketIO]: it
// serializes RSP commands, tracks run/stop state, negotiates features,
// discovers the register layout, and arbitrates breakpoints against
// the asynchronous stop-event stream. [*RspTarget] implements [Backend].
type RspTarget struct {
	pio    *PacketIO
	logger SLogger
	endian Endian
	addrSize uint

	layout *registerLayout

	rspLock   sync.Mutex
	eventLock sync.Mutex

	ownerGoroutineID          uint64
	eventLoopGoroutineIDStore uint64

	mu               sync.Mutex
	targetIsStopped  bool
	userStopped      bool
	savedBP          *uint64
	callbackUnsetBP  bool

	onRead    func(addr uint64)
	onWrite   func(addr uint64)
	onAccess  func(addr uint64)
	onExecute func(addr uint64)

	shutdownOnce sync.Once
	eventDone    chan struct{}
}

var _ Backend = (*RspTarget)(nil)

// Connect opens a TCP connection to the gdbstub at cfg.Host:cfg.Port,
// runs the RSP initialization sequence (drain queues, determine stop
// state, force a stop, negotiate features, discover the register
// layout), and starts the stop-event loop. The calling goroutine
// becomes the connection's owner: only it (and the stop-event loop)
// may later call execution commands, and only it may call [RspTarget.Close].
func Connect(ctx context.Context, cfg *Config) (*RspTarget, error) {
	pio, err := dialPacketIO(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rt := &RspTarget{
		pio:              pio,
		logger:           cfg.Logger,
		endian:           cfg.Endian,
		addrSize:         cfg.AddrSize,
		ownerGoroutineID: currentGoroutineID(),
		eventDone:        make(chan struct{}),
	}

	if err := rt.initialize(ctx); err != nil {
		pio.Close()
		return nil, err
	}

	go rt.stopEventLoop()

	return rt, nil
}

// initialize runs the strict RSP handshake sequence in order: drain
// stale queues, determine current stop state, force a stop, negotiate
// features, then discover the register layout.
func (rt *RspTarget) initialize(ctx context.Context) error {
	rt.drainQueues()

	rt.targetIsStopped = rt.queryIsStopped()
	if err := rt.CmdStop(ctx); err != nil {
		return err
	}

	rt.negotiateFeatures()

	layout, err := rt.discoverRegisterLayout()
	if err != nil {
		return err
	}
	rt.layout = layout

	return nil
}

// drainQueues discards whatever is already queued on PacketIO's data
// and stop queues before the handshake begins.
func (rt *RspTarget) drainQueues() {
	for {
		if _, ok := rt.pio.Recv(time.Second); !ok {
			break
		}
	}
	for {
		select {
		case <-rt.pio.StopQueue():
		case <-time.After(time.Second):
			return
		}
	}
}

// queryIsStopped sends "?" and reports whether the stub replies with a
// stop reason within one second.
func (rt *RspTarget) queryIsStopped() bool {
	rt.pio.Send([]byte("?"))
	select {
	case <-rt.pio.StopQueue():
		return true
	case <-time.After(time.Second):
		return false
	}
}

// negotiateFeatures announces client capabilities; the reply is
// discarded, as the core does not currently act on stub capabilities.
func (rt *RspTarget) negotiateFeatures() {
	rt.rspLock.Lock()
	defer rt.rspLock.Unlock()
	rt.pio.Send([]byte("qSupported:multiprocess+;swbreak+;hwbreak+;qRelocInsn+;" +
		"fork-events+;exec-events+;vContSupported+;QThreadEvents+;no-resumed+;xmlRegisters=i386"))
	rt.pio.Recv(time.Second)
}

// discoverRegisterLayout reads target.xml and its included feature
// files to build the register name/index/size table.
func (rt *RspTarget) discoverRegisterLayout() (*registerLayout, error) {
	doc, err := rt.requestXML("target.xml")
	if err != nil {
		return nil, err
	}

	files, err := parseTargetXML(doc)
	if err != nil {
		return nil, err
	}

	var descriptors []RegisterDescriptor
	var nextIndex uint
	for _, file := range files {
		content, err := rt.requestXML(file)
		if err != nil {
			return nil, err
		}
		parsed, next, err := parseFeatureXML(content, nextIndex)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, parsed...)
		nextIndex = next
	}

	return newRegisterLayout(descriptors), nil
}

// requestXML issues qXfer:features:read for name, concatenating
// offset-resumable chunks until a payload ends the feature document.
func (rt *RspTarget) requestXML(name string) ([]byte, error) {
	var content []byte
	offset := 0
	for {
		rt.rspLock.Lock()
		rt.pio.Send([]byte("qXfer:features:read:" + name + ":" + hexval(uint64(offset), 1) + ",ffb"))
		reply, _ := rt.pio.Recv(2 * time.Second)
		rt.rspLock.Unlock()

		if len(reply) == 0 {
			break
		}
		chunk := reply[1:] // strip leading "l"/"m" continuation marker
		content = append(content, chunk...)
		if len(reply) > 0 && reply[0] == 'l' {
			break
		}
		offset += len(chunk)
	}
	return content, nil
}

// Close signals the stop-event loop to exit, stops the target, sends
// the RSP detach command, and tears down [PacketIO]. Must be called
// from the owner goroutine (the one that called [Connect]); callbacks
// are forbidden from calling it.
func (rt *RspTarget) Close() error {
	if currentGoroutineID() != rt.ownerGoroutineID {
		return &ErrNotOwningThread{Command: "close"}
	}

	var closeErr error
	rt.shutdownOnce.Do(func() {
		close(rt.eventDone)
		ctx := context.Background()
		rt.CmdStop(ctx)
		rt.detach()
		closeErr = rt.pio.Close()
	})
	return closeErr
}

// Shutdown implements [Backend] by delegating to [RspTarget.Close].
func (rt *RspTarget) Shutdown(ctx context.Context) error {
	return rt.Close()
}

// detach sends "D;1"; the reply is read with a short timeout and
// ignored, matching the stub's frequently-absent detach acknowledgement.
func (rt *RspTarget) detach() {
	rt.rspLock.Lock()
	defer rt.rspLock.Unlock()
	rt.pio.Send([]byte("D;1"))
	rt.pio.Recv(time.Second)
}

// Endian implements [Backend].
func (rt *RspTarget) Endian() Endian {
	return rt.endian
}

// SetOnReadCallback implements [Backend].
func (rt *RspTarget) SetOnReadCallback(fn func(addr uint64)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.onRead = fn
}

// SetOnWriteCallback implements [Backend].
func (rt *RspTarget) SetOnWriteCallback(fn func(addr uint64)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.onWrite = fn
}

// SetOnAccessCallback implements [Backend].
func (rt *RspTarget) SetOnAccessCallback(fn func(addr uint64)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.onAccess = fn
}

// SetOnExecuteCallback implements [Backend].
func (rt *RspTarget) SetOnExecuteCallback(fn func(addr uint64)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.onExecute = fn
}

// logDebug is a small helper so command files don't each import log/slog.
func (rt *RspTarget) logDebug(msg string, args ...any) {
	rt.logger.Debug(msg, args...)
}
