// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/safeconn"
	"golang.org/x/sync/errgroup"
)

// packetQueueCapacity bounds the data and stop queues. A full data
// queue never blocks the receiver indefinitely: callers are expected
// to keep up with [PacketIO.Recv], and a blocked enqueue still honors
// shutdown via ctx.
const packetQueueCapacity = 256

// PacketIO is a framed, checksummed, acknowledged duplex byte channel
// to a gdbstub over a TCP connection. Two background goroutines (a
// sender and a receiver) move bytes against one socket.
type PacketIO struct {
	conn       net.Conn
	logger     SLogger
	classifier ErrClassifier

	sendQueue chan []byte // raw bytes to write: a framed packet or a bare "+" ack
	dataQueue chan []byte // data-packet payloads
	stopQueue chan []byte // stop-reply payloads

	ctx    context.Context
	cancel context.CancelFunc
	eg     *errgroup.Group
}

// newPacketIO wraps conn in a [*PacketIO] and spawns its sender and
// receiver goroutines under parent.
func newPacketIO(parent context.Context, conn net.Conn, logger SLogger, classifier ErrClassifier) *PacketIO {
	ctx, cancel := context.WithCancel(parent)
	eg, ctx := errgroup.WithContext(ctx)

	p := &PacketIO{
		conn:       conn,
		logger:     logger,
		classifier: classifier,
		sendQueue:  make(chan []byte, packetQueueCapacity),
		dataQueue:  make(chan []byte, packetQueueCapacity),
		stopQueue:  make(chan []byte, packetQueueCapacity),
		ctx:        ctx,
		cancel:     cancel,
		eg:         eg,
	}
	p.eg.Go(p.sendLoop)
	p.eg.Go(p.recvLoop)
	return p
}

// dialPacketIO dials cfg.Host:cfg.Port and wraps the resulting
// connection in a [*PacketIO].
func dialPacketIO(ctx context.Context, cfg *Config) (*PacketIO, error) {
	conn, err := dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newPacketIO(ctx, conn, cfg.Logger, cfg.ErrClassifier), nil
}

// Send frames payload and enqueues the frame for transmission. The
// actual write happens on the sender goroutine.
func (p *PacketIO) Send(payload []byte) {
	select {
	case p.sendQueue <- makePacket(payload):
	case <-p.ctx.Done():
	}
}

// Recv returns the next data-queue payload, or ok=false if timeout
// elapses first or the connection has shut down.
func (p *PacketIO) Recv(timeout time.Duration) (payload []byte, ok bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case payload = <-p.dataQueue:
		return payload, true
	case <-timer.C:
		return nil, false
	case <-p.ctx.Done():
		return nil, false
	}
}

// StopQueue exposes the stop-reply queue directly, for [RspTarget]'s
// stop-event loop to consume.
func (p *PacketIO) StopQueue() <-chan []byte {
	return p.stopQueue
}

// Close signals both goroutines to exit at their next checkpoint,
// waits for them to return, and closes the underlying connection.
// Sockets already closed by the peer are tolerated.
func (p *PacketIO) Close() error {
	p.cancel()
	err := p.eg.Wait()
	closeErr := p.conn.Close()
	var reset *ErrConnectionReset
	var pipe *ErrBrokenPipe
	if errors.As(err, &reset) || errors.As(err, &pipe) {
		err = nil // the peer closed the connection first
	}
	if err != nil {
		return err
	}
	return closeErr
}

// sendLoop dequeues and writes framed packets until ctx is done. A
// broken-pipe-class error triggers shutdown of both goroutines via the
// errgroup's derived context.
func (p *PacketIO) sendLoop() error {
	for {
		select {
		case <-p.ctx.Done():
			return nil
		case frame := <-p.sendQueue:
			if _, err := p.conn.Write(frame); err != nil {
				p.logTransportError("packetioSendError", err)
				return &ErrBrokenPipe{Err: err}
			}
			p.logger.Debug("packetioSent",
				slog.String("remoteAddr", safeconn.RemoteAddr(p.conn)),
				slog.Int("bytes", len(frame)))
		}
	}
}

// recvLoop reads from the connection, splits complete frames out of
// the accumulated buffer, acknowledges every frame whose payload is
// neither empty nor "OK" (stop replies included), and routes each
// payload to the stop or data queue. A 1s read deadline lets it poll
// ctx.Done() without blocking indefinitely on an idle socket.
func (p *PacketIO) recvLoop() error {
	var buf []byte
	chunk := make([]byte, 4096)

	for {
		select {
		case <-p.ctx.Done():
			return nil
		default:
		}

		p.conn.SetReadDeadline(time.Now().Add(time.Second))
		n, err := p.conn.Read(chunk)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			p.logTransportError("packetioRecvError", err)
			return &ErrConnectionReset{Err: err}
		}
		buf = append(buf, chunk[:n]...)

		for {
			payload, rest, ok := extractFrame(buf)
			if !ok {
				buf = rest
				break
			}
			buf = rest
			p.dispatch(payload)
		}
	}
}

// dispatch acknowledges and routes one extracted payload.
func (p *PacketIO) dispatch(payload []byte) {
	p.logger.Debug("packetioRecv", slog.String("payload", string(payload)))

	if len(payload) != 0 && string(payload) != "OK" {
		select {
		case p.sendQueue <- []byte("+"):
		case <-p.ctx.Done():
			return
		}
	}

	queue := p.dataQueue
	if isStopPacket(payload) {
		queue = p.stopQueue
	}
	select {
	case queue <- payload:
	case <-p.ctx.Done():
	}
}

func (p *PacketIO) logTransportError(event string, err error) {
	p.logger.Debug(event,
		slog.String("remoteAddr", safeconn.RemoteAddr(p.conn)),
		slog.Any("err", err),
		slog.String("errClass", p.classifier.Classify(err)))
}
