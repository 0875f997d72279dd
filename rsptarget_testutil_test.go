// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import (
	"bufio"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
)

// newTestRspTarget builds an [*RspTarget] over an in-memory pipe without
// running the connect-time handshake, so tests can script individual
// command/reply exchanges directly. The stop-event loop is not started;
// tests that need it call rt.stopEventLoop() themselves on a goroutine.
func newTestRspTarget(t *testing.T) (*RspTarget, *bufio.ReadWriter) {
	t.Helper()
	client, stub := nettest.Pipe()
	t.Cleanup(func() { stub.Close() })

	pio := newPacketIO(context.Background(), client, DefaultSLogger(), DefaultErrClassifier)
	t.Cleanup(func() { pio.Close() })

	rt := &RspTarget{
		pio:              pio,
		logger:           DefaultSLogger(),
		endian:           LittleEndian,
		addrSize:         4,
		layout:           newRegisterLayout([]RegisterDescriptor{{Name: "pc", Index: 0, SizeBytes: 4}}),
		ownerGoroutineID: currentGoroutineID(),
		eventDone:        make(chan struct{}),
	}
	rt.targetIsStopped = true

	return rt, bufio.NewReadWriter(bufio.NewReader(stub), bufio.NewWriter(stub))
}

// readFrame reads one "$payload#CC" frame off the stub side, returning
// the payload.
func readFrame(t *testing.T, stub *bufio.ReadWriter) string {
	t.Helper()
	payload, err := stub.ReadString('#')
	require.NoError(t, err)
	payload = payload[1 : len(payload)-1] // drop leading "$" and trailing "#"
	checksum := make([]byte, 2)
	_, err = stub.Read(checksum)
	require.NoError(t, err)
	return payload
}

// writeFrame writes a reply frame on the stub side.
func writeFrame(t *testing.T, stub *bufio.ReadWriter, payload string) {
	t.Helper()
	_, err := stub.WriteString("$" + payload + "#00")
	require.NoError(t, err)
	require.NoError(t, stub.Flush())
}

// expectCommand reads the next outgoing command on a goroutine and
// replies with reply, returning a channel that receives the command's
// payload once the reply is written. wantPrefix is not checked.
func expectCommand(t *testing.T, stub *bufio.ReadWriter, wantPrefix string, reply string) <-chan string {
	t.Helper()
	done := make(chan string, 1)
	go func() {
		got := readFrame(t, stub)
		writeFrame(t, stub, reply)
		done <- got
	}()
	return done
}

func drainWithin(t *testing.T, ch <-chan string, d time.Duration) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(d):
		t.Fatal("timed out waiting for scripted exchange")
		return ""
	}
}
