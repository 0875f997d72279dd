// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSpanID returns a UUIDv7 identifying one [RspTarget] connection.
//
// Attach the returned ID to every log line emitted over the lifetime of
// that connection (connect through close) so a reader can correlate
// packet, lock, and callback events back to a single target session.
//
// The span terminology is borrowed from OTel.
//
// This function panics if the system random number generator fails,
// which should only happen under extraordinary circumstances.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
