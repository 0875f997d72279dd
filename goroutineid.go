// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import (
	"bytes"
	"runtime"
	"strconv"
)

// currentGoroutineID returns the id of the calling goroutine, parsed
// from its stack trace header ("goroutine N [running]:"). This is the
// Go analogue of the owner/event-thread identity check the original
// performs with threading.get_ident(): [RspTarget] records the id of
// the goroutine that called [Connect] and the id of its stop-event
// loop goroutine, and execution commands compare the caller's id
// against both.
func currentGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]

	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if end := bytes.IndexByte(b, ' '); end >= 0 {
		b = b[:end]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
