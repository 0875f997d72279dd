// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import "fmt"

// Callback is invoked with the address an event fired at. A nil
// Callback is permitted: it pauses the target at the address and runs
// nothing further.
type Callback func(addr uint64)

// Handle identifies one callback registration, returned by
// [CallbackManager]'s On* methods and consumed by
// [CallbackManager.RemoveCallback].
//
// Two registrations of the same (kind, addr) — even with an identical
// closure — get distinct handles, via a monotonic sequence number: Go
// func values are not comparable, so identity can't be derived from the
// callback itself.
type Handle struct {
	kind EventKind
	addr uint64
	seq  uint64
}

// String implements [fmt.Stringer].
func (h Handle) String() string {
	return fmt.Sprintf("Handle{kind:%v addr:%#x seq:%d}", h.kind, h.addr, h.seq)
}
