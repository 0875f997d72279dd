// SPDX-License-Identifier: GPL-3.0-or-later

package monk

// BreakpointKind identifies the kind of breakpoint or watchpoint a
// backend installs at an address, mapping 1:1 onto the RSP "Z"/"z"
// wire codes.
type BreakpointKind int

const (
	// BreakpointSWExec is an instruction-replacement breakpoint managed
	// by the stub (wire code 0).
	BreakpointSWExec BreakpointKind = iota
	// BreakpointHWExec is a hardware instruction breakpoint (wire code 1).
	BreakpointHWExec
	// BreakpointReadWatch fires on a memory read (wire code 3).
	BreakpointReadWatch
	// BreakpointWriteWatch fires on a memory write (wire code 2).
	BreakpointWriteWatch
	// BreakpointAccessWatch fires on any memory access (wire code 4).
	BreakpointAccessWatch
)

// wireCode returns the RSP "Z"/"z" command's kind digit for k.
func (k BreakpointKind) wireCode() byte {
	switch k {
	case BreakpointSWExec:
		return '0'
	case BreakpointHWExec:
		return '1'
	case BreakpointWriteWatch:
		return '2'
	case BreakpointReadWatch:
		return '3'
	case BreakpointAccessWatch:
		return '4'
	default:
		return '?'
	}
}

// String implements [fmt.Stringer].
func (k BreakpointKind) String() string {
	switch k {
	case BreakpointSWExec:
		return "sw_exec"
	case BreakpointHWExec:
		return "hw_exec"
	case BreakpointReadWatch:
		return "read_watch"
	case BreakpointWriteWatch:
		return "write_watch"
	case BreakpointAccessWatch:
		return "access_watch"
	default:
		return "unknown"
	}
}

// eventKind returns the [EventKind] a hit of a breakpoint of kind k
// reports, or false if k has no corresponding event kind.
func (k BreakpointKind) eventKind() (EventKind, bool) {
	switch k {
	case BreakpointSWExec, BreakpointHWExec:
		return EventExecute, true
	case BreakpointReadWatch:
		return EventRead, true
	case BreakpointWriteWatch:
		return EventWrite, true
	case BreakpointAccessWatch:
		return EventAccess, true
	default:
		return 0, false
	}
}
