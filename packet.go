// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import "bytes"

// stopCodes are the payload-leading bytes that mark a stop-reply packet.
// The literal payload "OK" is never a stop reply even though it starts
// with 'O'.
var stopCodes = []byte{'S', 'T', 'W', 'X', 'w', 'N', 'O', 'F'}

// makePacket frames payload as "$" + payload + "#" + two hex checksum
// digits.
func makePacket(payload []byte) []byte {
	framed := make([]byte, 0, len(payload)+4)
	framed = append(framed, '$')
	framed = append(framed, payload...)
	framed = append(framed, '#')
	framed = append(framed, checksum(payload)...)
	return framed
}

// isStopPacket reports whether payload is a stop-reply packet: it is
// non-empty, not the literal "OK", and starts with one of the RSP stop
// codes.
func isStopPacket(payload []byte) bool {
	if len(payload) == 0 || bytes.Equal(payload, []byte("OK")) {
		return false
	}
	return bytes.IndexByte(stopCodes, payload[0]) >= 0
}

// extractFrame scans buf for the first complete "$payload#CC" frame.
// Bytes preceding the frame start (including a bare "+" acknowledgement
// byte) are discarded. It returns the frame's payload, whether a
// complete frame was found, and the unconsumed remainder of buf.
//
// If buf contains no "$" at all, or an incomplete frame, ok is false
// and rest is the unconsumed tail that should be prefixed to the next
// read (a "$" with no checksum yet needs more data; anything with no
// "$" is simply discarded).
func extractFrame(buf []byte) (payload []byte, rest []byte, ok bool) {
	start := bytes.IndexByte(buf, '$')
	if start == -1 {
		return nil, nil, false
	}
	hash := bytes.IndexByte(buf[start:], '#')
	if hash == -1 {
		return nil, buf[start:], false
	}
	hash += start
	if len(buf) < hash+3 {
		return nil, buf[start:], false
	}
	return buf[start+1 : hash], buf[hash+3:], true
}
