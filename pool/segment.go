// File: pool/segment.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

// Segments carves buf into n contiguous non-overlapping views for
// scatter/gather I/O. The views share buf's backing array; recycling
// buf invalidates all of them. When n does not divide len(buf) the
// final segment absorbs the remainder. Returns nil if n is not
// positive or exceeds len(buf).
func Segments(buf []byte, n int) [][]byte {
	if n <= 0 || n > len(buf) {
		return nil
	}
	segs := make([][]byte, n)
	step := len(buf) / n
	off := 0
	for i := 0; i < n-1; i++ {
		segs[i] = buf[off : off+step]
		off += step
	}
	segs[n-1] = buf[off:]
	return segs
}

// Gather copies the first n bytes spread across segs into a single
// contiguous buffer. Useful after a vectored read to reassemble the
// datagram payload.
func Gather(segs [][]byte, n int) []byte {
	out := make([]byte, 0, n)
	for _, s := range segs {
		if n <= 0 {
			break
		}
		take := len(s)
		if take > n {
			take = n
		}
		out = append(out, s[:take]...)
		n -= take
	}
	return out
}
