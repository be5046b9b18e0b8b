// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Datagram I/O contracts. A buffer segment is one ordered []byte chunk;
// an ordered sequence of segments concatenates into one logical datagram
// payload, wire-identical to a single contiguous buffer of the same
// total bytes.

package api

import "net/netip"

// DatagramReader reads single datagrams from a message-oriented socket.
//
// All four shapes project onto one internal vectored receive, so their
// semantics are identical. On success the returned count is the number
// of payload bytes scattered into the caller's buffers in order; bytes
// beyond the total capacity are discarded by the transport. On failure
// the address/port outputs are left untouched.
type DatagramReader interface {
	ReadFrom(buf []byte, addr *netip.Addr, port *uint16) (int, error)
	ReadFromAddrPort(buf []byte, ap *netip.AddrPort) (int, error)
	ReadFromSegments(segs [][]byte, addr *netip.Addr, port *uint16) (int, error)
	ReadFromSegmentsAddrPort(segs [][]byte, ap *netip.AddrPort) (int, error)
}

// DatagramWriter sends single datagrams to a destination address.
//
// The payload is the in-order concatenation of the given segments.
// Sends are all-or-nothing per call: there is no partial-send concept
// for datagrams, a short accept is reported as a transport error.
// An empty segment sequence sends a zero-length datagram.
type DatagramWriter interface {
	WriteTo(buf []byte, addr netip.Addr, port uint16) error
	WriteToAddrPort(buf []byte, ap netip.AddrPort) error
	WriteToSegments(segs [][]byte, addr netip.Addr, port uint16) error
	WriteToSegmentsAddrPort(segs [][]byte, ap netip.AddrPort) error
}

// Datagram combines both directions over one socket descriptor.
// The descriptor itself is not synchronized internally; concurrent use
// from multiple threads is the caller's responsibility to serialize or
// partition.
type Datagram interface {
	DatagramReader
	DatagramWriter

	// Close marks the endpoint unusable and releases any descriptor the
	// endpoint owns. Further calls fail with ErrEndpointClosed.
	Close() error

	// RawFD returns the underlying OS-level socket descriptor.
	RawFD() uintptr
}
