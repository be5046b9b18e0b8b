// File: transport/udp/endpoint.go
// Author: momentics <momentics@gmail.com>
//
// Platform-independent surface of the datagram endpoint. The four read
// shapes and four write shapes all funnel into readFrom/writeTo, which
// delegate to the build-tag-selected vectored implementation.

package udp

import (
	"net"
	"net/netip"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-rt/api"
)

// Endpoint wraps a datagram socket descriptor. Stateless between calls
// beyond the descriptor and counters; the descriptor is not internally
// synchronized, concurrent use is the caller's responsibility to
// serialize or partition. The descriptor must be in blocking mode.
type Endpoint struct {
	fd     uintptr
	file   *os.File // owned duplicate when built from a net.UDPConn
	closed atomic.Bool
	log    *zap.Logger

	datagramsIn  atomic.Int64
	datagramsOut atomic.Int64
	bytesIn      atomic.Int64
	bytesOut     atomic.Int64
}

var _ api.Datagram = (*Endpoint)(nil)

// Option configures an Endpoint at construction.
type Option func(*Endpoint)

// WithLogger installs a structured logger. Default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Endpoint) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEndpoint wraps an already-opened, bound datagram descriptor. The
// descriptor stays owned by the caller; Close only marks the endpoint
// unusable. Fails with a configuration error when the descriptor is not
// a datagram socket.
func NewEndpoint(fd uintptr, opts ...Option) (*Endpoint, error) {
	e := &Endpoint{fd: fd, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if err := verifyDatagram(fd); err != nil {
		return nil, err
	}
	return e, nil
}

// NewEndpointFromConn duplicates the descriptor of a bound *net.UDPConn
// and wraps the duplicate. The endpoint owns the duplicate (Close
// releases it); the original connection is unaffected. The duplicate is
// placed in blocking mode, which is what the endpoint requires.
func NewEndpointFromConn(c *net.UDPConn, opts ...Option) (*Endpoint, error) {
	if c == nil {
		return nil, api.WrapError(api.ErrCodeInvalidArgument,
			"endpoint: nil connection", api.ErrInvalidArgument)
	}
	f, err := c.File()
	if err != nil {
		return nil, api.WrapError(api.ErrCodeInvalidArgument,
			"endpoint: descriptor duplication", err)
	}
	e, err := NewEndpoint(f.Fd(), opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	e.file = f
	return e, nil
}

// RawFD returns the underlying OS-level socket descriptor.
func (e *Endpoint) RawFD() uintptr { return e.fd }

// Close marks the endpoint unusable and releases the duplicated
// descriptor when the endpoint owns one. Idempotent.
func (e *Endpoint) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return api.ErrEndpointClosed
	}
	if e.file != nil {
		return e.file.Close()
	}
	return nil
}

// ReadFrom receives one datagram into buf and reports the sender's
// address and port through the out-parameters. Blocking. On failure the
// out-parameters are left untouched.
func (e *Endpoint) ReadFrom(buf []byte, addr *netip.Addr, port *uint16) (int, error) {
	return e.readSplit([][]byte{buf}, addr, port)
}

// ReadFromAddrPort is ReadFrom with a combined address-and-port output.
func (e *Endpoint) ReadFromAddrPort(buf []byte, ap *netip.AddrPort) (int, error) {
	return e.readFrom([][]byte{buf}, ap)
}

// ReadFromSegments receives one datagram scattered across segs in
// order. A datagram longer than the total segment capacity is
// truncated; the excess bytes are discarded by the transport and the
// returned count is the number of bytes actually filled.
func (e *Endpoint) ReadFromSegments(segs [][]byte, addr *netip.Addr, port *uint16) (int, error) {
	return e.readSplit(segs, addr, port)
}

// ReadFromSegmentsAddrPort is ReadFromSegments with a combined output.
func (e *Endpoint) ReadFromSegmentsAddrPort(segs [][]byte, ap *netip.AddrPort) (int, error) {
	return e.readFrom(segs, ap)
}

// WriteTo sends buf as one datagram to addr:port. Blocking;
// all-or-nothing per call.
func (e *Endpoint) WriteTo(buf []byte, addr netip.Addr, port uint16) error {
	return e.writeTo([][]byte{buf}, netip.AddrPortFrom(addr, port))
}

// WriteToAddrPort is WriteTo with a combined destination value.
func (e *Endpoint) WriteToAddrPort(buf []byte, ap netip.AddrPort) error {
	return e.writeTo([][]byte{buf}, ap)
}

// WriteToSegments sends the in-order concatenation of segs as one
// datagram, wire-identical to a single contiguous buffer of the same
// total bytes. An empty segment sequence sends a zero-length datagram.
func (e *Endpoint) WriteToSegments(segs [][]byte, addr netip.Addr, port uint16) error {
	return e.writeTo(segs, netip.AddrPortFrom(addr, port))
}

// WriteToSegmentsAddrPort is WriteToSegments with a combined
// destination value.
func (e *Endpoint) WriteToSegmentsAddrPort(segs [][]byte, ap netip.AddrPort) error {
	return e.writeTo(segs, ap)
}

// readSplit adapts the split address+port outputs onto the combined
// internal path.
func (e *Endpoint) readSplit(segs [][]byte, addr *netip.Addr, port *uint16) (int, error) {
	var ap netip.AddrPort
	n, err := e.readFrom(segs, &ap)
	if err != nil {
		return 0, err
	}
	if addr != nil {
		*addr = ap.Addr()
	}
	if port != nil {
		*port = ap.Port()
	}
	return n, nil
}

// readFrom is the single internal vectored receive.
func (e *Endpoint) readFrom(segs [][]byte, ap *netip.AddrPort) (int, error) {
	if e.closed.Load() {
		return 0, api.ErrEndpointClosed
	}
	n, from, err := e.readFromOS(segs)
	if err != nil {
		return 0, err
	}
	if ap != nil {
		*ap = from
	}
	e.datagramsIn.Add(1)
	e.bytesIn.Add(int64(n))
	return n, nil
}

// writeTo is the single internal vectored send.
func (e *Endpoint) writeTo(segs [][]byte, ap netip.AddrPort) error {
	if e.closed.Load() {
		return api.ErrEndpointClosed
	}
	if !ap.Addr().IsValid() {
		return api.WrapError(api.ErrCodeInvalidArgument,
			"write: invalid destination address", api.ErrInvalidArgument)
	}
	total := 0
	for _, seg := range segs {
		total += len(seg)
	}
	if err := e.writeToOS(segs, ap, total); err != nil {
		return err
	}
	e.datagramsOut.Add(1)
	e.bytesOut.Add(int64(total))
	return nil
}

// SetReadTimeout bounds subsequent blocking reads; a timed-out read
// fails with api.ErrTimeout, explicitly non-fatal, and the caller
// decides whether to retry. d <= 0 restores indefinite blocking.
func (e *Endpoint) SetReadTimeout(d time.Duration) error {
	if e.closed.Load() {
		return api.ErrEndpointClosed
	}
	return e.setTimeoutOS(d, true)
}

// SetWriteTimeout bounds subsequent blocking sends; same semantics as
// SetReadTimeout.
func (e *Endpoint) SetWriteTimeout(d time.Duration) error {
	if e.closed.Load() {
		return api.ErrEndpointClosed
	}
	return e.setTimeoutOS(d, false)
}

// Statistics aggregates per-endpoint datagram accounting.
type Statistics struct {
	DatagramsIn  int64
	DatagramsOut int64
	BytesIn      int64
	BytesOut     int64
}

// Stats returns a point-in-time snapshot of the endpoint counters.
func (e *Endpoint) Stats() Statistics {
	return Statistics{
		DatagramsIn:  e.datagramsIn.Load(),
		DatagramsOut: e.datagramsOut.Load(),
		BytesIn:      e.bytesIn.Load(),
		BytesOut:     e.bytesOut.Load(),
	}
}
