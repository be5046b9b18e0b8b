//go:build linux
// +build linux

// File: transport/udp/endpoint_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux vectored datagram I/O via RecvmsgBuffers/SendmsgBuffers. One
// recvmsg/sendmsg per call regardless of segment count; truncation of
// oversized datagrams follows kernel semantics (excess discarded).

package udp

import (
	"errors"
	"net/netip"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-rt/api"
)

// verifyDatagram rejects descriptors that are not datagram sockets.
func verifyDatagram(fd uintptr) error {
	soType, err := unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_TYPE)
	if err != nil {
		return api.WrapError(api.ErrCodeInvalidArgument,
			"endpoint: descriptor not usable", err)
	}
	if soType != unix.SOCK_DGRAM {
		return api.NewError(api.ErrCodeInvalidArgument,
			"endpoint: descriptor is not a datagram socket").
			WithContext("so_type", soType)
	}
	return nil
}

func (e *Endpoint) readFromOS(segs [][]byte) (int, netip.AddrPort, error) {
	n, _, _, from, err := unix.RecvmsgBuffers(int(e.fd), segs, nil, 0)
	if err != nil {
		return 0, netip.AddrPort{}, wrapSyscallError("recvmsg", err)
	}
	ap, ok := sockaddrToAddrPort(from)
	if !ok {
		return 0, netip.AddrPort{}, api.NewError(api.ErrCodeTransport,
			"recvmsg: unexpected sender address family")
	}
	return n, ap, nil
}

func (e *Endpoint) writeToOS(segs [][]byte, ap netip.AddrPort, total int) error {
	sa, err := addrPortToSockaddr(ap)
	if err != nil {
		return err
	}
	n, err := unix.SendmsgBuffers(int(e.fd), segs, nil, sa, 0)
	if err != nil {
		return wrapSyscallError("sendmsg", err)
	}
	// Datagram sends are all-or-nothing; a short accept is a transport
	// failure, not a partial success.
	if n != total {
		return api.NewError(api.ErrCodeTransport, "sendmsg: short datagram send").
			WithContext("sent", n).WithContext("payload", total)
	}
	return nil
}

func (e *Endpoint) setTimeoutOS(d time.Duration, read bool) error {
	opt := unix.SO_SNDTIMEO
	if read {
		opt = unix.SO_RCVTIMEO
	}
	if d < 0 {
		d = 0 // zero timeval means block indefinitely
	}
	tv := unix.NsecToTimeval(d.Nanoseconds())
	if err := unix.SetsockoptTimeval(int(e.fd), unix.SOL_SOCKET, opt, &tv); err != nil {
		return wrapSyscallError("setsockopt", err)
	}
	return nil
}

// wrapSyscallError classifies transport-level failures. A timed-out
// blocking call surfaces as EAGAIN under SO_RCVTIMEO/SO_SNDTIMEO and is
// mapped to the timeout taxonomy; everything else is a transport error.
func wrapSyscallError(op string, err error) error {
	switch {
	case errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK):
		return api.WrapError(api.ErrCodeTimeout, op, api.ErrTimeout)
	case errors.Is(err, unix.EBADF):
		return api.WrapError(api.ErrCodeState, op, api.ErrEndpointClosed)
	case errors.Is(err, unix.EINTR):
		return api.WrapError(api.ErrCodeTransport, op+": interrupted", err)
	default:
		return api.WrapError(api.ErrCodeTransport, op, err)
	}
}
