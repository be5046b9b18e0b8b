//go:build windows
// +build windows

// File: transport/udp/endpoint_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Windows vectored datagram I/O via WSARecvFrom/WSASendto with WSABuf
// arrays on a blocking (non-overlapped) socket.

package udp

import (
	"errors"
	"net/netip"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/momentics/hioload-rt/api"
)

// Winsock option constants not exported by x/sys/windows.
const (
	soType     = 0x1008 // SO_TYPE
	soRcvTimeo = 0x1006 // SO_RCVTIMEO, milliseconds
	soSndTimeo = 0x1005 // SO_SNDTIMEO, milliseconds
)

func verifyDatagram(fd uintptr) error {
	st, err := windows.GetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, soType)
	if err != nil {
		return api.WrapError(api.ErrCodeInvalidArgument,
			"endpoint: descriptor not usable", err)
	}
	if st != windows.SOCK_DGRAM {
		return api.NewError(api.ErrCodeInvalidArgument,
			"endpoint: descriptor is not a datagram socket").
			WithContext("so_type", st)
	}
	return nil
}

// wsaBufs builds the WSABuf array for segs. Winsock refuses a zero
// buffer count, so an empty segment set degrades to one empty buffer,
// which still produces a zero-length datagram.
func wsaBufs(segs [][]byte) []windows.WSABuf {
	bufs := make([]windows.WSABuf, 0, len(segs))
	for i := range segs {
		b := windows.WSABuf{Len: uint32(len(segs[i]))}
		if len(segs[i]) > 0 {
			b.Buf = &segs[i][0]
		}
		bufs = append(bufs, b)
	}
	if len(bufs) == 0 {
		bufs = append(bufs, windows.WSABuf{})
	}
	return bufs
}

func (e *Endpoint) readFromOS(segs [][]byte) (int, netip.AddrPort, error) {
	bufs := wsaBufs(segs)
	var rsa windows.RawSockaddrAny
	fromlen := int32(unsafe.Sizeof(rsa))
	var recvd, flags uint32
	err := windows.WSARecvFrom(windows.Handle(e.fd), &bufs[0], uint32(len(bufs)),
		&recvd, &flags, &rsa, &fromlen, nil, nil)
	if err != nil {
		return 0, netip.AddrPort{}, wrapSyscallError("wsarecvfrom", err)
	}
	sa, err := rsa.Sockaddr()
	if err != nil {
		return 0, netip.AddrPort{}, api.WrapError(api.ErrCodeTransport,
			"wsarecvfrom: sender address", err)
	}
	ap, ok := sockaddrToAddrPort(sa)
	if !ok {
		return 0, netip.AddrPort{}, api.NewError(api.ErrCodeTransport,
			"wsarecvfrom: unexpected sender address family")
	}
	return int(recvd), ap, nil
}

func (e *Endpoint) writeToOS(segs [][]byte, ap netip.AddrPort, total int) error {
	sa, err := addrPortToSockaddr(ap)
	if err != nil {
		return err
	}
	bufs := wsaBufs(segs)
	var sent uint32
	err = windows.WSASendto(windows.Handle(e.fd), &bufs[0], uint32(len(bufs)),
		&sent, 0, sa, nil, nil)
	if err != nil {
		return wrapSyscallError("wsasendto", err)
	}
	if int(sent) != total {
		return api.NewError(api.ErrCodeTransport, "wsasendto: short datagram send").
			WithContext("sent", int(sent)).WithContext("payload", total)
	}
	return nil
}

func (e *Endpoint) setTimeoutOS(d time.Duration, read bool) error {
	opt := soSndTimeo
	if read {
		opt = soRcvTimeo
	}
	ms := 0
	if d > 0 {
		ms = int(d.Milliseconds())
		if ms == 0 {
			ms = 1
		}
	}
	if err := windows.SetsockoptInt(windows.Handle(e.fd), windows.SOL_SOCKET, opt, ms); err != nil {
		return wrapSyscallError("setsockopt", err)
	}
	return nil
}

func sockaddrToAddrPort(sa windows.Sockaddr) (netip.AddrPort, bool) {
	switch sa := sa.(type) {
	case *windows.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port)), true
	case *windows.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(sa.Addr), uint16(sa.Port)), true
	default:
		return netip.AddrPort{}, false
	}
}

func addrPortToSockaddr(ap netip.AddrPort) (windows.Sockaddr, error) {
	addr := ap.Addr()
	switch {
	case addr.Is4() || addr.Is4In6():
		return &windows.SockaddrInet4{
			Port: int(ap.Port()),
			Addr: addr.Unmap().As4(),
		}, nil
	case addr.Is6():
		return &windows.SockaddrInet6{
			Port: int(ap.Port()),
			Addr: addr.As16(),
		}, nil
	default:
		return nil, api.WrapError(api.ErrCodeInvalidArgument,
			"destination is neither IPv4 nor IPv6", api.ErrInvalidArgument)
	}
}

func wrapSyscallError(op string, err error) error {
	switch {
	case errors.Is(err, windows.WSAETIMEDOUT):
		return api.WrapError(api.ErrCodeTimeout, op, api.ErrTimeout)
	case errors.Is(err, windows.WSAENOTSOCK), errors.Is(err, windows.WSAEBADF):
		return api.WrapError(api.ErrCodeState, op, api.ErrEndpointClosed)
	default:
		return api.WrapError(api.ErrCodeTransport, op, err)
	}
}
