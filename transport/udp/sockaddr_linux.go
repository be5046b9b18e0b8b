//go:build linux
// +build linux

// File: transport/udp/sockaddr_linux.go
// Author: momentics <momentics@gmail.com>
//
// Conversions between unix.Sockaddr and netip.AddrPort. IPv6 zone
// indices are not carried across the boundary; zoned link-local
// addressing is outside the endpoint contract.

package udp

import (
	"net/netip"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-rt/api"
)

func sockaddrToAddrPort(sa unix.Sockaddr) (netip.AddrPort, bool) {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port)), true
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(sa.Addr), uint16(sa.Port)), true
	default:
		return netip.AddrPort{}, false
	}
}

func addrPortToSockaddr(ap netip.AddrPort) (unix.Sockaddr, error) {
	addr := ap.Addr()
	switch {
	case addr.Is4() || addr.Is4In6():
		return &unix.SockaddrInet4{
			Port: int(ap.Port()),
			Addr: addr.Unmap().As4(),
		}, nil
	case addr.Is6():
		return &unix.SockaddrInet6{
			Port: int(ap.Port()),
			Addr: addr.As16(),
		}, nil
	default:
		return nil, api.WrapError(api.ErrCodeInvalidArgument,
			"destination is neither IPv4 nor IPv6", api.ErrInvalidArgument)
	}
}
