//go:build !linux && !windows
// +build !linux,!windows

// File: transport/udp/endpoint_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms. Construction succeeds
// only far enough to report ErrNotSupported from every operation.

package udp

import (
	"net/netip"
	"time"

	"github.com/momentics/hioload-rt/api"
)

func verifyDatagram(fd uintptr) error {
	return api.ErrNotSupported
}

func (e *Endpoint) readFromOS(segs [][]byte) (int, netip.AddrPort, error) {
	return 0, netip.AddrPort{}, api.ErrNotSupported
}

func (e *Endpoint) writeToOS(segs [][]byte, ap netip.AddrPort, total int) error {
	return api.ErrNotSupported
}

func (e *Endpoint) setTimeoutOS(d time.Duration, read bool) error {
	return api.ErrNotSupported
}
