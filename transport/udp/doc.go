// File: transport/udp/doc.go
// Package udp
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scatter/gather datagram I/O over a pre-opened socket descriptor.
//
// The endpoint does not create or bind sockets; descriptor setup is an
// external concern. Every public read/write shape (single buffer or
// segment slice, split address+port or combined netip.AddrPort)
// projects onto one internal vectored operation per direction, so all
// shapes share identical semantics and a single platform-specific code
// path. Platform implementations are strictly separated by build tags
// (linux/windows), with a stub refusing unsupported platforms.
package udp
