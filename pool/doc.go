// File: pool/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package pool provides reusable byte buffers for datagram I/O.
//
// Buffers are recycled through bounded per-size free lists so that
// hot receive/transmit loops allocate only on cold start. Segment
// helpers carve a single pooled buffer into scatter/gather views for
// the vectored read and write paths.
package pool
