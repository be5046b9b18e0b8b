// File: pool/bufferpool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import "sync/atomic"

// freeListCap bounds how many idle buffers a pool retains. Overflow
// is released to the garbage collector.
const freeListCap = 1024

// BufferPool recycles fixed-capacity byte buffers. Get always returns
// a buffer of exactly Size() bytes; Put accepts only buffers whose
// capacity matches, anything else is dropped.
type BufferPool struct {
	free chan []byte
	size int

	hits   atomic.Int64
	misses atomic.Int64
}

// NewBufferPool creates a pool handing out buffers of size bytes.
// Non-positive sizes are treated as a 64 KiB datagram buffer, large
// enough for any UDP payload.
func NewBufferPool(size int) *BufferPool {
	if size <= 0 {
		size = 64 * 1024
	}
	return &BufferPool{
		free: make(chan []byte, freeListCap),
		size: size,
	}
}

// Size reports the capacity of buffers produced by this pool.
func (p *BufferPool) Size() int { return p.size }

// Get returns a buffer of Size() bytes, reusing a recycled one when
// available.
func (p *BufferPool) Get() []byte {
	select {
	case buf := <-p.free:
		p.hits.Add(1)
		return buf[:p.size]
	default:
		p.misses.Add(1)
		return make([]byte, p.size)
	}
}

// Put recycles a buffer obtained from Get. Buffers of a foreign
// capacity and overflow beyond the free-list bound are discarded.
func (p *BufferPool) Put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	select {
	case p.free <- buf[:p.size]:
	default:
	}
}

// Stats reports pool effectiveness since creation.
func (p *BufferPool) Stats() Stats {
	return Stats{
		Hits:   p.hits.Load(),
		Misses: p.misses.Load(),
		Idle:   len(p.free),
	}
}

// Stats describes buffer pool reuse behavior.
type Stats struct {
	Hits   int64 // Get served from the free list
	Misses int64 // Get allocated fresh
	Idle   int   // buffers currently parked
}
