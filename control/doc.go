// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics and debug introspection layer for hioload-rt.
//
// Provides concurrent-safe observability primitives:
//   - Counter/gauge style metrics with snapshot reads
//   - Named debug probes pulling live state on demand
//   - Ready-made probe wiring for the thread runtime and datagram
//     endpoints
//
// This package is cross-platform; it reads state, never mutates it.
package control
