// Package thread
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Portable thread lifecycle layer for hioload-rt.
//
// A Runtime is the process-scoped registry context: it wraps the calling
// execution context as the single process handle, enrolls every spawned
// thread, and answers Current() lookups. Handles expose the counted
// suspend/resume protocol, best-effort relative priorities, timed join,
// per-thread execution times and per-thread local storage slots.
//
// Every spawned handle starts suspended with a count of one and never
// executes its work routine before the balancing Resume. Suspension is
// cooperative: native external suspension is unsafe or unavailable on
// modern platforms, so the counter gates execution at safe points
// (Checkpoint, Sleep and the start gate) via a wait/notify scheme. This
// is a deliberate semantic narrowing from true external suspension: a
// thread blocked elsewhere pauses at its next safe point.
//
// Platform-specific pieces (thread ids, priority mapping, CPU times)
// are strictly separated by build tags, mirroring the transport layer.
package thread
