// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Public contracts for the hioload-rt runtime foundation.
//
// The package defines the platform-neutral vocabulary shared by the
// thread and transport layers: capability interfaces for execution
// contexts (Nameable, Runnable, Joinable, Suspendable), the five-level
// relative priority scale, handle lifecycle types, execution times,
// datagram reader/writer contracts and structured error values.
//
// api carries no implementation and no platform dependencies; all
// build-tag-partitioned code lives in the implementing packages.
package api
