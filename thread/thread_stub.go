//go:build !linux && !windows
// +build !linux,!windows

// File: thread/thread_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub identity/priority/times for platforms without a supported
// native mapping. Thread ids degrade to zero, which collapses Current()
// lookups onto the process handle; the suspend/terminate protocol and
// joins keep full semantics since they are platform independent.

package thread

import (
	"time"

	"github.com/momentics/hioload-rt/api"
)

func currentThreadID() uint64 {
	return 0
}

func setPriorityByID(tid uint64, p api.Priority) error {
	return api.ErrNotSupported
}

// threadTimes never fabricates values on unsupported platforms.
func threadTimes(tid uint64) (kernel, user time.Duration, ok bool) {
	return 0, 0, false
}
