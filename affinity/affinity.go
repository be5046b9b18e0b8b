// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific
// implementations live in separate files (affinity_linux.go,
// affinity_windows.go, etc.) guarded by build tags.
//
// Pinning applies to the calling OS thread; callers must already be
// locked to their thread (thread.Runtime handles spawn through
// runtime.LockOSThread before pinning).

package affinity

// Pin binds the calling OS thread to a given logical CPU on supported
// platforms. On unsupported platforms returns an error.
func Pin(cpuID int) error {
	return pinPlatform(cpuID)
}

// Unpin clears the calling OS thread's CPU affinity, restoring the full
// CPU set on supported platforms.
func Unpin() error {
	return unpinPlatform()
}
