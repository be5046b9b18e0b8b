//go:build !linux && !windows
// +build !linux,!windows

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.
// Returns error to indicate unavailability.

package affinity

import "errors"

func pinPlatform(cpuID int) error {
	return errors.New("affinity: not supported on this platform")
}

func unpinPlatform() error {
	return errors.New("affinity: not supported on this platform")
}
