//go:build windows
// +build windows

// File: affinity/affinity_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows CPU affinity via SetThreadAffinityMask on the calling thread.

package affinity

import (
	"fmt"
	"runtime"
	"syscall"
)

var (
	kernel32                  = syscall.NewLazyDLL("kernel32.dll")
	procGetCurrentThread      = kernel32.NewProc("GetCurrentThread")
	procSetThreadAffinityMask = kernel32.NewProc("SetThreadAffinityMask")
)

func setMask(mask uintptr) error {
	hThread, _, _ := procGetCurrentThread.Call()
	ret, _, err := procSetThreadAffinityMask.Call(hThread, mask)
	if ret == 0 {
		return err
	}
	return nil
}

func pinPlatform(cpuID int) error {
	if cpuID < 0 || cpuID >= runtime.NumCPU() {
		return fmt.Errorf("affinity: cpu %d out of range [0,%d)", cpuID, runtime.NumCPU())
	}
	return setMask(uintptr(1) << cpuID)
}

func unpinPlatform() error {
	mask := uintptr(0)
	for cpu := 0; cpu < runtime.NumCPU() && cpu < 64; cpu++ {
		mask |= uintptr(1) << cpu
	}
	return setMask(mask)
}
