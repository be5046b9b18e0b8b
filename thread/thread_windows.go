//go:build windows
// +build windows

// File: thread/thread_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows-specific thread identity, priority mapping and CPU times via
// kernel32.

package thread

import (
	"syscall"
	"time"
	"unsafe"

	"github.com/momentics/hioload-rt/api"
)

var (
	kernel32               = syscall.NewLazyDLL("kernel32.dll")
	procGetCurrentThreadId = kernel32.NewProc("GetCurrentThreadId")
	procOpenThread         = kernel32.NewProc("OpenThread")
	procCloseHandle        = kernel32.NewProc("CloseHandle")
	procSetThreadPriority  = kernel32.NewProc("SetThreadPriority")
	procGetThreadTimes     = kernel32.NewProc("GetThreadTimes")
)

const (
	threadSetInformation   = 0x0020
	threadQueryInformation = 0x0040
)

// priorityLevels maps the five relative levels onto
// THREAD_PRIORITY_{LOWEST..HIGHEST}.
var priorityLevels = [api.NumPriorities]int32{-2, -1, 0, 1, 2}

// currentThreadID returns the Windows thread id of the calling thread.
func currentThreadID() uint64 {
	id, _, _ := procGetCurrentThreadId.Call()
	return uint64(id)
}

func openThread(access uint32, tid uint64) (uintptr, error) {
	h, _, err := procOpenThread.Call(uintptr(access), 0, uintptr(uint32(tid)))
	if h == 0 {
		return 0, err
	}
	return h, nil
}

func setPriorityByID(tid uint64, p api.Priority) error {
	h, err := openThread(threadSetInformation, tid)
	if err != nil {
		return err
	}
	defer procCloseHandle.Call(h) //nolint:errcheck
	ret, _, callErr := procSetThreadPriority.Call(h, uintptr(uint32(priorityLevels[p.Clamp()])))
	if ret == 0 {
		return callErr
	}
	return nil
}

// filetimeDuration converts a FILETIME holding an elapsed interval
// (100ns units) into a Duration.
func filetimeDuration(ft syscall.Filetime) time.Duration {
	ticks := uint64(ft.HighDateTime)<<32 | uint64(ft.LowDateTime)
	return time.Duration(ticks * 100)
}

// threadTimes reports accumulated kernel and user CPU time for a live
// thread via GetThreadTimes.
func threadTimes(tid uint64) (kernel, user time.Duration, ok bool) {
	h, err := openThread(threadQueryInformation, tid)
	if err != nil {
		return 0, 0, false
	}
	defer procCloseHandle.Call(h) //nolint:errcheck
	var creation, exit, kt, ut syscall.Filetime
	ret, _, _ := procGetThreadTimes.Call(h,
		uintptr(unsafe.Pointer(&creation)),
		uintptr(unsafe.Pointer(&exit)),
		uintptr(unsafe.Pointer(&kt)),
		uintptr(unsafe.Pointer(&ut)))
	if ret == 0 {
		return 0, 0, false
	}
	return filetimeDuration(kt), filetimeDuration(ut), true
}
