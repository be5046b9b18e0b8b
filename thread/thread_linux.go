//go:build linux
// +build linux

// File: thread/thread_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific thread identity, priority mapping and CPU times.
// Priorities map onto nice values per thread id (Linux schedules
// threads as tasks, so PRIO_PROCESS with a tid adjusts one thread).
// Raising priority above normal requires privilege; refusal is
// reported to the caller and treated as best-effort.

package thread

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-rt/api"
)

// currentThreadID returns the kernel task id of the calling thread.
func currentThreadID() uint64 {
	return uint64(unix.Gettid())
}

// priorityNice maps the five relative levels onto nice values. Only the
// ordering matters; the exact spacing is not part of the contract.
var priorityNice = [api.NumPriorities]int{19, 10, 0, -5, -10}

func setPriorityByID(tid uint64, p api.Priority) error {
	return unix.Setpriority(unix.PRIO_PROCESS, int(tid), priorityNice[p.Clamp()])
}

// ticksPerSecond is USER_HZ as exposed through /proc, fixed at 100 on
// Linux regardless of the kernel tick rate.
const ticksPerSecond = 100

// threadTimes reads accumulated kernel and user CPU time for a live
// thread from /proc/self/task/<tid>/stat.
func threadTimes(tid uint64) (kernel, user time.Duration, ok bool) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/self/task/%d/stat", tid))
	if err != nil {
		return 0, 0, false
	}
	// The comm field may contain spaces; numeric fields start after the
	// closing parenthesis. Per proc(5), utime and stime are fields 14
	// and 15, i.e. offsets 11 and 12 past comm.
	i := bytes.LastIndexByte(data, ')')
	if i < 0 {
		return 0, 0, false
	}
	fields := strings.Fields(string(data[i+1:]))
	if len(fields) < 13 {
		return 0, 0, false
	}
	utime, err1 := strconv.ParseUint(fields[11], 10, 64)
	stime, err2 := strconv.ParseUint(fields[12], 10, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	tick := time.Second / ticksPerSecond
	return time.Duration(stime) * tick, time.Duration(utime) * tick, true
}
