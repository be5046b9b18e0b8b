// File: api/thread.go
// Author: momentics <momentics@gmail.com>
//
// Thread control vocabulary: relative priorities, handle lifecycle
// types, execution times and capability interfaces. The scale carries
// ordering guarantees only; absolute scheduling behavior is platform
// dependent.

package api

import (
	"fmt"
	"time"
)

// Priority is the relative scheduling priority of a thread within the
// process. Only the ordering among the five levels is guaranteed; the
// mapping onto OS priority values is best-effort and platform specific.
type Priority int

const (
	// PriorityLowest runs only when nothing else is runnable.
	PriorityLowest Priority = iota
	// PriorityLow runs less often than normal.
	PriorityLow
	// PriorityNormal is the default priority for a thread.
	PriorityNormal
	// PriorityHigh runs more often than normal.
	PriorityHigh
	// PriorityHighest preempts all lower levels when runnable.
	PriorityHighest

	// NumPriorities is the number of defined priority levels.
	NumPriorities
)

// Valid reports whether p is one of the five defined levels.
func (p Priority) Valid() bool {
	return p >= PriorityLowest && p < NumPriorities
}

// Clamp forces p into the defined range.
func (p Priority) Clamp() Priority {
	if p < PriorityLowest {
		return PriorityLowest
	}
	if p >= NumPriorities {
		return PriorityHighest
	}
	return p
}

func (p Priority) String() string {
	switch p {
	case PriorityLowest:
		return "lowest"
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityHighest:
		return "highest"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// LifecycleType describes who owns a handle's storage and completion.
type LifecycleType int

const (
	// LifecycleAutoDelete releases the handle's resources exactly once,
	// at confirmed completion of the work routine, never before.
	LifecycleAutoDelete LifecycleType = iota
	// LifecycleManualDelete leaves resource release to the caller.
	LifecycleManualDelete
	// LifecycleProcess marks the program's own thread of control wrapped
	// as a handle. Exactly one live Process handle exists per runtime.
	LifecycleProcess
	// LifecycleExternal marks a foreign execution context adopted into
	// the registry. Exempt from auto-delete and termination.
	LifecycleExternal
)

func (t LifecycleType) String() string {
	switch t {
	case LifecycleAutoDelete:
		return "auto-delete"
	case LifecycleManualDelete:
		return "manual-delete"
	case LifecycleProcess:
		return "process"
	case LifecycleExternal:
		return "external"
	}
	return fmt.Sprintf("lifecycle(%d)", int(t))
}

// Wrapped reports whether the type represents a pre-existing execution
// context rather than one created by the runtime.
func (t LifecycleType) Wrapped() bool {
	return t == LifecycleProcess || t == LifecycleExternal
}

// Times aggregates a thread's accumulated execution times.
type Times struct {
	Real   time.Duration // wall-clock time since the work routine started
	Kernel time.Duration // CPU time spent in kernel mode
	User   time.Duration // CPU time spent in user mode
}

func (t Times) String() string {
	return fmt.Sprintf("real=%v kernel=%v user=%v", t.Real, t.Kernel, t.User)
}

// Nameable is anything carrying a mutable debug name.
type Nameable interface {
	GetName() string
	SetName(name string)
}

// Runnable is an injected unit of work. The runtime resolves it once at
// construction and invokes Run exactly once when the owning thread first
// transitions to the running state.
type Runnable interface {
	Run()
}

// RunnableFunc adapts a plain function to Runnable.
type RunnableFunc func()

// Run implements Runnable.
func (f RunnableFunc) Run() { f() }

// Joinable supports observing and awaiting completion. A context
// observed as terminated has already finished all of its local-storage
// teardown.
type Joinable interface {
	IsTerminated() bool
	Wait()
	// WaitTimeout returns false only if the timeout elapsed before
	// completion; repeated calls after completion keep returning true.
	WaitTimeout(d time.Duration) bool
}

// Suspendable supports the counted suspend/resume protocol. The counter
// never goes negative: a resume with no matching suspend is a no-op.
type Suspendable interface {
	Suspend(susp bool)
	Resume()
	IsSuspended() bool
}
