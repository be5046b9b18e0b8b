// File: thread/runtime.go
// Author: momentics <momentics@gmail.com>
//
// Runtime is the process-scoped thread registry. It is constructed once
// at process start, torn down once at process exit, and passed to the
// components that need it rather than accessed as ambient global state.
// Registry insert/remove/lookup are serialized against each other but
// never against a thread's actual execution.

package thread

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/momentics/hioload-rt/api"
)

// Runtime is the process-scoped registry mapping live execution
// contexts to their control handles.
type Runtime struct {
	mu      sync.RWMutex
	byTID   map[uint64]*Handle
	process *Handle
	closed  bool

	log *zap.Logger
	clk clock.Clock

	started   atomic.Int64
	completed atomic.Int64
	forced    atomic.Int64
	adopted   atomic.Int64
}

// RuntimeOption configures a Runtime at construction.
type RuntimeOption func(*Runtime)

// WithLogger installs a structured logger. Default is a no-op logger.
func WithLogger(log *zap.Logger) RuntimeOption {
	return func(rt *Runtime) {
		if log != nil {
			rt.log = log
		}
	}
}

// WithClock substitutes the time source, primarily for tests.
func WithClock(clk clock.Clock) RuntimeOption {
	return func(rt *Runtime) {
		if clk != nil {
			rt.clk = clk
		}
	}
}

// NewRuntime creates the process-scoped runtime and wraps the calling
// execution context as the single process handle. The calling goroutine
// is locked to its OS thread so the process handle keeps a stable
// identity for registry lookups.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	rt := &Runtime{
		byTID: make(map[uint64]*Handle),
		log:   zap.NewNop(),
		clk:   clock.New(),
	}
	for _, opt := range opts {
		opt(rt)
	}

	runtime.LockOSThread()
	ph := newHandle(rt, api.LifecycleProcess, "process")
	ph.tid.Store(currentThreadID())
	ph.setStarted(rt.clk.Now())
	rt.process = ph
	rt.enroll(ph)

	rt.log.Debug("runtime initialized",
		zap.Uint64("process_tid", ph.ThreadID()),
		zap.String("process_handle", ph.ID().String()))
	return rt
}

// Process returns the handle wrapping the program's own thread of
// control. Exactly one live handle has this lifecycle type.
func (rt *Runtime) Process() *Handle {
	return rt.process
}

// Spawn creates a new thread executing work. The returned handle is
// always in the suspended state with a count of one; the work routine
// never begins executing until the balancing Resume. Resume must not be
// called from within code still constructing state the routine depends
// on.
func (rt *Runtime) Spawn(work WorkFunc, opts ...SpawnOption) (*Handle, error) {
	if work == nil {
		return nil, api.WrapError(api.ErrCodeInvalidArgument,
			"spawn: nil work routine", api.ErrInvalidArgument)
	}
	cfg := spawnConfig{
		lifecycle: api.LifecycleAutoDelete,
		priority:  api.PriorityNormal,
		affinity:  -1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.stackSize < 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument,
			"spawn: negative stack size").WithContext("stack_size", cfg.stackSize)
	}
	if !cfg.priority.Valid() {
		rt.log.Warn("spawn: priority out of range, clamping",
			zap.Int("requested", int(cfg.priority)))
		cfg.priority = cfg.priority.Clamp()
	}

	rt.mu.RLock()
	closed := rt.closed
	rt.mu.RUnlock()
	if closed {
		return nil, api.ErrRuntimeClosed
	}

	h := newHandle(rt, cfg.lifecycle, cfg.name)
	h.work = work
	h.priority = cfg.priority
	h.stackSize = cfg.stackSize
	h.affinity = cfg.affinity
	h.suspend = 1 // created suspended, balanced by the first Resume

	rt.started.Add(1)
	go h.run()
	return h, nil
}

// SpawnRunnable is Spawn for an injected api.Runnable value. The
// runnable is resolved once here and invoked exactly once when the
// thread first transitions to running.
func (rt *Runtime) SpawnRunnable(r api.Runnable, opts ...SpawnOption) (*Handle, error) {
	if r == nil {
		return nil, api.WrapError(api.ErrCodeInvalidArgument,
			"spawn: nil runnable", api.ErrInvalidArgument)
	}
	return rt.Spawn(func(*Handle) { r.Run() }, opts...)
}

// Current returns the handle for the invoking execution context. An
// unknown context (a foreign OS thread, or a goroutine outside the
// runtime's control) is adopted lazily as an external handle.
func (rt *Runtime) Current() *Handle {
	tid := currentThreadID()
	rt.mu.RLock()
	h := rt.byTID[tid]
	rt.mu.RUnlock()
	if h != nil {
		return h
	}
	return rt.adopt(tid, "")
}

// Adopt explicitly wraps the calling foreign execution context as an
// external handle. Adopted handles are exempt from auto-deletion and
// termination. Adopting an already-known context returns its handle.
func (rt *Runtime) Adopt(name string) *Handle {
	tid := currentThreadID()
	rt.mu.RLock()
	h := rt.byTID[tid]
	rt.mu.RUnlock()
	if h != nil {
		return h
	}
	return rt.adopt(tid, name)
}

func (rt *Runtime) adopt(tid uint64, name string) *Handle {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if h := rt.byTID[tid]; h != nil {
		return h
	}
	h := newHandle(rt, api.LifecycleExternal, name)
	h.tid.Store(tid)
	h.setStarted(rt.clk.Now())
	if !rt.closed {
		rt.byTID[tid] = h
		rt.adopted.Add(1)
	}
	rt.log.Debug("adopted external context",
		zap.Uint64("tid", tid), zap.String("name", h.GetName()))
	return h
}

// Sleep suspends the calling thread for the given duration, honoring
// pending suspend and termination requests for managed threads.
func (rt *Runtime) Sleep(d time.Duration) {
	if h := rt.Current(); h != nil && !h.Lifecycle().Wrapped() {
		h.Sleep(d)
		return
	}
	rt.clk.Sleep(d)
}

// Yield offers the scheduler a chance to run another thread. Advisory
// only; no ordering guarantee.
func Yield() {
	runtime.Gosched()
}

// enroll records a live handle under its OS thread id.
func (rt *Runtime) enroll(h *Handle) {
	tid := h.tid.Load()
	rt.mu.Lock()
	if prev := rt.byTID[tid]; prev != nil && prev != h {
		// tid recycled by the OS; the previous owner is gone
		rt.log.Debug("registry tid recycled", zap.Uint64("tid", tid))
	}
	rt.byTID[tid] = h
	rt.mu.Unlock()
}

// deregister removes a handle from the registry. Called from the
// handle's own teardown, before its termination becomes observable.
func (rt *Runtime) deregister(h *Handle) {
	tid := h.tid.Load()
	rt.mu.Lock()
	if rt.byTID[tid] == h {
		delete(rt.byTID, tid)
	}
	rt.mu.Unlock()
}

// observeExit accounts a completed thread.
func (rt *Runtime) observeExit(h *Handle, forcedStop bool) {
	rt.completed.Add(1)
	if forcedStop {
		rt.forced.Add(1)
		rt.log.Warn("thread stopped via forced termination",
			zap.String("name", h.GetName()), zap.Uint64("tid", h.ThreadID()))
		return
	}
	rt.log.Debug("thread completed",
		zap.String("name", h.GetName()), zap.Uint64("tid", h.ThreadID()))
}

// Stats is a point-in-time snapshot of registry accounting.
type Stats struct {
	Live      int
	Suspended int
	Started   int64
	Completed int64
	Forced    int64
	Adopted   int64
}

// Stats returns a snapshot of the registry counters.
func (rt *Runtime) Stats() Stats {
	s := Stats{
		Started:   rt.started.Load(),
		Completed: rt.completed.Load(),
		Forced:    rt.forced.Load(),
		Adopted:   rt.adopted.Load(),
	}
	rt.mu.RLock()
	for _, h := range rt.byTID {
		s.Live++
		if h.IsSuspended() {
			s.Suspended++
		}
	}
	rt.mu.RUnlock()
	return s
}

// Handles returns a snapshot of all live handles.
func (rt *Runtime) Handles() []*Handle {
	rt.mu.RLock()
	out := make([]*Handle, 0, len(rt.byTID))
	for _, h := range rt.byTID {
		out = append(out, h)
	}
	rt.mu.RUnlock()
	return out
}

// Close tears the runtime down: the process handle's local storage is
// destroyed, the registry stops accepting spawns, and the OS thread
// lock taken at construction is released. Returns a state error when
// managed threads are still live; their handles stay valid but Current
// lookups for new contexts will no longer adopt.
func (rt *Runtime) Close() error {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return api.ErrRuntimeClosed
	}
	rt.closed = true
	live := 0
	for _, h := range rt.byTID {
		if !h.Lifecycle().Wrapped() {
			live++
		}
	}
	if rt.process != nil {
		delete(rt.byTID, rt.process.tid.Load())
	}
	rt.mu.Unlock()

	if rt.process != nil {
		rt.process.tearDownStorage()
	}
	runtime.UnlockOSThread()

	if live > 0 {
		rt.log.Warn("runtime closed with live threads", zap.Int("live", live))
		return api.NewError(api.ErrCodeState,
			"runtime closed with live threads").WithContext("live", live)
	}
	rt.log.Debug("runtime closed")
	return nil
}
