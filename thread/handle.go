// File: thread/handle.go
// Author: momentics <momentics@gmail.com>
//
// Handle is the per-thread control object: identity, name, priority,
// counted suspension, termination state and timing. All control
// operations are safe to call from threads other than the one the
// handle manages; they synchronize only the fields they touch and
// never hold a lock across a blocking call.

package thread

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/momentics/hioload-rt/affinity"
	"github.com/momentics/hioload-rt/api"
)

// WorkFunc is a thread's unit of work. It receives its own handle so it
// can reach safe points, sleep, and access local storage.
type WorkFunc func(*Handle)

// Handle controls one thread of execution. The zero value is unusable;
// handles are produced by Runtime.Spawn, Runtime.Current and
// Runtime.Adopt.
type Handle struct {
	id   uuid.UUID
	rt   *Runtime
	work WorkFunc

	// name has its own lock so naming never contends with control.
	nameMu sync.Mutex
	name   string

	// mu guards the suspend counter and lifecycle flags. cond is
	// signaled on every transition that can unblock a safe point.
	mu            sync.Mutex
	cond          *sync.Cond
	suspend       int
	termRequested bool
	cleanReturn   bool
	lifecycle     api.LifecycleType
	priority      api.Priority
	startReal     time.Time

	stackSize int
	affinity  int

	tid  atomic.Uint64
	done chan struct{}

	storageMu sync.Mutex
	storage   []storageSlot

	released atomic.Bool
}

// spawnConfig collects construction parameters.
type spawnConfig struct {
	name      string
	lifecycle api.LifecycleType
	priority  api.Priority
	stackSize int
	affinity  int
}

// SpawnOption configures a thread at construction.
type SpawnOption func(*spawnConfig)

// WithName sets the debug name. Default is "thread-<uuid>".
func WithName(name string) SpawnOption {
	return func(c *spawnConfig) { c.name = name }
}

// WithPriority sets the initial relative priority.
func WithPriority(p api.Priority) SpawnOption {
	return func(c *spawnConfig) { c.priority = p }
}

// WithAutoDelete selects between the auto-delete and manual-delete
// lifecycle types.
func WithAutoDelete(auto bool) SpawnOption {
	return func(c *spawnConfig) {
		if auto {
			c.lifecycle = api.LifecycleAutoDelete
		} else {
			c.lifecycle = api.LifecycleManualDelete
		}
	}
}

// WithStackSize records a stack size hint. Goroutine stacks grow on
// demand, so the value is bookkeeping carried for API compatibility
// with native thread creation.
func WithStackSize(size int) SpawnOption {
	return func(c *spawnConfig) { c.stackSize = size }
}

// WithCPUAffinity pins the thread to a logical CPU on supported
// platforms. Best effort.
func WithCPUAffinity(cpuID int) SpawnOption {
	return func(c *spawnConfig) { c.affinity = cpuID }
}

func newHandle(rt *Runtime, lc api.LifecycleType, name string) *Handle {
	h := &Handle{
		id:        uuid.New(),
		rt:        rt,
		lifecycle: lc,
		priority:  api.PriorityNormal,
		affinity:  -1,
		done:      make(chan struct{}),
	}
	h.cond = sync.NewCond(&h.mu)
	if name == "" {
		name = "thread-" + h.id.String()[:8]
	}
	h.name = name
	return h
}

// run is the managed thread body. The goroutine is locked to its OS
// thread so the handle keeps a stable platform identity for registry
// lookups, priority mapping and CPU times.
func (h *Handle) run() {
	runtime.LockOSThread()
	h.tid.Store(currentThreadID())
	h.rt.enroll(h)
	defer h.finish()

	if h.affinity >= 0 {
		if err := affinity.Pin(h.affinity); err != nil {
			h.rt.log.Debug("cpu pin failed",
				zap.Int("cpu", h.affinity), zap.Error(err))
		}
	}
	h.applyPriority(h.GetPriority())

	// Start gate: the routine must not observe partially-initialized
	// derived state, so execution is held until the balancing Resume.
	h.Checkpoint()
	h.setStarted(h.rt.clk.Now())

	defer func() {
		if r := recover(); r != nil {
			h.rt.log.Error("thread work routine panicked",
				zap.String("name", h.GetName()), zap.Any("panic", r))
		}
	}()
	h.work(h)
	h.mu.Lock()
	h.cleanReturn = true
	h.mu.Unlock()
}

// finish performs teardown in a fixed order: local storage first, then
// registry removal, then termination visibility. A thread observed as
// terminated has therefore already completed all local storage
// teardown.
func (h *Handle) finish() {
	h.tearDownStorage()
	h.rt.deregister(h)

	h.mu.Lock()
	forcedStop := h.termRequested && !h.cleanReturn
	h.mu.Unlock()

	h.rt.observeExit(h, forcedStop)
	close(h.done)

	if h.IsAutoDelete() {
		h.release()
	}
}

// release drops the handle's owned references exactly once. This is the
// auto-delete analog of freeing the control object: the work closure
// and storage registrations are cleared so nothing keeps dead state
// reachable. Confirmed completion is the only trigger.
func (h *Handle) release() {
	if !h.released.CompareAndSwap(false, true) {
		return
	}
	h.work = nil
	h.storageMu.Lock()
	h.storage = nil
	h.storageMu.Unlock()
}

// ID returns the handle's process-unique identity. Unlike the OS thread
// id it is never recycled.
func (h *Handle) ID() uuid.UUID { return h.id }

// ThreadID returns the OS-level thread identifier. Valid while the
// thread is live; querying a terminated thread's id is meaningless as
// the OS may recycle it.
func (h *Handle) ThreadID() uint64 { return h.tid.Load() }

// Lifecycle returns the handle's current lifecycle type.
func (h *Handle) Lifecycle() api.LifecycleType {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lifecycle
}

// IsAutoDelete reports whether completion releases the handle's
// resources automatically.
func (h *Handle) IsAutoDelete() bool {
	return h.Lifecycle() == api.LifecycleAutoDelete
}

// SetAutoDelete changes the lifecycle type between auto- and
// manual-delete. Safe at any time; no retroactive effect on an
// already-completed thread. Process and external handles are exempt.
func (h *Handle) SetAutoDelete(auto bool) {
	h.mu.Lock()
	if !h.lifecycle.Wrapped() {
		if auto {
			h.lifecycle = api.LifecycleAutoDelete
		} else {
			h.lifecycle = api.LifecycleManualDelete
		}
	}
	h.mu.Unlock()
}

// GetName implements api.Nameable.
func (h *Handle) GetName() string {
	h.nameMu.Lock()
	defer h.nameMu.Unlock()
	return h.name
}

// SetName implements api.Nameable.
func (h *Handle) SetName(name string) {
	h.nameMu.Lock()
	h.name = name
	h.nameMu.Unlock()
}

// String renders the handle for logs and diagnostics.
func (h *Handle) String() string {
	return fmt.Sprintf("%s(%s, tid=%d)", h.GetName(), h.Lifecycle(), h.ThreadID())
}

// Suspend adjusts the suspension counter. susp=true increments it,
// susp=false decrements it with a floor of zero: a resume with no
// matching suspend is a no-op, never a negative count. Execution
// actually pauses only on the 0->1 transition and actually resumes only
// on the 1->0 transition; intermediate adjustments are bookkeeping.
// Suspension takes effect at the thread's next safe point.
func (h *Handle) Suspend(susp bool) {
	h.mu.Lock()
	if susp {
		h.suspend++
	} else if h.suspend > 0 {
		h.suspend--
		if h.suspend == 0 {
			h.cond.Broadcast()
		}
	}
	h.mu.Unlock()
}

// Resume is identical to Suspend(false). It must never be called from
// within code still constructing state the work routine depends on: the
// routine may start executing immediately.
func (h *Handle) Resume() {
	h.Suspend(false)
}

// IsSuspended reports whether the suspension counter is above zero.
func (h *Handle) IsSuspended() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.suspend > 0
}

// SuspendCount returns the current suspension counter.
func (h *Handle) SuspendCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.suspend
}

// Checkpoint is a cooperative safe point. While the suspension counter
// is above zero the calling thread blocks here; a pending forced
// termination stops the thread. Only the thread the handle manages
// actually blocks; other callers return immediately.
func (h *Handle) Checkpoint() {
	if h.tid.Load() != currentThreadID() {
		return
	}
	h.mu.Lock()
	for h.suspend > 0 && !h.termRequested {
		h.cond.Wait()
	}
	term := h.termRequested && !h.lifecycle.Wrapped()
	h.mu.Unlock()
	if term {
		// Forced stop: unwinds the work routine at this point. Only
		// deferred functions run; any other in-progress cleanup is
		// skipped. The correct termination path remains returning from
		// the work routine.
		runtime.Goexit()
	}
}

// Terminate requests a forced stop. Unsafe by design: the work routine
// is cut off at its next safe point, skipping in-progress cleanup. It
// is never invoked implicitly by normal cleanup paths. Process and
// external handles cannot be terminated. Idempotent.
func (h *Handle) Terminate() error {
	h.mu.Lock()
	if h.lifecycle.Wrapped() {
		h.mu.Unlock()
		return api.WrapError(api.ErrCodeState,
			"terminate: "+h.lifecycle.String()+" handle", api.ErrNotOwned)
	}
	if h.termRequested {
		h.mu.Unlock()
		return nil
	}
	h.termRequested = true
	h.cond.Broadcast()
	h.mu.Unlock()

	h.rt.log.Warn("forced termination requested",
		zap.String("name", h.GetName()), zap.Uint64("tid", h.ThreadID()))
	return nil
}

// IsTerminated reports whether the thread has been terminated or ran to
// completion. By the time this returns true, the thread's local storage
// teardown has already completed.
func (h *Handle) IsTerminated() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the thread terminates. Waiting on the calling
// thread's own handle deadlocks.
func (h *Handle) Wait() {
	<-h.done
}

// WaitTimeout blocks until the thread terminates or the timeout
// elapses. Returns false only if the timeout expired before
// completion; once the thread has terminated every subsequent call
// returns true.
func (h *Handle) WaitTimeout(d time.Duration) bool {
	select {
	case <-h.done:
		return true
	default:
	}
	t := h.rt.clk.Timer(d)
	defer t.Stop()
	select {
	case <-h.done:
		return true
	case <-t.C:
		return false
	}
}

// SetPriority sets the thread's relative priority. Best effort: the
// five levels map onto platform values preserving ordering only, and a
// refusal by the OS (insufficient privilege, unsupported platform) is
// recorded but not fatal. Out-of-range values are clamped.
func (h *Handle) SetPriority(p api.Priority) {
	if !p.Valid() {
		h.rt.log.Warn("priority out of range, clamping", zap.Int("requested", int(p)))
		p = p.Clamp()
	}
	h.mu.Lock()
	h.priority = p
	h.mu.Unlock()

	tid := h.tid.Load()
	if tid == 0 || h.IsTerminated() {
		return
	}
	h.applyPriority(p)
}

// GetPriority returns the current relative priority.
func (h *Handle) GetPriority() api.Priority {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.priority
}

func (h *Handle) applyPriority(p api.Priority) {
	if err := setPriorityByID(h.tid.Load(), p); err != nil {
		h.rt.log.Debug("set priority",
			zap.String("level", p.String()),
			zap.Uint64("tid", h.tid.Load()),
			zap.Error(err))
	}
}

// Sleep pauses the calling thread for the given duration, observing
// pending suspend and termination requests at entry and exit.
func (h *Handle) Sleep(d time.Duration) {
	h.Checkpoint()
	h.rt.clk.Sleep(d)
	h.Checkpoint()
}

// GetTimes reports the thread's accumulated execution times. When the
// platform cannot report timing, or the thread has already terminated,
// it returns false and leaves out untouched; values are never
// fabricated.
func (h *Handle) GetTimes(out *api.Times) bool {
	if out == nil {
		return false
	}
	tid := h.tid.Load()
	if tid == 0 || h.IsTerminated() {
		return false
	}
	kernel, user, ok := threadTimes(tid)
	if !ok {
		return false
	}
	h.mu.Lock()
	start := h.startReal
	h.mu.Unlock()
	var real time.Duration
	if !start.IsZero() {
		real = h.rt.clk.Now().Sub(start)
	}
	*out = api.Times{Real: real, Kernel: kernel, User: user}
	return true
}

func (h *Handle) setStarted(at time.Time) {
	h.mu.Lock()
	h.startReal = at
	h.mu.Unlock()
}

// registerSlot records a local storage slot holding a value for this
// thread, to be visited at teardown.
func (h *Handle) registerSlot(s storageSlot) {
	h.storageMu.Lock()
	for _, existing := range h.storage {
		if existing == s {
			h.storageMu.Unlock()
			return
		}
	}
	h.storage = append(h.storage, s)
	h.storageMu.Unlock()
}

// tearDownStorage visits every slot holding an entry for this thread.
// Runs on the thread itself before its termination becomes visible, so
// teardown and value access are mutually exclusive per (slot, thread)
// pair and no stale entry survives identity reuse.
func (h *Handle) tearDownStorage() {
	h.storageMu.Lock()
	slots := h.storage
	h.storage = nil
	h.storageMu.Unlock()
	for _, s := range slots {
		s.threadTornDown(h)
	}
}
