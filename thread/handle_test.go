// File: thread/handle_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Lifecycle, suspension and termination semantics of thread handles.

package thread_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/thread"
)

func TestSpawnStartsSuspended(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	started := make(chan struct{})
	h, err := rt.Spawn(func(*thread.Handle) { close(started) })
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if !h.IsSuspended() {
		t.Fatal("handle must be created suspended")
	}
	if got := h.SuspendCount(); got != 1 {
		t.Fatalf("suspend count = %d, want 1", got)
	}
	select {
	case <-started:
		t.Fatal("work routine ran before Resume")
	case <-time.After(50 * time.Millisecond):
	}
	h.Resume()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("work routine did not start after Resume")
	}
	h.Wait()
}

// Construction race freedom: under repeated construction and scheduler
// stress the work routine must never observe the pre-resume window.
func TestConstructionRaceFreedom(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	const rounds = 10000
	for i := 0; i < rounds; i++ {
		var ran atomic.Bool
		h, err := rt.Spawn(func(*thread.Handle) { ran.Store(true) })
		if err != nil {
			t.Fatalf("round %d: spawn: %v", i, err)
		}
		// give the new thread every chance to misbehave
		thread.Yield()
		if ran.Load() {
			t.Fatalf("round %d: work routine ran before Resume", i)
		}
		h.Resume()
		h.Wait()
		if !ran.Load() {
			t.Fatalf("round %d: work routine never ran", i)
		}
	}
}

func TestSuspendCounterClampsAtZero(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	h, err := rt.Spawn(func(h *thread.Handle) {
		for !h.IsTerminated() {
			h.Checkpoint()
			thread.Yield()
		}
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	// counter starts at 1; excess resumes must be no-ops, not negative
	h.Resume()
	h.Resume()
	h.Resume()
	if got := h.SuspendCount(); got != 0 {
		t.Fatalf("suspend count after excess resumes = %d, want 0", got)
	}
	if h.IsSuspended() {
		t.Fatal("thread must be running at count 0")
	}
	h.Suspend(true)
	h.Suspend(true)
	if got := h.SuspendCount(); got != 2 {
		t.Fatalf("suspend count = %d, want 2", got)
	}
	h.Resume()
	if !h.IsSuspended() {
		t.Fatal("count 1 must still report suspended")
	}
	h.Resume()
	if err := h.Terminate(); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	h.Wait()
}

// A suspended thread makes no forward progress until the matching
// number of resumes.
func TestSuspendPausesExecution(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	var ticks atomic.Int64
	stop := make(chan struct{})
	h, err := rt.Spawn(func(h *thread.Handle) {
		for {
			select {
			case <-stop:
				return
			default:
			}
			h.Checkpoint()
			ticks.Add(1)
		}
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	h.Resume()
	waitFor(t, func() bool { return ticks.Load() > 0 })

	h.Suspend(true)
	// drain the in-flight iteration, then the counter must freeze
	time.Sleep(20 * time.Millisecond)
	before := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	if after := ticks.Load(); after != before {
		t.Fatalf("suspended thread advanced: %d -> %d", before, after)
	}
	h.Resume()
	waitFor(t, func() bool { return ticks.Load() > before })
	close(stop)
	h.Wait()
}

func TestTerminateStopsAtSafePoint(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	var cleanFinish atomic.Bool
	h, err := rt.Spawn(func(h *thread.Handle) {
		for {
			h.Checkpoint()
			thread.Yield()
		}
		// unreachable: forced termination skips everything below the
		// safe point
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	h.Resume()
	if err := h.Terminate(); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if err := h.Terminate(); err != nil {
		t.Fatalf("terminate must be idempotent: %v", err)
	}
	if !h.WaitTimeout(2 * time.Second) {
		t.Fatal("terminated thread did not stop")
	}
	if !h.IsTerminated() {
		t.Fatal("IsTerminated after forced stop")
	}
	if cleanFinish.Load() {
		t.Fatal("forced termination must not report clean completion")
	}
}

func TestTerminateRejectedForWrappedHandles(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	if err := rt.Process().Terminate(); err == nil {
		t.Fatal("terminating the process handle must fail")
	} else if api.CodeOf(err) != api.ErrCodeState {
		t.Fatalf("unexpected error taxonomy: %v", err)
	}
}

func TestWaitTimeoutSemantics(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	block := make(chan struct{})
	h, err := rt.Spawn(func(*thread.Handle) { <-block })
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	h.Resume()

	if h.WaitTimeout(30 * time.Millisecond) {
		t.Fatal("WaitTimeout must report false before completion")
	}
	close(block)
	if !h.WaitTimeout(2 * time.Second) {
		t.Fatal("WaitTimeout must report true after completion")
	}
	// idempotence: every subsequent call keeps returning true
	for i := 0; i < 5; i++ {
		if !h.WaitTimeout(time.Nanosecond) {
			t.Fatalf("call %d: WaitTimeout regressed to false", i)
		}
	}
}

func TestWaitTimeoutMockClock(t *testing.T) {
	mock := clock.NewMock()
	rt := thread.NewRuntime(thread.WithClock(mock))
	defer rt.Close()

	block := make(chan struct{})
	h, err := rt.Spawn(func(*thread.Handle) { <-block })
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	h.Resume()

	res := make(chan bool, 1)
	go func() { res <- h.WaitTimeout(time.Hour) }()
	// let the waiter arm its timer before advancing the mock clock
	time.Sleep(100 * time.Millisecond)
	mock.Add(2 * time.Hour)
	if <-res {
		t.Fatal("expected timeout on mock clock")
	}
	close(block)
	h.Wait()
}

func TestSetAutoDelete(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	h, err := rt.Spawn(func(*thread.Handle) {}, thread.WithAutoDelete(false))
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if h.IsAutoDelete() {
		t.Fatal("manual-delete requested")
	}
	h.SetAutoDelete(true)
	if !h.IsAutoDelete() {
		t.Fatal("SetAutoDelete(true) had no effect")
	}
	h.Resume()
	h.Wait()
	// no retroactive effect on a completed thread, and no double release
	h.SetAutoDelete(false)
	h.SetAutoDelete(true)

	if rt.Process().IsAutoDelete() {
		t.Fatal("process handle must never be auto-delete")
	}
	rt.Process().SetAutoDelete(true)
	if rt.Process().IsAutoDelete() {
		t.Fatal("process handle lifecycle must not change")
	}
}

func TestPriorityBookkeeping(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	h, err := rt.Spawn(func(h *thread.Handle) {
		h.Sleep(10 * time.Millisecond)
	}, thread.WithPriority(api.PriorityLow))
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if got := h.GetPriority(); got != api.PriorityLow {
		t.Fatalf("priority = %v, want low", got)
	}
	h.SetPriority(api.PriorityHigh)
	if got := h.GetPriority(); got != api.PriorityHigh {
		t.Fatalf("priority = %v, want high", got)
	}
	// out-of-range values clamp rather than corrupt state
	h.SetPriority(api.Priority(99))
	if got := h.GetPriority(); got != api.PriorityHighest {
		t.Fatalf("priority = %v, want clamped to highest", got)
	}
	h.Resume()
	h.Wait()
}

func TestNaming(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	h, err := rt.Spawn(func(*thread.Handle) {}, thread.WithName("courier"))
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if h.GetName() != "courier" {
		t.Fatalf("name = %q", h.GetName())
	}
	h.SetName("dispatcher")
	if h.GetName() != "dispatcher" {
		t.Fatalf("name = %q", h.GetName())
	}
	h.Resume()
	h.Wait()

	// default names are generated and unique
	a, _ := rt.Spawn(func(*thread.Handle) {})
	b, _ := rt.Spawn(func(*thread.Handle) {})
	if a.GetName() == "" || a.GetName() == b.GetName() {
		t.Fatalf("default names not unique: %q vs %q", a.GetName(), b.GetName())
	}
	a.Resume()
	b.Resume()
	a.Wait()
	b.Wait()
}

func TestGetTimesNeverFabricates(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	h, err := rt.Spawn(func(h *thread.Handle) {
		// burn a little CPU so the platform has something to report
		x := 0
		for i := 0; i < 1_000_000; i++ {
			x += i
		}
		_ = x
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	h.Resume()
	h.Wait()

	sentinel := api.Times{Real: -1, Kernel: -1, User: -1}
	times := sentinel
	if h.GetTimes(&times) {
		t.Fatal("GetTimes must fail for a terminated thread")
	}
	if times != sentinel {
		t.Fatal("failed GetTimes must leave output untouched")
	}

	// the process handle is live; on supported platforms the call
	// succeeds, on others it must decline rather than invent numbers
	var pt api.Times
	if rt.Process().GetTimes(&pt) {
		if pt.Real < 0 || pt.Kernel < 0 || pt.User < 0 {
			t.Fatalf("negative times: %v", pt)
		}
	}
	if rt.Process().GetTimes(nil) {
		t.Fatal("nil output must fail")
	}
}

// One thread toggles suspension while another observes; no crash, no
// negative or unbounded count.
func TestConcurrentObservationSafety(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	stop := make(chan struct{})
	h, err := rt.Spawn(func(h *thread.Handle) {
		for {
			select {
			case <-stop:
				return
			default:
			}
			h.Checkpoint()
			thread.Yield()
		}
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	h.Resume()

	var wg sync.WaitGroup
	deadline := time.Now().Add(500 * time.Millisecond)
	wg.Add(2)
	go func() {
		defer wg.Done()
		for time.Now().Before(deadline) {
			h.Suspend(true)
			h.Resume()
			h.Resume() // excess resume must stay a no-op
		}
	}()
	go func() {
		defer wg.Done()
		for time.Now().Before(deadline) {
			if c := h.SuspendCount(); c < 0 || c > 8 {
				t.Errorf("suspend count out of bounds: %d", c)
				return
			}
			_ = h.IsSuspended()
			_ = h.GetPriority()
			_ = h.GetName()
		}
	}()
	wg.Wait()

	// leave the thread runnable for shutdown
	for h.SuspendCount() > 0 {
		h.Resume()
	}
	close(stop)
	h.Wait()
}

func TestSpawnRunnable(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	var ran atomic.Bool
	h, err := rt.SpawnRunnable(api.RunnableFunc(func() { ran.Store(true) }))
	if err != nil {
		t.Fatalf("spawn runnable: %v", err)
	}
	h.Resume()
	h.Wait()
	if !ran.Load() {
		t.Fatal("runnable never ran")
	}
	if _, err := rt.SpawnRunnable(nil); err == nil {
		t.Fatal("nil runnable must be rejected")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never satisfied")
}
