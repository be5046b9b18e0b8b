// File: thread/runtime_test.go
// Author: momentics <momentics@gmail.com>
//
// Registry semantics: process handle, lookups, adoption, accounting
// and teardown.

package thread_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/thread"
)

func TestProcessHandle(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	ph := rt.Process()
	if ph == nil {
		t.Fatal("no process handle")
	}
	if ph.Lifecycle() != api.LifecycleProcess {
		t.Fatalf("lifecycle = %v", ph.Lifecycle())
	}
	if ph.IsTerminated() {
		t.Fatal("process handle must be live")
	}
	// the constructing thread resolves to the process handle
	if rt.Current() != ph {
		t.Fatal("Current() on the constructing thread must return the process handle")
	}
	// exactly one live process handle
	count := 0
	for _, h := range rt.Handles() {
		if h.Lifecycle() == api.LifecycleProcess {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("live process handles = %d, want 1", count)
	}
}

func TestCurrentInsideManagedThread(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	got := make(chan *thread.Handle, 1)
	h, err := rt.Spawn(func(self *thread.Handle) {
		got <- rt.Current()
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	h.Resume()
	h.Wait()
	if cur := <-got; cur != h {
		t.Fatalf("Current() inside thread = %v, want its own handle", cur)
	}
}

func TestSpawnValidation(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	if _, err := rt.Spawn(nil); err == nil {
		t.Fatal("nil work routine must be rejected")
	} else if api.CodeOf(err) != api.ErrCodeInvalidArgument {
		t.Fatalf("unexpected taxonomy: %v", err)
	}
	if _, err := rt.Spawn(func(*thread.Handle) {}, thread.WithStackSize(-1)); err == nil {
		t.Fatal("negative stack size must be rejected")
	}
	// oversized priority is clamped, not rejected
	h, err := rt.Spawn(func(*thread.Handle) {}, thread.WithPriority(api.Priority(42)))
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if got := h.GetPriority(); got != api.PriorityHighest {
		t.Fatalf("priority = %v, want clamped to highest", got)
	}
	h.Resume()
	h.Wait()
}

func TestRegistryDropsTerminatedThreads(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	h, err := rt.Spawn(func(*thread.Handle) {})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	h.Resume()
	h.Wait()

	// deregistration precedes termination visibility
	for _, live := range rt.Handles() {
		if live == h {
			t.Fatal("terminated handle still enrolled")
		}
	}
	s := rt.Stats()
	if s.Started < 1 || s.Completed < 1 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestStatsAccounting(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		h, err := rt.Spawn(func(*thread.Handle) { wg.Done() })
		if err != nil {
			t.Fatalf("spawn: %v", err)
		}
		h.Resume()
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rt.Stats().Completed >= n {
			break
		}
		time.Sleep(time.Millisecond)
	}
	s := rt.Stats()
	if s.Started != n {
		t.Fatalf("started = %d, want %d", s.Started, n)
	}
	if s.Completed != n {
		t.Fatalf("completed = %d, want %d", s.Completed, n)
	}
	if s.Forced != 0 {
		t.Fatalf("forced = %d, want 0", s.Forced)
	}
}

func TestForcedTerminationCounted(t *testing.T) {
	rt := thread.NewRuntime()
	defer rt.Close()

	h, err := rt.Spawn(func(h *thread.Handle) {
		for {
			h.Checkpoint()
			thread.Yield()
		}
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	h.Resume()
	if err := h.Terminate(); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	h.Wait()
	if got := rt.Stats().Forced; got != 1 {
		t.Fatalf("forced = %d, want 1", got)
	}
}

func TestCloseRejectsFurtherSpawns(t *testing.T) {
	rt := thread.NewRuntime()
	if err := rt.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := rt.Spawn(func(*thread.Handle) {}); !errors.Is(err, api.ErrRuntimeClosed) {
		t.Fatalf("spawn after close: %v", err)
	}
	if err := rt.Close(); !errors.Is(err, api.ErrRuntimeClosed) {
		t.Fatalf("double close: %v", err)
	}
}

func TestCloseReportsLiveThreads(t *testing.T) {
	rt := thread.NewRuntime()

	block := make(chan struct{})
	h, err := rt.Spawn(func(*thread.Handle) { <-block })
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	h.Resume()

	// enrollment happens on the spawned thread itself; wait for it
	deadline := time.Now().Add(2 * time.Second)
	for enrolled := false; !enrolled; {
		if time.Now().After(deadline) {
			t.Fatal("spawned thread never enrolled")
		}
		for _, live := range rt.Handles() {
			if live == h {
				enrolled = true
			}
		}
		time.Sleep(time.Millisecond)
	}

	if err := rt.Close(); err == nil {
		t.Fatal("close with live threads must report a state error")
	} else if api.CodeOf(err) != api.ErrCodeState {
		t.Fatalf("unexpected taxonomy: %v", err)
	}
	close(block)
	h.Wait()
}
