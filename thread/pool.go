// File: thread/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pool runs submitted tasks on a fixed set of manual-delete worker
// threads consuming from a shared FIFO. Built entirely on the public
// Handle API; workers stop by returning from their work routine.

package thread

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"go.uber.org/zap"

	"github.com/momentics/hioload-rt/api"
)

// Task is a unit of work for a Pool.
type Task func()

// Pool dispatches tasks across worker threads.
type Pool struct {
	rt *Runtime

	mu     sync.Mutex
	cond   *sync.Cond
	tasks  *queue.Queue
	closed bool

	workers []*Handle

	submitted int64
	completed int64
}

// NewPool spawns size workers (size <= 0 means runtime.NumCPU) and
// resumes them. Extra spawn options apply to every worker.
func NewPool(rt *Runtime, size int, opts ...SpawnOption) (*Pool, error) {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{
		rt:    rt,
		tasks: queue.New(),
	}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < size; i++ {
		workerOpts := append([]SpawnOption{
			WithName(fmt.Sprintf("pool-worker-%d", i)),
			WithAutoDelete(false),
		}, opts...)
		h, err := rt.Spawn(p.workerLoop, workerOpts...)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.workers = append(p.workers, h)
		h.Resume()
	}
	return p, nil
}

// Submit enqueues a task, returning ErrPoolClosed once Close has begun.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return api.WrapError(api.ErrCodeInvalidArgument,
			"submit: nil task", api.ErrInvalidArgument)
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return api.ErrPoolClosed
	}
	p.tasks.Add(task)
	p.mu.Unlock()
	atomic.AddInt64(&p.submitted, 1)
	p.cond.Signal()
	return nil
}

// workerLoop drains the FIFO until the pool closes and the queue is
// empty. Checkpoint keeps workers responsive to suspend and terminate.
func (p *Pool) workerLoop(h *Handle) {
	for {
		h.Checkpoint()
		p.mu.Lock()
		for p.tasks.Length() == 0 && !p.closed {
			p.cond.Wait()
		}
		if p.tasks.Length() == 0 {
			p.mu.Unlock()
			return
		}
		task := p.tasks.Remove().(Task)
		p.mu.Unlock()
		p.runTask(task)
	}
}

// runTask executes one task, keeping the worker alive across panics.
func (p *Pool) runTask(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.rt.log.Error("pool task panicked", zap.Any("panic", r))
		}
		atomic.AddInt64(&p.completed, 1)
	}()
	task()
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return len(p.workers)
}

// Close drains outstanding tasks and joins every worker via a clean
// return. Idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	for _, w := range p.workers {
		w.Wait()
	}
}

// Stats returns basic pool metrics.
func (p *Pool) Stats() map[string]int64 {
	submitted := atomic.LoadInt64(&p.submitted)
	completed := atomic.LoadInt64(&p.completed)
	return map[string]int64{
		"submitted_tasks": submitted,
		"completed_tasks": completed,
		"pending_tasks":   submitted - completed,
		"num_workers":     int64(len(p.workers)),
	}
}
