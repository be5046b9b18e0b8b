// control/probes.go
// Author: momentics <momentics@gmail.com>
//
// Debug probe registry plus ready-made wiring for the thread runtime
// and datagram endpoints. Probes pull live state on demand; nothing is
// sampled in the background.

package control

import (
	"sync"

	"github.com/momentics/hioload-rt/thread"
	"github.com/momentics/hioload-rt/transport/udp"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named debug hook.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// DumpState returns output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any)
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}

// AttachRuntime registers standard probes exposing registry accounting
// for a thread runtime.
func (dp *DebugProbes) AttachRuntime(rt *thread.Runtime) {
	dp.RegisterProbe("threads.stats", func() any {
		return rt.Stats()
	})
	dp.RegisterProbe("threads.handles", func() any {
		handles := rt.Handles()
		out := make([]string, 0, len(handles))
		for _, h := range handles {
			out = append(out, h.String())
		}
		return out
	})
}

// AttachEndpoint registers a probe exposing datagram counters for one
// endpoint under the given name.
func (dp *DebugProbes) AttachEndpoint(name string, ep *udp.Endpoint) {
	dp.RegisterProbe("udp."+name, func() any {
		return ep.Stats()
	})
}
