// Package lifecycle models the host's "about to terminate" signal.
//
// The persistence adapter registers a single flush hook with a Lifecycle and
// expects it to fire at most once per process. Hosts either fire Hooks
// manually (a UI runtime tearing down, a test) or bind them to OS signals
// with NotifySignals.
//
//	hooks := lifecycle.NewHooks()
//	stop := lifecycle.NotifySignals(ctx, hooks, os.Interrupt, syscall.SIGTERM)
//	defer stop()
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Lifecycle delivers the termination signal to registered hooks.
type Lifecycle interface {
	// OnTerminate registers fn to run when the host is about to terminate.
	// The returned cancel deregisters fn and is safe to call more than once.
	OnTerminate(fn func()) (cancel func())
}

// Hooks is a manually fired Lifecycle.
type Hooks struct {
	mu         sync.Mutex
	next       uint64
	hooks      map[uint64]func()
	order      []uint64
	terminated bool
}

// NewHooks creates an empty hook set.
func NewHooks() *Hooks {
	return &Hooks{hooks: make(map[uint64]func())}
}

// OnTerminate implements Lifecycle. Hooks registered after Terminate never run.
func (h *Hooks) OnTerminate(fn func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	id := h.next
	h.hooks[id] = fn
	h.order = append(h.order, id)

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.hooks[id]; !ok {
			return
		}
		delete(h.hooks, id)
		for i, o := range h.order {
			if o == id {
				h.order = append(h.order[:i], h.order[i+1:]...)
				break
			}
		}
	}
}

// Terminate runs every registered hook once, in registration order.
// Subsequent calls do nothing.
func (h *Hooks) Terminate() {
	h.mu.Lock()
	if h.terminated {
		h.mu.Unlock()
		return
	}
	h.terminated = true
	fns := make([]func(), 0, len(h.hooks))
	for _, id := range h.order {
		if fn, ok := h.hooks[id]; ok {
			fns = append(fns, fn)
		}
	}
	h.hooks = make(map[uint64]func())
	h.order = nil
	h.mu.Unlock()

	// Run outside the lock so hooks may deregister themselves.
	for _, fn := range fns {
		fn()
	}
}

// Terminated reports whether Terminate has been called.
func (h *Hooks) Terminated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.terminated
}

// Len returns the number of registered hooks.
func (h *Hooks) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hooks)
}

// NotifySignals fires h when one of sigs arrives or ctx is done, whichever
// comes first. After the first signal the default handling is restored, so a
// second interrupt terminates the process. The returned stop releases the
// signal registration without firing h. With no sigs, SIGINT and SIGTERM
// are used.
func NotifySignals(ctx context.Context, h *Hooks, sigs ...os.Signal) (stop func()) {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	sigCtx, cancel := signal.NotifyContext(context.Background(), sigs...)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		select {
		case <-sigCtx.Done():
			cancel()
			h.Terminate()
		case <-ctx.Done():
			cancel()
			h.Terminate()
		case <-done:
			cancel()
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}
