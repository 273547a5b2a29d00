package store

import "sync/atomic"

// Listener is anything that can be told a slot it subscribed to changed.
// The host UI layer implements it with its own re-render trigger.
type Listener interface {
	// MarkDirty signals that a subscribed slot changed. The call carries no
	// payload beyond "something changed"; the listener re-reads what it needs.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Subscribing the same ID twice to a slot registers it once.
	ID() uint64
}

var listenerIDs atomic.Uint64

// NextListenerID allocates a process-unique listener ID.
func NextListenerID() uint64 {
	return listenerIDs.Add(1)
}

// funcListener adapts a closure to Listener.
type funcListener struct {
	id uint64
	fn func()
}

func (l *funcListener) MarkDirty() { l.fn() }
func (l *funcListener) ID() uint64 { return l.id }

// ListenerFunc wraps fn as a Listener with a fresh ID.
// Keep the returned value to subscribe the same listener again.
func ListenerFunc(fn func()) Listener {
	return &funcListener{id: NextListenerID(), fn: fn}
}
