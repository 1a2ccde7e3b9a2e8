package container

import "sync/atomic"

// Listener is anything that can be notified when a container's state changes.
type Listener interface {
	// Notify is called synchronously after every successful update.
	Notify()

	// ID identifies the registration. Subscribing a listener whose ID is
	// already registered is a no-op.
	ID() uint64
}

var idCounter uint64

// NextID returns a process-unique identifier for containers and listeners.
func NextID() uint64 {
	return atomic.AddUint64(&idCounter, 1)
}

type funcListener struct {
	id uint64
	fn func()
}

func (l *funcListener) Notify()    { l.fn() }
func (l *funcListener) ID() uint64 { return l.id }

// ListenerFunc wraps fn in a Listener with a fresh identity.
func ListenerFunc(fn func()) Listener {
	return &funcListener{id: NextID(), fn: fn}
}
