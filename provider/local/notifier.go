package local

import (
	"sync"

	auth "github.com/goliatone/go-store-auth"
)

type notifier struct {
	mu        sync.RWMutex
	listeners map[int]auth.SessionListener
	next      int
}

func newNotifier() *notifier {
	return &notifier{listeners: map[int]auth.SessionListener{}}
}

func (n *notifier) subscribe(listener auth.SessionListener) func() {
	if listener == nil {
		return func() {}
	}
	n.mu.Lock()
	id := n.next
	n.next++
	n.listeners[id] = listener
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}
}

// publish delivers synchronously outside the lock.
func (n *notifier) publish(ev auth.SessionEvent) {
	n.mu.RLock()
	listeners := make([]auth.SessionListener, 0, len(n.listeners))
	for _, l := range n.listeners {
		listeners = append(listeners, l)
	}
	n.mu.RUnlock()

	for _, l := range listeners {
		l(auth.SessionEvent{Type: ev.Type, Session: ev.Session.Clone()})
	}
}
