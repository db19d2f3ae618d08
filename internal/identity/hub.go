package identity

import "sync"

// hub fans auth-state events out to subscribers
type hub struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]func(Event)
}

func newHub() *hub {
	return &hub{listeners: make(map[uint64]func(Event))}
}

// subscribe registers fn and returns an idempotent unsubscribe handle
func (h *hub) subscribe(fn func(Event)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// publish delivers ev synchronously to every current listener.
// Listeners must not block.
func (h *hub) publish(ev Event) {
	h.mu.RLock()
	fns := make([]func(Event), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (h *hub) size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
