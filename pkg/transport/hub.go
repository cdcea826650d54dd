package transport

import (
	"sort"
	"sync"
)

// Hub fans events out to subscribers. The zero value is ready to use.
// Transports embed a Hub to implement Subscribe.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]Handler
}

// Subscribe registers h and returns its unsubscribe function.
func (h *Hub) Subscribe(handler Handler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]Handler)
	}
	id := h.next
	h.next++
	h.subs[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Emit calls every subscriber with evt in subscription order. Handlers run
// without the hub lock held, so they may unsubscribe.
func (h *Hub) Emit(evt Event) {
	h.mu.Lock()
	ids := make([]int, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, h.subs[id])
	}
	h.mu.Unlock()

	for _, fn := range handlers {
		fn(evt)
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
