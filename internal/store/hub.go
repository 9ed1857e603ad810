package store

import (
	"context"
	"sync"
)

type update struct {
	doc Document
}

type subscription struct {
	fn      func(Document)
	mu      sync.Mutex
	pending chan update
	done    chan struct{}
	once    sync.Once
}

// offer replaces any undelivered value with doc, so a slow subscriber skips
// intermediate states but never sees them out of order.
func (s *subscription) offer(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.pending:
	default:
	}
	s.pending <- update{doc: doc}
}

func (s *subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case u := <-s.pending:
			select {
			case <-s.done:
				return
			default:
			}
			s.fn(u.doc)
		}
	}
}

// Hub fans committed document values out to path subscribers. Stores call
// Publish after each commit while still holding their write lock, and Add
// while holding it too, so no subscriber misses or reorders a write.
type Hub struct {
	mu   sync.Mutex
	next uint64
	subs map[string]map[uint64]*subscription
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]*subscription)}
}

// Add registers fn for p and queues current as its first value. The
// subscription ends when the returned func is called or ctx is done.
func (h *Hub) Add(ctx context.Context, p Path, current Document, fn func(Document)) Unsubscribe {
	sub := &subscription{
		fn:      fn,
		pending: make(chan update, 1),
		done:    make(chan struct{}),
	}
	key := p.String()

	h.mu.Lock()
	h.next++
	id := h.next
	if h.subs[key] == nil {
		h.subs[key] = make(map[uint64]*subscription)
	}
	h.subs[key][id] = sub
	h.mu.Unlock()

	sub.offer(current)
	go sub.run()

	stop := func() {
		sub.once.Do(func() {
			h.mu.Lock()
			delete(h.subs[key], id)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
			h.mu.Unlock()
			close(sub.done)
		})
	}
	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				stop()
			case <-sub.done:
			}
		}()
	}
	return stop
}

// Publish delivers doc to every subscriber of p.
func (h *Hub) Publish(p Path, doc Document) {
	h.mu.Lock()
	subs := make([]*subscription, 0, len(h.subs[p.String()]))
	for _, s := range h.subs[p.String()] {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.offer(doc)
	}
}

// Count returns the number of live subscriptions on p.
func (h *Hub) Count(p Path) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[p.String()])
}
