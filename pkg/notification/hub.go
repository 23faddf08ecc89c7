package notification

import "sync"

// Hub fans unread counts out to the live connections of each member
type Hub struct {
	mu          sync.RWMutex
	nextID      uint64
	subscribers map[uint]map[uint64]chan int64
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[uint]map[uint64]chan int64)}
}

// Subscribe registers a connection of the member. The returned function must be called
// once the connection is gone.
func (h *Hub) Subscribe(memberID uint) (updates <-chan int64, unsubscribe func()) {
	ch := make(chan int64, 1)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subscribers[memberID] == nil {
		h.subscribers[memberID] = make(map[uint64]chan int64)
	}
	h.subscribers[memberID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[memberID], id)
			if len(h.subscribers[memberID]) == 0 {
				delete(h.subscribers, memberID)
			}
			close(ch)
		})
	}
}

func (h *Hub) HasSubscribers(memberID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[memberID]) > 0
}

// Publish delivers the latest count. A slow subscriber only keeps the newest value.
func (h *Hub) Publish(memberID uint, count int64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subscribers[memberID] {
		select {
		case ch <- count:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- count:
			default:
			}
		}
	}
}
