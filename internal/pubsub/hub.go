package pubsub

import "sync"

// Hub — локальный реестр подписчиков по комнатам.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Subscriber]struct{} // room -> set of subscribers
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[Subscriber]struct{})}
}

// Add возвращает true, если это первый подписчик комнаты.
func (h *Hub) Add(room string, s Subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[room]
	if !ok {
		rs = make(map[Subscriber]struct{})
		h.rooms[room] = rs
	}
	rs[s] = struct{}{}
	return !ok
}

// Remove возвращает true, если комната опустела.
func (h *Hub) Remove(room string, s Subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[room]
	if !ok {
		return false
	}
	delete(rs, s)
	if len(rs) == 0 {
		delete(h.rooms, room)
		return true
	}
	return false
}

// Broadcast раздаёт кадр подписчикам комнаты и возвращает их число.
func (h *Hub) Broadcast(room string, frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rs := h.rooms[room]
	for s := range rs {
		_ = s.Deliver(frame) // best-effort
	}
	return len(rs)
}

func (h *Hub) Count(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
