package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cwrk-planet/live-room-service/internal/domain"
)

type Conn interface {
	Send(msg Message) error
	Close() error
	UserID() string
	RoomID() string
}

// Hub раздаёт события комнаты подключённым зрителям.
type Hub struct {
	mu      sync.RWMutex
	viewers map[string]map[Conn]struct{} // roomID -> зрители
}

func NewHub() *Hub {
	return &Hub{viewers: make(map[string]map[Conn]struct{})}
}

func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.viewers[c.RoomID()]
	if set == nil {
		set = make(map[Conn]struct{})
		h.viewers[c.RoomID()] = set
	}
	set[c] = struct{}{}
}

// Remove возвращает true, если соединение ещё было в хабе.
func (h *Hub) Remove(c Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.viewers[c.RoomID()]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.viewers, c.RoomID())
	}
	return true
}

// Count — число зрителей комнаты.
func (h *Hub) Count(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.viewers[roomID])
}

// Broadcast рассылает msg без удержания лока на время отправки.
// Зритель, который не успевает читать, отключается.
func (h *Hub) Broadcast(roomID string, msg Message) {
	for _, c := range h.snapshot(roomID) {
		if err := c.Send(msg); err != nil {
			slog.Debug("ws broadcast: dropping viewer", "room_id", roomID, "user_id", c.UserID(), "err", err)
			h.Remove(c)
			_ = c.Close()
		}
	}
}

func (h *Hub) snapshot(roomID string) []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.viewers[roomID]
	out := make([]Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (h *Hub) Name() string { return "ws-hub" }

// Handle — sink шины событий. Событие кодируется один раз на всех зрителей.
func (h *Hub) Handle(_ context.Context, ev domain.Event) error {
	if h.Count(ev.RoomID) == 0 {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	h.Broadcast(ev.RoomID, Message{Type: ev.Type, Payload: json.RawMessage(payload)})
	return nil
}
