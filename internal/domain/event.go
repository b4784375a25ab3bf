package domain

import "time"

const (
	EventRoomStarted      = "room.started"
	EventProductChanged   = "product.changed"
	EventRoomEnding       = "room.ending"
	EventNarrationUpdated = "narration.updated"
	EventVideoUpdated     = "video.updated"
	EventChatMessage      = "chat.message"
	EventRoomOffline      = "room.offline"
)

// Event — закоммиченное изменение сессии, порядок внутри комнаты сохраняется.
type Event struct {
	Type        string       `json:"type"`
	RoomID      string       `json:"room_id"`
	Incarnation uint64       `json:"incarnation"`
	Generation  uint64       `json:"generation"`
	At          time.Time    `json:"at"`
	Message     *ChatMessage `json:"message,omitempty"`
	Snapshot    *Snapshot    `json:"snapshot,omitempty"`
}
