package http

import "github.com/cwrk-planet/live-room-service/internal/domain"

type ChatRequest struct {
	UserID   string `json:"user_id"` // игнорируется, если запрос прошёл авторизацию
	UserName string `json:"user_name"`
	Text     string `json:"text"`
}

type ChatResponse struct {
	Message domain.ChatMessage `json:"message"`
	Reply   domain.ChatMessage `json:"reply"`
}

type AudioResponse struct {
	AudioRef   string              `json:"audio_ref,omitempty"`
	Transcript string              `json:"transcript"`
	Message    *domain.ChatMessage `json:"message,omitempty"`
	Reply      domain.ChatMessage  `json:"reply"`
}

type AdvanceResponse struct {
	Applied bool            `json:"applied"`
	Room    domain.Snapshot `json:"room"`
}

type StopResponse struct {
	RoomID  string `json:"room_id"`
	Stopped bool   `json:"stopped"`
}

type LiveListResponse struct {
	Rooms []domain.Snapshot `json:"rooms"`
}

type HistoryResponse struct {
	Messages   []domain.ChatMessage `json:"messages"`
	NextCursor string               `json:"next_cursor,omitempty"`
}
