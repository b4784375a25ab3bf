package domain

import "time"

type Role string

const (
	RoleStreamer  Role = "streamer"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Source string

const (
	SourceText      Source = "text"
	SourceAudio     Source = "audio"
	SourceNarration Source = "narration"
)

// ChatMessage неизменяем после добавления в ленту.
type ChatMessage struct {
	ID           string    `json:"id"`
	Seq          int64     `json:"seq"`
	Role         Role      `json:"role"`
	UserID       string    `json:"user_id,omitempty"`
	UserName     string    `json:"user_name,omitempty"`
	Text         string    `json:"text"`
	ProductIndex int       `json:"product_index"`
	Source       Source    `json:"source"`
	Fallback     bool      `json:"fallback,omitempty"`
	CreatedAt    time.Time `json:"timestamp"`
}

// ReplyContext is everything an LLM backend needs to answer a viewer.
type ReplyContext struct {
	RoomID    string
	Streamer  Streamer
	Product   Product
	Narration string
	History   []ChatMessage
}

type Narration struct {
	Text  string
	Video string
}
