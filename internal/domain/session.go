package domain

import "time"

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLive    Status = "live"
	StatusEnding  Status = "ending"
	StatusOffline Status = "offline"
)

// LiveStatus — числовой код для старых клиентов: 0 idle, 1 live, 2 offline.
func (s Status) LiveStatus() int {
	switch s {
	case StatusLive, StatusEnding:
		return 1
	case StatusOffline:
		return 2
	default:
		return 0
	}
}

type StreamerView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type Snapshot struct {
	RoomID                  string        `json:"room_id"`
	RoomName                string        `json:"room_name"`
	Incarnation             uint64        `json:"incarnation"`
	Generation              uint64        `json:"generation"`
	Status                  Status        `json:"status"`
	LiveStatus              int           `json:"live_status"`
	Streamer                StreamerView  `json:"streamer"`
	BackgroundImage         string        `json:"background_image,omitempty"`
	CurrentProductIndex     int           `json:"current_product_index"`
	ProductCount            int           `json:"product_count"`
	CurrentProduct          Product       `json:"current_product"`
	Narration               string        `json:"narration"`
	NarrationGenerated      bool          `json:"narration_generated"`
	CurrentStreamerVideo    string        `json:"current_streamer_video"`
	StartTime               time.Time     `json:"start_time"`
	CurrentProductStartTime time.Time     `json:"current_product_start_time"`
	RemainingMs             int64         `json:"remaining_until_advance_ms"`
	FinalProduct            bool          `json:"final_product"`
	MessageCount            int64         `json:"message_count"`
	Conversation            []ChatMessage `json:"conversation"`
}
