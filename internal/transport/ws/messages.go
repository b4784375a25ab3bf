package ws

// Типы сообщений WS. События сессии (room.started, chat.message, ...)
// приходят клиенту с типом события.
const (
	TypeState   = "state"    // снапшот комнаты при подключении
	TypeChat    = "chat"     // чат-сообщение от клиента
	TypeChatAck = "chat_ack" // подтверждение отправки (НЕ сообщение)
	TypeError   = "error"
)

// CodeChatBusy — предыдущее сообщение этого соединения ещё ждёт ответа.
const CodeChatBusy = "chat_in_flight"

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type StatePayload struct {
	RoomID string `json:"room_id"`
	Live   bool   `json:"live"`
	Room   any    `json:"room,omitempty"`
}

type ChatPayload struct {
	Text     string `json:"text"`
	UserName string `json:"user_name,omitempty"`

	// для client: использует для снятия pending и дедупликации
	ClientMsgID string `json:"client_msg_id,omitempty"`
}

type ChatAckPayload struct {
	ClientMsgID string `json:"client_msg_id,omitempty"`
	MessageID   string `json:"message_id,omitempty"`
	ReplyID     string `json:"reply_id,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"`
}

type ErrorPayload struct {
	ClientMsgID string `json:"client_msg_id,omitempty"`
	Code        string `json:"code"`
	Message     string `json:"message"`
}
