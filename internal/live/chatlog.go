package live

import "github.com/cwrk-planet/live-room-service/internal/domain"

// ChatLog — лента сообщений сессии. Хранится не больше limit последних
// сообщений, порядок не меняется, Seq монотонный.
type ChatLog struct {
	limit int
	buf   []domain.ChatMessage
	total int64
}

func NewChatLog(limit int) *ChatLog {
	if limit <= 0 {
		limit = 1000
	}
	return &ChatLog{limit: limit}
}

// Append assigns the next sequence number and returns the stored copy.
func (l *ChatLog) Append(m domain.ChatMessage) domain.ChatMessage {
	l.total++
	m.Seq = l.total
	if len(l.buf) == l.limit {
		copy(l.buf, l.buf[1:])
		l.buf[len(l.buf)-1] = m
	} else {
		l.buf = append(l.buf, m)
	}
	return m
}

// Total — сколько сообщений было добавлено за всё время, с учётом вытесненных.
func (l *ChatLog) Total() int64 { return l.total }

// Since returns retained messages with Seq > seq.
func (l *ChatLog) Since(seq int64) []domain.ChatMessage {
	i := 0
	if len(l.buf) > 0 {
		first := l.buf[0].Seq
		if seq >= first {
			i = int(seq - first + 1)
		}
	}
	if i >= len(l.buf) {
		return []domain.ChatMessage{}
	}
	out := make([]domain.ChatMessage, len(l.buf)-i)
	copy(out, l.buf[i:])
	return out
}

// Recent returns up to n newest messages, oldest first.
func (l *ChatLog) Recent(n int) []domain.ChatMessage {
	if n <= 0 || n > len(l.buf) {
		n = len(l.buf)
	}
	out := make([]domain.ChatMessage, n)
	copy(out, l.buf[len(l.buf)-n:])
	return out
}
