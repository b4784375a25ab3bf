package live

import (
	"context"
	"io"
	"time"

	"github.com/cwrk-planet/live-room-service/internal/domain"
)

// ConfigStore отдаёт конфигурацию комнаты; оркестратор её только читает.
type ConfigStore interface {
	Get(ctx context.Context, roomID string) (*domain.RoomConfig, error)
}

type Replier interface {
	Reply(ctx context.Context, rc domain.ReplyContext) (string, error)
}

type Narrator interface {
	Narrate(ctx context.Context, p domain.Product, s domain.Streamer) (domain.Narration, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, userID, audioRef string) (string, error)
}

// Uploader хранит аудио только на время распознавания: после Transcribe
// ссылка удаляется через Remove.
type Uploader interface {
	Upload(ctx context.Context, roomID, name, contentType string, body io.Reader, size int64) (string, error)
	Remove(ctx context.Context, ref string) error
}

// Renderer озвучивает ответ ведущего и возвращает ссылку на видео.
type Renderer interface {
	Render(ctx context.Context, s domain.Streamer, text string) (string, error)
}

// Publisher must not block: it is called with the session lock held.
type Publisher interface {
	Publish(ev domain.Event)
}

type Deps struct {
	Replier     Replier
	Narrator    Narrator // nil: narration stays the scripted one
	Renderer    Renderer // nil: ответы чата не озвучиваются
	Transcriber Transcriber
	Uploader    Uploader
	Publisher   Publisher
	Now         func() time.Time
}

type Options struct {
	ProductDuration    time.Duration
	ReplyTimeout       time.Duration
	TranscribeTimeout  time.Duration
	NarrateTimeout     time.Duration
	RenderTimeout      time.Duration
	ConversationCap    int
	HistoryWindow      int
	MaxMessageLen      int
	FallbackReply      string
	AudioFallbackReply string
}

func (o Options) withDefaults() Options {
	if o.ProductDuration <= 0 {
		o.ProductDuration = 5 * time.Minute
	}
	if o.ReplyTimeout <= 0 {
		o.ReplyTimeout = 20 * time.Second
	}
	if o.TranscribeTimeout <= 0 {
		o.TranscribeTimeout = 30 * time.Second
	}
	if o.NarrateTimeout <= 0 {
		o.NarrateTimeout = 60 * time.Second
	}
	if o.RenderTimeout <= 0 {
		o.RenderTimeout = 60 * time.Second
	}
	if o.ConversationCap <= 0 {
		o.ConversationCap = 1000
	}
	if o.HistoryWindow <= 0 {
		o.HistoryWindow = 20
	}
	if o.MaxMessageLen <= 0 {
		o.MaxMessageLen = 4000
	}
	if o.FallbackReply == "" {
		o.FallbackReply = "Sorry, I can't answer right now. Please ask again in a moment."
	}
	if o.AudioFallbackReply == "" {
		o.AudioFallbackReply = "Sorry, I didn't catch that. Could you type your question?"
	}
	return o
}

type nopPublisher struct{}

func (nopPublisher) Publish(domain.Event) {}
