// Package llm adapts chat-completion backends to the live session ports.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cwrk-planet/live-room-service/internal/domain"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer — один запрос к модели: system-промпт плюс диалог.
type Completer interface {
	Complete(ctx context.Context, system string, msgs []Message) (string, error)
}

// Renderer озвучивает текст видеороликом ведущего.
type Renderer interface {
	Render(ctx context.Context, s domain.Streamer, text string) (string, error)
}

type Replier struct {
	c Completer
}

func NewReplier(c Completer) *Replier {
	return &Replier{c: c}
}

func (r *Replier) Reply(ctx context.Context, rc domain.ReplyContext) (string, error) {
	out, err := r.c.Complete(ctx, replySystemPrompt(rc), historyMessages(rc.History))
	if err != nil {
		return "", fmt.Errorf("%w: llm reply: %v", domain.ErrDownstreamUnavailable, err)
	}
	return strings.TrimSpace(out), nil
}

type Narrator struct {
	c        Completer
	renderer Renderer // может быть nil
}

func NewNarrator(c Completer, r Renderer) *Narrator {
	return &Narrator{c: c, renderer: r}
}

// Narrate генерирует продающий текст; видео рендерится, если задан Renderer.
// Ошибка рендера не отменяет текст.
func (n *Narrator) Narrate(ctx context.Context, p domain.Product, s domain.Streamer) (domain.Narration, error) {
	text, err := n.c.Complete(ctx, narrationSystemPrompt(s), []Message{{Role: RoleUser, Content: productBrief(p)}})
	if err != nil {
		return domain.Narration{}, fmt.Errorf("%w: llm narrate: %v", domain.ErrDownstreamUnavailable, err)
	}
	out := domain.Narration{Text: strings.TrimSpace(text)}
	if n.renderer == nil || out.Text == "" {
		return out, nil
	}

	video, err := n.renderer.Render(ctx, s, out.Text)
	if err != nil {
		slog.Warn("llm.narrate render failed", "streamer_id", s.ID, "product_id", p.ID, "err", err)
		return out, nil
	}
	out.Video = video
	return out, nil
}

func historyMessages(history []domain.ChatMessage) []Message {
	out := make([]Message, 0, len(history))
	for _, m := range history {
		role := RoleUser
		if m.Role == domain.RoleStreamer || m.Role == domain.RoleAssistant {
			role = RoleAssistant
		}
		if m.Fallback {
			continue
		}
		out = append(out, Message{Role: role, Content: m.Text})
	}
	// диалог должен заканчиваться репликой зрителя
	for len(out) > 0 && out[len(out)-1].Role != RoleUser {
		out = out[:len(out)-1]
	}
	return out
}
