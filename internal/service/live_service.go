package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/live-room-service/internal/domain"
	"github.com/cwrk-planet/live-room-service/internal/live"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/cwrk-planet/live-room-service/internal/service"

// Archive — архив ленты после эфира; nil, если postgres не настроен.
type Archive interface {
	History(ctx context.Context, roomID, after string, limit int) ([]domain.ChatMessage, string, error)
}

// LiveService — командная поверхность для транспортов (http, ws, grpc).
type LiveService struct {
	reg     *live.Registry
	archive Archive
	tracer  trace.Tracer
}

func NewLiveService(reg *live.Registry, archive Archive) *LiveService {
	return &LiveService{
		reg:     reg,
		archive: archive,
		tracer:  otel.Tracer(tracerName),
	}
}

// StartRoom запускает эфир и возвращает начальный снапшот.
func (s *LiveService) StartRoom(ctx context.Context, roomID string) (domain.Snapshot, error) {
	ctx, span := s.start(ctx, "LiveService.StartRoom", roomID)
	defer span.End()

	sess, err := s.reg.Start(ctx, roomID)
	if err != nil {
		return domain.Snapshot{}, s.fail(span, err)
	}
	snap := sess.Snapshot(0)
	slog.InfoContext(ctx, "room started",
		"room_id", roomID, "incarnation", snap.Incarnation, "products", snap.ProductCount)
	return snap, nil
}

// StopRoom идемпотентен; stopped=false, если комната не была в эфире.
func (s *LiveService) StopRoom(ctx context.Context, roomID string) bool {
	ctx, span := s.start(ctx, "LiveService.StopRoom", roomID)
	defer span.End()

	stopped := s.reg.Stop(roomID)
	span.SetAttributes(attribute.Bool("live.stopped", stopped))
	if stopped {
		slog.InfoContext(ctx, "room stopped", "room_id", roomID)
	}
	return stopped
}

// AdvanceProduct переключает продукт. С gen != nil переход условный:
// устаревшее поколение ничего не меняет и возвращает applied=false.
func (s *LiveService) AdvanceProduct(ctx context.Context, roomID string, gen *uint64) (domain.Snapshot, bool, error) {
	ctx, span := s.start(ctx, "LiveService.AdvanceProduct", roomID)
	defer span.End()

	sess, err := s.live(roomID)
	if err != nil {
		return domain.Snapshot{}, false, s.fail(span, err)
	}

	var (
		snap    domain.Snapshot
		applied = true
	)
	if gen != nil {
		span.SetAttributes(attribute.Int64("live.generation", int64(*gen)))
		snap, applied, err = sess.AdvanceIf(*gen)
	} else {
		snap, err = sess.Advance()
	}
	if err != nil {
		return snap, false, s.fail(span, err)
	}
	if applied {
		slog.InfoContext(ctx, "product advanced",
			"room_id", roomID, "index", snap.CurrentProductIndex, "status", snap.Status)
	}
	return snap, applied, nil
}

// PostChat возвращает ответ ассистента (или fallback, если LLM недоступна).
func (s *LiveService) PostChat(ctx context.Context, roomID string, in live.ChatInput) (live.ChatResult, error) {
	ctx, span := s.start(ctx, "LiveService.PostChat", roomID)
	defer span.End()

	sess, err := s.live(roomID)
	if err != nil {
		return live.ChatResult{}, s.fail(span, err)
	}
	res, err := sess.Chat(ctx, in)
	if err != nil {
		return live.ChatResult{}, s.fail(span, err)
	}
	span.SetAttributes(attribute.Bool("live.fallback", res.Reply.Fallback))
	return res, nil
}

func (s *LiveService) SubmitAudio(ctx context.Context, roomID string, in live.AudioInput) (live.AudioResult, error) {
	ctx, span := s.start(ctx, "LiveService.SubmitAudio", roomID)
	defer span.End()

	sess, err := s.live(roomID)
	if err != nil {
		return live.AudioResult{}, s.fail(span, err)
	}
	res, err := sess.SubmitAudio(ctx, in)
	if err != nil {
		return live.AudioResult{}, s.fail(span, err)
	}
	span.SetAttributes(attribute.Bool("live.fallback", res.Chat.Reply.Fallback))
	return res, nil
}

// GetLiveStatus — снапшот; в conversation только сообщения с seq > since.
func (s *LiveService) GetLiveStatus(ctx context.Context, roomID string, since int64) (domain.Snapshot, error) {
	_, span := s.start(ctx, "LiveService.GetLiveStatus", roomID)
	defer span.End()

	sess, err := s.reg.Get(roomID)
	if err != nil {
		return domain.Snapshot{}, s.fail(span, err)
	}
	return sess.Snapshot(since), nil
}

// ListLive — снапшоты всех живых комнат без ленты.
func (s *LiveService) ListLive(ctx context.Context) []domain.Snapshot {
	_, span := s.tracer.Start(ctx, "LiveService.ListLive")
	defer span.End()

	sessions := s.reg.Live()
	out := make([]domain.Snapshot, 0, len(sessions))
	for _, sess := range sessions {
		snap := sess.Snapshot(0)
		snap.Conversation = nil
		out = append(out, snap)
	}
	return out
}

// History читает архив, доступен и после окончания эфира.
func (s *LiveService) History(ctx context.Context, roomID, after string, limit int) ([]domain.ChatMessage, string, error) {
	ctx, span := s.start(ctx, "LiveService.History", roomID)
	defer span.End()

	if s.archive == nil {
		return nil, "", s.fail(span, fmt.Errorf("%w: chat archive is disabled", domain.ErrDownstreamUnavailable))
	}
	msgs, next, err := s.archive.History(ctx, roomID, after, limit)
	if err != nil {
		return nil, "", s.fail(span, fmt.Errorf("archive.History: %w", err))
	}
	return msgs, next, nil
}

func (s *LiveService) Shutdown(ctx context.Context) error {
	return s.reg.Shutdown(ctx)
}

// live — сессия для команды; отсутствие эфира для команд это ErrNotLive.
func (s *LiveService) live(roomID string) (*live.Session, error) {
	sess, err := s.reg.Get(roomID)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return nil, fmt.Errorf("%w: room %s", domain.ErrNotLive, roomID)
	}
	return sess, err
}

func (s *LiveService) start(ctx context.Context, name, roomID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("live.room_id", roomID)))
}

func (s *LiveService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
