package live

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cwrk-planet/live-room-service/internal/domain"
	"github.com/cwrk-planet/live-room-service/pkg/logger"

	"github.com/oklog/ulid/v2"
)

type ChatInput struct {
	UserID   string
	UserName string
	Text     string
	Source   domain.Source
}

type ChatResult struct {
	Message domain.ChatMessage
	Reply   domain.ChatMessage
}

type AudioInput struct {
	UserID      string
	UserName    string
	Name        string
	ContentType string
	Body        io.Reader
	Size        int64
}

type AudioResult struct {
	AudioRef   string
	Transcript string
	Chat       ChatResult
}

// Session — живая сессия одной комнаты. Все мутации идут под s.lock,
// внешние вызовы (LLM, ASR, генерация) делаются без него.
type Session struct {
	// канал как мьютекс: ожидающие отправители встают в очередь FIFO
	lock chan struct{}

	roomID      string
	incarnation uint64
	cfg         *domain.RoomConfig
	opts        Options
	deps        Deps
	now         func() time.Time
	wg          *sync.WaitGroup
	onFatal     func(*Session, any)

	ctx    context.Context
	cancel context.CancelFunc

	status             domain.Status
	closed             bool
	gen                uint64
	rotation           *Rotation
	log                *ChatLog
	startedAt          time.Time
	productStartedAt   time.Time
	productDuration    time.Duration
	narration          string
	narrationGenerated bool
	video              string
	timer              *time.Timer
}

func newSession(cfg *domain.RoomConfig, incarnation uint64, opts Options, deps Deps, wg *sync.WaitGroup, onFatal func(*Session, any)) (*Session, error) {
	rot, err := NewRotation(cfg.Slots)
	if err != nil {
		return nil, err
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Publisher == nil {
		deps.Publisher = nopPublisher{}
	}
	if wg == nil {
		wg = &sync.WaitGroup{}
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		lock:        make(chan struct{}, 1),
		roomID:      cfg.RoomID,
		incarnation: incarnation,
		cfg:         cfg,
		opts:        opts.withDefaults(),
		deps:        deps,
		now:         deps.Now,
		wg:          wg,
		onFatal:     onFatal,
		ctx:         ctx,
		cancel:      cancel,
		rotation:    rot,
	}
	s.log = NewChatLog(s.opts.ConversationCap)

	s.acquire()
	defer s.release()

	s.status = domain.StatusLive
	s.gen = 1
	s.startedAt = s.now()
	s.enterProductLocked()
	s.publishLocked(domain.EventRoomStarted, nil)
	s.seedProductLocked()

	return s, nil
}

func (s *Session) acquire() { s.lock <- struct{}{} }
func (s *Session) release() { <-s.lock }

func (s *Session) RoomID() string { return s.roomID }
func (s *Session) Incarnation() uint64 { return s.incarnation }

// Snapshot returns a consistent view; conversation holds messages with Seq > since.
func (s *Session) Snapshot(since int64) domain.Snapshot {
	s.acquire()
	defer s.release()

	return s.snapshotLocked(since)
}

// Advance переключает продукт безусловно.
func (s *Session) Advance() (domain.Snapshot, error) {
	s.acquire()
	defer s.release()

	if s.closed {
		return domain.Snapshot{}, domain.ErrNotLive
	}
	if err := s.advanceLocked(); err != nil {
		return s.snapshotLocked(s.log.Total()), err
	}
	return s.snapshotLocked(s.log.Total()), nil
}

// AdvanceIf advances only when the session is still at generation gen.
// A stale generation is a no-op: applied=false and the current view is returned.
func (s *Session) AdvanceIf(gen uint64) (snap domain.Snapshot, applied bool, err error) {
	s.acquire()
	defer s.release()

	if s.closed {
		return domain.Snapshot{}, false, domain.ErrNotLive
	}
	if s.gen != gen {
		return s.snapshotLocked(s.log.Total()), false, nil
	}
	if err := s.advanceLocked(); err != nil {
		return s.snapshotLocked(s.log.Total()), false, err
	}
	return s.snapshotLocked(s.log.Total()), true, nil
}

// expire — срабатывание таймера, взведённого на поколении gen.
func (s *Session) expire(gen uint64) {
	defer func() {
		if r := recover(); r != nil && s.onFatal != nil {
			s.onFatal(s, r)
		}
	}()

	s.acquire()
	defer s.release()

	if s.closed || s.gen != gen || s.status != domain.StatusLive {
		return
	}
	if err := s.advanceLocked(); err != nil {
		logger.ForRoom(s.ctx, s.roomID).Warn("live.expire", "gen", gen, "err", err)
	}
}

func (s *Session) advanceLocked() error {
	switch s.status {
	case domain.StatusLive:
	case domain.StatusEnding:
		return domain.ErrOutOfRange
	default:
		return domain.ErrNotLive
	}

	if !s.rotation.HasNext() {
		// последний (или единственный) продукт доигран
		s.gen++
		s.status = domain.StatusEnding
		s.stopTimerLocked()
		s.publishLocked(domain.EventRoomEnding, nil)
		return nil
	}

	if err := s.rotation.Advance(); err != nil {
		return err
	}
	s.gen++
	if !s.rotation.HasNext() {
		s.status = domain.StatusEnding
	}
	s.enterProductLocked()
	s.publishLocked(domain.EventProductChanged, nil)
	s.seedProductLocked()
	if s.status == domain.StatusEnding {
		s.publishLocked(domain.EventRoomEnding, nil)
	}
	return nil
}

// enterProductLocked сбрасывает состояние под текущий слот и взводит таймер.
func (s *Session) enterProductLocked() {
	idx := s.rotation.Index()
	slot := s.rotation.Current()

	s.productStartedAt = s.now()
	s.narration = slot.SalesDoc
	s.narrationGenerated = false
	s.video = s.cfg.IntroVideo(idx)

	if s.status == domain.StatusLive {
		s.productDuration = s.cfg.SlotDuration(idx, s.opts.ProductDuration)
		s.armTimerLocked()
	} else {
		s.productDuration = 0
		s.stopTimerLocked()
	}
}

// seedProductLocked открывает разговор о продукте скриптом ведущего
// и запускает генерацию.
func (s *Session) seedProductLocked() {
	slot := s.rotation.Current()
	if slot.SalesDoc != "" {
		s.appendLocked(domain.ChatMessage{
			Role:     domain.RoleStreamer,
			UserID:   s.cfg.Streamer.ID,
			UserName: s.cfg.Streamer.Name,
			Text:     slot.SalesDoc,
			Source:   domain.SourceNarration,
		})
	}
	s.narrateLocked(s.gen, slot.Product)
}

func (s *Session) armTimerLocked() {
	s.stopTimerLocked()
	gen := s.gen
	s.timer = time.AfterFunc(s.productDuration, func() { s.expire(gen) })
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// narrateLocked запускает генерацию текста в фоне. Результат применяется,
// только если сессия жива и поколение не сменилось.
func (s *Session) narrateLocked(gen uint64, p domain.Product) {
	if s.deps.Narrator == nil {
		return
	}
	streamer := s.cfg.Streamer

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, done := s.downstream(s.ctx, s.opts.NarrateTimeout)
		n, err := s.deps.Narrator.Narrate(ctx, p, streamer)
		done()

		s.acquire()
		defer s.release()

		if s.closed || s.gen != gen {
			return
		}
		if err != nil {
			logger.ForRoom(s.ctx, s.roomID).Warn("live.narrate", "product_id", p.ID, "err", err)
			return
		}
		if strings.TrimSpace(n.Text) == "" {
			return
		}
		s.narration = n.Text
		s.narrationGenerated = true
		if n.Video != "" {
			s.video = n.Video
		}
		s.publishLocked(domain.EventNarrationUpdated, nil)
	}()
}

// Chat записывает сообщение зрителя и ответ ассистента. Отказ LLM не
// возвращается вызывающему: вместо ответа пишется fallback.
func (s *Session) Chat(ctx context.Context, in ChatInput) (ChatResult, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return ChatResult{}, domain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > s.opts.MaxMessageLen {
		return ChatResult{}, domain.ErrMessageTooLong
	}
	src := in.Source
	if src == "" {
		src = domain.SourceText
	}

	s.acquire()
	if s.closed {
		s.release()
		return ChatResult{}, domain.ErrNotLive
	}
	msg := s.appendLocked(domain.ChatMessage{
		Role:     domain.RoleUser,
		UserID:   in.UserID,
		UserName: in.UserName,
		Text:     text,
		Source:   src,
	})
	rc := s.replyContextLocked()
	s.release()

	var (
		answer string
		err    error
	)
	if s.deps.Replier == nil {
		err = fmt.Errorf("%w: no llm configured", domain.ErrDownstreamUnavailable)
	} else {
		cctx, done := s.downstream(ctx, s.opts.ReplyTimeout)
		answer, err = s.deps.Replier.Reply(cctx, rc)
		done()
	}
	if err == nil && strings.TrimSpace(answer) == "" {
		err = fmt.Errorf("%w: empty reply", domain.ErrDownstreamUnavailable)
	}

	s.acquire()
	defer s.release()

	if s.closed {
		return ChatResult{}, fmt.Errorf("%w: stopped while replying", domain.ErrNotLive)
	}
	reply := domain.ChatMessage{
		Role:     domain.RoleAssistant,
		UserID:   s.cfg.Streamer.ID,
		UserName: s.cfg.Streamer.Name,
		Text:     strings.TrimSpace(answer),
		Source:   src,
	}
	if err != nil {
		logger.ForRoom(ctx, s.roomID).Warn("live.chat reply failed", "seq", msg.Seq, "err", err)
		reply.Text = s.opts.FallbackReply
		reply.Fallback = true
	}

	stored := s.appendLocked(reply)
	if !stored.Fallback {
		s.renderLocked(s.gen, stored)
	}
	return ChatResult{Message: msg, Reply: stored}, nil
}

// renderLocked озвучивает ответ в фоне. Видео применяется, только если
// сессия жива и продукт не сменился; сбой рендера оставляет текущее видео.
func (s *Session) renderLocked(gen uint64, reply domain.ChatMessage) {
	if s.deps.Renderer == nil {
		return
	}
	streamer := s.cfg.Streamer

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, done := s.downstream(s.ctx, s.opts.RenderTimeout)
		video, err := s.deps.Renderer.Render(ctx, streamer, reply.Text)
		done()

		s.acquire()
		defer s.release()

		if s.closed || s.gen != gen {
			return
		}
		if err != nil {
			logger.ForRoom(s.ctx, s.roomID).Warn("live.render reply", "message_id", reply.ID, "err", err)
			return
		}
		if video == "" {
			return
		}
		s.video = video
		s.publishLocked(domain.EventVideoUpdated, nil)
	}()
}

// SubmitAudio загружает аудио, распознаёт его и проводит текст через Chat.
func (s *Session) SubmitAudio(ctx context.Context, in AudioInput) (AudioResult, error) {
	if in.Body == nil || in.Size == 0 {
		return AudioResult{}, domain.ErrEmptyAudio
	}

	s.acquire()
	closed := s.closed
	s.release()
	if closed {
		return AudioResult{}, domain.ErrNotLive
	}

	var (
		ref        string
		transcript string
		err        error
	)
	cctx, done := s.downstream(ctx, s.opts.TranscribeTimeout)
	switch {
	case s.deps.Uploader == nil || s.deps.Transcriber == nil:
		err = fmt.Errorf("%w: asr not configured", domain.ErrDownstreamUnavailable)
	default:
		ref, err = s.deps.Uploader.Upload(cctx, s.roomID, in.Name, in.ContentType, in.Body, in.Size)
		if err == nil {
			transcript, err = s.deps.Transcriber.Transcribe(cctx, in.UserID, ref)
			s.removeUpload(ctx, ref)
		}
	}
	done()

	transcript = truncateRunes(strings.TrimSpace(transcript), s.opts.MaxMessageLen)
	if err == nil && transcript == "" {
		err = fmt.Errorf("%w: empty transcript", domain.ErrDownstreamUnavailable)
	}

	if err != nil {
		s.acquire()
		defer s.release()

		if s.closed {
			return AudioResult{}, fmt.Errorf("%w: stopped while transcribing", domain.ErrNotLive)
		}
		logger.ForRoom(ctx, s.roomID).Warn("live.audio transcribe failed", "user_id", in.UserID, "err", err)
		reply := s.appendLocked(domain.ChatMessage{
			Role:     domain.RoleAssistant,
			UserID:   s.cfg.Streamer.ID,
			UserName: s.cfg.Streamer.Name,
			Text:     s.opts.AudioFallbackReply,
			Source:   domain.SourceAudio,
			Fallback: true,
		})
		return AudioResult{AudioRef: ref, Chat: ChatResult{Reply: reply}}, nil
	}

	res, err := s.Chat(ctx, ChatInput{
		UserID:   in.UserID,
		UserName: in.UserName,
		Text:     transcript,
		Source:   domain.SourceAudio,
	})
	if err != nil {
		return AudioResult{}, err
	}
	return AudioResult{AudioRef: ref, Transcript: transcript, Chat: res}, nil
}

// removeUpload удаляет аудио после распознавания, при успехе и при сбое.
// Ошибка только логируется. Остановка сессии удаление не отменяет.
func (s *Session) removeUpload(ctx context.Context, ref string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.deps.Uploader.Remove(rctx, ref); err != nil {
		logger.ForRoom(ctx, s.roomID).Warn("live.audio remove upload", "ref", ref, "err", err)
	}
}

// stop закрывает сессию. Повторный вызов ничего не делает.
func (s *Session) stop() bool {
	s.acquire()
	defer s.release()

	if s.closed {
		return false
	}
	s.closed = true
	s.status = domain.StatusOffline
	s.gen++
	s.stopTimerLocked()
	s.cancel()
	s.publishLocked(domain.EventRoomOffline, nil)
	return true
}

// downstream — контекст для внешнего вызова: значения берутся из parent,
// отмена — по таймауту или по остановке сессии.
func (s *Session) downstream(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d)
	unwatch := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		unwatch()
		cancel()
	}
}

func (s *Session) appendLocked(m domain.ChatMessage) domain.ChatMessage {
	m.ID = ulid.Make().String()
	m.CreatedAt = s.now()
	m.ProductIndex = s.rotation.Index()
	stored := s.log.Append(m)
	s.publishLocked(domain.EventChatMessage, &stored)
	return stored
}

func (s *Session) replyContextLocked() domain.ReplyContext {
	return domain.ReplyContext{
		RoomID:    s.roomID,
		Streamer:  s.cfg.Streamer,
		Product:   s.rotation.Current().Product,
		Narration: s.narration,
		History:   s.log.Recent(s.opts.HistoryWindow),
	}
}

func (s *Session) publishLocked(typ string, msg *domain.ChatMessage) {
	ev := domain.Event{
		Type:        typ,
		RoomID:      s.roomID,
		Incarnation: s.incarnation,
		Generation:  s.gen,
		At:          s.now(),
		Message:     msg,
	}
	if msg == nil {
		snap := s.snapshotLocked(s.log.Total())
		ev.Snapshot = &snap
	}
	s.deps.Publisher.Publish(ev)
}

func (s *Session) snapshotLocked(since int64) domain.Snapshot {
	slot := s.rotation.Current()
	snap := domain.Snapshot{
		RoomID:      s.roomID,
		RoomName:    s.cfg.Name,
		Incarnation: s.incarnation,
		Generation:  s.gen,
		Status:      s.status,
		LiveStatus:  s.status.LiveStatus(),
		Streamer: domain.StreamerView{
			ID:     s.cfg.Streamer.ID,
			Name:   s.cfg.Streamer.Name,
			Avatar: s.cfg.Streamer.Avatar,
		},
		BackgroundImage:         s.cfg.BackgroundImage,
		CurrentProductIndex:     s.rotation.Index(),
		ProductCount:            s.rotation.Len(),
		CurrentProduct:          slot.Product,
		Narration:               s.narration,
		NarrationGenerated:      s.narrationGenerated,
		CurrentStreamerVideo:    s.video,
		StartTime:               s.startedAt,
		CurrentProductStartTime: s.productStartedAt,
		FinalProduct:            !s.rotation.HasNext(),
		MessageCount:            s.log.Total(),
		Conversation:            s.log.Since(since),
	}
	if s.status == domain.StatusLive && s.timer != nil {
		left := s.productStartedAt.Add(s.productDuration).Sub(s.now())
		if left < 0 {
			left = 0
		}
		snap.RemainingMs = left.Milliseconds()
	}
	return snap
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
