package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cwrk-planet/live-room-service/internal/domain"
	"github.com/cwrk-planet/live-room-service/internal/live"
	"github.com/cwrk-planet/live-room-service/internal/transport/http/httputil"
	httpmw "github.com/cwrk-planet/live-room-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var ErrSlowConsumer = errors.New("ws: send queue is full")

type LiveSvc interface {
	GetLiveStatus(ctx context.Context, roomID string, since int64) (domain.Snapshot, error)
	PostChat(ctx context.Context, roomID string, in live.ChatInput) (live.ChatResult, error)
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	liveSvc  LiveSvc

	pingEvery time.Duration
	queueSize int
	maxChats  int // чатов в работе на одно соединение
}

func NewServer(hub *Hub, liveSvc LiveSvc) *Server {
	return &Server{
		hub:     hub,
		liveSvc: liveSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
		queueSize: 64,
		maxChats:  1,
	}
}

// WS endpoint: GET /ws/streaming-room/{id}?access_token=...&user_id=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}
	uid := httpmw.UserIDFromCtx(r.Context())
	if uid == "" {
		uid = strings.TrimSpace(r.URL.Query().Get("user_id"))
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	// контекст живёт, пока живо соединение, а не запрос
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	// события, пришедшие до снапшота, придерживаются и уходят после state
	c := newWsConn(conn, roomID, uid, s.queueSize)
	s.hub.Add(c)
	s.sendState(ctx, c)

	go s.writeLoop(c)
	s.readLoop(ctx, c)

	s.hub.Remove(c)
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "room", roomID, "user", uid, "err", err)
	}
}

func (s *Server) sendState(ctx context.Context, c *wsConn) {
	st := StatePayload{RoomID: c.roomID}
	snap, err := s.liveSvc.GetLiveStatus(ctx, c.roomID, 0)
	switch {
	case err == nil:
		st.Live = true
		st.Room = snap
	case errors.Is(err, domain.ErrRoomNotFound):
		// эфира нет: клиент дождётся room.started
	default:
		slog.Warn("ws send initial state failed", "room", c.roomID, "user", c.userID, "err", err)
	}
	c.sendFirst(Message{Type: TypeState, Payload: st})
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	var inflight sync.WaitGroup
	defer inflight.Wait()
	slots := make(chan struct{}, max(s.maxChats, 1))

	c.conn.SetReadLimit(1 << 16)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case TypeChat:
			var p ChatPayload
			if decode(msg.Payload, &p) != nil || strings.TrimSpace(p.Text) == "" {
				continue
			}
			// ответ LLM может идти секундами, чтение (и pong) не блокируем
			select {
			case slots <- struct{}{}:
			default:
				_ = c.Send(Message{Type: TypeError, Payload: ErrorPayload{
					ClientMsgID: p.ClientMsgID,
					Code:        CodeChatBusy,
					Message:     "previous message is still being answered",
				}})
				continue
			}
			inflight.Add(1)
			go func() {
				defer func() {
					<-slots
					inflight.Done()
				}()
				s.chat(ctx, c, p)
			}()
		default:
			// ignore
		}
	}
}

// chat проводит сообщение через сессию. Само сообщение и ответ придут
// всем зрителям событием chat.message, отправителю — ещё и ack.
func (s *Server) chat(ctx context.Context, c *wsConn, p ChatPayload) {
	res, err := s.liveSvc.PostChat(ctx, c.roomID, live.ChatInput{
		UserID:   c.userID,
		UserName: p.UserName,
		Text:     p.Text,
	})
	if err != nil {
		slog.Warn("ws chat failed", "room", c.roomID, "user", c.userID, "err", err)
		_ = c.Send(Message{Type: TypeError, Payload: ErrorPayload{
			ClientMsgID: p.ClientMsgID,
			Code:        httputil.Code(err),
			Message:     err.Error(),
		}})
		return
	}
	_ = c.Send(Message{Type: TypeChatAck, Payload: ChatAckPayload{
		ClientMsgID: p.ClientMsgID,
		MessageID:   res.Message.ID,
		ReplyID:     res.Reply.ID,
		Fallback:    res.Reply.Fallback,
	}})
}

// writeLoop — единственный писатель в соединение.
func (s *Server) writeLoop(c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				_ = c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// --- helpers ---

func decode(payload any, dst any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, dst)
}

type wsConn struct {
	conn   *websocket.Conn
	roomID string
	userID string
	out    chan Message

	// пока начальный state не отправлен, события копятся в held
	mu      sync.Mutex
	holding bool
	held    []Message

	closeOnce sync.Once
	closed    chan struct{}
}

func newWsConn(c *websocket.Conn, roomID, userID string, queue int) *wsConn {
	return &wsConn{
		conn:    c,
		roomID:  roomID,
		userID:  userID,
		out:     make(chan Message, queue),
		holding: true,
		closed:  make(chan struct{}),
	}
}

// Send ставит сообщение в очередь writeLoop и не блокирует.
func (c *wsConn) Send(msg Message) error {
	select {
	case <-c.closed:
		return websocket.ErrCloseSent
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.holding {
		// одно место в очереди остаётся под state
		if len(c.held) >= cap(c.out)-1 {
			return ErrSlowConsumer
		}
		c.held = append(c.held, msg)
		return nil
	}
	return c.enqueueLocked(msg)
}

// sendFirst ставит msg в очередь первым и отпускает придержанные события.
// Событие, уже учтённое в state, может прийти повторно: клиент применяет
// их по id сообщения и generation.
func (c *wsConn) sendFirst(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	held := c.held
	c.held = nil
	c.holding = false

	if c.enqueueLocked(msg) != nil {
		_ = c.Close()
		return
	}
	for _, m := range held {
		if c.enqueueLocked(m) != nil {
			_ = c.Close()
			return
		}
	}
}

func (c *wsConn) enqueueLocked(msg Message) error {
	select {
	case c.out <- msg:
		return nil
	default:
		return ErrSlowConsumer
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) UserID() string { return c.userID }
func (c *wsConn) RoomID() string { return c.roomID }
