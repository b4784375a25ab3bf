package live

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/cwrk-planet/live-room-service/internal/domain"
)

type memStore struct {
	mu    sync.Mutex
	rooms map[string]*domain.RoomConfig
	gate  chan struct{} // если не nil, Get ждёт закрытия
}

func newMemStore(cfgs ...*domain.RoomConfig) *memStore {
	m := &memStore{rooms: make(map[string]*domain.RoomConfig)}
	for _, c := range cfgs {
		m.rooms[c.RoomID] = c
	}
	return m
}

func (m *memStore) Get(ctx context.Context, roomID string) (*domain.RoomConfig, error) {
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return c, nil
}

type replierFunc func(ctx context.Context, rc domain.ReplyContext) (string, error)

func (f replierFunc) Reply(ctx context.Context, rc domain.ReplyContext) (string, error) {
	return f(ctx, rc)
}

type narratorFunc func(ctx context.Context, p domain.Product, s domain.Streamer) (domain.Narration, error)

func (f narratorFunc) Narrate(ctx context.Context, p domain.Product, s domain.Streamer) (domain.Narration, error) {
	return f(ctx, p, s)
}

type transcriberFunc func(ctx context.Context, userID, ref string) (string, error)

func (f transcriberFunc) Transcribe(ctx context.Context, userID, ref string) (string, error) {
	return f(ctx, userID, ref)
}

type rendererFunc func(ctx context.Context, s domain.Streamer, text string) (string, error)

func (f rendererFunc) Render(ctx context.Context, s domain.Streamer, text string) (string, error) {
	return f(ctx, s, text)
}

type memUploader struct {
	mu      sync.Mutex
	blob    map[string][]byte
	removed []string
	err     error
}

func (u *memUploader) Upload(_ context.Context, roomID, name, _ string, body io.Reader, _ int64) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.blob == nil {
		u.blob = make(map[string][]byte)
	}
	ref := roomID + "/" + name
	u.blob[ref] = b
	return ref, nil
}

func (u *memUploader) Remove(_ context.Context, ref string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.blob, ref)
	u.removed = append(u.removed, ref)
	return nil
}

func (u *memUploader) has(ref string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.blob[ref]
	return ok
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errLLMDown = errors.New("llm down")

func roomWith(id string, n int) *domain.RoomConfig {
	cfg := &domain.RoomConfig{
		RoomID: id,
		Name:   "room " + id,
		Streamer: domain.Streamer{
			ID:        "s1",
			Name:      "Lele",
			Character: []string{"cheerful"},
			BaseVideo: "base.mp4",
		},
	}
	for i := 0; i < n; i++ {
		cfg.Slots = append(cfg.Slots, domain.ProductSlot{
			Product:  domain.Product{ID: string(rune('a' + i)), Name: "product " + string(rune('A'+i))},
			SalesDoc: "script " + string(rune('A'+i)),
		})
	}
	return cfg
}

// quietOpts — таймеры не срабатывают сами, тесты зовут expire напрямую.
func quietOpts() Options {
	return Options{ProductDuration: time.Hour, ReplyTimeout: 5 * time.Second}
}
