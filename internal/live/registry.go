package live

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/cwrk-planet/live-room-service/internal/domain"
)

// pendingStart — комната, для которой идёт загрузка конфига.
type pendingStart struct {
	stopped bool
}

// Registry держит не больше одной живой сессии на room_id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	pending  map[string]*pendingStart
	seq      uint64
	closed   bool

	store ConfigStore
	opts  Options
	deps  Deps
	wg    sync.WaitGroup
}

func NewRegistry(store ConfigStore, opts Options, deps Deps) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		pending:  make(map[string]*pendingStart),
		store:    store,
		opts:     opts.withDefaults(),
		deps:     deps,
	}
}

// Start creates the session for roomID. Concurrent starts for the same room
// are decided under r.mu: exactly one wins, the rest get domain.ErrAlreadyLive.
// The config is loaded outside the lock so other rooms are not blocked.
func (r *Registry) Start(ctx context.Context, roomID string) (*Session, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: registry is shutting down", domain.ErrNotLive)
	}
	if _, ok := r.sessions[roomID]; ok {
		r.mu.Unlock()
		return nil, domain.ErrAlreadyLive
	}
	if _, ok := r.pending[roomID]; ok {
		r.mu.Unlock()
		return nil, domain.ErrAlreadyLive
	}
	p := &pendingStart{}
	r.pending[roomID] = p
	r.mu.Unlock()

	cfg, err := r.store.Get(ctx, roomID)
	if err == nil {
		err = cfg.Validate()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.pending, roomID)
	if err != nil {
		return nil, fmt.Errorf("load room config: %w", err)
	}
	if p.stopped || r.closed {
		return nil, fmt.Errorf("%w: stopped while starting", domain.ErrNotLive)
	}

	r.seq++
	s, err := newSession(cfg, r.seq, r.opts, r.deps, &r.wg, r.evict)
	if err != nil {
		return nil, err
	}
	r.sessions[roomID] = s
	return s, nil
}

// Get — живая сессия комнаты или domain.ErrRoomNotFound.
func (r *Registry) Get(roomID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return s, nil
}

// Stop is idempotent: an unknown or already stopped room is not an error.
// It reports whether a live session was actually closed.
func (r *Registry) Stop(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.pending[roomID]; ok {
		p.stopped = true
	}
	s, ok := r.sessions[roomID]
	if !ok {
		return false
	}
	delete(r.sessions, roomID)
	return s.stop()
}

// Live returns the live sessions ordered by room id.
func (r *Registry) Live() []*Session {
	r.mu.Lock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].roomID < out[j].roomID })
	return out
}

// Shutdown останавливает все сессии и ждёт фоновые генерации.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	for id, s := range r.sessions {
		delete(r.sessions, id)
		s.stop()
	}
	for _, p := range r.pending {
		p.stopped = true
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// evict убирает сессию после паники во внутренней задаче.
func (r *Registry) evict(s *Session, reason any) {
	slog.Error("live session failed",
		"room_id", s.roomID,
		"incarnation", s.incarnation,
		"panic", reason,
		"stack", string(debug.Stack()))

	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[s.roomID]; ok && cur == s {
		delete(r.sessions, s.roomID)
	}
	s.stop()
}
