// Package events fans out committed session events to the websocket hub,
// the redis stream and the chat archive.
package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cwrk-planet/live-room-service/internal/domain"
)

type Sink interface {
	Name() string
	Handle(ctx context.Context, ev domain.Event) error
}

// Bus — очередь с одним диспетчером: порядок событий сохраняется,
// Publish никогда не блокирует сессию.
type Bus struct {
	ch    chan domain.Event
	sinks []Sink

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64

	done chan struct{}
}

func NewBus(buffer int, sinks ...Sink) *Bus {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Bus{
		ch:    make(chan domain.Event, buffer),
		sinks: sinks,
		done:  make(chan struct{}),
	}
}

// Publish кладёт событие в очередь; при переполнении событие отбрасывается.
func (b *Bus) Publish(ev domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	select {
	case b.ch <- ev:
	default:
		n := b.dropped.Add(1)
		slog.Warn("events.publish: queue full, event dropped",
			"type", ev.Type, "room_id", ev.RoomID, "dropped_total", n)
	}
}

func (b *Bus) Dropped() int64 { return b.dropped.Load() }

// Run раздаёт события до Close, затем дочитывает очередь.
func (b *Bus) Run(ctx context.Context) {
	defer close(b.done)

	for ev := range b.ch {
		b.dispatch(ctx, ev)
	}
}

func (b *Bus) dispatch(ctx context.Context, ev domain.Event) {
	for _, s := range b.sinks {
		if err := s.Handle(ctx, ev); err != nil {
			slog.Warn("events.dispatch:", "sink", s.Name(), "type", ev.Type, "room_id", ev.RoomID, slog.Any("err", err))
		}
	}
}

// Close закрывает очередь и ждёт диспетчер (если он запущен) или ctx.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
