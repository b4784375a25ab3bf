package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/live-room-service/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recSink struct {
	mu  sync.Mutex
	got []domain.Event
	err error
}

func (s *recSink) Name() string { return "rec" }

func (s *recSink) Handle(_ context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, ev)
	return s.err
}

func (s *recSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.got))
	for _, ev := range s.got {
		out = append(out, ev.Type)
	}
	return out
}

func TestBus_DeliversInOrder(t *testing.T) {
	a := &recSink{}
	b := &recSink{err: errors.New("boom")} // ошибка одного sink не мешает остальным
	bus := NewBus(16, b, a)
	go bus.Run(context.Background())

	bus.Publish(domain.Event{Type: domain.EventRoomStarted, RoomID: "r1"})
	bus.Publish(domain.Event{Type: domain.EventChatMessage, RoomID: "r1"})
	bus.Publish(domain.Event{Type: domain.EventRoomOffline, RoomID: "r1"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Close(ctx))

	want := []string{domain.EventRoomStarted, domain.EventChatMessage, domain.EventRoomOffline}
	assert.Equal(t, want, a.types())
	assert.Equal(t, want, b.types())
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := NewBus(1)

	bus.Publish(domain.Event{Type: "a"})
	bus.Publish(domain.Event{Type: "b"})
	bus.Publish(domain.Event{Type: "c"})

	assert.Equal(t, int64(2), bus.Dropped())
}

func TestBus_PublishAfterClose(t *testing.T) {
	a := &recSink{}
	bus := NewBus(4, a)
	go bus.Run(context.Background())

	require.NoError(t, bus.Close(context.Background()))
	require.NotPanics(t, func() { bus.Publish(domain.Event{Type: "late"}) })
	require.NoError(t, bus.Close(context.Background()))
	assert.Empty(t, a.types())
}

func TestRedisSink_XAdd(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	sink := NewRedisSink(rdb, "live:test", 100)
	msg := &domain.ChatMessage{Seq: 3, Role: domain.RoleUser, Text: "hi"}
	err := sink.Handle(context.Background(), domain.Event{
		Type:        domain.EventChatMessage,
		RoomID:      "r1",
		Incarnation: 2,
		Message:     msg,
	})
	require.NoError(t, err)

	entries, err := rdb.XRange(context.Background(), "live:test", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	v := entries[0].Values
	assert.Equal(t, domain.EventChatMessage, v["type"])
	assert.Equal(t, "r1", v["room_id"])

	var ev domain.Event
	require.NoError(t, json.Unmarshal([]byte(v["data"].(string)), &ev))
	assert.Equal(t, uint64(2), ev.Incarnation)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "hi", ev.Message.Text)
}
