package events

import (
	"context"
	"encoding/json"

	"github.com/cwrk-planet/live-room-service/internal/domain"

	"github.com/go-redis/redis/v8"
)

// RedisSink пишет события в stream для внешних потребителей.
type RedisSink struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

func NewRedisSink(rdb *redis.Client, stream string, maxLen int64) *RedisSink {
	if stream == "" {
		stream = "live-room:events"
	}
	return &RedisSink{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (s *RedisSink) Name() string { return "redis-stream" }

func (s *RedisSink) Handle(ctx context.Context, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"type":    ev.Type,
			"room_id": ev.RoomID,
			"data":    string(data),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	return s.rdb.XAdd(ctx, args).Err()
}
