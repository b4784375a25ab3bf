package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cwrk-planet/live-room-service/internal/domain"
	"github.com/cwrk-planet/live-room-service/internal/live"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type mapStore map[string]*domain.RoomConfig

func (m mapStore) Get(_ context.Context, id string) (*domain.RoomConfig, error) {
	cfg, ok := m[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return cfg, nil
}

type failingLLM struct{}

func (failingLLM) Reply(context.Context, domain.ReplyContext) (string, error) {
	return "", errors.New("model is down")
}

type fakeArchive struct {
	roomID string
}

func (a *fakeArchive) History(_ context.Context, roomID, _ string, _ int) ([]domain.ChatMessage, string, error) {
	a.roomID = roomID
	return []domain.ChatMessage{{Seq: 1, Text: "old"}}, "", nil
}

func testRoom(id string, products int) *domain.RoomConfig {
	cfg := &domain.RoomConfig{
		RoomID:   id,
		Name:     "room " + id,
		Streamer: domain.Streamer{ID: "s1", Name: "Lele"},
	}
	for i := 0; i < products; i++ {
		cfg.Slots = append(cfg.Slots, domain.ProductSlot{
			Product:  domain.Product{ID: string(rune('a' + i)), Name: "product"},
			SalesDoc: "script",
		})
	}
	return cfg
}

func newTestService(t *testing.T, deps live.Deps, archive Archive) *LiveService {
	t.Helper()
	reg := live.NewRegistry(mapStore{"r1": testRoom("r1", 2)}, live.Options{ProductDuration: time.Hour}, deps)
	svc := NewLiveService(reg, archive)
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })
	return svc
}

func TestLiveService_TwoProductScenario(t *testing.T) {
	svc := newTestService(t, live.Deps{}, nil)
	ctx := context.Background()

	snap, err := svc.StartRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.CurrentProductIndex)
	assert.Equal(t, domain.StatusLive, snap.Status)

	snap, applied, err := svc.AdvanceProduct(ctx, "r1", nil)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 1, snap.CurrentProductIndex)
	assert.Equal(t, domain.StatusEnding, snap.Status)

	_, _, err = svc.AdvanceProduct(ctx, "r1", nil)
	require.ErrorIs(t, err, domain.ErrOutOfRange)

	snap, err = svc.GetLiveStatus(ctx, "r1", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnding, snap.Status)
	assert.Equal(t, 1, snap.CurrentProductIndex)
}

func TestLiveService_StaleGeneration(t *testing.T) {
	svc := newTestService(t, live.Deps{}, nil)
	ctx := context.Background()

	snap, err := svc.StartRoom(ctx, "r1")
	require.NoError(t, err)
	gen := snap.Generation

	_, applied, err := svc.AdvanceProduct(ctx, "r1", &gen)
	require.NoError(t, err)
	require.True(t, applied)

	snap, applied, err = svc.AdvanceProduct(ctx, "r1", &gen)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 1, snap.CurrentProductIndex)
}

func TestLiveService_AbsentRoom(t *testing.T) {
	svc := newTestService(t, live.Deps{}, nil)
	ctx := context.Background()

	_, _, err := svc.AdvanceProduct(ctx, "r1", nil)
	assert.ErrorIs(t, err, domain.ErrNotLive)

	_, err = svc.PostChat(ctx, "r1", live.ChatInput{Text: "hi"})
	assert.ErrorIs(t, err, domain.ErrNotLive)

	_, err = svc.GetLiveStatus(ctx, "r1", 0)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	assert.False(t, svc.StopRoom(ctx, "r1"))
}

func TestLiveService_ChatFallback(t *testing.T) {
	svc := newTestService(t, live.Deps{Replier: failingLLM{}}, nil)
	ctx := context.Background()

	_, err := svc.StartRoom(ctx, "r1")
	require.NoError(t, err)
	before, err := svc.GetLiveStatus(ctx, "r1", 0)
	require.NoError(t, err)

	res, err := svc.PostChat(ctx, "r1", live.ChatInput{UserID: "u1", Text: "price?"})
	require.NoError(t, err)
	assert.True(t, res.Reply.Fallback)
	assert.Equal(t, domain.RoleAssistant, res.Reply.Role)

	after, err := svc.GetLiveStatus(ctx, "r1", before.MessageCount)
	require.NoError(t, err)
	require.Len(t, after.Conversation, 2)
	assert.Equal(t, "price?", after.Conversation[0].Text)
}

func TestLiveService_StopTwice(t *testing.T) {
	svc := newTestService(t, live.Deps{}, nil)
	ctx := context.Background()

	_, err := svc.StartRoom(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, svc.StopRoom(ctx, "r1"))
	assert.False(t, svc.StopRoom(ctx, "r1"))
	assert.Empty(t, svc.ListLive(ctx))
}

func TestLiveService_ListLiveOmitsConversation(t *testing.T) {
	svc := newTestService(t, live.Deps{}, nil)
	ctx := context.Background()

	_, err := svc.StartRoom(ctx, "r1")
	require.NoError(t, err)

	list := svc.ListLive(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, "r1", list[0].RoomID)
	assert.Nil(t, list[0].Conversation)
	assert.Positive(t, list[0].MessageCount)
}

func TestLiveService_History(t *testing.T) {
	_, _, err := newTestService(t, live.Deps{}, nil).History(context.Background(), "r1", "", 10)
	assert.ErrorIs(t, err, domain.ErrDownstreamUnavailable)

	arch := &fakeArchive{}
	msgs, _, err := newTestService(t, live.Deps{}, arch).History(context.Background(), "r1", "", 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Equal(t, "r1", arch.roomID)
}

func TestLiveService_RecordsSpanErrors(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	svc := newTestService(t, live.Deps{}, nil)
	svc.tracer = tp.Tracer(tracerName)

	_, err := svc.StartRoom(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrRoomNotFound)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "LiveService.StartRoom", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
