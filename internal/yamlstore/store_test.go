package yamlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwrk-planet/live-room-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demo = `
name: Evening sale
streamer:
  id: s1
  name: Lele
  character: [cheerful, patient]
  baseVideo: videos/base.mp4
backgroundImage: bg.png
products:
  - product:
      id: p1
      name: Tea
      highlights: [organic]
      price: 12.5
    salesDoc: Try our tea.
    startVideo: videos/p1.mp4
  - product:
      id: p2
      name: Cup
    salesDoc: A cup for your tea.
    startAt: 3m
`

func writeRoom(t *testing.T, dir, id, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".yaml"), []byte(body), 0o600))
}

func TestStore_Get(t *testing.T) {
	dir := t.TempDir()
	writeRoom(t, dir, "evening", demo)

	cfg, err := New(dir).Get(context.Background(), "evening")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "evening", cfg.RoomID)
	assert.Equal(t, "Lele", cfg.Streamer.Name)
	require.Len(t, cfg.Slots, 2)
	assert.Equal(t, 12.5, cfg.Slots[0].Product.Price)
	assert.Equal(t, 3*time.Minute, cfg.Slots[1].StartAt)
	assert.Equal(t, 3*time.Minute, cfg.SlotDuration(0, time.Minute))
	assert.Equal(t, time.Minute, cfg.SlotDuration(1, time.Minute))
	assert.Equal(t, "videos/p1.mp4", cfg.IntroVideo(0))
	assert.Equal(t, "videos/base.mp4", cfg.IntroVideo(1))
}

func TestStore_NotFound(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	_, err = s.Get(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestStore_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeRoom(t, dir, "broken", "products: [")
	writeRoom(t, dir, "other", "id: someone-else\n")

	_, err := New(dir).Get(context.Background(), "broken")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = New(dir).Get(context.Background(), "other")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
