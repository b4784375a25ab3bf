package dighuman

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cwrk-planet/live-room-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Render(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/render", r.URL.Path)
		var req renderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "s1", req.StreamerID)
		assert.Equal(t, "base.mp4", req.BaseVideo)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"video_path":"videos/s1/123.mp4"}`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Timeout: time.Second})
	path, err := c.Render(context.Background(), domain.Streamer{ID: "s1", BaseVideo: "base.mp4"}, "hello")
	require.NoError(t, err)
	assert.Equal(t, "videos/s1/123.mp4", path)
}

func TestClient_RenderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"tts failed"}`))
	}))
	defer srv.Close()

	_, err := New(Config{URL: srv.URL, Timeout: time.Second}).Render(context.Background(), domain.Streamer{}, "x")
	require.ErrorIs(t, err, domain.ErrDownstreamUnavailable)
	assert.Contains(t, err.Error(), "tts failed")
}
