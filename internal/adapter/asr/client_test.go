package asr

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

func asrServer(t *testing.T, status string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "uploads/r1/q.wav", req.WavPath)
		assert.Equal(t, "u42", req.UserID)
		assert.NotEmpty(t, req.RequestID)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response{RequestID: req.RequestID, Status: status, Result: "how much is it"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Transcribe(t *testing.T) {
	srv := asrServer(t, "success")

	text, err := New(Config{URL: srv.URL + "/asr", Timeout: time.Second}).Transcribe(context.Background(), "u42", "uploads/r1/q.wav")
	require.NoError(t, err)
	assert.Equal(t, "how much is it", text)
}

func TestClient_TranscribeFailStatus(t *testing.T) {
	srv := asrServer(t, "fail")

	_, err := New(Config{URL: srv.URL, Timeout: time.Second}).Transcribe(context.Background(), "u42", "uploads/r1/q.wav")
	assert.ErrorIs(t, err, domain.ErrDownstreamUnavailable)
}

func TestClient_TranscribeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(Config{URL: srv.URL, Timeout: time.Second}).Transcribe(context.Background(), "u42", "x.wav")
	assert.ErrorIs(t, err, domain.ErrDownstreamUnavailable)
}
