// Package asr is a client for the speech recognition service.
package asr

import (
	"context"
	"fmt"
	"time"

	"github.com/cwrk-planet/live-room-service/internal/domain"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

type Config struct {
	URL     string
	Timeout time.Duration
}

type Client struct {
	http *resty.Client
	url  string
}

func New(cfg Config) *Client {
	c := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: c, url: cfg.URL}
}

type request struct {
	UserID    string `json:"user_id"`
	RequestID string `json:"request_id"`
	WavPath   string `json:"wav_path"`
}

type response struct {
	UserID    string `json:"user_id"`
	RequestID string `json:"request_id"`
	Status    string `json:"status"` // success|fail
	Result    string `json:"result"`
}

// Transcribe отправляет ссылку на загруженный файл и ждёт текст.
func (c *Client) Transcribe(ctx context.Context, userID, audioRef string) (string, error) {
	req := request{UserID: userID, RequestID: uuid.NewString(), WavPath: audioRef}

	var out response
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post(c.url)
	if err != nil {
		return "", fmt.Errorf("%w: asr: %v", domain.ErrDownstreamUnavailable, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: asr: %s", domain.ErrDownstreamUnavailable, resp.Status())
	}
	if out.Status != "success" {
		return "", fmt.Errorf("%w: asr: status %q", domain.ErrDownstreamUnavailable, out.Status)
	}
	if out.RequestID != "" && out.RequestID != req.RequestID {
		return "", fmt.Errorf("%w: asr: request id mismatch", domain.ErrDownstreamUnavailable)
	}
	return out.Result, nil
}
