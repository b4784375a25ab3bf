// Package dighuman renders digital-human videos for generated narration.
package dighuman

import (
	"context"
	"fmt"
	"time"

	"github.com/cwrk-planet/live-room-service/internal/domain"

	"github.com/go-resty/resty/v2"
)

type Config struct {
	URL     string
	Timeout time.Duration
}

type Client struct {
	http *resty.Client
}

func New(cfg Config) *Client {
	c := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

type renderRequest struct {
	StreamerID string `json:"streamer_id"`
	BaseVideo  string `json:"base_video"`
	Text       string `json:"text"`
}

type renderResponse struct {
	VideoPath string `json:"video_path"`
	Error     string `json:"error,omitempty"`
}

// Render возвращает путь к готовому ролику.
func (c *Client) Render(ctx context.Context, s domain.Streamer, text string) (string, error) {
	var out renderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(renderRequest{StreamerID: s.ID, BaseVideo: s.BaseVideo, Text: text}).
		SetResult(&out).
		SetError(&out).
		Post("/render")
	if err != nil {
		return "", fmt.Errorf("%w: render: %v", domain.ErrDownstreamUnavailable, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: render: %s %s", domain.ErrDownstreamUnavailable, resp.Status(), out.Error)
	}
	if out.VideoPath == "" {
		return "", fmt.Errorf("%w: render: empty video path", domain.ErrDownstreamUnavailable)
	}
	return out.VideoPath, nil
}
