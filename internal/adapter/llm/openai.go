package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	RetryCount  int
	Temperature float32
	TopP        float32
}

// OpenAIClient говорит с любым OpenAI-совместимым /chat/completions
// (vLLM, LMDeploy, сам OpenAI).
type OpenAIClient struct {
	http  *resty.Client
	model string
	temp  float32
	topP  float32
}

func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		c.SetAuthToken(cfg.APIKey)
	}
	// повторяем только сетевые ошибки и 5xx/429
	c.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}
		return r.StatusCode() == 429 || r.StatusCode() >= 500
	})

	return &OpenAIClient{http: c, model: cfg.Model, temp: cfg.Temperature, topP: cfg.TopP}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
	TopP        float32   `json:"top_p,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) Complete(ctx context.Context, system string, msgs []Message) (string, error) {
	req := chatRequest{
		Model:       c.model,
		Messages:    append([]Message{{Role: RoleSystem, Content: system}}, msgs...),
		Temperature: c.temp,
		TopP:        c.topP,
	}

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completions: %w", err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("chat completions: %s", msg)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("chat completions: no choices")
	}
	return out.Choices[0].Message.Content, nil
}
