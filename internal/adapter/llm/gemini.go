package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	TopP        float32
}

type GeminiClient struct {
	client *genai.Client
	model  string
	temp   float32
	topP   float32
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &GeminiClient{client: client, model: cfg.Model, temp: cfg.Temperature, topP: cfg.TopP}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, system string, msgs []Message) (string, error) {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.Role(role)))
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(c.temp),
		TopP:              genai.Ptr(c.topP),
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("generate content: empty response")
	}
	return text, nil
}
