package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

type apiError struct {
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

// APIError — ошибка, которую вернул сервер в конверте {"error": ...}.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Client — HTTP-клиент live-room API.
type Client struct {
	http *resty.Client
}

func NewClient(addr, token, userID string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(addr).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if token != "" {
		c.SetAuthToken(token)
	}
	if userID != "" {
		c.SetHeader("X-User-ID", userID)
	}
	return &Client{http: c}
}

// do выполняет запрос и возвращает поле data.
func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body any) (json.RawMessage, error) {
	var env envelope
	req := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(&env).
		SetError(&env)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() || env.Error != nil {
		e := &APIError{Status: resp.StatusCode(), Message: resp.Status()}
		if env.Error != nil {
			e.Message = env.Error.Message
			if code, ok := env.Error.Meta["code"].(string); ok {
				e.Code = code
			}
		}
		return nil, e
	}
	return env.Data, nil
}

func roomPath(id, action string) string {
	return "/streaming-room/" + id + "/" + action
}

func (c *Client) Start(ctx context.Context, room string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, roomPath(room, "start"), nil, nil)
}

func (c *Client) Stop(ctx context.Context, room string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, roomPath(room, "offline"), nil, nil)
}

func (c *Client) Next(ctx context.Context, room string, gen *uint64) (json.RawMessage, error) {
	var q map[string]string
	if gen != nil {
		q = map[string]string{"generation": fmt.Sprint(*gen)}
	}
	return c.do(ctx, http.MethodPost, roomPath(room, "next-product"), q, nil)
}

func (c *Client) Status(ctx context.Context, room string, since int64) (json.RawMessage, error) {
	var q map[string]string
	if since > 0 {
		q = map[string]string{"since": fmt.Sprint(since)}
	}
	return c.do(ctx, http.MethodGet, roomPath(room, "live-info"), q, nil)
}

func (c *Client) Chat(ctx context.Context, room, userID, userName, text string) (json.RawMessage, error) {
	body := map[string]string{"user_id": userID, "user_name": userName, "text": text}
	return c.do(ctx, http.MethodPost, roomPath(room, "chat"), nil, body)
}

func (c *Client) List(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/streaming-room/live", nil, nil)
}
