package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 25 * time.Second
)

// Client wraps outbound calls to the upstream chat-completion API with a
// hard per-request timeout. It knows nothing about admission tickets; the
// caller is expected to hold one for the duration of each call.
type Client struct {
	api         *openai.Client
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	temperature float32
	timeout     time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// WithTimeout overrides the per-request wall-clock deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient overrides the HTTP client used for the streaming path.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Client for the given credential, model and sampling
// temperature.
func NewClient(apiKey, model string, temperature float32, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		model:       model,
		temperature: temperature,
		timeout:     defaultTimeout,
		httpClient:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = c.baseURL
	c.api = openai.NewClientWithConfig(cfg)
	return c
}

// Complete sends a buffered chat completion request and returns the full
// reply text. The configured timeout bounds the whole call; hitting it
// yields ErrTimeout, a non-2xx upstream status yields *UpstreamError.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    toAPIMessages(messages),
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", translateError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Status: http.StatusOK, Body: "no choices in response"}
	}
	return resp.Choices[0].Message.Content, nil
}

// Probe issues a lightweight authenticated call used by the liveness
// monitor. The caller supplies the (short) probe deadline via ctx.
func (c *Client) Probe(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return translateError(err)
	}
	return nil
}

func toAPIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return out
}

// translateError maps transport and API errors onto the gateway taxonomy.
func translateError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &UpstreamError{Status: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return err
}
