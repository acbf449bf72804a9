// Package openai is a minimal OpenAI-compatible API client covering the two
// calls the assistant needs: chat completions and embeddings.
package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	EmbedModel string
	Timeout    time.Duration
	MaxRetries int
}

type Client struct {
	apiKey     string
	baseURL    string
	model      string
	embedModel string
	timeout    time.Duration
	maxRetries int
	httpClient httpDoer
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("model is required")
	}
	if strings.TrimSpace(cfg.EmbedModel) == "" {
		return nil, errors.New("embedding model is required")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("timeout must be > 0")
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    normalizeBaseURL(cfg.BaseURL),
		model:      strings.TrimSpace(cfg.Model),
		embedModel: strings.TrimSpace(cfg.EmbedModel),
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		httpClient: newDefaultHTTPClient(),
	}, nil
}

// Complete sends one system+user exchange and returns the model's text.
// An empty completion is an error: callers always expect content.
func (c *Client) Complete(ctx context.Context, system, user string, maxTokens int, temperature float64) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	payload, err := marshalRequest(reqBody)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := c.callWithRetry(ctx, c.baseURL+"/chat/completions", payload, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion output")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty completion output")
	}
	return text, nil
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	payload, err := marshalRequest(embedRequest{Model: c.embedModel, Input: text})
	if err != nil {
		return nil, err
	}

	var resp embedResponse
	if err := c.callWithRetry(ctx, c.baseURL+"/embeddings", payload, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("empty embedding output")
	}
	return resp.Data[0].Embedding, nil
}

func (c *Client) callWithRetry(ctx context.Context, endpoint string, payload []byte, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		apiCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.doRequest(apiCtx, endpoint, payload, out)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == c.maxRetries {
			break
		}
		if !isRetriableError(err) {
			break
		}
		if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
			return err
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown openai error")
	}
	return lastErr
}
