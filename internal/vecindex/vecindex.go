// Package vecindex queries a hosted vector index over its HTTP /query
// endpoint. The assistant uses it to find scenes semantically close to a
// learner's request; the feature is optional and degrades when unconfigured.
package vecindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBodyBytes = 4 * 1024 * 1024

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Match is one scored index hit. Metadata carries whatever document fields
// were stored alongside the vector (episode id, scene number, text).
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

type Client struct {
	url        string
	apiKey     string
	timeout    time.Duration
	httpClient httpDoer
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("index url is required")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("timeout must be > 0")
	}
	return &Client{
		url:        normalizeQueryURL(cfg.URL),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
	}, nil
}

func normalizeQueryURL(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if strings.HasSuffix(trimmed, "/query") {
		return trimmed
	}
	return trimmed + "/query"
}

type queryRequest struct {
	Vector          []float64      `json:"vector"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
	Message string  `json:"message"`
}

// Query returns up to topK matches for the vector, best first. A nil filter
// searches the whole index.
func (c *Client) Query(ctx context.Context, vector []float64, topK int, filter map[string]any) ([]Match, error) {
	if len(vector) == 0 {
		return nil, errors.New("query vector is empty")
	}
	if topK <= 0 {
		topK = 5
	}

	payload, err := json.Marshal(queryRequest{
		Vector:          vector,
		TopK:            topK,
		Filter:          filter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("index request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(body) > maxResponseBodyBytes {
		return nil, fmt.Errorf("read response body: exceeds limit (%d bytes)", maxResponseBodyBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("index status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded queryResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return decoded.Matches, nil
}
