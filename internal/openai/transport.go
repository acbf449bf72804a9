package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1"

const maxResponseBodyBytes = 8 * 1024 * 1024

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func newDefaultHTTPClient() *http.Client {
	return &http.Client{}
}

// normalizeBaseURL reduces any accepted base URL form to the "/v1" root the
// per-call paths are appended to.
func normalizeBaseURL(base string) string {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		return defaultBaseURL
	}

	trimmed = strings.TrimRight(trimmed, "/")
	if strings.HasSuffix(trimmed, "/v1") {
		return trimmed
	}
	return trimmed + "/v1"
}

func marshalRequest(req any) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return payload, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if len(body) > maxResponseBodyBytes {
		return fmt.Errorf("read response body: exceeds limit (%d bytes)", maxResponseBodyBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(body)
		return &httpStatusError{statusCode: resp.StatusCode, message: apiErr}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if apiErr := embeddedError(out); apiErr != "" {
		return fmt.Errorf("api error: %s", apiErr)
	}
	return nil
}

func embeddedError(out any) string {
	switch resp := out.(type) {
	case *chatResponse:
		if resp.Error != nil {
			return strings.TrimSpace(resp.Error.Message)
		}
	case *embedResponse:
		if resp.Error != nil {
			return strings.TrimSpace(resp.Error.Message)
		}
	}
	return ""
}

func decodeAPIError(body []byte) string {
	var wrapped struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error != nil && strings.TrimSpace(wrapped.Error.Message) != "" {
		return strings.TrimSpace(wrapped.Error.Message)
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty error response"
	}
	return text
}

type httpStatusError struct {
	statusCode int
	message    string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("openai status %d: %s", e.statusCode, e.message)
}

func isRetriableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.statusCode == http.StatusTooManyRequests || statusErr.statusCode >= 500
	}
	return true
}

func backoffDuration(attempt int) time.Duration {
	base := 500.0
	exp := math.Pow(2, float64(attempt))
	ms := int(base * exp)
	if ms > 4000 {
		ms = 4000
	}
	return time.Duration(ms) * time.Millisecond
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
