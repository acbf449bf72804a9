package openai

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"
)

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: defaultBaseURL},
		{name: "base", in: "https://api.openai.com", want: "https://api.openai.com/v1"},
		{name: "v1", in: "https://api.openai.com/v1", want: "https://api.openai.com/v1"},
		{name: "trailing slash", in: "https://proxy.example/v1/", want: "https://proxy.example/v1"},
		{name: "proxy root", in: "https://proxy.example", want: "https://proxy.example/v1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizeBaseURL(tc.in); got != tc.want {
				t.Fatalf("normalizeBaseURL(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestIsRetriableError(t *testing.T) {
	if isRetriableError(context.Canceled) {
		t.Fatal("context canceled should not be retriable")
	}
	if isRetriableError(context.DeadlineExceeded) {
		t.Fatal("context deadline should not be retriable")
	}
	if !isRetriableError(&httpStatusError{statusCode: 500}) {
		t.Fatal("5xx should be retriable")
	}
	if !isRetriableError(&httpStatusError{statusCode: 429}) {
		t.Fatal("429 should be retriable")
	}
	if isRetriableError(&httpStatusError{statusCode: 400}) {
		t.Fatal("4xx should not be retriable")
	}
	if !isRetriableError(fmt.Errorf("openai request failed: %w", &net.DNSError{IsTemporary: true})) {
		t.Fatal("network errors should be retriable")
	}
}

func TestBackoffDurationIsCapped(t *testing.T) {
	if got := backoffDuration(0); got != 500*time.Millisecond {
		t.Fatalf("attempt 0 backoff=%v", got)
	}
	if got := backoffDuration(1); got != 1000*time.Millisecond {
		t.Fatalf("attempt 1 backoff=%v", got)
	}
	if got := backoffDuration(10); got != 4000*time.Millisecond {
		t.Fatalf("attempt 10 backoff=%v, want cap", got)
	}
}
