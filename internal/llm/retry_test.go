package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func TestRetry_AttemptCounts(t *testing.T) {
	ok := MockResponse{Content: json.RawMessage(`{"reality_check":"ok"}`)}
	down := MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}}
	limited := MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}}
	bad := MockResponse{Err: &ErrInvalidResponse{Content: json.RawMessage(`bad`), Err: errors.New("bad")}}
	cut := MockResponse{Err: &ErrMaxTokensExceeded{Content: json.RawMessage(`{"reality`)}}
	other := MockResponse{Err: errors.New("connection reset")}
	denied := MockResponse{Err: &ErrAuth{Err: errors.New("401")}}

	tests := []struct {
		name      string
		responses []MockResponse
		wantCalls int
		wantErr   bool
	}{
		{"first attempt succeeds", []MockResponse{ok}, 1, false},
		{"outage then success", []MockResponse{down, ok}, 2, false},
		{"rate limit then success", []MockResponse{limited, ok}, 2, false},
		{"network error then success", []MockResponse{other, ok}, 2, false},
		{"all attempts fail", []MockResponse{down, down, down, ok}, 3, true},
		{"truncation is final", []MockResponse{cut, ok}, 1, true},
		{"bad credentials are final", []MockResponse{denied, ok}, 1, true},
		{"invalid reply retried once", []MockResponse{bad, bad, ok}, 2, true},
		{"invalid reply then success", []MockResponse{bad, ok}, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.responses...)
			resp, err := WithRetry(mock, retryConfig()).Generate(context.Background(), Request{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(resp.Content) != string(ok.Content) {
				t.Fatalf("unexpected content: %s", resp.Content)
			}
			if mock.CallCount() != tt.wantCalls {
				t.Fatalf("expected %d calls, got %d", tt.wantCalls, mock.CallCount())
			}
		})
	}
}

func TestRetry_TruncationErrorSurvivesWrapping(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrMaxTokensExceeded{Content: json.RawMessage(`{}`)}})
	_, err := WithRetry(mock, retryConfig()).Generate(context.Background(), Request{})
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("expected ErrMaxTokensExceeded, got: %T", err)
	}
}

func TestRetry_BackoffCapsRetryAfter(t *testing.T) {
	r := &RetryProvider{config: retryConfig()}
	got := r.backoff(0, &ErrRateLimit{RetryAfter: time.Minute})
	if got != retryConfig().MaxWait {
		t.Fatalf("backoff = %v, want %v", got, retryConfig().MaxWait)
	}
	if got := r.backoff(5, errors.New("x")); got > retryConfig().MaxWait*12/10 {
		t.Fatalf("backoff %v exceeds jittered MaxWait", got)
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(fmt.Errorf("wrapped: %w", &ErrRateLimit{})) {
		t.Error("rate limit should be transient")
	}
	if !IsTransient(&ErrProviderUnavailable{}) {
		t.Error("outage should be transient")
	}
	if IsTransient(&ErrInvalidResponse{}) || IsTransient(&ErrMaxTokensExceeded{}) || IsTransient(nil) {
		t.Error("invalid, truncated and nil errors are not transient")
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
		MockResponse{Content: json.RawMessage(`{"ok":true}`)},
	)
	p := WithRetry(mock, retryConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately.

	_, err := p.Generate(ctx, Request{})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRetry_RateLimitRespectsRetryAfter(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrRateLimit{RetryAfter: 1 * time.Millisecond, Err: errors.New("429")}},
		MockResponse{Content: json.RawMessage(`{"ok":true}`)},
	)
	p := WithRetry(mock, retryConfig())

	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"ok":true}` {
		t.Fatalf("unexpected content: %s", resp.Content)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.CallCount())
	}
}

func TestRetry_ModelIDDelegates(t *testing.T) {
	mock := NewMockProvider()
	p := WithRetry(mock, retryConfig())
	if p.ModelID() != "mock" {
		t.Fatalf("expected 'mock', got %q", p.ModelID())
	}
}
