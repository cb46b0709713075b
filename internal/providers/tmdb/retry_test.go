package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetryWithBackoff_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), DefaultRetryConfig(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryWithBackoff_SucceedsOnNthAttempt(t *testing.T) {
	var calls atomic.Int32
	err := RetryWithBackoff(context.Background(), fastRetry(3), func() error {
		if calls.Add(1) < 3 {
			return fmt.Errorf("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error after retries, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
}

func TestRetryWithBackoff_RetriesUpstreamStatus(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastRetry(3), func() error {
		calls++
		return &StatusError{Endpoint: "popular", Status: http.StatusBadGateway}
	})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusBadGateway {
		t.Fatalf("expected last StatusError, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_ClientStatusFailsImmediately(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastRetry(3), func() error {
		calls++
		return &StatusError{Endpoint: "details", Status: http.StatusUnauthorized}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryWithBackoff_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}
	err := RetryWithBackoff(ctx, cfg, func() error {
		calls++
		if calls == 1 {
			cancel()
		}
		return fmt.Errorf("connection reset")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestRetryWithBackoff_MaxDelayCap(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:  4,
		InitialDelay: 20 * time.Millisecond,
		MaxDelay:     30 * time.Millisecond,
		Multiplier:   10.0,
	}

	var timestamps []time.Time
	_ = RetryWithBackoff(context.Background(), cfg, func() error {
		timestamps = append(timestamps, time.Now())
		return fmt.Errorf("timeout")
	})

	if len(timestamps) != 4 {
		t.Fatalf("expected 4 timestamps, got %d", len(timestamps))
	}
	for i := 2; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		maxAllowed := 3 * cfg.MaxDelay
		if gap > maxAllowed {
			t.Errorf("gap[%d] = %v exceeds cap %v", i, gap, maxAllowed)
		}
	}
}

func TestRetryWithBackoff_WaitsForRetryAfter(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     200 * time.Millisecond,
		Multiplier:   2.0,
	}
	var timestamps []time.Time
	_ = RetryWithBackoff(context.Background(), cfg, func() error {
		timestamps = append(timestamps, time.Now())
		return &StatusError{Endpoint: "trending", Status: http.StatusTooManyRequests, RetryAfter: 40 * time.Millisecond}
	})
	if len(timestamps) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(timestamps))
	}
	if gap := timestamps[1].Sub(timestamps[0]); gap < 40*time.Millisecond {
		t.Fatalf("retried after %v, before the requested 40ms", gap)
	}
}

func TestRetryDelay(t *testing.T) {
	limit := time.Second
	tests := []struct {
		name    string
		err     error
		backoff time.Duration
		want    time.Duration
		ok      bool
	}{
		{"plain backoff", errors.New("connection reset"), 100 * time.Millisecond, 100 * time.Millisecond, true},
		{"backoff capped", errors.New("connection reset"), 5 * time.Second, time.Second, true},
		{"retry-after longer than backoff", &StatusError{Status: 429, RetryAfter: 500 * time.Millisecond}, 100 * time.Millisecond, 500 * time.Millisecond, true},
		{"retry-after shorter than backoff", &StatusError{Status: 503, RetryAfter: 50 * time.Millisecond}, 100 * time.Millisecond, 100 * time.Millisecond, true},
		{"retry-after beyond limit", &StatusError{Status: 429, RetryAfter: 30 * time.Second}, 100 * time.Millisecond, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := retryDelay(tt.err, tt.backoff, limit)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("retryDelay = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"empty", "", 0},
		{"seconds", "7", 7 * time.Second},
		{"negative", "-3", 0},
		{"http date", now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{"past date", now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"garbage", "soon", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.value, now); got != tt.want {
				t.Fatalf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"reset", fmt.Errorf("read: connection reset by peer"), true},
		{"rate limited", &StatusError{Status: http.StatusTooManyRequests}, true},
		{"not found", &StatusError{Status: http.StatusNotFound}, false},
		{"decode", fmt.Errorf("invalid character"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransientError(tt.err); got != tt.want {
				t.Fatalf("isTransientError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
