package providers

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_TryConsume(t *testing.T) {
	rl := NewRateLimiter(3)

	for i := 0; i < 3; i++ {
		if !rl.TryConsume() {
			t.Fatalf("TryConsume() #%d = false, want true", i+1)
		}
	}
	if rl.TryConsume() {
		t.Error("TryConsume() on empty bucket = true")
	}

	status := rl.Status()
	if status.TokensLimit != 3 || status.TotalConsumed != 3 || status.TokensAvailable != 0 {
		t.Errorf("status = %+v", status)
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(60)
	rl.now = func() time.Time { return now }
	rl.lastUpdate = now

	for rl.TryConsume() {
	}
	now = now.Add(2 * time.Second)
	if got := rl.Status().TokensAvailable; got != 2 {
		t.Errorf("tokens after 2s = %d, want 2", got)
	}

	now = now.Add(time.Hour)
	if got := rl.Status().TokensAvailable; got != 60 {
		t.Errorf("tokens should cap at limit, got %d", got)
	}
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	rl := NewRateLimiter(1)
	rl.TryConsume()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestRateLimiter_Record429(t *testing.T) {
	rl := NewRateLimiter(10)
	rl.Record429(0)
	if rl.Status().TokensAvailable != 10 {
		t.Error("Record429 without retry-after should keep tokens")
	}
	if rl.Status().Last429Time.IsZero() {
		t.Error("Last429Time not set")
	}
	rl.Record429(time.Second)
	if rl.Status().TokensAvailable != 0 {
		t.Error("Record429 with retry-after should drain tokens")
	}
}

func TestRateLimitedClient(t *testing.T) {
	t.Run("passes through", func(t *testing.T) {
		mock := NewMockClient()
		c := NewRateLimitedClient(mock, 10)

		res, err := c.Chat(context.Background(), &ChatRequest{Messages: []Message{UserMessage("hi")}})
		if err != nil || res.Content != "mock response" {
			t.Fatalf("Chat() = %v, %v", res, err)
		}
		if c.Name() != MockClientName || c.Limiter().Status().TotalConsumed != 1 {
			t.Errorf("name = %s, status = %+v", c.Name(), c.Limiter().Status())
		}
	})

	t.Run("drains on 429", func(t *testing.T) {
		mock := NewMockClient()
		mock.Err = &ServiceError{Provider: "mock", StatusCode: 429, RetryAfter: time.Second}
		c := NewRateLimitedClient(mock, 10)

		_, err := c.Chat(context.Background(), &ChatRequest{})
		if !errors.Is(err, ErrServiceUnavailable) {
			t.Fatalf("error = %v", err)
		}
		if c.Limiter().Status().TokensAvailable != 0 {
			t.Error("limiter should be drained after 429")
		}
	})

	t.Run("cancelled wait is a timeout", func(t *testing.T) {
		mock := NewMockClient()
		c := NewRateLimitedClient(mock, 1)
		c.Limiter().TryConsume()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.Chat(ctx, &ChatRequest{})
		if !errors.Is(err, ErrTimeout) || !IsRetryable(err) {
			t.Errorf("error = %v", err)
		}
		if mock.RequestCount() != 0 {
			t.Error("request should not reach the client")
		}
	})
}
