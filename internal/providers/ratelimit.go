package providers

import (
	"context"
	"errors"
	"sync"
	"time"
)

// RateLimiter is a token bucket refilled continuously over a one minute
// window.
type RateLimiter struct {
	mu sync.Mutex

	perMinute  int
	tokens     float64
	lastUpdate time.Time
	now        func() time.Time

	consumed int64
	waited   time.Duration
	last429  time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	TokensAvailable int           `json:"tokens_available" yaml:"tokens_available"`
	TokensLimit     int           `json:"tokens_limit" yaml:"tokens_limit"`
	TotalConsumed   int64         `json:"total_consumed" yaml:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited" yaml:"total_waited"`
	Last429Time     time.Time     `json:"last_429_time,omitempty" yaml:"last_429_time,omitempty"`
}

// NewRateLimiter creates a limiter allowing requestsPerMinute calls, with a
// full bucket to start.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &RateLimiter{
		perMinute:  requestsPerMinute,
		tokens:     float64(requestsPerMinute),
		lastUpdate: time.Now(),
		now:        time.Now,
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()
		if r.tokens >= 1 {
			r.tokens--
			r.consumed++
			r.mu.Unlock()
			return nil
		}
		wait := r.untilToken()
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
			r.mu.Lock()
			r.waited += wait
			r.mu.Unlock()
		}
	}
}

// TryConsume takes a token if one is available.
func (r *RateLimiter) TryConsume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()
	if r.tokens >= 1 {
		r.tokens--
		r.consumed++
		return true
	}
	return false
}

// Record429 notes a rate-limit response. A non-zero retryAfter drains the
// bucket so callers back off.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last429 = r.now()
	if retryAfter > 0 {
		r.tokens = 0
	}
}

// Status returns current limiter state.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()
	return RateLimiterStatus{
		TokensAvailable: int(r.tokens),
		TokensLimit:     r.perMinute,
		TotalConsumed:   r.consumed,
		TotalWaited:     r.waited,
		Last429Time:     r.last429,
	}
}

// refill must be called with mu held.
func (r *RateLimiter) refill() {
	now := r.now()
	elapsed := now.Sub(r.lastUpdate).Seconds()
	r.lastUpdate = now

	r.tokens += elapsed * r.rate()
	if max := float64(r.perMinute); r.tokens > max {
		r.tokens = max
	}
}

func (r *RateLimiter) rate() float64 {
	return float64(r.perMinute) / 60.0
}

func (r *RateLimiter) untilToken() time.Duration {
	need := 1 - r.tokens
	return time.Duration(need / r.rate() * float64(time.Second))
}

// RateLimitedClient waits for a limiter token before every call and drains
// the limiter when the service answers 429.
type RateLimitedClient struct {
	LLMClient
	limiter *RateLimiter
}

// NewRateLimitedClient wraps client with a limiter of requestsPerMinute.
func NewRateLimitedClient(client LLMClient, requestsPerMinute int) *RateLimitedClient {
	return &RateLimitedClient{LLMClient: client, limiter: NewRateLimiter(requestsPerMinute)}
}

// Limiter returns the wrapped limiter.
func (c *RateLimitedClient) Limiter() *RateLimiter {
	return c.limiter
}

// Chat implements LLMClient.
func (c *RateLimitedClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ServiceError{Provider: c.Name(), Message: "waiting for rate limit", Timeout: true, Err: err}
	}
	result, err := c.LLMClient.Chat(ctx, req)
	var se *ServiceError
	if errors.As(err, &se) && se.StatusCode == 429 {
		c.limiter.Record429(se.RetryAfter)
	}
	return result, err
}
