package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"
)

const MockClientName = "mock"

// MockClient answers chats from canned text without a network. Tests set the
// exported fields before the first call.
type MockClient struct {
	Latency time.Duration
	// Err fails every call.
	Err error
	// FailAfter fails every call after the first FailAfter; zero never fails.
	FailAfter    int
	ResponseText string
	// ResponseJSON replaces the reply for requests with a ResponseFormat.
	ResponseJSON json.RawMessage
	// Responses are handed out one per call; the last one repeats.
	Responses []string

	mu       sync.Mutex
	requests []*ChatRequest
}

func NewMockClient() *MockClient {
	return &MockClient{ResponseText: "mock response"}
}

func (c *MockClient) Name() string { return MockClientName }

func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	c.mu.Lock()
	c.requests = append(c.requests, req)
	n := len(c.requests)
	c.mu.Unlock()

	result := &ChatResult{RequestID: req.RequestID, Provider: MockClientName, ModelUsed: req.Model}
	if result.RequestID == "" {
		result.RequestID = fmt.Sprintf("mock-%d", n)
	}
	fail := func(kind string, err error) (*ChatResult, error) {
		result.ErrorType, result.ErrorMessage = kind, err.Error()
		return result, err
	}

	switch {
	case c.Err != nil:
		return fail("mock_failure", c.Err)
	case c.FailAfter > 0 && n > c.FailAfter:
		return fail("mock_failure", &ServiceError{
			Provider: MockClientName,
			Message:  fmt.Sprintf("mock client failed after %d requests", c.FailAfter),
		})
	}

	if c.Latency > 0 {
		timer := time.NewTimer(c.Latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return fail("context_cancelled", &ServiceError{Provider: MockClientName, Timeout: true, Err: ctx.Err()})
		}
	}

	content := c.reply(n, req)
	result.Success = true
	result.Content = content
	result.ExecutionTime = time.Since(start)

	// Four characters to a token is close enough for accounting tests.
	for _, m := range req.Messages {
		result.PromptTokens += len(m.Content) / 4
	}
	result.CompletionTokens = len(content) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens

	if req.ResponseFormat != nil && content != "" {
		if parsed, err := ParseStructuredJSON(content); err == nil {
			result.ParsedJSON = parsed
		}
	}
	return result, nil
}

// reply picks the canned content for the nth call.
func (c *MockClient) reply(n int, req *ChatRequest) string {
	if req.ResponseFormat != nil && len(c.ResponseJSON) > 0 {
		return string(c.ResponseJSON)
	}
	if len(c.Responses) == 0 {
		return c.ResponseText
	}
	return c.Responses[min(n, len(c.Responses))-1]
}

func (c *MockClient) RequestCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.requests))
}

// LastRequest is nil before the first call.
func (c *MockClient) LastRequest() *ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return nil
	}
	return c.requests[len(c.requests)-1]
}

func (c *MockClient) Requests() []*ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.requests)
}

// Reset forgets past requests, restarting Responses from the first.
func (c *MockClient) Reset() {
	c.mu.Lock()
	c.requests = nil
	c.mu.Unlock()
}

var _ LLMClient = (*MockClient)(nil)
