package providers

import (
	"context"
	"encoding/json"
	"time"
)

// LLMClient sends chat completions to one configured model service.
// Extraction batches call it from several goroutines at once.
type LLMClient interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)
	// Name is the registry name of the client, e.g. "openai".
	Name() string
}

// Message roles understood by every client.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation. Images are raw bytes (PNG, JPEG or
// whatever the source held) and only make sense on user turns.
type Message struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  [][]byte `json:"-"`
}

// ResponseFormat asks the model for JSON. Type is "json_schema", with the
// wrapped schema in JSONSchema, or "json_object".
type ResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

type ChatRequest struct {
	Messages []Message `json:"messages"`
	// Model overrides the client's default model.
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	// Timeout bounds this one call on top of ctx.
	Timeout        time.Duration   `json:"-"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	RequestID      string          `json:"-"`
}

// ChatResult carries the model reply and its accounting. When the request set
// a ResponseFormat, ParsedJSON holds the recovered JSON value, or stays nil
// with ErrorType "json_parse" when none could be found.
type ChatResult struct {
	Content    string          `json:"content"`
	ParsedJSON json.RawMessage `json:"parsed_json,omitempty"`

	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	TotalTokens      int           `json:"total_tokens"`
	ExecutionTime    time.Duration `json:"execution_time"`

	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`
	RequestID string `json:"request_id"`

	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user turn, attaching any page or term sheet images.
func UserMessage(content string, images ...[]byte) Message {
	return Message{Role: RoleUser, Content: content, Images: images}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
