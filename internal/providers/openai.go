package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// GeminiName is the default provider name.
	GeminiName = "gemini"
	// GeminiBaseURL is Gemini's OpenAI-compatible endpoint.
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	// GeminiDefaultModel matches the model the extraction prompts are tuned for.
	GeminiDefaultModel = "gemini-2.0-flash"

	OpenAIName         = "openai"
	OpenAIDefaultModel = "gpt-4o-mini"

	OpenRouterName    = "openrouter"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"

	defaultTimeout = 120 * time.Second
)

// OpenAIConfig holds configuration for an OpenAI-compatible chat client.
type OpenAIConfig struct {
	Name         string // Provider name used in results and errors (default "openai")
	APIKey       string
	APIKeyEnv    string // Reported when APIKey is empty
	BaseURL      string // Optional, defaults to the OpenAI API
	DefaultModel string
	Timeout      time.Duration // HTTP timeout
	HTTPClient   *http.Client  // Optional (tests)
}

// OpenAIClient implements LLMClient over any OpenAI-compatible chat
// completions endpoint using the official SDK. SDK retries are disabled:
// retry policy belongs to the caller.
type OpenAIClient struct {
	name         string
	apiKey       string
	baseURL      string
	defaultModel string
	client       openai.Client
}

// NewOpenAIClient creates a new client. A missing API key is a
// *ConfigurationError.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.Name == "" {
		cfg.Name = OpenAIName
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		setting := "api_key"
		if cfg.APIKeyEnv != "" {
			setting = cfg.APIKeyEnv
		}
		return nil, &ConfigurationError{Provider: cfg.Name, Setting: setting, Reason: "required credential is empty"}
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = OpenAIDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		name:         cfg.Name,
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		client:       openai.NewClient(opts...),
	}, nil
}

// NewGeminiClient creates a client for Gemini's OpenAI-compatible endpoint.
func NewGeminiClient(apiKey, model string) (*OpenAIClient, error) {
	if model == "" {
		model = GeminiDefaultModel
	}
	return NewOpenAIClient(OpenAIConfig{
		Name:         GeminiName,
		APIKey:       apiKey,
		APIKeyEnv:    "GOOGLE_API_KEY",
		BaseURL:      GeminiBaseURL,
		DefaultModel: model,
	})
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return c.name
}

// Model returns the configured default model.
func (c *OpenAIClient) Model() string {
	return c.defaultModel
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  c.name,
		ModelUsed: model,
	}
	fail := func(errType string, err error) (*ChatResult, error) {
		result.Success = false
		result.ErrorType = errType
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}

	params, err := c.buildParams(model, req)
	if err != nil {
		return fail("invalid_request", err)
	}

	callCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	resp, err := c.client.Chat.Completions.New(callCtx, params)
	if err != nil {
		return fail("http_error", c.mapError(callCtx, err))
	}
	if len(resp.Choices) == 0 {
		return fail("empty_response", &ServiceError{Provider: c.name, Message: "no choices in response"})
	}

	content := resp.Choices[0].Message.Content
	result.Success = true
	result.Content = content
	if resp.Model != "" {
		result.ModelUsed = resp.Model
	}
	result.PromptTokens = int(resp.Usage.PromptTokens)
	result.CompletionTokens = int(resp.Usage.CompletionTokens)
	result.TotalTokens = int(resp.Usage.TotalTokens)
	result.ExecutionTime = time.Since(start)

	// Parse JSON if structured output was requested. A parse failure is
	// recorded on the result; the caller decides whether it is fatal.
	if req.ResponseFormat != nil && content != "" {
		parsed, perr := ParseStructuredJSON(content)
		if perr != nil {
			result.ErrorType = "json_parse"
			result.ErrorMessage = perr.Error()
		} else {
			result.ParsedJSON = parsed
		}
	}

	return result, nil
}

func (c *OpenAIClient) buildParams(model string, req *ChatRequest) (openai.ChatCompletionNewParams, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		case RoleUser, "":
			if len(m.Images) == 0 {
				params.Messages = append(params.Messages, openai.UserMessage(m.Content))
				continue
			}
			parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(m.Content)}
			for _, img := range m.Images {
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: imageDataURL(img),
				}))
			}
			params.Messages = append(params.Messages, openai.UserMessage(parts))
		default:
			return params, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}

	if req.ResponseFormat != nil {
		format, err := responseFormatParam(req.ResponseFormat)
		if err != nil {
			return params, err
		}
		params.ResponseFormat = format
	}
	return params, nil
}

// jsonSchemaWrapper is the {"name","strict","schema"} object carried in
// ResponseFormat.JSONSchema.
type jsonSchemaWrapper struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Strict      *bool          `json:"strict,omitempty"`
	Schema      map[string]any `json:"schema"`
}

func responseFormatParam(rf *ResponseFormat) (openai.ChatCompletionNewParamsResponseFormatUnion, error) {
	var out openai.ChatCompletionNewParamsResponseFormatUnion
	switch rf.Type {
	case "json_object":
		out.OfJSONObject = &shared.ResponseFormatJSONObjectParam{}
	case "json_schema":
		var w jsonSchemaWrapper
		if err := json.Unmarshal(rf.JSONSchema, &w); err != nil {
			return out, fmt.Errorf("invalid json_schema response format: %w", err)
		}
		if w.Schema == nil {
			return out, fmt.Errorf("json_schema response format has no schema")
		}
		param := shared.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   w.Name,
			Schema: w.Schema,
		}
		if w.Description != "" {
			param.Description = openai.String(w.Description)
		}
		if w.Strict != nil {
			param.Strict = openai.Bool(*w.Strict)
		}
		out.OfJSONSchema = &shared.ResponseFormatJSONSchemaParam{JSONSchema: param}
	default:
		return out, fmt.Errorf("unsupported response format type %q", rf.Type)
	}
	return out, nil
}

// imageDataURL encodes an image as a data URL, sniffing its content type.
func imageDataURL(img []byte) string {
	mime := http.DetectContentType(img)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img)
}

// mapError converts SDK and transport errors into *ServiceError.
func (c *OpenAIClient) mapError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return &ServiceError{Provider: c.name, Timeout: true, Err: err}
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		se := &ServiceError{
			Provider:   c.name,
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
		if apiErr.Response != nil {
			se.RetryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		return se
	}

	return &ServiceError{Provider: c.name, Err: err}
}

var _ LLMClient = (*OpenAIClient)(nil)
