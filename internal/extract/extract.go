// Package extract turns a document into validated structured notes.
//
// One Extract call makes exactly one request to the inference service. The
// response must be a JSON object with a notes array; anything else fails the
// whole call with a *MalformedResponseError. Each record is then canonicalized,
// normalized and bound on its own, so one bad record never discards the rest.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/notewise/internal/normalize"
	"github.com/jackzampolin/notewise/internal/notes"
	"github.com/jackzampolin/notewise/internal/prompts"
	"github.com/jackzampolin/notewise/internal/prompts/extraction"
	"github.com/jackzampolin/notewise/internal/providers"
)

// Default request settings.
const (
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 4096
)

// Config configures an Extractor.
type Config struct {
	Model       string        // empty uses the client's default model
	Temperature float64       // zero uses DefaultTemperature
	MaxTokens   int           // zero uses DefaultMaxTokens
	Timeout     time.Duration // per request; zero leaves it to ctx
	Instruction string        // empty uses extraction.DefaultInstruction

	// Prompts resolves user overrides of the extraction prompts. Nil uses
	// the embedded prompts.
	Prompts *prompts.Resolver
	Logger  *slog.Logger
}

// Extractor runs extraction calls. It holds no per-call state and is safe for
// concurrent use.
type Extractor struct {
	client   providers.LLMClient
	cfg      Config
	logger   *slog.Logger
	format   *providers.ResponseFormat
	envelope *jsonschema.Schema
}

// New creates an Extractor. A nil client is a configuration error.
func New(client providers.LLMClient, cfg Config) (*Extractor, error) {
	if client == nil {
		return nil, &providers.ConfigurationError{
			Provider: "extract",
			Setting:  "llm client",
			Reason:   "no inference service configured",
		}
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Instruction == "" {
		cfg.Instruction = extraction.DefaultInstruction
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	format, err := extraction.ResponseFormat()
	if err != nil {
		return nil, err
	}
	envelopeRaw, err := json.Marshal(extraction.EnvelopeSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope schema: %w", err)
	}
	envelope, err := providers.CompileSchema(envelopeRaw)
	if err != nil {
		return nil, err
	}

	return &Extractor{
		client:   client,
		cfg:      cfg,
		logger:   logger.With("component", "extract"),
		format:   format,
		envelope: envelope,
	}, nil
}

// Extract sends src to the inference service and binds every returned record.
//
// A nil error with an empty Result means the document held no notes. Service
// failures are returned as *providers.ServiceError (ErrServiceUnavailable,
// plus ErrTimeout when ctx expired); unusable output as
// *MalformedResponseError. Nothing is retried here.
func (e *Extractor) Extract(ctx context.Context, src Source) (*Result, error) {
	if src.Empty() {
		return nil, ErrEmptySource
	}

	requestID := uuid.New().String()
	log := e.logger.With("request_id", requestID, "source", src.Name, "kind", src.Kind())

	req := &providers.ChatRequest{
		Messages:       e.messages(src),
		Model:          e.cfg.Model,
		Temperature:    e.cfg.Temperature,
		MaxTokens:      e.cfg.MaxTokens,
		Timeout:        e.cfg.Timeout,
		ResponseFormat: e.format,
		RequestID:      requestID,
	}

	log.Debug("extraction request", "model", req.Model, "images", len(src.Images))
	chat, err := e.client.Chat(ctx, req)
	if err != nil {
		log.Warn("extraction request failed", "error", err)
		return nil, fmt.Errorf("extraction request %s: %w", requestID, err)
	}

	records, err := e.decodeEnvelope(chat)
	if err != nil {
		log.Warn("malformed extraction response", "error", err, "content_length", len(chat.Content))
		return nil, err
	}

	result := &Result{
		Source:           src.Name,
		RequestID:        requestID,
		Provider:         chat.Provider,
		Model:            chat.ModelUsed,
		PromptTokens:     chat.PromptTokens,
		CompletionTokens: chat.CompletionTokens,
		ExecutionTime:    chat.ExecutionTime,
		Outcomes:         make([]Outcome, 0, len(records)),
	}
	for i, raw := range records {
		outcome := e.bindRecord(i, raw, log)
		result.Outcomes = append(result.Outcomes, outcome)
	}

	log.Info("extraction complete",
		"model", result.Model,
		"records", len(result.Outcomes),
		"notes", len(result.Notes()),
		"invalid", len(result.Errors()),
		"prompt_tokens", result.PromptTokens,
		"completion_tokens", result.CompletionTokens,
	)
	return result, nil
}

func (e *Extractor) messages(src Source) []providers.Message {
	system := e.cfg.Prompts.Text(extraction.SystemPromptKey, extraction.SystemPrompt())
	userTmpl := e.cfg.Prompts.Text(extraction.UserPromptKey, "")

	var user string
	if userTmpl == "" {
		user = extraction.UserPrompt(e.cfg.Instruction, src.Text)
	} else {
		user = extraction.RenderUserPrompt(userTmpl, e.cfg.Instruction, src.Text)
	}

	return []providers.Message{
		providers.SystemMessage(system),
		providers.UserMessage(user, src.Images...),
	}
}

// decodeEnvelope checks the response against the envelope schema and returns
// the raw records. Numbers are kept as json.Number so that coercion sees the
// generator's exact digits.
func (e *Extractor) decodeEnvelope(chat *providers.ChatResult) ([]json.RawMessage, error) {
	parsed := chat.ParsedJSON
	if len(parsed) == 0 {
		var err error
		parsed, err = providers.ParseStructuredJSON(chat.Content)
		if err != nil {
			return nil, &MalformedResponseError{Content: chat.Content, Err: err}
		}
	}

	var doc any
	if err := json.Unmarshal(parsed, &doc); err != nil {
		return nil, &MalformedResponseError{Content: chat.Content, Err: err}
	}
	if err := e.envelope.Validate(doc); err != nil {
		return nil, &MalformedResponseError{
			Content: chat.Content,
			Err:     fmt.Errorf("response does not match envelope: %w", err),
		}
	}

	var envelope struct {
		Notes []json.RawMessage `json:"notes"`
	}
	if err := json.Unmarshal(parsed, &envelope); err != nil {
		return nil, &MalformedResponseError{Content: chat.Content, Err: err}
	}
	return envelope.Notes, nil
}

// bindRecord runs one record through canonicalize, normalize and bind.
func (e *Extractor) bindRecord(index int, raw json.RawMessage, log *slog.Logger) Outcome {
	outcome := Outcome{Index: index}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		outcome.Err = &notes.ValidationError{
			Issues: []notes.Issue{{Field: "record", Reason: err.Error()}},
		}
		return outcome
	}

	record, ok := value.(map[string]any)
	if !ok {
		outcome.Err = &notes.ValidationError{
			Issues: []notes.Issue{{Field: "record", Reason: fmt.Sprintf("expected an object, got %s", jsonKind(value))}},
			Raw:    map[string]any{"value": value},
		}
		log.Debug("record is not an object", "index", index)
		return outcome
	}

	canonical := notes.Canonicalize(record)
	normalized, corrections := normalize.RecordWithCorrections(canonical)
	for _, c := range corrections {
		log.Debug("normalized rate", "index", index, "field", c.Field, "from", c.From, "to", c.To)
	}
	outcome.Corrections = corrections

	note, err := notes.Bind(normalized)
	if err != nil {
		verr, ok := err.(*notes.ValidationError)
		if !ok {
			verr = &notes.ValidationError{Issues: []notes.Issue{{Field: "record", Reason: err.Error()}}}
		}
		// Report the record as the generator produced it.
		verr.Raw = record
		outcome.Err = verr
		log.Debug("record failed validation", "index", index, "error", verr)
		return outcome
	}

	outcome.Note = &note
	return outcome
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}
