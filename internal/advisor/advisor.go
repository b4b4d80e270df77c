// Package advisor produces advisory text about validated notes by prompting
// the inference service with the notes as context. It does no analysis of
// its own: ranking, risk review and answers all come from the model.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/notewise/internal/notes"
	"github.com/jackzampolin/notewise/internal/prompts"
	"github.com/jackzampolin/notewise/internal/prompts/advisory"
	"github.com/jackzampolin/notewise/internal/providers"
)

// DefaultTemperature is used for all advisory requests unless overridden.
const DefaultTemperature = 0.4

// ErrNoNotes is returned when there is nothing to advise on.
var ErrNoNotes = errors.New("no notes to advise on")

// Config configures an Advisor.
type Config struct {
	Model         string
	Temperature   float64
	MaxTokens     int
	Timeout       time.Duration
	QuestionCount int
	Prompts       *prompts.Resolver
	Logger        *slog.Logger
}

// Advisor sends advisory prompts. It is safe for concurrent use.
type Advisor struct {
	client providers.LLMClient
	cfg    Config
	logger *slog.Logger
}

// New creates an Advisor. A nil client is a configuration error.
func New(client providers.LLMClient, cfg Config) (*Advisor, error) {
	if client == nil {
		return nil, &providers.ConfigurationError{
			Provider: "advisor",
			Setting:  "llm client",
			Reason:   "no inference service configured",
		}
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = advisory.DefaultQuestionCount
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Advisor{client: client, cfg: cfg, logger: logger.With("component", "advisor")}, nil
}

// DiscoveryQuestions asks for critical questions an investor should be able
// to answer about the notes: worst-of exposure, barrier levels and
// concentration.
func (a *Advisor) DiscoveryQuestions(ctx context.Context, ns []notes.StructuredNote) (string, error) {
	if len(ns) == 0 {
		return "", ErrNoNotes
	}
	prompt, err := advisory.QuestionsPrompt(a.cfg.Prompts, advisory.QuestionsData{
		Notes: notes.RenderContext(ns),
		Count: a.cfg.QuestionCount,
	})
	if err != nil {
		return "", err
	}
	return a.complete(ctx, "questions", []providers.Message{providers.UserMessage(prompt)})
}

// RankAndOptimize asks for a risk-adjusted ranking of the notes and basket
// suggestions. A nil profile omits investor context.
func (a *Advisor) RankAndOptimize(ctx context.Context, ns []notes.StructuredNote, profile *notes.InvestorProfile) (string, error) {
	if len(ns) == 0 {
		return "", ErrNoNotes
	}
	data := advisory.RankingData{Notes: notes.RenderContext(ns)}
	if profile != nil {
		if err := profile.Validate(); err != nil {
			return "", fmt.Errorf("invalid investor profile: %w", err)
		}
		data.Profile = profile.Summary()
	}
	prompt, err := advisory.RankingPrompt(a.cfg.Prompts, data)
	if err != nil {
		return "", err
	}
	return a.complete(ctx, "ranking", []providers.Message{providers.UserMessage(prompt)})
}

// Ask answers a follow-up question about the notes.
func (a *Advisor) Ask(ctx context.Context, ns []notes.StructuredNote, question string) (string, error) {
	return a.ask(ctx, ns, nil, question)
}

func (a *Advisor) ask(ctx context.Context, ns []notes.StructuredNote, history []providers.Message, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("question is empty")
	}
	if len(ns) == 0 {
		return "", ErrNoNotes
	}
	prompt, err := advisory.ChatPrompt(a.cfg.Prompts, advisory.ChatData{
		Notes:    notes.RenderContext(ns),
		Question: question,
	})
	if err != nil {
		return "", err
	}
	messages := append(append([]providers.Message(nil), history...), providers.UserMessage(prompt))
	return a.complete(ctx, "chat", messages)
}

func (a *Advisor) complete(ctx context.Context, kind string, messages []providers.Message) (string, error) {
	req := &providers.ChatRequest{
		Messages:    messages,
		Model:       a.cfg.Model,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
		Timeout:     a.cfg.Timeout,
		RequestID:   uuid.New().String(),
	}

	result, err := a.client.Chat(ctx, req)
	if err != nil {
		a.logger.Warn("advisory request failed", "kind", kind, "request_id", req.RequestID, "error", err)
		return "", fmt.Errorf("%s request: %w", kind, err)
	}

	text := strings.TrimSpace(result.Content)
	if text == "" {
		return "", &providers.ServiceError{Provider: a.client.Name(), Message: "empty " + kind + " response"}
	}

	a.logger.Debug("advisory response",
		"kind", kind,
		"request_id", req.RequestID,
		"model", result.ModelUsed,
		"completion_tokens", result.CompletionTokens,
	)
	return text, nil
}

// Session is a follow-up conversation about a fixed set of notes. Earlier
// questions and answers are sent along with each new question.
type Session struct {
	advisor *Advisor
	notes   []notes.StructuredNote

	mu      sync.Mutex
	history []providers.Message
}

// NewSession starts a conversation about ns.
func (a *Advisor) NewSession(ns []notes.StructuredNote) *Session {
	return &Session{advisor: a, notes: ns}
}

// Notes returns the notes the session is about.
func (s *Session) Notes() []notes.StructuredNote {
	return s.notes
}

// Ask answers question in the context of the earlier turns. A failed turn is
// not recorded.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	answer, err := s.advisor.ask(ctx, s.notes, s.history, question)
	if err != nil {
		return "", err
	}
	s.history = append(s.history,
		providers.UserMessage(strings.TrimSpace(question)),
		providers.AssistantMessage(answer),
	)
	return answer, nil
}

// SetAdvisor switches the advisor used for later turns, keeping the history.
func (s *Session) SetAdvisor(a *Advisor) {
	s.mu.Lock()
	s.advisor = a
	s.mu.Unlock()
}

// Turns returns the number of completed question/answer pairs.
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history) / 2
}

// Reset forgets the conversation history.
func (s *Session) Reset() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
}
