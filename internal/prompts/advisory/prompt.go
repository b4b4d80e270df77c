// Package advisory holds the prompts used to produce advisory text from
// validated notes: discovery questions, ranking and follow-up answers.
package advisory

import (
	_ "embed"

	"github.com/jackzampolin/notewise/internal/prompts"
)

//go:embed questions.tmpl
var questionsPrompt string

//go:embed ranking.tmpl
var rankingPrompt string

//go:embed chat.tmpl
var chatPrompt string

// Prompt keys
const (
	QuestionsPromptKey = "advisory.questions"
	RankingPromptKey   = "advisory.ranking"
	ChatPromptKey      = "advisory.chat"
)

// DefaultQuestionCount is the number of discovery questions requested.
const DefaultQuestionCount = 3

// QuestionsData feeds the questions template.
type QuestionsData struct {
	Notes string
	Count int
}

// RankingData feeds the ranking template. Profile may be empty.
type RankingData struct {
	Notes   string
	Profile string
}

// ChatData feeds the follow-up template.
type ChatData struct {
	Notes    string
	Question string
}

// QuestionsPrompt renders the discovery questions prompt.
func QuestionsPrompt(r *prompts.Resolver, data QuestionsData) (string, error) {
	if data.Count <= 0 {
		data.Count = DefaultQuestionCount
	}
	return prompts.Render(QuestionsPromptKey, r.Text(QuestionsPromptKey, questionsPrompt), data)
}

// RankingPrompt renders the ranking and optimization prompt.
func RankingPrompt(r *prompts.Resolver, data RankingData) (string, error) {
	return prompts.Render(RankingPromptKey, r.Text(RankingPromptKey, rankingPrompt), data)
}

// ChatPrompt renders the follow-up question prompt.
func ChatPrompt(r *prompts.Resolver, data ChatData) (string, error) {
	return prompts.Render(ChatPromptKey, r.Text(ChatPromptKey, chatPrompt), data)
}

// RegisterPrompts registers the advisory prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         QuestionsPromptKey,
		Text:        questionsPrompt,
		Description: "Discovery questions - worst-of risk, barrier and concentration review",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         RankingPromptKey,
		Text:        rankingPrompt,
		Description: "Ranking and basket optimization with optional investor profile",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         ChatPromptKey,
		Text:        chatPrompt,
		Description: "Follow-up question answered as a senior advisor",
	})
}
