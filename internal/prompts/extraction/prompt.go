// Package extraction holds the prompts and output schema for structured note
// extraction.
package extraction

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/jackzampolin/notewise/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = template.Must(template.New("user").Parse(userPromptTmpl))

// DefaultInstruction is used when the caller does not supply one.
const DefaultInstruction = "Extract investment note parameters. Focus on: issuer, tickers, coupon rate, barrier, and dates."

// Prompt keys
const (
	SystemPromptKey = "extraction.system"
	UserPromptKey   = "extraction.user"
)

// SystemPrompt returns the system prompt for note extraction.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt builds the user prompt from an instruction and, for text
// sources, the document text. Image sources pass an empty text.
func UserPrompt(instruction, text string) string {
	return RenderUserPrompt(userPromptTmpl, instruction, text)
}

// RenderUserPrompt renders a user prompt template, falling back to the
// embedded template if tmpl does not parse or execute.
func RenderUserPrompt(tmpl, instruction, text string) string {
	if instruction == "" {
		instruction = DefaultInstruction
	}
	data := struct {
		Instruction string
		Text        string
	}{Instruction: instruction, Text: text}

	t := userTemplate
	if tmpl != userPromptTmpl {
		parsed, err := template.New("user").Parse(tmpl)
		if err == nil {
			t = parsed
		}
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		buf.Reset()
		if err := userTemplate.Execute(&buf, data); err != nil {
			return instruction
		}
	}
	return buf.String()
}

// RegisterPrompts registers the extraction prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Note extraction system prompt - field definitions and fraction encoding rules",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Note extraction user prompt template",
	})
}
