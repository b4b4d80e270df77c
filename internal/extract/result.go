package extract

import (
	"time"

	"github.com/samber/lo"

	"github.com/jackzampolin/notewise/internal/normalize"
	"github.com/jackzampolin/notewise/internal/notes"
)

// Outcome is the result for one record, in the order the generator returned
// it. Exactly one of Note and Err is set.
type Outcome struct {
	Index       int                    `json:"index" yaml:"index"`
	Note        *notes.StructuredNote  `json:"note,omitempty" yaml:"note,omitempty"`
	Err         *notes.ValidationError `json:"error,omitempty" yaml:"error,omitempty"`
	Corrections []normalize.Correction `json:"corrections,omitempty" yaml:"corrections,omitempty"`
}

// OK reports whether the record bound to a note.
func (o Outcome) OK() bool {
	return o.Note != nil
}

// Result is the outcome of one extraction call.
type Result struct {
	Source           string        `json:"source,omitempty" yaml:"source,omitempty"`
	RequestID        string        `json:"request_id" yaml:"request_id"`
	Provider         string        `json:"provider" yaml:"provider"`
	Model            string        `json:"model" yaml:"model"`
	PromptTokens     int           `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens" yaml:"completion_tokens"`
	ExecutionTime    time.Duration `json:"execution_time" yaml:"execution_time"`
	Outcomes         []Outcome     `json:"outcomes" yaml:"outcomes"`
}

// Notes returns the successfully bound notes in order.
func (r *Result) Notes() []notes.StructuredNote {
	if r == nil {
		return nil
	}
	return lo.FilterMap(r.Outcomes, func(o Outcome, _ int) (notes.StructuredNote, bool) {
		if o.Note == nil {
			return notes.StructuredNote{}, false
		}
		return *o.Note, true
	})
}

// Errors returns the per-record failures in order.
func (r *Result) Errors() []Outcome {
	if r == nil {
		return nil
	}
	return lo.Filter(r.Outcomes, func(o Outcome, _ int) bool {
		return o.Err != nil
	})
}

// Empty reports whether the document held no records at all. This is a
// successful extraction, not a failure.
func (r *Result) Empty() bool {
	return r == nil || len(r.Outcomes) == 0
}
