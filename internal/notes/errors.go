package notes

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation matches any *ValidationError via errors.Is.
var ErrValidation = errors.New("validation error")

// Issue is one problem found while binding a record.
type Issue struct {
	Field  string `json:"field" yaml:"field"`
	Reason string `json:"reason" yaml:"reason"`
}

// ValidationError reports why a record could not be bound to a
// StructuredNote. Raw holds the record as received so a human can correct it.
type ValidationError struct {
	Issues []Issue         `json:"issues" yaml:"issues"`
	Raw    map[string]any `json:"raw,omitempty" yaml:"raw,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid structured note"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Reason))
	}
	return "invalid structured note: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// HasField reports whether any issue concerns field (or one of its elements).
func (e *ValidationError) HasField(field string) bool {
	for _, issue := range e.Issues {
		if issue.Field == field || strings.HasPrefix(issue.Field, field+"[") || strings.HasPrefix(issue.Field, field+".") {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(field, reason string) {
	e.Issues = append(e.Issues, Issue{Field: field, Reason: reason})
}
