package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrNoJSON is returned when model output holds no decodable JSON value.
var ErrNoJSON = errors.New("no JSON value in model output")

// ParseStructuredJSON pulls a JSON value out of model output. Models asked for
// JSON still wrap it in markdown fences or a sentence of prose now and then, so
// the raw text, the body of the first fenced block and the first balanced
// object or array are tried in that order. The winner is returned compacted.
func ParseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty model output: %w", ErrNoJSON)
	}

	for _, candidate := range []string{content, fencedBody(content), balancedSpan(content)} {
		if candidate == "" || !json.Valid([]byte(candidate)) {
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(candidate)); err != nil {
			return nil, fmt.Errorf("compact model output: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, ErrNoJSON
}

// fencedBody returns the contents of the first ``` block, language tag
// dropped. An unterminated fence runs to the end of the text.
func fencedBody(s string) string {
	open := strings.Index(s, "```")
	if open < 0 {
		return ""
	}
	rest := s[open+3:]
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return ""
	}
	rest = rest[nl+1:]
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// balancedSpan returns the first object or array in s whose brackets close,
// skipping brackets that appear inside string literals.
func balancedSpan(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// CompileSchema compiles a JSON schema. The response-format wrappers
// {"name":..,"schema":{..}} and {"type":"json_schema","json_schema":{"schema":{..}}}
// are accepted as well as a bare schema document.
func CompileSchema(raw json.RawMessage) (*jsonschema.Schema, error) {
	doc, err := unwrapSchema(raw)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("response.json", bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("load response schema: %w", err)
	}
	schema, err := compiler.Compile("response.json")
	if err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}
	return schema, nil
}

// ValidateStructuredJSON checks a decoded response against schema. Either
// argument being empty skips the check.
func ValidateStructuredJSON(schema, value json.RawMessage) error {
	if len(schema) == 0 || len(value) == 0 {
		return nil
	}

	compiled, err := CompileSchema(schema)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(value, &doc); err != nil {
		return fmt.Errorf("decode response for validation: %w", err)
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}

type schemaWrapper struct {
	Schema     json.RawMessage `json:"schema"`
	JSONSchema *struct {
		Schema json.RawMessage `json:"schema"`
	} `json:"json_schema"`
}

func unwrapSchema(raw json.RawMessage) (json.RawMessage, error) {
	if !json.Valid(raw) {
		return nil, errors.New("response schema is not valid JSON")
	}

	var w schemaWrapper
	if err := json.Unmarshal(raw, &w); err != nil {
		// Boolean schemas and other non-objects are used as-is.
		return raw, nil
	}
	switch {
	case len(w.Schema) > 0:
		return w.Schema, nil
	case w.JSONSchema != nil && len(w.JSONSchema.Schema) > 0:
		return w.JSONSchema.Schema, nil
	}
	return raw, nil
}
