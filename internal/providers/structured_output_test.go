package providers

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseStructuredJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{name: "plain object", content: `{"ok": true}`, want: `{"ok":true}`},
		{name: "code fence", content: "```json\n{\"ok\":true}\n```", want: `{"ok":true}`},
		{name: "surrounding prose", content: "Here you go:\n{\"notes\": []}\nThanks!", want: `{"notes":[]}`},
		{name: "keeps number text", content: `{"coupon": 0.0875}`, want: `{"coupon":0.0875}`},
		{name: "fence after prose", content: "Sure.\n```\n[1, 2]\n```\nDone.", want: `[1,2]`},
		{name: "bracket inside string", content: `Result: {"memo": "see } below", "n": 1} ok`, want: `{"memo":"see } below","n":1}`},
		{name: "empty", content: "   ", wantErr: true},
		{name: "prose only", content: "I could not find any notes.", wantErr: true},
		{name: "truncated", content: `{"notes": [{"issuer_bank": "UBS"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStructuredJSON(tt.content)
			if tt.wantErr {
				if !errors.Is(err, ErrNoJSON) {
					t.Fatalf("ParseStructuredJSON() = %s, %v, want ErrNoJSON", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStructuredJSON() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("ParseStructuredJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValidateStructuredJSON_EnforcesBounds(t *testing.T) {
	schema := json.RawMessage(`{
		"name":"bounds",
		"strict":true,
		"schema":{
			"type":"object",
			"properties":{
				"level":{"type":"integer","minimum":1,"maximum":3}
			},
			"required":["level"],
			"additionalProperties":false
		}
	}`)

	if err := ValidateStructuredJSON(schema, json.RawMessage(`{"level":2}`)); err != nil {
		t.Fatalf("ValidateStructuredJSON(valid) error = %v", err)
	}
	if err := ValidateStructuredJSON(schema, json.RawMessage(`{"level":5}`)); err == nil {
		t.Fatal("ValidateStructuredJSON(invalid) expected error, got nil")
	}
}

func TestUnwrapSchema(t *testing.T) {
	inner := `{"type":"object","required":["a"]}`
	for _, raw := range []string{
		`{"name":"x","schema":` + inner + `}`,
		`{"type":"json_schema","json_schema":{"schema":` + inner + `}}`,
		inner,
	} {
		got, err := unwrapSchema(json.RawMessage(raw))
		if err != nil {
			t.Fatalf("unwrapSchema(%s) error = %v", raw, err)
		}
		var m map[string]any
		if err := json.Unmarshal(got, &m); err != nil {
			t.Fatal(err)
		}
		if m["type"] != "object" {
			t.Errorf("unwrapSchema(%s) = %s", raw, got)
		}
	}
}
