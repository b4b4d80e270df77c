package extraction

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/notewise/internal/notes"
	"github.com/jackzampolin/notewise/internal/prompts"
)

func compile(t *testing.T, schema map[string]any) *jsonschema.Schema {
	t.Helper()
	raw, err := json.Marshal(schema)
	if err != nil {
		t.Fatalf("marshal schema: %v", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		t.Fatalf("AddResource: %v", err)
	}
	s, err := compiler.Compile("schema.json")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return s
}

func decode(t *testing.T, s string) any {
	t.Helper()
	var doc any
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return doc
}

func TestSchema_CoversDomainFields(t *testing.T) {
	note := NoteSchema()
	props := note["properties"].(map[string]any)
	for _, field := range notes.CanonicalFields {
		if _, ok := props[field]; !ok {
			t.Errorf("schema missing property %s", field)
		}
	}
	required := note["required"].([]string)
	if strings.Join(required, ",") != "issuer_bank,underlying_assets,coupon_rate_annual,barrier_level" {
		t.Errorf("required = %v", required)
	}

	wrapper := Schema()
	if wrapper["name"] != SchemaName || wrapper["strict"] != true {
		t.Errorf("wrapper = %v", wrapper)
	}
}

func TestSchema_Validates(t *testing.T) {
	s := compile(t, Schema()["schema"].(map[string]any))

	valid := `{"notes":[{
		"issuer_bank":"UBS",
		"underlying_assets":[{"ticker":"AAPL","name":"Apple"},{"ticker":"MSFT","name":null}],
		"coupon_rate_annual":0.08,
		"barrier_level":0.6,
		"coupon_frequency":null,
		"currency":"EUR"
	}]}`
	if err := s.Validate(decode(t, valid)); err != nil {
		t.Errorf("valid document rejected: %v", err)
	}

	invalid := map[string]string{
		"missing notes":    `{}`,
		"missing issuer":   `{"notes":[{"underlying_assets":[{"ticker":"A"}],"coupon_rate_annual":0.1,"barrier_level":0.5}]}`,
		"asset no ticker":  `{"notes":[{"issuer_bank":"X","underlying_assets":[{"name":"A"}],"coupon_rate_annual":0.1,"barrier_level":0.5}]}`,
		"empty assets":     `{"notes":[{"issuer_bank":"X","underlying_assets":[],"coupon_rate_annual":0.1,"barrier_level":0.5}]}`,
		"unknown currency": `{"notes":[{"issuer_bank":"X","underlying_assets":[{"ticker":"A"}],"coupon_rate_annual":0.1,"barrier_level":0.5,"currency":"GBP"}]}`,
	}
	for name, doc := range invalid {
		t.Run(name, func(t *testing.T) {
			if err := s.Validate(decode(t, doc)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEnvelopeSchema(t *testing.T) {
	s := compile(t, EnvelopeSchema())

	for _, doc := range []string{`{"notes":[]}`, `{"notes":[{"anything":1}, "junk"]}`, `{"notes":[],"extra":true}`} {
		if err := s.Validate(decode(t, doc)); err != nil {
			t.Errorf("envelope %s rejected: %v", doc, err)
		}
	}
	for _, doc := range []string{`{}`, `{"notes":{}}`, `[]`, `"notes"`} {
		if err := s.Validate(decode(t, doc)); err == nil {
			t.Errorf("envelope %s accepted", doc)
		}
	}
}

func TestResponseFormat(t *testing.T) {
	rf, err := ResponseFormat()
	if err != nil {
		t.Fatalf("ResponseFormat() error = %v", err)
	}
	if rf.Type != "json_schema" {
		t.Errorf("Type = %q", rf.Type)
	}
	var wrapper map[string]any
	if err := json.Unmarshal(rf.JSONSchema, &wrapper); err != nil {
		t.Fatalf("JSONSchema is not JSON: %v", err)
	}
	if wrapper["name"] != SchemaName {
		t.Errorf("name = %v", wrapper["name"])
	}
}

func TestUserPrompt(t *testing.T) {
	got := UserPrompt("", "")
	if strings.TrimSpace(got) != DefaultInstruction {
		t.Errorf("UserPrompt(empty) = %q", got)
	}

	got = UserPrompt("Pull the notes.", "UBS 8% p.a. on AAPL")
	if !strings.HasPrefix(got, "Pull the notes.") || !strings.Contains(got, "Input:\nUBS 8% p.a. on AAPL") {
		t.Errorf("UserPrompt() = %q", got)
	}
}

func TestRenderUserPrompt_BadOverrideFallsBack(t *testing.T) {
	got := RenderUserPrompt("{{.Missing", "Do it", "")
	if strings.TrimSpace(got) != "Do it" {
		t.Errorf("RenderUserPrompt() = %q", got)
	}
}

func TestRegisterPrompts(t *testing.T) {
	r := prompts.NewResolver(nil, nil)
	RegisterPrompts(r)

	sys, err := r.Resolve(SystemPromptKey)
	if err != nil {
		t.Fatalf("Resolve(system) error = %v", err)
	}
	if !strings.Contains(sys.Text, "coupon_rate_annual") {
		t.Error("system prompt does not describe coupon_rate_annual")
	}
	user, err := r.Resolve(UserPromptKey)
	if err != nil {
		t.Fatalf("Resolve(user) error = %v", err)
	}
	if strings.Join(user.Variables, ",") != "Instruction,Text" {
		t.Errorf("user variables = %v", user.Variables)
	}
}
