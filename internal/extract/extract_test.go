package extract

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/notewise/internal/notes"
	"github.com/jackzampolin/notewise/internal/prompts"
	"github.com/jackzampolin/notewise/internal/prompts/extraction"
	"github.com/jackzampolin/notewise/internal/providers"
)

func newTestExtractor(t *testing.T, client providers.LLMClient) *Extractor {
	t.Helper()
	e, err := New(client, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func mockWithJSON(body string) *providers.MockClient {
	c := providers.NewMockClient()
	c.ResponseJSON = json.RawMessage(body)
	return c
}

func TestNew_NilClient(t *testing.T) {
	_, err := New(nil, Config{})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("New(nil) error = %v, want ErrConfiguration", err)
	}
	if IsRetryable(err) {
		t.Error("configuration errors should not be retryable")
	}
}

func TestExtract_PartialFailure(t *testing.T) {
	client := mockWithJSON(`{"notes": [
		{"issuer_bank": "UBS", "underlying_assets": [{"ticker": "AAPL"}], "coupon_rate_annual": 8, "barrier_level": 125},
		{"underlying_assets": ["MSFT"], "coupon_rate_annual": 0.07, "barrier_level": 0.6},
		{"issuer": "Goldman Sachs", "assets": ["NVDA", "AMD", "INTC"], "coupon": "12%", "barrier": "70", "ccy": "EUR"}
	]}`)
	e := newTestExtractor(t, client)

	result, err := e.Extract(context.Background(), TextSource("three notes"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(result.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(result.Outcomes))
	}

	first := result.Outcomes[0]
	if !first.OK() || first.Index != 0 {
		t.Fatalf("outcome 0 = %+v", first)
	}
	if first.Note.IssuerBank != "UBS" || first.Note.CouponRateAnnual != 0.08 || first.Note.BarrierLevel != 1.25 {
		t.Errorf("note 0 = %+v", first.Note)
	}
	if len(first.Corrections) != 2 {
		t.Errorf("corrections = %+v, want coupon and barrier", first.Corrections)
	}

	second := result.Outcomes[1]
	if second.OK() || second.Err == nil {
		t.Fatalf("outcome 1 should fail, got %+v", second)
	}
	if !second.Err.HasField(notes.FieldIssuerBank) {
		t.Errorf("outcome 1 error = %v, want issuer_bank issue", second.Err)
	}
	if _, ok := second.Err.Raw["issuer_bank"]; ok {
		t.Error("raw record should be reported as received")
	}
	if second.Err.Raw["coupon_rate_annual"] != json.Number("0.07") {
		t.Errorf("raw coupon = %#v", second.Err.Raw["coupon_rate_annual"])
	}

	third := result.Outcomes[2]
	if !third.OK() {
		t.Fatalf("outcome 2 error = %v", third.Err)
	}
	want := []string{"NVDA", "AMD", "INTC"}
	if got := third.Note.Tickers(); !reflect.DeepEqual(got, want) {
		t.Errorf("tickers = %v, want %v", got, want)
	}
	if third.Note.CouponRateAnnual != 0.12 || third.Note.BarrierLevel != 0.7 || third.Note.Currency != notes.EUR {
		t.Errorf("note 2 = %+v", third.Note)
	}

	if got := len(result.Notes()); got != 2 {
		t.Errorf("Notes() = %d, want 2", got)
	}
	if errs := result.Errors(); len(errs) != 1 || errs[0].Index != 1 {
		t.Errorf("Errors() = %+v", errs)
	}
	if result.Empty() {
		t.Error("Empty() = true")
	}
}

func TestExtract_PercentStrings(t *testing.T) {
	client := mockWithJSON(`{"notes": [
		{"issuer_bank": "UBS", "underlying_assets": ["AAPL"], "coupon_rate_annual": "2%", "barrier_level": "60%"},
		{"issuer_bank": "UBS", "underlying_assets": ["AAPL"], "coupon_rate_annual": "0.9%", "barrier_level": "125%"},
		{"issuer_bank": "UBS", "underlying_assets": ["AAPL"], "coupon_rate_annual": "8%", "barrier_level": "inf"}
	]}`)
	e := newTestExtractor(t, client)

	result, err := e.Extract(context.Background(), TextSource("percent strings"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(result.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(result.Outcomes))
	}

	first, second, third := result.Outcomes[0], result.Outcomes[1], result.Outcomes[2]
	if !first.OK() || first.Note.CouponRateAnnual != 0.02 || first.Note.BarrierLevel != 0.6 {
		t.Errorf("outcome 0 = %+v, err = %v", first.Note, first.Err)
	}
	if !second.OK() || math.Abs(second.Note.CouponRateAnnual-0.009) > 1e-12 || second.Note.BarrierLevel != 1.25 {
		t.Errorf("outcome 1 = %+v, err = %v", second.Note, second.Err)
	}
	if third.OK() || !third.Err.HasField(notes.FieldBarrierLevel) {
		t.Fatalf("outcome 2 should fail on barrier_level, got %+v", third)
	}
	if third.Err.HasField(notes.FieldCouponRate) {
		t.Errorf("8%% coupon should bind, issues = %+v", third.Err.Issues)
	}

	if _, err := json.Marshal(result); err != nil {
		t.Errorf("json.Marshal(result) error = %v", err)
	}
}

func TestExtract_MalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		json string
		text string
	}{
		{name: "plain text", text: "I could not find any structured notes in this document."},
		{name: "no notes key", json: `{"items": []}`},
		{name: "notes not an array", json: `{"notes": {"issuer_bank": "UBS"}}`},
		{name: "top-level array", json: `[{"issuer_bank": "UBS"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := providers.NewMockClient()
			client.ResponseText = tt.text
			if tt.json != "" {
				client.ResponseJSON = json.RawMessage(tt.json)
			}
			e := newTestExtractor(t, client)

			result, err := e.Extract(context.Background(), TextSource("doc"))
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("Extract() error = %v, want ErrMalformedResponse", err)
			}
			if result != nil {
				t.Errorf("result = %+v, want nil", result)
			}
			var merr *MalformedResponseError
			if !errors.As(err, &merr) || merr.Content == "" {
				t.Errorf("error should carry the raw content: %#v", err)
			}
			if !IsRetryable(err) {
				t.Error("malformed responses should be retryable")
			}
		})
	}
}

func TestExtract_FencedJSON(t *testing.T) {
	client := providers.NewMockClient()
	client.ResponseText = "Here you go:\n```json\n{\"notes\": [{\"issuer_bank\": \"BNP\", \"underlying_assets\": [\"SAP\"], \"coupon_rate_annual\": 0.05, \"barrier_level\": 0.5}]}\n```"
	e := newTestExtractor(t, client)

	result, err := e.Extract(context.Background(), TextSource("doc"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if n := result.Notes(); len(n) != 1 || n[0].IssuerBank != "BNP" {
		t.Errorf("Notes() = %+v", n)
	}
}

func TestExtract_NoNotes(t *testing.T) {
	e := newTestExtractor(t, mockWithJSON(`{"notes": []}`))

	result, err := e.Extract(context.Background(), TextSource("a weather report"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !result.Empty() || len(result.Notes()) != 0 || len(result.Errors()) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestExtract_NonObjectRecord(t *testing.T) {
	e := newTestExtractor(t, mockWithJSON(`{"notes": ["UBS", null, {"issuer_bank": "UBS", "underlying_assets": ["AAPL"], "coupon_rate_annual": 0.08, "barrier_level": 0.6}]}`))

	result, err := e.Extract(context.Background(), TextSource("doc"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(result.Outcomes) != 3 {
		t.Fatalf("outcomes = %d", len(result.Outcomes))
	}
	for i, wantKind := range []string{"string", "null"} {
		o := result.Outcomes[i]
		if o.Err == nil || !o.Err.HasField("record") {
			t.Fatalf("outcome %d = %+v", i, o)
		}
		if !strings.Contains(o.Err.Error(), wantKind) {
			t.Errorf("outcome %d error = %v, want mention of %s", i, o.Err, wantKind)
		}
	}
	if !result.Outcomes[2].OK() {
		t.Errorf("outcome 2 error = %v", result.Outcomes[2].Err)
	}
}

func TestExtract_ServiceErrors(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		client := providers.NewMockClient()
		client.Err = &providers.ServiceError{Provider: "mock", StatusCode: 503, Message: "overloaded"}
		e := newTestExtractor(t, client)

		_, err := e.Extract(context.Background(), TextSource("doc"))
		if !errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrTimeout) {
			t.Fatalf("error = %v", err)
		}
		var se *providers.ServiceError
		if !errors.As(err, &se) || se.StatusCode != 503 {
			t.Errorf("error should unwrap to *ServiceError: %v", err)
		}
		if !IsRetryable(err) {
			t.Error("503 should be retryable")
		}
		if client.RequestCount() != 1 {
			t.Errorf("requests = %d, want 1", client.RequestCount())
		}
	})

	t.Run("timeout", func(t *testing.T) {
		client := providers.NewMockClient()
		client.Latency = time.Second
		e := newTestExtractor(t, client)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := e.Extract(ctx, TextSource("doc"))
		if !errors.Is(err, ErrTimeout) || !errors.Is(err, ErrServiceUnavailable) {
			t.Fatalf("error = %v, want ErrTimeout", err)
		}
	})

	t.Run("configuration", func(t *testing.T) {
		client := providers.NewMockClient()
		client.Err = &providers.ConfigurationError{Provider: "gemini", Setting: "GOOGLE_API_KEY"}
		e := newTestExtractor(t, client)

		_, err := e.Extract(context.Background(), TextSource("doc"))
		if !errors.Is(err, ErrConfiguration) || IsRetryable(err) {
			t.Fatalf("error = %v", err)
		}
	})
}

func TestExtract_EmptySource(t *testing.T) {
	client := providers.NewMockClient()
	e := newTestExtractor(t, client)

	if _, err := e.Extract(context.Background(), TextSource("  \n")); !errors.Is(err, ErrEmptySource) {
		t.Errorf("error = %v, want ErrEmptySource", err)
	}
	if client.RequestCount() != 0 {
		t.Error("no request should be sent for an empty source")
	}
}

func TestExtract_Request(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		client := mockWithJSON(`{"notes": []}`)
		e, err := New(client, Config{Model: "gemini-test", Timeout: 5 * time.Second})
		if err != nil {
			t.Fatal(err)
		}

		if _, err := e.Extract(context.Background(), TextSource("UBS 8% AAPL")); err != nil {
			t.Fatal(err)
		}

		req := client.LastRequest()
		if req.Model != "gemini-test" || req.Temperature != DefaultTemperature || req.MaxTokens != DefaultMaxTokens || req.Timeout != 5*time.Second {
			t.Errorf("request settings = %+v", req)
		}
		if req.RequestID == "" {
			t.Error("request id not set")
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_schema" {
			t.Fatalf("ResponseFormat = %+v", req.ResponseFormat)
		}
		if !strings.Contains(string(req.ResponseFormat.JSONSchema), extraction.SchemaName) {
			t.Error("response format should carry the extraction schema")
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Fatalf("messages = %+v", req.Messages)
		}
		if req.Messages[0].Content != extraction.SystemPrompt() {
			t.Error("system prompt should be the embedded default")
		}
		user := req.Messages[1].Content
		if !strings.Contains(user, extraction.DefaultInstruction) || !strings.Contains(user, "UBS 8% AAPL") {
			t.Errorf("user prompt = %q", user)
		}
		if len(req.Messages[1].Images) != 0 {
			t.Error("text source should not send images")
		}
	})

	t.Run("image", func(t *testing.T) {
		client := mockWithJSON(`{"notes": []}`)
		e, err := New(client, Config{Instruction: "Extract the notes."})
		if err != nil {
			t.Fatal(err)
		}

		png := []byte("\x89PNG\r\n\x1a\n")
		if _, err := e.Extract(context.Background(), ImageSource(png)); err != nil {
			t.Fatal(err)
		}

		user := client.LastRequest().Messages[1]
		if len(user.Images) != 1 || string(user.Images[0]) != string(png) {
			t.Errorf("images = %v", user.Images)
		}
		if strings.TrimSpace(user.Content) != "Extract the notes." {
			t.Errorf("user prompt = %q", user.Content)
		}
	})
}

func TestExtract_PromptOverride(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")
	store := prompts.NewStore(dir, nil)
	if _, err := store.Put(extraction.SystemPromptKey, "custom system prompt"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Put(extraction.UserPromptKey, "INSTRUCTION={{.Instruction}} TEXT={{.Text}}"); err != nil {
		t.Fatal(err)
	}
	resolver := prompts.NewResolver(store, nil)
	extraction.RegisterPrompts(resolver)

	client := mockWithJSON(`{"notes": []}`)
	e, err := New(client, Config{Prompts: resolver, Instruction: "go"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Extract(context.Background(), TextSource("doc")); err != nil {
		t.Fatal(err)
	}

	req := client.LastRequest()
	if req.Messages[0].Content != "custom system prompt" {
		t.Errorf("system = %q", req.Messages[0].Content)
	}
	if req.Messages[1].Content != "INSTRUCTION=go TEXT=doc" {
		t.Errorf("user = %q", req.Messages[1].Content)
	}
}

func TestExtract_Concurrent(t *testing.T) {
	client := mockWithJSON(`{"notes": [{"issuer_bank": "UBS", "underlying_assets": ["AAPL"], "coupon_rate_annual": 8, "barrier_level": 60}]}`)
	e := newTestExtractor(t, client)

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			result, err := e.Extract(context.Background(), TextSource("doc"))
			if err == nil && result.Notes()[0].BarrierLevel != 0.6 {
				err = errors.New("unexpected barrier")
			}
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
	if client.RequestCount() != 8 {
		t.Errorf("requests = %d, want 8", client.RequestCount())
	}
}
