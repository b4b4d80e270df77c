package extraction

import (
	"encoding/json"
	"fmt"

	"github.com/jackzampolin/notewise/internal/notes"
	"github.com/jackzampolin/notewise/internal/providers"
)

// SchemaName identifies the structured output schema sent to the model.
const SchemaName = "structured_notes"

// NotesKey is the envelope key holding the extracted records.
const NotesKey = "notes"

// property describes one note field in the extraction schema.
type property struct {
	typ         any
	description string
	extra       map[string]any
}

func nullable(typ string) []string {
	return []string{typ, "null"}
}

var assetSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		notes.FieldTicker: map[string]any{
			"type":        "string",
			"description": "Exchange ticker symbol in upper case (e.g. AAPL, BHP)",
		},
		notes.FieldName: map[string]any{
			"type":        nullable("string"),
			"description": "Instrument name if shown",
		},
	},
	"required":             []string{notes.FieldTicker},
	"additionalProperties": false,
}

var noteProperties = map[string]property{
	notes.FieldIssuerBank: {
		typ:         "string",
		description: "Issuing bank (e.g. UBS, Barclays, Macquarie)",
	},
	notes.FieldUnderlyingAssets: {
		typ:         "array",
		description: "Underlying assets in the order listed; a worst-of basket lists every underlying",
		extra:       map[string]any{"items": assetSchema, "minItems": 1},
	},
	notes.FieldCouponRate: {
		typ:         "number",
		description: "Annual coupon as a decimal fraction: 8% is 0.08",
	},
	notes.FieldCouponFrequency: {
		typ:         nullable("string"),
		description: "Coupon frequency (Monthly, Quarterly, Semi-Annual, Annual)",
	},
	notes.FieldBarrierLevel: {
		typ:         "number",
		description: "Capital protection barrier as a decimal fraction of strike: 60% is 0.6, 125% is 1.25",
	},
	notes.FieldBarrierType: {
		typ:         nullable("string"),
		description: "Barrier observation style (European, American, Daily)",
	},
	notes.FieldAutocallLevel: {
		typ:         nullable("number"),
		description: "Autocall trigger as a decimal fraction of strike: 100% is 1.0",
	},
	notes.FieldMemoryFeature: {
		typ:         nullable("boolean"),
		description: "Whether missed coupons are paid later (memory coupon)",
	},
	notes.FieldStrikeDate: {
		typ:         nullable("string"),
		description: "Strike date as YYYY-MM-DD",
	},
	notes.FieldMaturityDate: {
		typ:         nullable("string"),
		description: "Maturity date as YYYY-MM-DD",
	},
	notes.FieldCurrency: {
		typ:         nullable("string"),
		description: "Settlement currency code",
		extra:       map[string]any{"enum": currencyEnum()},
	},
}

func currencyEnum() []any {
	out := make([]any, 0, len(notes.AllowedCurrencies)+1)
	for _, c := range notes.AllowedCurrencies {
		out = append(out, string(c))
	}
	return append(out, nil)
}

// NoteSchema returns the schema of a single note record.
func NoteSchema() map[string]any {
	props := make(map[string]any, len(notes.CanonicalFields))
	for _, field := range notes.CanonicalFields {
		p, ok := noteProperties[field]
		if !ok {
			panic(fmt.Sprintf("extraction: no schema property for note field %q", field))
		}
		def := map[string]any{
			"type":        p.typ,
			"description": p.description,
		}
		for k, v := range p.extra {
			def[k] = v
		}
		props[field] = def
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             notes.RequiredFields,
		"additionalProperties": false,
	}
}

// Schema returns the strict output schema handed to the model, wrapped the
// way OpenAI-compatible endpoints expect it ({"name","strict","schema"}).
func Schema() map[string]any {
	return map[string]any{
		"name":   SchemaName,
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				NotesKey: map[string]any{
					"type":        "array",
					"items":       NoteSchema(),
					"description": "Every structured note found in the document, in reading order",
				},
			},
			"required":             []string{NotesKey},
			"additionalProperties": false,
		},
	}
}

// EnvelopeSchema returns the minimal schema a response must satisfy before
// individual records are examined: an object with a notes array. Records are
// left unconstrained; each one is bound on its own.
func EnvelopeSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			NotesKey: map[string]any{"type": "array"},
		},
		"required": []string{NotesKey},
	}
}

// ResponseFormat returns Schema as a provider response format.
func ResponseFormat() (*providers.ResponseFormat, error) {
	schemaBytes, err := json.Marshal(Schema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extraction schema: %w", err)
	}
	return &providers.ResponseFormat{
		Type:       "json_schema",
		JSONSchema: schemaBytes,
	}, nil
}
