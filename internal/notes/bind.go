package notes

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jackzampolin/notewise/internal/coerce"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields under their JSON names so issues line up with the raw record.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return Currency(fl.Field().String()).Valid()
	})
	return v
}

// Bind builds a StructuredNote from an extracted record.
//
// Each field is looked up under its canonical name and then its aliases, and
// values are coerced to the declared types. Optional fields fall back to
// their defaults. The returned error, if any, is a *ValidationError listing
// every problem found, not just the first.
func Bind(record map[string]any) (StructuredNote, error) {
	b := &binder{
		rec:  Canonicalize(record),
		verr: &ValidationError{Raw: record},
	}

	note := StructuredNote{
		IssuerBank:       b.requiredString(FieldIssuerBank),
		UnderlyingAssets: b.assets(),
		CouponRateAnnual: b.requiredFloat(FieldCouponRate),
		CouponFrequency:  b.stringOr(FieldCouponFrequency, DefaultCouponFrequency),
		BarrierLevel:     b.requiredFloat(FieldBarrierLevel),
		BarrierType:      b.stringOr(FieldBarrierType, DefaultBarrierType),
		AutocallLevel:    b.optionalFloat(FieldAutocallLevel),
		MemoryFeature:    b.boolOr(FieldMemoryFeature, DefaultMemoryFeature),
		StrikeDate:       b.optionalDate(FieldStrikeDate),
		MaturityDate:     b.optionalDate(FieldMaturityDate),
		Currency:         b.currency(),
	}

	if err := validate.Struct(note); err != nil {
		b.addValidatorErrors(err)
	}
	if len(b.verr.Issues) > 0 {
		return StructuredNote{}, b.verr
	}
	return note, nil
}

// BindAsset builds an Asset from a record or a bare ticker string.
func BindAsset(v any) (Asset, error) {
	switch t := v.(type) {
	case Asset:
		return t, nil
	case string:
		return Asset{Ticker: normalizeTicker(t)}, nil
	case map[string]any:
		rec := canonicalizeAsset(t)
		var asset Asset
		var err error
		if asset.Ticker, err = coerce.String(rec[FieldTicker]); err != nil {
			return Asset{}, fmt.Errorf("%s: %w", FieldTicker, err)
		}
		asset.Ticker = normalizeTicker(asset.Ticker)
		if asset.Name, err = coerce.String(rec[FieldName]); err != nil {
			return Asset{}, fmt.Errorf("%s: %w", FieldName, err)
		}
		if asset.Sector, err = coerce.String(rec[FieldSector]); err != nil {
			return Asset{}, fmt.Errorf("%s: %w", FieldSector, err)
		}
		if raw, ok := rec[FieldIsBenchmark]; ok && !coerce.IsEmpty(raw) {
			if asset.IsBenchmark, err = coerce.Bool(raw); err != nil {
				return Asset{}, fmt.Errorf("%s: %w", FieldIsBenchmark, err)
			}
		}
		return asset, nil
	default:
		return Asset{}, fmt.Errorf("expected an asset object or ticker, got %T", v)
	}
}

func normalizeTicker(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// binder accumulates issues while reading fields from a canonical record.
type binder struct {
	rec  map[string]any
	verr *ValidationError
}

func (b *binder) lookup(field string) (any, bool) {
	v, ok := b.rec[field]
	if !ok || coerce.IsEmpty(v) {
		return nil, false
	}
	return v, true
}

func (b *binder) missing(field string) {
	b.verr.add(field, "required field missing")
}

func (b *binder) invalid(field string, err error) {
	b.verr.add(field, err.Error())
}

func (b *binder) requiredString(field string) string {
	v, ok := b.lookup(field)
	if !ok {
		b.missing(field)
		return ""
	}
	s, err := coerce.String(v)
	if err != nil {
		b.invalid(field, err)
	}
	return s
}

func (b *binder) requiredFloat(field string) float64 {
	v, ok := b.lookup(field)
	if !ok {
		b.missing(field)
		return 0
	}
	f, err := coerce.Float(v)
	if err != nil {
		b.invalid(field, err)
	}
	return f
}

func (b *binder) optionalFloat(field string) *float64 {
	v, ok := b.lookup(field)
	if !ok {
		return nil
	}
	f, err := coerce.Float(v)
	if err != nil {
		b.invalid(field, err)
		return nil
	}
	return &f
}

func (b *binder) stringOr(field, def string) string {
	v, ok := b.lookup(field)
	if !ok {
		return def
	}
	s, err := coerce.String(v)
	if err != nil {
		b.invalid(field, err)
		return def
	}
	return s
}

func (b *binder) boolOr(field string, def bool) bool {
	v, ok := b.lookup(field)
	if !ok {
		return def
	}
	out, err := coerce.Bool(v)
	if err != nil {
		b.invalid(field, err)
		return def
	}
	return out
}

func (b *binder) optionalDate(field string) *Date {
	v, ok := b.lookup(field)
	if !ok {
		return nil
	}
	t, err := coerce.Date(v)
	if err != nil {
		b.invalid(field, err)
		return nil
	}
	d := NewDate(t)
	return &d
}

func (b *binder) currency() Currency {
	v, ok := b.lookup(FieldCurrency)
	if !ok {
		return DefaultCurrency
	}
	s, err := coerce.String(v)
	if err != nil {
		b.invalid(FieldCurrency, err)
		return DefaultCurrency
	}
	return Currency(strings.ToUpper(s))
}

func (b *binder) assets() []Asset {
	v, ok := b.rec[FieldUnderlyingAssets]
	if !ok || v == nil {
		b.missing(FieldUnderlyingAssets)
		return nil
	}

	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case []Asset:
		return append([]Asset(nil), t...)
	case []string:
		for _, s := range t {
			items = append(items, s)
		}
	case []map[string]any:
		for _, m := range t {
			items = append(items, m)
		}
	case map[string]any:
		items = []any{t}
	case string:
		// "AAPL, MSFT" style lists
		for _, s := range strings.Split(t, ",") {
			if strings.TrimSpace(s) != "" {
				items = append(items, s)
			}
		}
	default:
		b.invalid(FieldUnderlyingAssets, fmt.Errorf("expected a list of assets, got %T", v))
		return nil
	}

	assets := make([]Asset, 0, len(items))
	for i, item := range items {
		asset, err := BindAsset(item)
		if err != nil {
			b.invalid(fmt.Sprintf("%s[%d]", FieldUnderlyingAssets, i), err)
			continue
		}
		assets = append(assets, asset)
	}
	return assets
}

// addValidatorErrors records struct-level violations for fields that do not
// already carry a lookup or coercion issue.
func (b *binder) addValidatorErrors(err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		b.verr.add("note", err.Error())
		return
	}
	for _, fe := range verrs {
		field := fieldPath(fe)
		if b.verr.HasField(field) {
			continue
		}
		b.verr.add(field, reasonFor(fe))
	}
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field missing"
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s, got %v", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("must be <= %s, got %v (rate was not normalized to a fraction)", fe.Param(), fe.Value())
	case "currency":
		return fmt.Sprintf("unsupported currency %q (allowed: USD, EUR, AUD)", fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
