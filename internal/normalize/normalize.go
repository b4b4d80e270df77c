// Package normalize corrects the percentage encoding of rate fields in raw
// extracted records before they are bound to the domain model.
//
// Generators are inconsistent about rates: 8% may come back as 0.08, as 8 or,
// when a value was scaled twice, as 800. Values above PercentThreshold are
// taken to be percentages and divided by 100. Coupons get a second division
// when the first one still leaves a value above 100%. Barriers never do,
// because a 125% barrier (1.25) is a legitimate high-risk structure.
//
// The double correction is a best-effort guard, not a decoder: badly corrupted
// input can still produce a plausible but wrong fraction.
package normalize

import (
	"maps"

	"github.com/jackzampolin/notewise/internal/coerce"
	"github.com/jackzampolin/notewise/internal/notes"
)

const (
	// PercentThreshold is the largest value accepted as already being a
	// fraction. Barriers can legitimately reach about 200% of strike.
	PercentThreshold = 2.0

	// MaxCoupon is the largest sane annual coupon fraction.
	MaxCoupon = 1.0
)

// Coupon normalizes a coupon rate.
func Coupon(v float64) float64 {
	if v <= PercentThreshold {
		return v
	}
	v = v / 100
	if v > MaxCoupon {
		v = v / 100
	}
	return v
}

// Barrier normalizes a barrier level. There is no second pass.
func Barrier(v float64) float64 {
	if v > PercentThreshold {
		return v / 100
	}
	return v
}

// Correction records a field whose value was rewritten.
type Correction struct {
	Field string  `json:"field" yaml:"field"`
	From  float64 `json:"from" yaml:"from"`
	To    float64 `json:"to" yaml:"to"`
}

// Record returns a copy of a canonical record with coupon_rate_annual and
// barrier_level normalized. All other fields pass through and the input is
// never modified.
//
// A missing or blank rate is left absent so binding reports it as missing. A
// value that does not read as a finite number is left as is for the same
// reason. A string with an explicit percent sign ("8.5%") is written back as
// the fraction it names and never rescaled.
func Record(raw map[string]any) map[string]any {
	out, _ := RecordWithCorrections(raw)
	return out
}

// RecordWithCorrections is Record that also reports which fields changed.
func RecordWithCorrections(raw map[string]any) (map[string]any, []Correction) {
	out := maps.Clone(raw)
	if out == nil {
		out = map[string]any{}
	}

	var corrections []Correction
	for _, rule := range rules {
		value, ok := out[rule.field]
		if !ok || coerce.IsEmpty(value) {
			continue
		}
		f, err := coerce.Float(value)
		if err != nil {
			continue
		}
		if coerce.IsPercent(value) {
			out[rule.field] = f
			continue
		}
		normalized := rule.apply(f)
		out[rule.field] = normalized
		if normalized != f {
			corrections = append(corrections, Correction{Field: rule.field, From: f, To: normalized})
		}
	}
	return out, corrections
}

var rules = []struct {
	field string
	apply func(float64) float64
}{
	{notes.FieldCouponRate, Coupon},
	{notes.FieldBarrierLevel, Barrier},
}
