// Package notes is the typed domain model for bank-issued structured notes.
//
// Values are built once from extracted data by Bind and are never mutated by
// the pipeline afterwards. Every rate field is stored as a fraction
// (0.12 means 12%), never as a raw percentage.
package notes

import (
	"time"

	"github.com/samber/lo"
)

// Defaults applied when an extracted record leaves an optional field out.
const (
	DefaultCouponFrequency = "Quarterly"
	DefaultBarrierType     = "European"
	DefaultMemoryFeature   = true
	DefaultCurrency        = USD
)

// Asset is an instrument underlying a structured note.
// Assets are compared by value.
type Asset struct {
	Ticker      string `json:"ticker" yaml:"ticker" validate:"required"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Sector      string `json:"sector,omitempty" yaml:"sector,omitempty"`
	IsBenchmark bool   `json:"is_benchmark" yaml:"is_benchmark"`
}

// NoteCondition is a trigger level such as a barrier or an autocall.
type NoteCondition struct {
	// LevelPercentage is a fraction of the reference strike (0.6 for 60%).
	LevelPercentage float64 `json:"level_percentage" yaml:"level_percentage"`
	IsActive        bool    `json:"is_active" yaml:"is_active"`
}

// NewNoteCondition returns an active condition at the given level.
func NewNoteCondition(level float64) NoteCondition {
	return NoteCondition{LevelPercentage: level, IsActive: true}
}

// StructuredNote is a bank-issued structured product.
type StructuredNote struct {
	IssuerBank       string   `json:"issuer_bank" yaml:"issuer_bank" validate:"required"`
	UnderlyingAssets []Asset  `json:"underlying_assets" yaml:"underlying_assets" validate:"min=1,dive"`
	CouponRateAnnual float64  `json:"coupon_rate_annual" yaml:"coupon_rate_annual" validate:"gte=0,lte=1"`
	CouponFrequency  string   `json:"coupon_frequency" yaml:"coupon_frequency"`
	BarrierLevel     float64  `json:"barrier_level" yaml:"barrier_level" validate:"gte=0"`
	BarrierType      string   `json:"barrier_type" yaml:"barrier_type"`
	AutocallLevel    *float64 `json:"autocall_level,omitempty" yaml:"autocall_level,omitempty" validate:"omitempty,gte=0"`
	MemoryFeature    bool     `json:"memory_feature" yaml:"memory_feature"`
	StrikeDate       *Date    `json:"strike_date,omitempty" yaml:"strike_date,omitempty"`
	MaturityDate     *Date    `json:"maturity_date,omitempty" yaml:"maturity_date,omitempty"`
	Currency         Currency `json:"currency" yaml:"currency" validate:"currency"`
}

// Tickers returns the tickers of the underlying assets in order.
func (n StructuredNote) Tickers() []string {
	return lo.Map(n.UnderlyingAssets, func(a Asset, _ int) string {
		return a.Ticker
	})
}

// BarrierCondition returns the barrier as a condition.
func (n StructuredNote) BarrierCondition() NoteCondition {
	return NewNoteCondition(n.BarrierLevel)
}

// AutocallCondition returns the autocall trigger, if the note has one.
func (n StructuredNote) AutocallCondition() (NoteCondition, bool) {
	if n.AutocallLevel == nil {
		return NoteCondition{}, false
	}
	return NewNoteCondition(*n.AutocallLevel), true
}

// RiskScore is a coarse 0-10 risk indicator: a base of 3, +4 when the barrier
// sits above the reference strike, +2 for worst-of baskets of more than two
// underlyings.
func (n StructuredNote) RiskScore() int {
	score := 3
	if n.BarrierLevel > 1.0 {
		score += 4
	}
	if len(n.UnderlyingAssets) > 2 {
		score += 2
	}
	return score
}

// Currency is the settlement currency of a note.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	AUD Currency = "AUD"
)

// AllowedCurrencies lists the currencies a note may settle in.
var AllowedCurrencies = []Currency{USD, EUR, AUD}

// Valid reports whether c is an allowed currency.
func (c Currency) Valid() bool {
	return lo.Contains(AllowedCurrencies, c)
}

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	t time.Time
}

// NewDate truncates t to its calendar date.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Time returns the date as UTC midnight.
func (d Date) Time() time.Time {
	return d.t
}

func (d Date) String() string {
	return d.t.Format(time.DateOnly)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	t, err := time.Parse(time.DateOnly, string(b))
	if err != nil {
		return err
	}
	*d = NewDate(t)
	return nil
}
