// Package coerce converts loosely typed values produced by a generative model
// into Go types. Generators routinely return numbers as strings ("8%", "8,5"),
// booleans as words ("yes") and dates in whatever layout the document used.
package coerce

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// ErrEmpty is returned when a value is nil or an empty string.
var ErrEmpty = errors.New("empty value")

// IsEmpty reports whether v carries no information (nil or blank string).
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case json.Number:
		return strings.TrimSpace(t.String()) == ""
	}
	return false
}

// ErrNotFinite is returned for infinities and NaN, which strconv accepts as
// "inf" or "NaN" but no note field can hold.
var ErrNotFinite = errors.New("number is not finite")

// Float converts v to a finite float64.
// Accepts Go numeric types, json.Number and numeric strings. Strings may use
// either a dot or a comma as decimal separator. A trailing percent sign is
// applied, so "8%" is 0.08.
func Float(v any) (float64, error) {
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %v", ErrNotFinite, v)
	}
	return f, nil
}

// IsPercent reports whether v is a string carrying an explicit percent sign.
// Float has already scaled such values to a fraction.
func IsPercent(v any) bool {
	s, ok := v.(string)
	return ok && strings.HasSuffix(strings.TrimSpace(s), "%")
}

func toFloat(v any) (float64, error) {
	if IsEmpty(v) {
		return 0, ErrEmpty
	}
	switch t := v.(type) {
	case bool:
		return 0, fmt.Errorf("cannot use boolean %v as a number", t)
	case json.Number:
		return parseNumeric(t.String())
	case string:
		return parseNumeric(t)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("cannot use %T as a number: %w", v, err)
	}
	return f, nil
}

// String converts v to a trimmed string. Numbers are formatted without
// trailing zeros. Composite values (maps, slices) are rejected.
func String(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(t), nil
	case map[string]any, []any:
		return "", fmt.Errorf("cannot use %T as text", v)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", fmt.Errorf("cannot use %T as text: %w", v, err)
	}
	return strings.TrimSpace(s), nil
}

// Bool converts v to a bool. Besides the forms strconv understands it accepts
// "yes"/"no", "y"/"n" and "on"/"off".
func Bool(v any) (bool, error) {
	if IsEmpty(v) {
		return false, ErrEmpty
	}
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes", "y", "on":
			return true, nil
		case "no", "n", "off":
			return false, nil
		}
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, fmt.Errorf("cannot use %v as a boolean: %w", v, err)
	}
	return b, nil
}

// Date converts v to a calendar date (UTC midnight).
func Date(v any) (time.Time, error) {
	if IsEmpty(v) {
		return time.Time{}, ErrEmpty
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if d, err := time.Parse(time.DateOnly, s); err == nil {
			return d, nil
		}
		v = s
	}
	t, err := cast.ToTimeE(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot use %v as a date: %w", v, err)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func parseNumeric(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s, percent := strings.CutSuffix(s, "%")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return 0, ErrEmpty
	}
	s = normalizeDecimalSeparators(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	if percent {
		f /= 100
	}
	return f, nil
}

// normalizeDecimalSeparators rewrites "8,5" to "8.5" and "1.234,56" to
// "1234.56". When both separators are present the last one is the decimal
// separator, so "1,234.56" becomes "1234.56".
func normalizeDecimalSeparators(s string) string {
	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")

	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}
	return s
}
