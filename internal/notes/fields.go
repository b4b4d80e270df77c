package notes

import "strings"

// Canonical field names of a structured note record.
const (
	FieldIssuerBank       = "issuer_bank"
	FieldUnderlyingAssets = "underlying_assets"
	FieldCouponRate       = "coupon_rate_annual"
	FieldCouponFrequency  = "coupon_frequency"
	FieldBarrierLevel     = "barrier_level"
	FieldBarrierType      = "barrier_type"
	FieldAutocallLevel    = "autocall_level"
	FieldMemoryFeature    = "memory_feature"
	FieldStrikeDate       = "strike_date"
	FieldMaturityDate     = "maturity_date"
	FieldCurrency         = "currency"
)

// Canonical field names of an asset record.
const (
	FieldTicker      = "ticker"
	FieldName        = "name"
	FieldSector      = "sector"
	FieldIsBenchmark = "is_benchmark"
)

// CanonicalFields lists every note field in declaration order.
var CanonicalFields = []string{
	FieldIssuerBank,
	FieldUnderlyingAssets,
	FieldCouponRate,
	FieldCouponFrequency,
	FieldBarrierLevel,
	FieldBarrierType,
	FieldAutocallLevel,
	FieldMemoryFeature,
	FieldStrikeDate,
	FieldMaturityDate,
	FieldCurrency,
}

// RequiredFields must be present, under the canonical name or an alias.
var RequiredFields = []string{
	FieldIssuerBank,
	FieldUnderlyingAssets,
	FieldCouponRate,
	FieldBarrierLevel,
}

// noteAliases maps canonical note fields to the alternate names generators use.
var noteAliases = map[string][]string{
	FieldIssuerBank:       {"issuer", "bank", "issuer_name"},
	FieldUnderlyingAssets: {"assets", "underlyings", "underlying"},
	FieldCouponRate:       {"coupon", "coupon_rate", "annual_coupon"},
	FieldCouponFrequency:  {"frequency"},
	FieldBarrierLevel:     {"barrier", "barrier_pct", "protection_barrier"},
	FieldAutocallLevel:    {"autocall"},
	FieldMemoryFeature:    {"memory", "memory_coupon"},
	FieldStrikeDate:       {"strike"},
	FieldMaturityDate:     {"maturity"},
	FieldCurrency:         {"ccy"},
}

var assetAliases = map[string][]string{
	FieldTicker: {"symbol"},
	FieldName:   {"asset_name", "company"},
}

var (
	noteAliasIndex  = invert(noteAliases)
	assetAliasIndex = invert(assetAliases)
)

// Aliases returns the alternate names accepted for a canonical note field.
func Aliases(field string) []string {
	return append([]string(nil), noteAliases[field]...)
}

// Canonicalize returns a copy of record with aliased keys renamed to their
// canonical names. Keys are matched case-insensitively with spaces and
// hyphens treated as underscores; of two keys that differ only that way the
// exactly spelled one is kept. When a record carries both a canonical key
// and one of its aliases the canonical value wins unless it is null. Values
// are not touched and unknown keys are kept.
func Canonicalize(record map[string]any) map[string]any {
	return canonicalize(record, noteAliases, noteAliasIndex)
}

func canonicalizeAsset(record map[string]any) map[string]any {
	return canonicalize(record, assetAliases, assetAliasIndex)
}

func canonicalize(record map[string]any, aliases map[string][]string, index map[string]string) map[string]any {
	normalized := make(map[string]any, len(record))
	from := make(map[string]string, len(record))
	for key, value := range record {
		nk := normalizeKey(key)
		if prev, seen := from[nk]; seen && !preferKey(nk, key, prev) {
			continue
		}
		normalized[nk] = value
		from[nk] = key
	}

	out := make(map[string]any, len(normalized))
	for key, value := range normalized {
		if _, isAlias := index[key]; !isAlias {
			out[key] = value
		}
	}
	// Aliases are tried in table order so the outcome does not depend on map
	// iteration order.
	for canonical, names := range aliases {
		if value, ok := out[canonical]; ok && value != nil {
			continue
		}
		for _, name := range names {
			if value, ok := normalized[name]; ok {
				out[canonical] = value
				break
			}
		}
	}
	return out
}

// preferKey decides which of two spellings of nk survives: the one already
// spelled nk, otherwise the lexically smaller, so "coupon" beats "Coupon".
func preferKey(nk, candidate, current string) bool {
	if (candidate == nk) != (current == nk) {
		return candidate == nk
	}
	return candidate < current
}

func normalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.ReplaceAll(k, "-", "_")
	return strings.ReplaceAll(k, " ", "_")
}

func invert(aliases map[string][]string) map[string]string {
	index := make(map[string]string)
	for canonical, names := range aliases {
		for _, name := range names {
			index[name] = canonical
		}
	}
	return index
}
