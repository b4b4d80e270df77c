package notes

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Percent renders a fraction as a percentage ("0.125" -> "12.5%").
// Decimal arithmetic keeps 0.07 from rendering as 7.000000000000001%.
func Percent(fraction float64) string {
	return decimal.NewFromFloat(fraction).Mul(hundred).Round(4).String() + "%"
}

// Summary renders the note as a single line for prompt context, e.g.
//
//	Note #1: Issuer=UBS, Assets=[AAPL, MSFT], Coupon=8%, Barrier=125%
func (n StructuredNote) Summary(index int) string {
	return fmt.Sprintf("Note #%d: Issuer=%s, Assets=[%s], Coupon=%s, Barrier=%s",
		index,
		n.IssuerBank,
		strings.Join(n.Tickers(), ", "),
		Percent(n.CouponRateAnnual),
		Percent(n.BarrierLevel),
	)
}

// RenderContext renders notes one summary per line, numbered from 1.
func RenderContext(notes []StructuredNote) string {
	lines := make([]string, 0, len(notes))
	for i, n := range notes {
		lines = append(lines, n.Summary(i+1))
	}
	return strings.Join(lines, "\n")
}
