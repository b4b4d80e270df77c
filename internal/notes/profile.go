package notes

import (
	"fmt"
	"strings"
)

// Risk appetites accepted by InvestorProfile.
const (
	RiskConservative = "Conservative"
	RiskModerate     = "Moderate"
	RiskAggressive   = "Aggressive"
)

// InvestorProfile captures an investor's risk tolerance and goals. It is
// passed to ranking prompts as context; nothing in this module ranks notes.
type InvestorProfile struct {
	RiskAppetite         string   `json:"risk_appetite" yaml:"risk_appetite" validate:"oneof=Conservative Moderate Aggressive"`
	TargetAnnualReturn   float64  `json:"target_annual_return" yaml:"target_annual_return" validate:"gte=0,lte=1"`
	MinAcceptableBarrier float64  `json:"min_acceptable_barrier" yaml:"min_acceptable_barrier" validate:"gte=0"`
	ExcludedSectors      []string `json:"excluded_sectors,omitempty" yaml:"excluded_sectors,omitempty"`
	PreferredMarkets     []string `json:"preferred_markets,omitempty" yaml:"preferred_markets,omitempty"`
}

// DefaultInvestorProfile returns a moderate profile with a 60% barrier floor.
func DefaultInvestorProfile() InvestorProfile {
	return InvestorProfile{
		RiskAppetite:         RiskModerate,
		MinAcceptableBarrier: 0.6,
		PreferredMarkets:     []string{"US", "EU", "AU"},
	}
}

// Validate checks the profile fields.
func (p InvestorProfile) Validate() error {
	return validate.Struct(p)
}

// Summary renders the profile for prompt context.
func (p InvestorProfile) Summary() string {
	parts := []string{
		"Risk appetite: " + p.RiskAppetite,
		"Target annual return: " + Percent(p.TargetAnnualReturn),
		"Minimum acceptable barrier: " + Percent(p.MinAcceptableBarrier),
	}
	if len(p.ExcludedSectors) > 0 {
		parts = append(parts, "Excluded sectors: "+strings.Join(p.ExcludedSectors, ", "))
	}
	if len(p.PreferredMarkets) > 0 {
		parts = append(parts, "Preferred markets: "+strings.Join(p.PreferredMarkets, ", "))
	}
	return fmt.Sprintf("Investor profile:\n- %s", strings.Join(parts, "\n- "))
}
