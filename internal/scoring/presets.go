package scoring

import (
	"strings"

	"github.com/opensource-finance/propvest/internal/domain"
)

const (
	horizonShort  = "Short-term (1-5 years)"
	horizonMedium = "Medium-term (5-10 years)"
	horizonLong   = "Long-term (10+ years)"
)

// presets is read-only. Accessors hand out copies.
var presets = []domain.InvestorProfile{
	{
		ID:                 "conservative-end-user",
		Name:               "Conservative End-User",
		BudgetMin:          200000,
		BudgetMax:          500000,
		RiskTolerance:      domain.RiskLow,
		InvestmentHorizon:  horizonLong,
		MinRentalYield:     5.0,
		MinROI:             3.0,
		PreferredLocations: []string{"Green Valley Suburbs", "Family District"},
	},
	{
		ID:                 "balanced-rental-investor",
		Name:               "Balanced Rental Investor",
		BudgetMin:          150000,
		BudgetMax:          600000,
		RiskTolerance:      domain.RiskMedium,
		InvestmentHorizon:  horizonMedium,
		MinRentalYield:     7.0,
		MinROI:             5.0,
		PreferredLocations: []string{"Downtown City Center", "Metro Center"},
	},
	{
		ID:                 "aggressive-growth-investor",
		Name:               "Aggressive Growth Investor",
		BudgetMin:          100000,
		BudgetMax:          400000,
		RiskTolerance:      domain.RiskHigh,
		InvestmentHorizon:  horizonShort,
		MinRentalYield:     10.0,
		MinROI:             8.0,
		PreferredLocations: []string{"Emerging Neighborhood", "University District"},
	},
	{
		ID:                 "premium-long-term-holder",
		Name:               "Premium Long-Term Holder",
		BudgetMin:          500000,
		BudgetMax:          1500000,
		RiskTolerance:      domain.RiskLow,
		InvestmentHorizon:  horizonLong,
		MinRentalYield:     6.0,
		MinROI:             4.0,
		PreferredLocations: []string{"Hillside Estates", "Coastal Beach Area"},
	},
	{
		ID:                 "value-add-specialist",
		Name:               "Value-Add Specialist",
		BudgetMin:          150000,
		BudgetMax:          350000,
		RiskTolerance:      domain.RiskHigh,
		InvestmentHorizon:  horizonMedium,
		MinRentalYield:     12.0,
		MinROI:             10.0,
		PreferredLocations: []string{"Emerging Neighborhood", "Industrial Zone"},
	},
}

// Presets returns the built-in investor profiles in display order.
func Presets() []domain.InvestorProfile {
	out := make([]domain.InvestorProfile, len(presets))
	for i := range presets {
		out[i] = clonePreset(presets[i])
	}
	return out
}

// Preset looks up a built-in profile by slug or display name, ignoring case.
func Preset(key string) (domain.InvestorProfile, bool) {
	key = strings.TrimSpace(key)
	for _, p := range presets {
		if strings.EqualFold(p.ID, key) || strings.EqualFold(p.Name, key) {
			return clonePreset(p), true
		}
	}
	return domain.InvestorProfile{}, false
}

func clonePreset(p domain.InvestorProfile) domain.InvestorProfile {
	p.PreferredLocations = append([]string(nil), p.PreferredLocations...)
	p.Preset = true
	return p
}
