package domain

import (
	"strings"
	"time"
)

// InvestorProfile captures an investor's financial criteria.
// Presets and custom profiles share this shape and one scoring path.
type InvestorProfile struct {
	ID                 string    `json:"id,omitempty"`
	Name               string    `json:"name"`
	BudgetMin          float64   `json:"budgetMin"`
	BudgetMax          float64   `json:"budgetMax"`
	RiskTolerance      RiskLevel `json:"riskTolerance"`
	InvestmentHorizon  string    `json:"investmentHorizon,omitempty"`
	MinRentalYield     float64   `json:"minRentalYield"`
	MinROI             float64   `json:"minRoi"`
	PreferredLocations []string  `json:"preferredLocations"`
	Preset             bool      `json:"preset,omitempty"`
	CreatedAt          time.Time `json:"createdAt,omitempty"`
}

// Validate fails fast on the first malformed field. It never corrects input.
func (p *InvestorProfile) Validate() error {
	switch {
	case !Finite(p.BudgetMin):
		return &ValidationError{Field: "budgetMin", Reason: "must be a finite number"}
	case !Finite(p.BudgetMax):
		return &ValidationError{Field: "budgetMax", Reason: "must be a finite number"}
	case !Finite(p.MinRentalYield):
		return &ValidationError{Field: "minRentalYield", Reason: "must be a finite number"}
	case !Finite(p.MinROI):
		return &ValidationError{Field: "minRoi", Reason: "must be a finite number"}
	case p.BudgetMin < 0:
		return &ValidationError{Field: "budgetMin", Reason: "must not be negative"}
	case p.BudgetMax <= 0:
		return &ValidationError{Field: "budgetMax", Reason: "must be positive"}
	case p.BudgetMin > p.BudgetMax:
		return &ValidationError{Field: "budgetMin", Reason: "must not exceed budgetMax"}
	case !p.RiskTolerance.Valid():
		return &ValidationError{Field: "riskTolerance", Reason: "must be Low, Medium or High"}
	}
	return nil
}

// PrefersLocation reports whether location is one of the preferred locations,
// ignoring case and surrounding whitespace.
func (p *InvestorProfile) PrefersLocation(location string) bool {
	want := strings.TrimSpace(location)
	for _, loc := range p.PreferredLocations {
		if strings.EqualFold(strings.TrimSpace(loc), want) {
			return true
		}
	}
	return false
}

// ProfileRef selects the profile for a request: a preset key, the id of a saved
// profile, or an inline custom profile. Exactly one must be set.
type ProfileRef struct {
	Key    string           `json:"profileKey,omitempty"`
	Custom *InvestorProfile `json:"customProfile,omitempty"`
}

// Empty reports whether no profile was selected.
func (r ProfileRef) Empty() bool {
	return r.Key == "" && r.Custom == nil
}
