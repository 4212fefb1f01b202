package domain

import (
	"math"
	"strings"
	"time"
)

// RiskLevel is an ordinal risk classification shared by properties and investor profiles.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// riskRanks maps each risk level onto the Low < Medium < High scale.
var riskRanks = map[RiskLevel]int{
	RiskLow:    0,
	RiskMedium: 1,
	RiskHigh:   2,
}

// Rank returns the ordinal position of the level and false for unknown levels.
func (r RiskLevel) Rank() (int, bool) {
	rank, ok := riskRanks[r]
	return rank, ok
}

// Valid reports whether r is one of the known risk levels.
func (r RiskLevel) Valid() bool {
	_, ok := riskRanks[r]
	return ok
}

// ParseRiskLevel accepts any casing of Low, Medium or High.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow, true
	case "medium":
		return RiskMedium, true
	case "high":
		return RiskHigh, true
	}
	return RiskLevel(s), false
}

// RiskLevels returns every risk level in ordinal order.
func RiskLevels() []RiskLevel {
	return []RiskLevel{RiskLow, RiskMedium, RiskHigh}
}

// Property is a real-estate listing as supplied by the catalog.
type Property struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Location           string    `json:"location"`
	Price              float64   `json:"price"`
	Size               float64   `json:"size"`
	AnnualRentalIncome float64   `json:"annualRentalIncome"`
	MaintenanceCost    float64   `json:"maintenanceCost"`
	RiskLevel          RiskLevel `json:"riskLevel"`
	PropertyType       string    `json:"propertyType"`
	YearBuilt          *int      `json:"yearBuilt,omitempty"`
	Description        string    `json:"description,omitempty"`
	CreatedAt          time.Time `json:"createdAt,omitempty"`
}

// Validate checks the fields a property must carry before it enters the catalog.
func (p *Property) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return &InvalidPropertyError{Field: "name", Reason: "is required"}
	case strings.TrimSpace(p.Location) == "":
		return &InvalidPropertyError{Field: "location", Reason: "is required"}
	case !Finite(p.Price):
		return &InvalidPropertyError{Field: "price", Value: p.Price, Reason: "must be a finite number"}
	case !Finite(p.Size):
		return &InvalidPropertyError{Field: "size", Value: p.Size, Reason: "must be a finite number"}
	case !Finite(p.AnnualRentalIncome):
		return &InvalidPropertyError{Field: "annualRentalIncome", Value: p.AnnualRentalIncome, Reason: "must be a finite number"}
	case !Finite(p.MaintenanceCost):
		return &InvalidPropertyError{Field: "maintenanceCost", Value: p.MaintenanceCost, Reason: "must be a finite number"}
	case p.Price <= 0:
		return &InvalidPropertyError{Field: "price", Value: p.Price, Reason: "must be positive"}
	case p.Size <= 0:
		return &InvalidPropertyError{Field: "size", Value: p.Size, Reason: "must be positive"}
	case p.AnnualRentalIncome < 0:
		return &InvalidPropertyError{Field: "annualRentalIncome", Value: p.AnnualRentalIncome, Reason: "must not be negative"}
	case p.MaintenanceCost < 0:
		return &InvalidPropertyError{Field: "maintenanceCost", Value: p.MaintenanceCost, Reason: "must not be negative"}
	case !p.RiskLevel.Valid():
		return &InvalidPropertyError{Field: "riskLevel", Reason: "must be Low, Medium or High"}
	case strings.TrimSpace(p.PropertyType) == "":
		return &InvalidPropertyError{Field: "propertyType", Reason: "is required"}
	}
	return nil
}

// Finite reports whether v is neither NaN nor an infinity.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// DerivedMetrics are the financial figures computed from a property's raw fields.
type DerivedMetrics struct {
	// RentalYield is gross annual rent as a percentage of price.
	RentalYield float64 `json:"rentalYield"`

	// NetROI is annual rent less maintenance as a percentage of price.
	NetROI float64 `json:"netRoi"`

	PricePerArea float64 `json:"pricePerArea"`

	// MaintenanceRatio is maintenance cost over rental income.
	// Nil when the property earns no rental income.
	MaintenanceRatio *float64 `json:"maintenanceRatio"`
}

// Listing is a catalog property with its derived metrics inlined.
type Listing struct {
	Property
	Metrics DerivedMetrics `json:"metrics"`
}
