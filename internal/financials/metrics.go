// Package financials derives investment metrics from raw property figures.
package financials

import (
	"github.com/opensource-finance/propvest/internal/domain"
)

// ComputeMetrics derives rental yield, net ROI, price per area and maintenance
// ratio. Price and size must be positive, every input must be finite and so
// must every derived figure.
func ComputeMetrics(p domain.Property) (domain.DerivedMetrics, error) {
	inputs := []struct {
		field string
		value float64
	}{
		{"price", p.Price},
		{"size", p.Size},
		{"annualRentalIncome", p.AnnualRentalIncome},
		{"maintenanceCost", p.MaintenanceCost},
	}
	for _, in := range inputs {
		if !domain.Finite(in.value) {
			return domain.DerivedMetrics{}, &domain.InvalidPropertyError{
				PropertyID: p.ID, Field: in.field, Value: in.value, Reason: "must be a finite number",
			}
		}
	}

	if p.Price <= 0 {
		return domain.DerivedMetrics{}, &domain.InvalidPropertyError{
			PropertyID: p.ID, Field: "price", Value: p.Price, Reason: "must be positive",
		}
	}
	if p.Size <= 0 {
		return domain.DerivedMetrics{}, &domain.InvalidPropertyError{
			PropertyID: p.ID, Field: "size", Value: p.Size, Reason: "must be positive",
		}
	}

	m := domain.DerivedMetrics{
		RentalYield:  RentalYield(p.AnnualRentalIncome, p.Price),
		NetROI:       NetROI(p.AnnualRentalIncome, p.MaintenanceCost, p.Price),
		PricePerArea: p.Price / p.Size,
	}

	// Zero income leaves the ratio undefined rather than zero.
	if p.AnnualRentalIncome != 0 {
		ratio := p.MaintenanceCost / p.AnnualRentalIncome
		m.MaintenanceRatio = &ratio
	}

	// Extreme but finite inputs can still overflow a quotient.
	derived := []struct {
		field string
		value float64
	}{
		{"rentalYield", m.RentalYield},
		{"netRoi", m.NetROI},
		{"pricePerArea", m.PricePerArea},
	}
	if m.MaintenanceRatio != nil {
		derived = append(derived, struct {
			field string
			value float64
		}{"maintenanceRatio", *m.MaintenanceRatio})
	}
	for _, d := range derived {
		if !domain.Finite(d.value) {
			return domain.DerivedMetrics{}, &domain.InvalidPropertyError{
				PropertyID: p.ID, Field: d.field, Value: d.value, Reason: "overflows to a non-finite value",
			}
		}
	}

	return m, nil
}

// RentalYield returns gross annual rent as a percentage of price.
func RentalYield(annualRentalIncome, price float64) float64 {
	return annualRentalIncome / price * 100
}

// NetROI returns annual rent less maintenance as a percentage of price.
func NetROI(annualRentalIncome, maintenanceCost, price float64) float64 {
	return (annualRentalIncome - maintenanceCost) / price * 100
}
