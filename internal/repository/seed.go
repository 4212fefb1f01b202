package repository

import (
	"github.com/google/uuid"

	"github.com/opensource-finance/propvest/internal/domain"
)

// sampleNamespace derives stable IDs for the sample catalog.
var sampleNamespace = uuid.MustParse("6f1c2a8e-3d4b-5e6f-8a9b-0c1d2e3f4a5b")

type sample struct {
	name, location string
	price, size    float64
	income, upkeep float64
	risk           domain.RiskLevel
	kind           string
	year           int
	description    string
}

var samples = []sample{
	{"Downtown Luxury Apartment", "Downtown City Center", 450000, 1200, 36000, 4500, domain.RiskLow, "Apartment", 2020, "Modern luxury apartment in prime location with high demand"},
	{"Suburban Family Home", "Green Valley Suburbs", 320000, 2000, 28800, 6400, domain.RiskLow, "House", 2015, "Spacious family home in growing suburban area"},
	{"Beachfront Condo", "Coastal Beach Area", 580000, 1500, 52200, 8700, domain.RiskMedium, "Condo", 2018, "Premium beachfront property with vacation rental potential"},
	{"Urban Studio", "University District", 180000, 600, 18000, 2700, domain.RiskMedium, "Studio", 2019, "Compact studio near university, high student demand"},
	{"Commercial Office Space", "Business District", 750000, 3000, 75000, 15000, domain.RiskMedium, "Commercial", 2017, "Prime office space with corporate tenants"},
	{"Fixer-Upper Duplex", "Emerging Neighborhood", 220000, 1800, 21600, 8800, domain.RiskHigh, "Duplex", 1995, "Value-add opportunity in gentrifying area"},
	{"Luxury Villa", "Hillside Estates", 1200000, 4500, 84000, 18000, domain.RiskLow, "Villa", 2021, "Premium villa with panoramic views"},
	{"Budget Apartment", "Industrial Zone", 120000, 500, 12000, 3600, domain.RiskHigh, "Apartment", 2005, "Affordable entry-level investment property"},
	{"Mid-Rise Condo", "Metro Center", 380000, 1100, 38000, 5700, domain.RiskLow, "Condo", 2019, "Well-maintained condo with metro access"},
	{"Townhouse", "Family District", 425000, 2200, 40800, 6800, domain.RiskLow, "Townhouse", 2016, "Modern townhouse in family-friendly neighborhood"},
}

// SampleProperties returns the ten listings an empty catalog is seeded with.
// IDs are derived from the names and do not change between runs.
func SampleProperties() []domain.Property {
	out := make([]domain.Property, len(samples))
	for i, s := range samples {
		year := s.year
		out[i] = domain.Property{
			ID:                 uuid.NewSHA1(sampleNamespace, []byte(s.name)).String(),
			Name:               s.name,
			Location:           s.location,
			Price:              s.price,
			Size:               s.size,
			AnnualRentalIncome: s.income,
			MaintenanceCost:    s.upkeep,
			RiskLevel:          s.risk,
			PropertyType:       s.kind,
			YearBuilt:          &year,
			Description:        s.description,
		}
	}
	return out
}
