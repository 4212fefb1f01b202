// Package analytics aggregates catalog statistics. It does no scoring.
package analytics

import (
	"sort"

	"github.com/opensource-finance/propvest/internal/domain"
)

type group struct {
	count int
	total float64
}

// Aggregate summarizes the properties. Risk groups are ordered Low, Medium,
// High; type and location groups alphabetically. An empty input yields zero
// stats and empty, non-nil group lists.
func Aggregate(properties []domain.Property) domain.AnalyticsSummary {
	summary := domain.AnalyticsSummary{
		ByRisk:     []domain.GroupStats{},
		ByType:     []domain.GroupStats{},
		ByLocation: []domain.GroupStats{},
	}
	if len(properties) == 0 {
		return summary
	}

	byRisk := make(map[string]*group)
	byType := make(map[string]*group)
	byLocation := make(map[string]*group)

	var priceSum, incomeSum, sizeSum float64
	minPrice, maxPrice := properties[0].Price, properties[0].Price

	for _, p := range properties {
		priceSum += p.Price
		incomeSum += p.AnnualRentalIncome
		sizeSum += p.Size
		if p.Price < minPrice {
			minPrice = p.Price
		}
		if p.Price > maxPrice {
			maxPrice = p.Price
		}

		add(byRisk, string(p.RiskLevel), p.Price)
		add(byType, p.PropertyType, p.Price)
		add(byLocation, p.Location, p.Price)
	}

	n := float64(len(properties))
	summary.Overall = domain.OverallStats{
		TotalProperties: len(properties),
		AveragePrice:    priceSum / n,
		MinPrice:        minPrice,
		MaxPrice:        maxPrice,
		AverageIncome:   incomeSum / n,
		AverageSize:     sizeSum / n,
	}

	summary.ByRisk = flatten(byRisk, riskLess)
	summary.ByType = flatten(byType, func(a, b string) bool { return a < b })
	summary.ByLocation = flatten(byLocation, func(a, b string) bool { return a < b })

	return summary
}

func add(groups map[string]*group, key string, price float64) {
	g, ok := groups[key]
	if !ok {
		g = &group{}
		groups[key] = g
	}
	g.count++
	g.total += price
}

func flatten(groups map[string]*group, less func(a, b string) bool) []domain.GroupStats {
	out := make([]domain.GroupStats, 0, len(groups))
	for key, g := range groups {
		out = append(out, domain.GroupStats{
			Key:          key,
			Count:        g.count,
			AveragePrice: g.total / float64(g.count),
		})
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].Key, out[j].Key) })
	return out
}

// riskLess orders known levels by rank and unknown ones after them.
func riskLess(a, b string) bool {
	ra, okA := domain.RiskLevel(a).Rank()
	rb, okB := domain.RiskLevel(b).Rank()
	switch {
	case okA && okB:
		return ra < rb
	case okA != okB:
		return okA
	default:
		return a < b
	}
}
