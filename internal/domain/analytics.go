package domain

// AnalyticsSummary holds catalog-wide statistics. It involves no scoring.
type AnalyticsSummary struct {
	Overall    OverallStats `json:"overall"`
	ByRisk     []GroupStats `json:"byRisk"`
	ByType     []GroupStats `json:"byType"`
	ByLocation []GroupStats `json:"byLocation"`
}

// OverallStats aggregates the whole collection.
type OverallStats struct {
	TotalProperties int     `json:"totalProperties"`
	AveragePrice    float64 `json:"averagePrice"`
	MinPrice        float64 `json:"minPrice"`
	MaxPrice        float64 `json:"maxPrice"`
	AverageIncome   float64 `json:"averageRentalIncome"`
	AverageSize     float64 `json:"averageSize"`
}

// GroupStats is the distribution entry for one group key.
type GroupStats struct {
	Key          string  `json:"key"`
	Count        int     `json:"count"`
	AveragePrice float64 `json:"averagePrice"`
}
