package domain

import "time"

// SubScores is the per-dimension breakdown of a total score.
type SubScores struct {
	PriceFit      float64 `json:"priceFit"`
	RiskAlignment float64 `json:"riskAlignment"`
	YieldScore    float64 `json:"yieldScore"`
	ROIScore      float64 `json:"roiScore"`
	LocationBonus float64 `json:"locationBonus"`
}

// Sum adds the five sub-scores.
func (s SubScores) Sum() float64 {
	return s.PriceFit + s.RiskAlignment + s.YieldScore + s.ROIScore + s.LocationBonus
}

// ScoredRecommendation is one property scored against one investor profile.
type ScoredRecommendation struct {
	Property  Property       `json:"property"`
	Metrics   DerivedMetrics `json:"metrics"`
	Score     float64        `json:"score"` // 0-100, two decimals
	Reasoning []string       `json:"reasoning"`
	SubScores SubScores      `json:"subScores"`
}

// RecommendationRun records one completed recommendation request.
type RecommendationRun struct {
	ID              string                 `json:"id"`
	Profile         InvestorProfile        `json:"profile"`
	Filter          string                 `json:"filter,omitempty"`
	TotalAnalyzed   int                    `json:"totalAnalyzed"`
	ScreenedOut     int                    `json:"screenedOut"`
	Recommendations []ScoredRecommendation `json:"recommendations"`
	TraceID         string                 `json:"traceId,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

// ComparisonRow is one column of a side-by-side comparison.
type ComparisonRow struct {
	Property Property       `json:"property"`
	Metrics  DerivedMetrics `json:"metrics"`

	// Score and SubScores are present only when a profile was supplied.
	Score     *float64   `json:"score,omitempty"`
	SubScores *SubScores `json:"subScores,omitempty"`
}

// Comparison is a side-by-side metric table of two to four properties.
type Comparison struct {
	Rows []ComparisonRow `json:"rows"`

	// Best maps a metric name to the index of the leading row.
	// A metric no row defines is absent.
	Best map[string]int `json:"best"`
}

// Comparison metric names used as keys of Comparison.Best.
const (
	BestRentalYield      = "rentalYield"
	BestNetROI           = "netRoi"
	BestPricePerArea     = "pricePerArea"
	BestMaintenanceRatio = "maintenanceRatio"
	BestScore            = "score"
)
