package scoring

import (
	"encoding/json"
	"fmt"
	"os"
)

// Tuning holds every constant of the scoring curves. Values are parameters,
// not a contract: deployments may load their own from JSON.
type Tuning struct {
	// PriceFitMax is awarded to a price inside the budget.
	PriceFitMax float64 `json:"priceFitMax"`

	// PriceTolerance is the number of budget widths outside the budget at
	// which price fit reaches zero.
	PriceTolerance float64 `json:"priceTolerance"`

	// Risk alignment points by distance on the Low < Medium < High scale.
	RiskExact    float64 `json:"riskExact"`
	RiskAdjacent float64 `json:"riskAdjacent"`
	RiskDistant  float64 `json:"riskDistant"`

	Yield TargetScale `json:"yield"`
	ROI   TargetScale `json:"roi"`

	LocationBonus float64 `json:"locationBonus"`
}

// TargetScale scores a percentage metric against an investor's minimum.
// Meeting the target earns Base, rising linearly to Max at SurplusSpan
// points above it. Each point of shortfall costs ShortfallPenalty.
type TargetScale struct {
	Base             float64 `json:"base"`
	Max              float64 `json:"max"`
	SurplusSpan      float64 `json:"surplusSpan"`
	ShortfallPenalty float64 `json:"shortfallPenalty"`
}

// DefaultTuning returns the standard weights: 25 price, 20 risk, 30 yield,
// 25 ROI and a 10 point location bonus.
func DefaultTuning() Tuning {
	return Tuning{
		PriceFitMax:    25,
		PriceTolerance: 2,
		RiskExact:      20,
		RiskAdjacent:   12,
		RiskDistant:    7,
		Yield: TargetScale{
			Base:             20,
			Max:              30,
			SurplusSpan:      5,
			ShortfallPenalty: 3,
		},
		ROI: TargetScale{
			Base:             15,
			Max:              25,
			SurplusSpan:      5,
			ShortfallPenalty: 3,
		},
		LocationBonus: 10,
	}
}

// Validate rejects curves that would produce negative or inverted scores.
func (t Tuning) Validate() error {
	if t.PriceFitMax < 0 || t.LocationBonus < 0 {
		return fmt.Errorf("tuning: maxima must not be negative")
	}
	if t.PriceTolerance <= 0 {
		return fmt.Errorf("tuning: priceTolerance must be positive")
	}
	if t.RiskExact < t.RiskAdjacent || t.RiskAdjacent < t.RiskDistant || t.RiskDistant < 0 {
		return fmt.Errorf("tuning: risk points must satisfy exact >= adjacent >= distant >= 0")
	}
	scales := []struct {
		name  string
		scale TargetScale
	}{
		{"yield", t.Yield},
		{"roi", t.ROI},
	}
	for _, sc := range scales {
		if sc.scale.Base < 0 || sc.scale.Max < sc.scale.Base {
			return fmt.Errorf("tuning: %s must satisfy 0 <= base <= max", sc.name)
		}
		if sc.scale.SurplusSpan < 0 || sc.scale.ShortfallPenalty < 0 {
			return fmt.Errorf("tuning: %s span and penalty must not be negative", sc.name)
		}
	}
	return nil
}

// LoadTuningFromFile overlays a JSON file on the defaults. On any error the
// defaults are returned alongside it.
func LoadTuningFromFile(path string) (Tuning, error) {
	t := DefaultTuning()
	b, err := os.ReadFile(path)
	if err != nil {
		return DefaultTuning(), fmt.Errorf("read tuning file: %w", err)
	}
	if err := json.Unmarshal(b, &t); err != nil {
		return DefaultTuning(), fmt.Errorf("unmarshal tuning: %w", err)
	}
	if err := t.Validate(); err != nil {
		return DefaultTuning(), err
	}
	return t, nil
}
