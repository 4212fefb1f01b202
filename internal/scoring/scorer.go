// Package scoring ranks properties against an investor profile.
//
// A total score of at most 100 is the sum of five sub-scores: price fit (25),
// risk alignment (20), rental yield (30), net ROI (25) and a location
// bonus (10). The numeric breakdown and the reasoning text are produced by
// separate functions so each can be checked on its own.
package scoring

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/propvest/internal/domain"
	"github.com/opensource-finance/propvest/internal/financials"
)

// Scorer scores properties with a fixed Tuning. It holds no mutable state.
type Scorer struct {
	tuning Tuning
}

// NewScorer creates a scorer with the given tuning.
func NewScorer(t Tuning) *Scorer {
	return &Scorer{tuning: t}
}

// Tuning returns the scorer's tuning.
func (s *Scorer) Tuning() Tuning {
	return s.tuning
}

// Breakdown is the numeric result of judging one property, one criterion per
// dimension, before any text is produced.
type Breakdown struct {
	Price       PriceCriterion
	Risk        RiskCriterion
	Yield       TargetCriterion
	ROI         TargetCriterion
	Location    LocationCriterion
	Maintenance *float64
}

// PriceCriterion judges price against the budget range.
type PriceCriterion struct {
	Price     float64
	BudgetMin float64
	BudgetMax float64
	Points    float64
	Max       float64
}

// RiskCriterion judges the property's risk level against the tolerance.
// Distance is -1 when either level is unknown.
type RiskCriterion struct {
	Level     domain.RiskLevel
	Tolerance domain.RiskLevel
	Distance  int
	Points    float64
	Max       float64
}

// TargetCriterion judges a percentage metric against a minimum target.
type TargetCriterion struct {
	Value  float64
	Target float64
	Points float64
	Max    float64
}

// LocationCriterion records whether the location is preferred.
type LocationCriterion struct {
	Location       string
	HasPreferences bool
	Matched        bool
	Points         float64
	Max            float64
}

// SubScores extracts the five point values.
func (b Breakdown) SubScores() domain.SubScores {
	return domain.SubScores{
		PriceFit:      b.Price.Points,
		RiskAlignment: b.Risk.Points,
		YieldScore:    b.Yield.Points,
		ROIScore:      b.ROI.Points,
		LocationBonus: b.Location.Points,
	}
}

// Total sums the sub-scores into [0, 100] at two decimals.
func (b Breakdown) Total() float64 {
	return round2(clamp(b.SubScores().Sum(), 0, 100))
}

// Evaluate computes the numeric breakdown. Every sub-score is at least zero
// and rounded to two decimals.
func (s *Scorer) Evaluate(p domain.Property, m domain.DerivedMetrics, profile domain.InvestorProfile) Breakdown {
	t := s.tuning

	b := Breakdown{
		Price: PriceCriterion{
			Price:     p.Price,
			BudgetMin: profile.BudgetMin,
			BudgetMax: profile.BudgetMax,
			Points:    round2(s.priceFit(p.Price, profile.BudgetMin, profile.BudgetMax)),
			Max:       t.PriceFitMax,
		},
		Yield: TargetCriterion{
			Value:  m.RentalYield,
			Target: profile.MinRentalYield,
			Points: round2(t.Yield.score(m.RentalYield, profile.MinRentalYield)),
			Max:    t.Yield.Max,
		},
		ROI: TargetCriterion{
			Value:  m.NetROI,
			Target: profile.MinROI,
			Points: round2(t.ROI.score(m.NetROI, profile.MinROI)),
			Max:    t.ROI.Max,
		},
		Location: LocationCriterion{
			Location:       p.Location,
			HasPreferences: len(profile.PreferredLocations) > 0,
			Max:            t.LocationBonus,
		},
		Maintenance: m.MaintenanceRatio,
	}

	distance, points := s.riskAlignment(p.RiskLevel, profile.RiskTolerance)
	b.Risk = RiskCriterion{
		Level:     p.RiskLevel,
		Tolerance: profile.RiskTolerance,
		Distance:  distance,
		Points:    round2(points),
		Max:       t.RiskExact,
	}

	if b.Location.HasPreferences && profile.PrefersLocation(p.Location) {
		b.Location.Matched = true
		b.Location.Points = round2(t.LocationBonus)
	}

	return b
}

// Score judges one property and explains the result.
func (s *Scorer) Score(p domain.Property, m domain.DerivedMetrics, profile domain.InvestorProfile) domain.ScoredRecommendation {
	b := s.Evaluate(p, m, profile)
	return domain.ScoredRecommendation{
		Property:  p,
		Metrics:   m,
		Score:     b.Total(),
		Reasoning: Explain(b),
		SubScores: b.SubScores(),
	}
}

// Rank scores every property against the profile and orders them by total
// score, highest first. Equal scores keep their input order. The profile is
// validated first; the first property with invalid metrics aborts the run.
func (s *Scorer) Rank(properties []domain.Property, profile domain.InvestorProfile) ([]domain.ScoredRecommendation, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	out := make([]domain.ScoredRecommendation, 0, len(properties))
	for _, p := range properties {
		if !p.RiskLevel.Valid() {
			return nil, &domain.InvalidPropertyError{
				PropertyID: p.ID, Field: "riskLevel", Reason: "must be Low, Medium or High",
			}
		}
		m, err := financials.ComputeMetrics(p)
		if err != nil {
			return nil, err
		}
		out = append(out, s.Score(p, m, profile))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	return out, nil
}

// priceFit awards full points inside the budget and degrades linearly with
// the distance to the nearest bound outside it.
func (s *Scorer) priceFit(price, budgetMin, budgetMax float64) float64 {
	max := s.tuning.PriceFitMax
	if price >= budgetMin && price <= budgetMax {
		return max
	}

	var distance, bound float64
	if price < budgetMin {
		distance, bound = budgetMin-price, budgetMin
	} else {
		distance, bound = price-budgetMax, budgetMax
	}

	width := budgetMax - budgetMin
	if width <= 0 {
		width = bound
	}
	span := width * s.tuning.PriceTolerance
	if span <= 0 {
		return 0
	}

	return math.Max(0, max*(1-distance/span))
}

// riskAlignment returns the ordinal distance and its points.
func (s *Scorer) riskAlignment(level, tolerance domain.RiskLevel) (int, float64) {
	lr, ok1 := level.Rank()
	tr, ok2 := tolerance.Rank()
	if !ok1 || !ok2 {
		return -1, 0
	}

	distance := lr - tr
	if distance < 0 {
		distance = -distance
	}

	switch distance {
	case 0:
		return distance, s.tuning.RiskExact
	case 1:
		return distance, s.tuning.RiskAdjacent
	default:
		return distance, s.tuning.RiskDistant
	}
}

// score applies the two-sided target curve.
func (ts TargetScale) score(value, target float64) float64 {
	if value >= target {
		surplus := value - target
		if ts.SurplusSpan <= 0 || surplus >= ts.SurplusSpan {
			return ts.Max
		}
		return ts.Base + (ts.Max-ts.Base)*surplus/ts.SurplusSpan
	}
	return math.Max(0, ts.Base-ts.ShortfallPenalty*(target-value))
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
