package scoring

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// Explain turns a breakdown into human-readable reasons, one per criterion in
// the order price, risk, yield, ROI, location, followed by a maintenance
// note. The output depends only on b.
func Explain(b Breakdown) []string {
	return []string{
		ExplainPrice(b.Price),
		ExplainRisk(b.Risk),
		ExplainTarget("Rental yield", b.Yield),
		ExplainTarget("Net ROI", b.ROI),
		ExplainLocation(b.Location),
		ExplainMaintenance(b.Maintenance),
	}
}

// ExplainPrice describes the price against the budget range.
func ExplainPrice(c PriceCriterion) string {
	pts := points(c.Points, c.Max)
	switch {
	case c.Price > c.BudgetMax:
		return fmt.Sprintf("Price %s exceeds your %s budget maximum by %.1f%% %s",
			money(c.Price), money(c.BudgetMax), overshoot(c.Price, c.BudgetMax), pts)
	case c.Price < c.BudgetMin:
		return fmt.Sprintf("Price %s is below your %s budget minimum by %.1f%% %s",
			money(c.Price), money(c.BudgetMin), overshoot(c.BudgetMin, c.Price), pts)
	default:
		return fmt.Sprintf("Price %s fits your %s - %s budget %s",
			money(c.Price), money(c.BudgetMin), money(c.BudgetMax), pts)
	}
}

// ExplainRisk describes the distance between risk level and tolerance.
func ExplainRisk(c RiskCriterion) string {
	pts := points(c.Points, c.Max)
	switch c.Distance {
	case 0:
		return fmt.Sprintf("Risk level %s matches your %s tolerance %s", c.Level, c.Tolerance, pts)
	case 1:
		return fmt.Sprintf("Risk level %s is one level from your %s tolerance %s", c.Level, c.Tolerance, pts)
	case 2:
		return fmt.Sprintf("Risk level %s is two levels from your %s tolerance %s", c.Level, c.Tolerance, pts)
	default:
		return fmt.Sprintf("Risk level %s is not comparable with your %s tolerance %s", c.Level, c.Tolerance, pts)
	}
}

// ExplainTarget describes a percentage metric against its minimum target.
func ExplainTarget(label string, c TargetCriterion) string {
	pts := points(c.Points, c.Max)
	if c.Value >= c.Target {
		return fmt.Sprintf("%s %.2f%% meets your %.2f%% target by %.2f points %s",
			label, c.Value, c.Target, c.Value-c.Target, pts)
	}
	return fmt.Sprintf("%s %.2f%% misses your %.2f%% target by %.2f points %s",
		label, c.Value, c.Target, c.Target-c.Value, pts)
}

// ExplainLocation describes the location bonus.
func ExplainLocation(c LocationCriterion) string {
	pts := points(c.Points, c.Max)
	switch {
	case !c.HasPreferences:
		return fmt.Sprintf("No preferred locations set, no location bonus %s", pts)
	case c.Matched:
		return fmt.Sprintf("Location %s is in your preferred locations %s", c.Location, pts)
	default:
		return fmt.Sprintf("Location %s is not in your preferred locations %s", c.Location, pts)
	}
}

// ExplainMaintenance reports maintenance cost as a share of rental income.
func ExplainMaintenance(ratio *float64) string {
	if ratio == nil {
		return "Maintenance ratio not applicable: no rental income"
	}
	return fmt.Sprintf("Maintenance costs are %.2f%% of rental income", *ratio*100)
}

func points(got, max float64) string {
	return fmt.Sprintf("(+%.2f/%s)", got, humanize.Ftoa(max))
}

func money(v float64) string {
	return "$" + humanize.Comma(int64(math.Round(v)))
}

// overshoot is how far a lies past b, as a percentage of b.
func overshoot(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return (a - b) / b * 100
}
