package scoring

import (
	"github.com/opensource-finance/propvest/internal/domain"
	"github.com/opensource-finance/propvest/internal/financials"
)

// Compare builds a side-by-side table of two to four properties. When a
// profile is given each row also carries its score. Best names the leading
// row per metric; on a tie the earlier row wins.
func (s *Scorer) Compare(properties []domain.Property, profile *domain.InvestorProfile) (*domain.Comparison, error) {
	n := len(properties)
	if n < domain.MinCompareProperties || n > domain.MaxCompareProperties {
		return nil, &domain.InvalidComparisonError{Count: n}
	}
	if profile != nil {
		if err := profile.Validate(); err != nil {
			return nil, err
		}
	}

	cmp := &domain.Comparison{
		Rows: make([]domain.ComparisonRow, 0, n),
		Best: make(map[string]int),
	}

	for _, p := range properties {
		m, err := financials.ComputeMetrics(p)
		if err != nil {
			return nil, err
		}
		row := domain.ComparisonRow{Property: p, Metrics: m}
		if profile != nil {
			b := s.Evaluate(p, m, *profile)
			score := b.Total()
			sub := b.SubScores()
			row.Score = &score
			row.SubScores = &sub
		}
		cmp.Rows = append(cmp.Rows, row)
	}

	pick(cmp, domain.BestRentalYield, true, func(r domain.ComparisonRow) (float64, bool) {
		return r.Metrics.RentalYield, true
	})
	pick(cmp, domain.BestNetROI, true, func(r domain.ComparisonRow) (float64, bool) {
		return r.Metrics.NetROI, true
	})
	pick(cmp, domain.BestPricePerArea, false, func(r domain.ComparisonRow) (float64, bool) {
		return r.Metrics.PricePerArea, true
	})
	pick(cmp, domain.BestMaintenanceRatio, false, func(r domain.ComparisonRow) (float64, bool) {
		if r.Metrics.MaintenanceRatio == nil {
			return 0, false
		}
		return *r.Metrics.MaintenanceRatio, true
	})
	if profile != nil {
		pick(cmp, domain.BestScore, true, func(r domain.ComparisonRow) (float64, bool) {
			return *r.Score, true
		})
	}

	return cmp, nil
}

// pick records the leading row for one metric. Rows for which value reports
// false are skipped; if none qualify the metric is left out.
func pick(cmp *domain.Comparison, metric string, higher bool, value func(domain.ComparisonRow) (float64, bool)) {
	best := -1
	var bestVal float64
	for i, r := range cmp.Rows {
		v, ok := value(r)
		if !ok {
			continue
		}
		if best < 0 || (higher && v > bestVal) || (!higher && v < bestVal) {
			best, bestVal = i, v
		}
	}
	if best >= 0 {
		cmp.Best[metric] = best
	}
}
