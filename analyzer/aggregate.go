package analyzer

import "fmt"

// Thresholds are the lower bounds of the quality levels; below Poor is critical
type Thresholds struct {
	Excellent float64 `mapstructure:"excellent" yaml:"excellent"`
	Good      float64 `mapstructure:"good" yaml:"good"`
	Fair      float64 `mapstructure:"fair" yaml:"fair"`
	Poor      float64 `mapstructure:"poor" yaml:"poor"`
}

// DefaultThresholds returns the default quality level bounds
func DefaultThresholds() Thresholds {
	return Thresholds{Excellent: 90, Good: 75, Fair: 60, Poor: 40}
}

// Validate checks that thresholds lie in [0, 100] and strictly descend
func (t Thresholds) Validate() error {
	bounds := []float64{100, t.Excellent, t.Good, t.Fair, t.Poor}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] < 0 || bounds[i] > 100 {
			return fmt.Errorf("threshold %v is outside [0, 100]", bounds[i])
		}
		if i > 1 && bounds[i] >= bounds[i-1] {
			return fmt.Errorf("thresholds must strictly descend: %v >= %v", bounds[i], bounds[i-1])
		}
	}
	return nil
}

// Level returns the quality level of a score
func (t Thresholds) Level(score float64) Level {
	switch {
	case score >= t.Excellent:
		return LevelExcellent
	case score >= t.Good:
		return LevelGood
	case score >= t.Fair:
		return LevelFair
	case score >= t.Poor:
		return LevelPoor
	default:
		return LevelCritical
	}
}

// Aggregation is the output of the score aggregator
type Aggregation struct {
	Categories []CategoryScore // One per category, in Categories order
	Overall    *float64        // nil when no category is available
}

// Aggregate combines metric results into category scores and one overall score.
// A category score is the weighted mean of its non-failed metrics; a category
// whose metrics all failed is unavailable. The overall score is the weighted
// mean of the available categories.
func Aggregate(results []MetricResult, reg *Registry) Aggregation {
	var agg Aggregation
	var overallSum, overallWeight float64

	for _, c := range Categories {
		cs := CategoryScore{
			Category:     c,
			Status:       CategoryUnavailable,
			Weight:       reg.CategoryWeight(c),
			Contributing: []MetricID{},
			Weights:      map[MetricID]float64{},
		}

		var sum, weight float64
		for _, r := range results {
			category, ok := reg.CategoryOf(r.MetricID)
			if !ok || category != c || r.Status == StatusFailed || r.Score == nil {
				continue
			}
			w := reg.Weight(r.MetricID)
			sum += w * *r.Score
			weight += w
			cs.Contributing = append(cs.Contributing, r.MetricID)
			cs.Weights[r.MetricID] = w
		}

		if weight > 0 {
			score := sum / weight
			cs.Score = &score
			cs.Status = CategoryAvailable
			overallSum += cs.Weight * score
			overallWeight += cs.Weight
		}
		agg.Categories = append(agg.Categories, cs)
	}

	if overallWeight > 0 {
		overall := overallSum / overallWeight
		agg.Overall = &overall
	}
	return agg
}
