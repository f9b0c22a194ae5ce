// Package summary reduces a set of scored outcomes into the four-way
// ranking shown in the comparison view.
package summary

import (
	"github.com/KonstantinidouCh/multi-llm-eval/internal/domain"
)

// Weights control the best_overall blend. Speed and cost efficiency are
// rescaled to [0, 1] relative to the min/max of the current run before
// weighting, so the blend always compares within the run, not in absolute
// units.
type Weights struct {
	Quality float64
	Speed   float64
	Cost    float64
}

// DefaultWeights matches the documented 0.4/0.3/0.3 blend.
var DefaultWeights = Weights{Quality: 0.4, Speed: 0.3, Cost: 0.3}

type Reducer struct {
	weights Weights
}

func NewReducer(w Weights) *Reducer {
	if w.Quality == 0 && w.Speed == 0 && w.Cost == 0 {
		w = DefaultWeights
	}
	return &Reducer{weights: w}
}

// Reduce ranks the successful outcomes. All fields stay empty when nothing
// succeeded. Every rank breaks exact ties by lowest (provider, model) pair
// so identical inputs always produce identical summaries.
func (r *Reducer) Reduce(outcomes []domain.ModelOutcome) domain.ComparisonSummary {
	var valid []*domain.ModelOutcome
	for i := range outcomes {
		if outcomes[i].Succeeded() && outcomes[i].Metrics != nil {
			valid = append(valid, &outcomes[i])
		}
	}

	if len(valid) == 0 {
		return domain.ComparisonSummary{}
	}

	fastest := pick(valid, func(o *domain.ModelOutcome) float64 {
		return -o.Metrics.LatencyMs
	})

	highestQuality := pick(valid, func(o *domain.ModelOutcome) float64 {
		return o.Metrics.QualityScore
	})

	// Cost ties go to the higher-quality outcome before the id tie-break.
	mostCostEffective := valid[0]
	for _, o := range valid[1:] {
		switch {
		case o.Metrics.EstimatedCost < mostCostEffective.Metrics.EstimatedCost:
			mostCostEffective = o
		case o.Metrics.EstimatedCost == mostCostEffective.Metrics.EstimatedCost:
			if o.Metrics.QualityScore > mostCostEffective.Metrics.QualityScore ||
				(o.Metrics.QualityScore == mostCostEffective.Metrics.QualityScore && lexLess(o, mostCostEffective)) {
				mostCostEffective = o
			}
		}
	}

	weighted := r.weightedScores(valid)
	bestIdx := 0
	for i := 1; i < len(valid); i++ {
		if weighted[i] > weighted[bestIdx] ||
			(weighted[i] == weighted[bestIdx] && lexLess(valid[i], valid[bestIdx])) {
			bestIdx = i
		}
	}
	bestOverall := valid[bestIdx]

	return domain.ComparisonSummary{
		Fastest:           fastest.Key(),
		HighestQuality:    highestQuality.Key(),
		MostCostEffective: mostCostEffective.Key(),
		BestOverall:       bestOverall.Key(),
	}
}

// weightedScores computes the best_overall blend for each outcome.
func (r *Reducer) weightedScores(valid []*domain.ModelOutcome) []float64 {
	minLat, maxLat := valid[0].Metrics.LatencyMs, valid[0].Metrics.LatencyMs
	minCost, maxCost := valid[0].Metrics.EstimatedCost, valid[0].Metrics.EstimatedCost
	for _, o := range valid[1:] {
		minLat = minf(minLat, o.Metrics.LatencyMs)
		maxLat = maxf(maxLat, o.Metrics.LatencyMs)
		minCost = minf(minCost, o.Metrics.EstimatedCost)
		maxCost = maxf(maxCost, o.Metrics.EstimatedCost)
	}

	scores := make([]float64, len(valid))
	for i, o := range valid {
		speed := rescaleInverted(o.Metrics.LatencyMs, minLat, maxLat)
		costEff := rescaleInverted(o.Metrics.EstimatedCost, minCost, maxCost)
		scores[i] = r.weights.Quality*o.Metrics.QualityScore +
			r.weights.Speed*speed +
			r.weights.Cost*costEff
	}
	return scores
}

// rescaleInverted maps v onto [0, 1] so that the minimum of the run scores
// 1 and the maximum scores 0. A degenerate range scores 1 for everyone.
func rescaleInverted(v, min, max float64) float64 {
	if max == min {
		return 1.0
	}
	return (max - v) / (max - min)
}

// pick returns the outcome with the highest score, ties resolved by lowest
// (provider, model).
func pick(valid []*domain.ModelOutcome, score func(*domain.ModelOutcome) float64) *domain.ModelOutcome {
	best := valid[0]
	bestScore := score(best)
	for _, o := range valid[1:] {
		s := score(o)
		if s > bestScore || (s == bestScore && lexLess(o, best)) {
			best = o
			bestScore = s
		}
	}
	return best
}

func lexLess(a, b *domain.ModelOutcome) bool {
	if a.Provider != b.Provider {
		return a.Provider < b.Provider
	}
	return a.Model < b.Model
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
