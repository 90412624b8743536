package stats

import (
	"fmt"
	"math"

	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
	"github.com/lueurxax/ner-recall/internal/core/domain"
)

// Z95 is the two-sided 95% standard normal quantile.
const Z95 = 1.96

// IntervalStrategy derives a confidence interval for a weighted Bernoulli mean.
type IntervalStrategy interface {
	Name() string
	Interval(mean float64, weights []float64) domain.Interval
}

// WaldInterval is the first-order approximation
//
//	se = sqrt(mean*(1-mean)*sum(w_i^2)),  CI = mean -/+ Z*se
//
// (standard error of a proportion estimated from weighted data). It is not exact for
// small samples or means near 0 or 1 and the bounds are not clamped to [0, 1]. Results
// stay comparable with previously published benchmark figures.
type WaldInterval struct {
	Z float64
}

// Name returns the strategy name.
func (WaldInterval) Name() string {
	return "wald"
}

// Interval computes the Wald interval. The variance term is floored at zero so float
// round-off around mean == 1 never yields NaN.
func (w WaldInterval) Interval(mean float64, weights []float64) domain.Interval {
	z := w.Z
	if z == 0 {
		z = Z95
	}

	var sumSquares float64
	for _, wi := range weights {
		sumSquares += wi * wi
	}

	variance := math.Max(mean*(1-mean), 0)
	se := math.Sqrt(variance * sumSquares)

	return domain.Interval{mean - z*se, mean + z*se}
}

// EstimateRecall computes the weighted recall estimate (dot product of the weight
// vector and the 0/1 correctness vector) and its confidence interval. A nil strategy
// selects WaldInterval at 95%.
func EstimateRecall(verdicts []domain.Verdict, cs *CorpusStatistics, strategy IntervalStrategy) (domain.RecallEstimate, error) {
	if strategy == nil {
		strategy = WaldInterval{Z: Z95}
	}

	weights, err := WeightVector(verdicts, cs)
	if err != nil {
		return domain.RecallEstimate{}, err
	}

	if len(weights) != len(verdicts) {
		return domain.RecallEstimate{}, fmt.Errorf("%w: %d weights for %d verdicts", apperrors.ErrSizeMismatch, len(weights), len(verdicts))
	}

	var mean float64

	for i, v := range verdicts {
		if v.Correct {
			mean += weights[i]
		}
	}

	return domain.RecallEstimate{
		Recall: mean,
		CI95:   strategy.Interval(mean, weights),
	}, nil
}
