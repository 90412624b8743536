package stats

import (
	"fmt"

	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
	"github.com/lueurxax/ner-recall/internal/core/domain"
)

// PopulationWeight is the weight of every evaluated unit of one population.
type PopulationWeight struct {
	Population string
	Positive   int
	Weight     float64
}

// PopulationWeights computes, per population, estimated_positives(p) /
// (positive(p) * total_estimated_positives). Populations without positives hold no
// units and get no weight.
func PopulationWeights(cs *CorpusStatistics) (map[string]PopulationWeight, error) {
	if cs.TotalEstimatedPositives == 0 {
		return nil, fmt.Errorf("%w: total estimated positives is zero", apperrors.ErrDivideByZero)
	}

	out := make(map[string]PopulationWeight)

	for _, p := range cs.Populations() {
		w := PopulationWeight{Population: p.Population, Positive: p.Positive}
		if p.Positive > 0 {
			w.Weight = p.EstimatedPositives / (float64(p.Positive) * cs.TotalEstimatedPositives)
		}

		out[p.Population] = w
	}

	return out, nil
}

// populationRuns returns the populations of the verdict sequence in order together
// with their run lengths, failing when a population reappears after another one.
func populationRuns(verdicts []domain.Verdict) ([]string, map[string]int, error) {
	var order []string

	counts := make(map[string]int)
	last := ""

	for i, v := range verdicts {
		if counts[v.Population] > 0 && last != v.Population {
			return nil, nil, fmt.Errorf("%w: examples of the population %q at unit %d: unexpectedly previous example is from another population %q",
				apperrors.ErrNonContiguousPopulation, v.Population, i, last)
		}

		if counts[v.Population] == 0 {
			order = append(order, v.Population)
		}

		counts[v.Population]++
		last = v.Population
	}

	return order, counts, nil
}

// WeightVector builds one weight per verdict, positionally aligned with the verdicts.
// Each population's weight is repeated positive(p) times; a population whose verdict
// run length differs from positive(p) fails with ErrSizeMismatch.
func WeightVector(verdicts []domain.Verdict, cs *CorpusStatistics) ([]float64, error) {
	order, runs, err := populationRuns(verdicts)
	if err != nil {
		return nil, err
	}

	weights, err := PopulationWeights(cs)
	if err != nil {
		return nil, err
	}

	vector := make([]float64, 0, len(verdicts))

	for _, pop := range order {
		w, ok := weights[pop]
		if !ok {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownPopulation, pop)
		}

		if runs[pop] != w.Positive {
			return nil, fmt.Errorf("%w: population %q has %d evaluated units, description declares %d positives",
				apperrors.ErrSizeMismatch, pop, runs[pop], w.Positive)
		}

		for range w.Positive {
			vector = append(vector, w.Weight)
		}
	}

	return vector, nil
}
