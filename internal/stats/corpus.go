// Package stats extrapolates per-population positive counts from labelled subsamples
// and turns per-unit verdicts into a weighted recall estimate with a confidence interval.
package stats

import (
	"fmt"
	"math"

	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
	"github.com/lueurxax/ner-recall/internal/core/domain"
)

// rateMarginScale scales the empirical standard error of the labelled positive rate
// into the margin of the estimated positives interval.
const rateMarginScale = 0.95

// RowStatistics is a descriptor row extended with extrapolated positive counts.
type RowStatistics struct {
	domain.PopulationDescriptor
	EstimatedPositives      float64
	EstimatedPositivesLower int
	EstimatedPositivesUpper int
}

// CorpusStatistics is a derived view of a description table. It is recomputed on
// demand and never edited in place.
type CorpusStatistics struct {
	Rows                    []RowStatistics
	TotalEstimatedPositives float64
}

// ComputeCorpusStatistics extrapolates, for every descriptor row, the number of true
// positives among all occurrences: positive*occurences/labelled, with a margin of
// 0.95*sd/sqrt(labelled) on the positive rate where sd is the standard deviation of the
// labelled 0/1 sample. Rows with labelled == 0 fail with ErrDivideByZero.
func ComputeCorpusStatistics(desc *domain.Description) (*CorpusStatistics, error) {
	cs := &CorpusStatistics{Rows: make([]RowStatistics, 0, len(desc.Rows))}

	for _, row := range desc.Rows {
		rs, err := rowStatistics(row)
		if err != nil {
			return nil, fmt.Errorf("population %q (file %q): %w", row.Population, row.File, err)
		}

		cs.Rows = append(cs.Rows, rs)
		cs.TotalEstimatedPositives += rs.EstimatedPositives
	}

	return cs, nil
}

func rowStatistics(row domain.PopulationDescriptor) (RowStatistics, error) {
	if row.Labelled == 0 {
		return RowStatistics{}, fmt.Errorf("%w: no labelled occurrences", apperrors.ErrDivideByZero)
	}

	positives := float64(row.Positive)
	labelled := float64(row.Labelled)
	total := float64(row.Occurrences)

	rate := positives / labelled
	margin := rateMarginScale * bernoulliStdDev(row.Positive, row.Labelled) / math.Sqrt(labelled)

	lower := (rate - margin) * labelled
	upper := (rate + margin) * labelled

	return RowStatistics{
		PopulationDescriptor:    row,
		EstimatedPositives:      positives * total / labelled,
		EstimatedPositivesLower: int(lower * total / labelled),
		EstimatedPositivesUpper: int(upper * total / labelled),
	}, nil
}

// bernoulliStdDev is the population standard deviation of a sample holding `ones`
// ones and n-ones zeros.
func bernoulliStdDev(ones, n int) float64 {
	p := float64(ones) / float64(n)

	return math.Sqrt(p * (1 - p))
}

// PopulationTotals aggregates the rows of one population.
type PopulationTotals struct {
	Population         string
	Positive           int
	EstimatedPositives float64
}

// Populations aggregates rows per population in order of first appearance. A
// population described by several files sums their positives and estimates.
func (cs *CorpusStatistics) Populations() []PopulationTotals {
	var out []PopulationTotals

	index := make(map[string]int)

	for _, r := range cs.Rows {
		i, ok := index[r.Population]
		if !ok {
			i = len(out)
			index[r.Population] = i
			out = append(out, PopulationTotals{Population: r.Population})
		}

		out[i].Positive += r.Positive
		out[i].EstimatedPositives += r.EstimatedPositives
	}

	return out
}
