package stats

import (
	"fmt"
	"math"

	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
)

// BalanceSampleSizes allocates sample sizes to subpopulations proportionally to their
// frequencies, which minimises the variance of the overall proportion when event
// probabilities are roughly equal across subpopulations. Sizes are rounded half to
// even, so the total only approximately matches expected.
func BalanceSampleSizes(frequencies []float64, expected int) ([]int, error) {
	var total float64

	for i, f := range frequencies {
		if f < 0 {
			return nil, fmt.Errorf("%w: frequency %d is negative (%v)", apperrors.ErrInvalidInput, i, f)
		}

		total += f
	}

	if total == 0 {
		return nil, fmt.Errorf("%w: frequencies sum to zero", apperrors.ErrDivideByZero)
	}

	sizes := make([]int, len(frequencies))
	for i, f := range frequencies {
		sizes[i] = int(math.RoundToEven(f / total * float64(expected)))
	}

	return sizes, nil
}
