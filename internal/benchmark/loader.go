package benchmark

import (
	"fmt"

	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
	"github.com/lueurxax/ner-recall/internal/core/domain"
)

// GoldStandard is the ordered evaluation set of a benchmark. Units preserve descriptor
// row order and annotation file row order, so every population occupies one
// contiguous run.
type GoldStandard struct {
	Description *domain.Description
	Units       []domain.EvaluationUnit
}

// Len returns the number of evaluation units.
func (g *GoldStandard) Len() int {
	return len(g.Units)
}

// Populations returns population identifiers in order of first appearance.
func (g *GoldStandard) Populations() []string {
	var out []string

	seen := make(map[string]bool)

	for _, u := range g.Units {
		if !seen[u.Population] {
			seen[u.Population] = true
			out = append(out, u.Population)
		}
	}

	return out
}

type loadOptions struct {
	skipValidation bool
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// SkipValidation disables the validation pass. Only for data that has already been
// validated.
func SkipValidation() LoadOption {
	return func(o *loadOptions) {
		o.skipValidation = true
	}
}

// LoadFile reads a description file and loads its gold standard.
func LoadFile(path string, opts ...LoadOption) (*GoldStandard, error) {
	desc, err := ReadDescription(path)
	if err != nil {
		return nil, err
	}

	return Load(desc, opts...)
}

// Load validates the benchmark (unless SkipValidation is given) and materializes one
// evaluation unit per annotation row, attaching the gold span as the GoldLayer of the
// unit document. On failure no partial gold standard is returned.
func Load(desc *domain.Description, opts ...LoadOption) (*GoldStandard, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	if !o.skipValidation {
		if err := Validate(desc); err != nil {
			return nil, err
		}
	}

	gs := &GoldStandard{Description: desc}

	for _, row := range desc.Rows {
		rows, err := ReadAnnotations(row.Path)
		if err != nil {
			return nil, err
		}

		if len(rows) != row.Positive {
			return nil, fmt.Errorf("%w: file %q has %d rows, description %q declares %d positives",
				apperrors.ErrSizeMismatch, row.File, len(rows), desc.Path, row.Positive)
		}

		for i, r := range rows {
			unit, err := newUnit(r, row, i)
			if err != nil {
				return nil, fmt.Errorf("%q:%d: %w", row.File, i, err)
			}

			gs.Units = append(gs.Units, unit)
		}
	}

	return gs, nil
}

func newUnit(r domain.AnnotationRow, row domain.PopulationDescriptor, index int) (domain.EvaluationUnit, error) {
	doc := domain.NewDocument(r.Text)

	gold := &domain.Layer{Name: domain.GoldLayer}
	if err := gold.Add(doc, r.Span.Start, r.Span.End, r.Span.Labels...); err != nil {
		return domain.EvaluationUnit{}, err
	}

	if err := doc.AddLayer(gold); err != nil {
		return domain.EvaluationUnit{}, err
	}

	return domain.EvaluationUnit{
		Doc:        doc,
		Gold:       gold.Spans[0],
		Population: row.Population,
		File:       row.File,
		Row:        index,
	}, nil
}
