// Package harness runs a tagger over a gold standard and scores every unit against its
// reference span.
package harness

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
	"github.com/lueurxax/ner-recall/internal/core/domain"
	"github.com/lueurxax/ner-recall/internal/platform/observability"
)

const (
	verdictCorrect   = "correct"
	verdictIncorrect = "incorrect"
	errorModeIgnored = "ignored"
	errorModeFatal   = "fatal"
)

// Options control one harness run.
type Options struct {
	// Name identifies the tagger in logs and metrics.
	Name string
	// Layer overrides the scored layer; defaults to the tagger's primary output layer.
	Layer string
	// Overwrite removes existing output layers of the tagger before tagging.
	Overwrite bool
	// IgnoreErrors scores a failing unit as a miss instead of aborting the run.
	IgnoreErrors bool
}

// UnitWarning records a tagger failure that was ignored.
type UnitWarning struct {
	Index      int
	Population string
	Text       string
	Err        error
}

func (w UnitWarning) String() string {
	return fmt.Sprintf("failed processing unit %d (population %q) %q due to an error: %v", w.Index, w.Population, w.Text, w.Err)
}

// Report is the outcome of a harness run. Verdicts are positionally aligned with the
// evaluated units.
type Report struct {
	Layer    string
	Verdicts []domain.Verdict
	Warnings []UnitWarning
}

// Harness scores taggers against gold units.
type Harness struct {
	logger *zerolog.Logger
}

func New(logger *zerolog.Logger) *Harness {
	return &Harness{logger: logger}
}

// Evaluate runs the tagger on every unit strictly in order: add prerequisite layers,
// optionally clear previous output, tag, then compare. A unit is correct iff the
// scored layer holds a span with the gold start, end and label.
//
// Tagger errors abort the run unless IgnoreErrors is set, in which case the unit gets
// empty output layers and is scored as a miss. A tagger that does not create the
// scored layer always aborts the run with ErrMissingOutput.
func (h *Harness) Evaluate(ctx context.Context, units []domain.EvaluationUnit, tagger Tagger, opts Options) (*Report, error) {
	outputs := tagger.Output()
	if len(outputs.Names()) == 0 {
		return nil, apperrors.ErrNoOutputChannels
	}

	layer := opts.Layer
	if layer == "" {
		layer = outputs.Primary()
	}

	if layer == domain.GoldLayer || slices.Contains(outputs.Names(), domain.GoldLayer) {
		return nil, fmt.Errorf("%w: %q holds the reference spans", apperrors.ErrReservedLayer, domain.GoldLayer)
	}

	name := opts.Name
	if name == "" {
		name = outputs.Primary()
	}

	var prerequisites []Preprocessor
	if dt, ok := tagger.(DependentTagger); ok {
		prerequisites = dt.Prerequisites()
	}

	r := &run{
		logger:        h.logger,
		tagger:        tagger,
		outputs:       outputs,
		prerequisites: prerequisites,
		layer:         layer,
		name:          name,
		opts:          opts,
		report:        &Report{Layer: layer, Verdicts: make([]domain.Verdict, 0, len(units))},
	}
	report := r.report

	for i, unit := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		correct, err := r.evaluateUnit(ctx, i, unit)
		if err != nil {
			return nil, fmt.Errorf("unit %d (population %q, file %q row %d): %w", i, unit.Population, unit.File, unit.Row, err)
		}

		verdict := verdictIncorrect
		if correct {
			verdict = verdictCorrect
		}

		observability.UnitsEvaluated.WithLabelValues(name, verdict).Inc()

		report.Verdicts = append(report.Verdicts, domain.Verdict{Population: unit.Population, Correct: correct})
	}

	h.logger.Debug().
		Str("tagger", name).
		Str("layer", layer).
		Int("units", len(units)).
		Int("warnings", len(report.Warnings)).
		Msg("Harness run finished")

	return report, nil
}

type run struct {
	logger        *zerolog.Logger
	tagger        Tagger
	outputs       OutputChannels
	prerequisites []Preprocessor
	layer         string
	name          string
	opts          Options
	report        *Report
}

func (r *run) evaluateUnit(ctx context.Context, index int, unit domain.EvaluationUnit) (bool, error) {
	doc := unit.Doc

	for _, p := range r.prerequisites {
		if doc.HasLayer(p.Layer()) {
			continue
		}

		if err := p.Tag(ctx, doc); err != nil {
			return false, fmt.Errorf("prerequisite layer %q: %w", p.Layer(), err)
		}
	}

	if r.opts.Overwrite {
		for _, n := range r.outputs.Names() {
			doc.PopLayer(n)
		}
	}

	start := time.Now()
	err := r.tagger.Tag(ctx, doc)
	observability.TaggerDuration.WithLabelValues(r.name).Observe(time.Since(start).Seconds())

	if err != nil {
		if !r.opts.IgnoreErrors {
			observability.TaggerErrors.WithLabelValues(r.name, errorModeFatal).Inc()

			return false, err
		}

		r.ignoreError(index, unit, err)
	}

	out, ok := doc.Layer(r.layer)
	if !ok {
		return false, fmt.Errorf("%w: tagger %q did not create layer %q, unable to evaluate output", apperrors.ErrMissingOutput, r.name, r.layer)
	}

	return Matches(out.Spans, unit.Gold), nil
}

// ignoreError records the failure and replaces every output layer of the unit with an
// empty one, as if the tagger had detected nothing. Partial output written before the
// failure is discarded.
func (r *run) ignoreError(index int, unit domain.EvaluationUnit, err error) {
	observability.TaggerErrors.WithLabelValues(r.name, errorModeIgnored).Inc()

	doc := unit.Doc
	r.report.Warnings = append(r.report.Warnings, UnitWarning{Index: index, Population: unit.Population, Text: doc.Text(), Err: err})

	r.logger.Warn().
		Err(err).
		Int("unit", index).
		Str("population", unit.Population).
		Str("tagger", r.name).
		Msg("Tagger failed, scoring unit as a miss")

	names := r.outputs.Names()
	if !slices.Contains(names, r.layer) {
		names = append(names, r.layer)
	}

	for _, n := range names {
		doc.PopLayer(n)
		_ = doc.AddLayer(&domain.Layer{Name: n}) //nolint:errcheck // layer removed above
	}
}

// Matches reports whether any span has exactly the gold boundaries and gold label.
func Matches(spans []domain.Span, gold domain.Span) bool {
	for _, s := range spans {
		if s.Start == gold.Start && s.End == gold.End && s.Label() == gold.Label() {
			return true
		}
	}

	return false
}
