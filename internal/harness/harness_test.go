package harness

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/ner-recall/internal/core/domain"
	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
)

var errTaggerBroken = errors.New("tagger broken")

func unit(population, text string, start, end int, label string) domain.EvaluationUnit {
	doc := domain.NewDocument(text)
	gold := &domain.Layer{Name: domain.GoldLayer}

	if err := gold.Add(doc, start, end, label); err != nil {
		panic(err)
	}

	if err := doc.AddLayer(gold); err != nil {
		panic(err)
	}

	return domain.EvaluationUnit{Doc: doc, Gold: gold.Spans[0], Population: population, File: population + ".csv"}
}

func testUnits() []domain.EvaluationUnit {
	return []domain.EvaluationUnit{
		unit("A", "Anna went home", 0, 4, "PER"),
		unit("A", "Met Bob today", 4, 7, "PER"),
		unit("B", "Flew to Oslo", 8, 12, "LOC"),
	}
}

// copyGold tags every document with a copy of its gold layer, relabelled for the
// texts listed in relabel.
func copyGold(layer string, relabel map[string]string) TaggerFunc {
	return TaggerFunc{Layer: layer, Fn: func(_ context.Context, doc *domain.Document) error {
		gold, _ := doc.Layer(domain.GoldLayer)
		out := &domain.Layer{Name: layer}

		for _, s := range gold.Spans {
			label := s.Label()
			if l, ok := relabel[doc.Text()]; ok {
				label = l
			}

			if err := out.Add(doc, s.Start, s.End, label); err != nil {
				return err
			}
		}

		return doc.AddLayer(out)
	}}
}

func newTestHarness() *Harness {
	logger := zerolog.Nop()

	return New(&logger)
}

func TestEvaluate_Verdicts(t *testing.T) {
	units := testUnits()

	report, err := newTestHarness().Evaluate(context.Background(), units, copyGold("ner", map[string]string{"Met Bob today": "ORG"}), Options{Overwrite: true})
	require.NoError(t, err)

	assert.Equal(t, "ner", report.Layer)
	assert.Equal(t, []domain.Verdict{
		{Population: "A", Correct: true},
		{Population: "A", Correct: false},
		{Population: "B", Correct: true},
	}, report.Verdicts)
	assert.Empty(t, report.Warnings)
}

func TestEvaluate_BoundaryMismatchIsIncorrect(t *testing.T) {
	units := []domain.EvaluationUnit{unit("A", "Anna Smith", 0, 10, "PER")}

	tagger := TaggerFunc{Layer: "ner", Fn: func(_ context.Context, doc *domain.Document) error {
		l := &domain.Layer{Name: "ner"}
		if err := l.Add(doc, 0, 4, "PER"); err != nil {
			return err
		}

		return doc.AddLayer(l)
	}}

	report, err := newTestHarness().Evaluate(context.Background(), units, tagger, Options{Overwrite: true})
	require.NoError(t, err)
	assert.False(t, report.Verdicts[0].Correct)
}

func TestEvaluate_IgnoreErrors(t *testing.T) {
	units := testUnits()

	tagger := TaggerFunc{Layer: "ner", Fn: func(ctx context.Context, doc *domain.Document) error {
		if doc.Text() == "Met Bob today" {
			return errTaggerBroken
		}

		return copyGold("ner", nil).Fn(ctx, doc)
	}}

	report, err := newTestHarness().Evaluate(context.Background(), units, tagger, Options{Overwrite: true, IgnoreErrors: true})
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false, true}, []bool{report.Verdicts[0].Correct, report.Verdicts[1].Correct, report.Verdicts[2].Correct})
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, 1, report.Warnings[0].Index)
	require.ErrorIs(t, report.Warnings[0].Err, errTaggerBroken)
	assert.Contains(t, report.Warnings[0].String(), "Met Bob today")

	layer, ok := units[1].Doc.Layer("ner")
	require.True(t, ok)
	assert.Empty(t, layer.Spans)
}

func TestEvaluate_IgnoredErrorDiscardsPartialOutput(t *testing.T) {
	tests := []struct {
		name   string
		tagger Tagger
		opts   Options
	}{
		{
			name: "single layer",
			tagger: TaggerFunc{Layer: "ner", Fn: func(ctx context.Context, doc *domain.Document) error {
				if err := copyGold("ner", nil).Fn(ctx, doc); err != nil {
					return err
				}

				return errTaggerBroken
			}},
			opts: Options{Overwrite: true, IgnoreErrors: true},
		},
		{
			name:   "scored layer override",
			tagger: failingTwoLayerTagger{},
			opts:   Options{Overwrite: true, IgnoreErrors: true, Layer: "fine"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units := testUnits()

			report, err := newTestHarness().Evaluate(context.Background(), units, tt.tagger, tt.opts)
			require.NoError(t, err)
			require.Len(t, report.Warnings, len(units))

			for i, v := range report.Verdicts {
				assert.False(t, v.Correct, "unit %d", i)

				for _, name := range tt.tagger.Output().Names() {
					layer, ok := units[i].Doc.Layer(name)
					require.True(t, ok)
					assert.Empty(t, layer.Spans)
				}
			}
		})
	}
}

// failingTwoLayerTagger writes a correct "fine" layer and then fails.
type failingTwoLayerTagger struct{}

func (failingTwoLayerTagger) Output() OutputChannels {
	return MultiChannel{Layers: []string{"coarse", "fine"}}
}

func (failingTwoLayerTagger) Tag(ctx context.Context, doc *domain.Document) error {
	if err := copyGold("fine", nil).Fn(ctx, doc); err != nil {
		return err
	}

	return errTaggerBroken
}

type multiWithGold struct{ failingTwoLayerTagger }

func (multiWithGold) Output() OutputChannels {
	return MultiChannel{Layers: []string{"ner", domain.GoldLayer}}
}

func TestEvaluate_RejectsGoldLayer(t *testing.T) {
	tests := []struct {
		name   string
		tagger Tagger
		opts   Options
	}{
		{name: "output layer", tagger: copyGold(domain.GoldLayer, nil), opts: Options{Overwrite: true}},
		{name: "scored layer", tagger: TaggerFunc{Layer: "ner"}, opts: Options{Layer: domain.GoldLayer}},
		{name: "one of several outputs", tagger: multiWithGold{}, opts: Options{Overwrite: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units := testUnits()

			_, err := newTestHarness().Evaluate(context.Background(), units, tt.tagger, tt.opts)
			require.ErrorIs(t, err, apperrors.ErrReservedLayer)

			assert.True(t, units[0].Doc.HasLayer(domain.GoldLayer))
		})
	}
}

func TestEvaluate_ErrorAbortsRun(t *testing.T) {
	calls := 0
	tagger := TaggerFunc{Layer: "ner", Fn: func(_ context.Context, _ *domain.Document) error {
		calls++

		return errTaggerBroken
	}}

	report, err := newTestHarness().Evaluate(context.Background(), testUnits(), tagger, Options{Overwrite: true})
	require.ErrorIs(t, err, errTaggerBroken)
	assert.Nil(t, report)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), `population "A"`)
}

func TestEvaluate_MissingOutputIsFatal(t *testing.T) {
	tagger := TaggerFunc{Layer: "ner", Fn: func(_ context.Context, _ *domain.Document) error { return nil }}

	for _, ignore := range []bool{false, true} {
		_, err := newTestHarness().Evaluate(context.Background(), testUnits(), tagger, Options{Overwrite: true, IgnoreErrors: ignore})
		require.ErrorIs(t, err, apperrors.ErrMissingOutput)
	}
}

func TestEvaluate_OverwriteAndKeepExisting(t *testing.T) {
	units := testUnits()
	h := newTestHarness()
	tagger := copyGold("ner", nil)

	_, err := h.Evaluate(context.Background(), units, tagger, Options{Overwrite: true})
	require.NoError(t, err)

	report, err := h.Evaluate(context.Background(), units, tagger, Options{Overwrite: true})
	require.NoError(t, err)
	assert.Len(t, report.Verdicts, 3)

	_, err = h.Evaluate(context.Background(), units, tagger, Options{Overwrite: false})
	require.ErrorIs(t, err, apperrors.ErrDuplicateChannel)
}

type twoLayerTagger struct{}

func (twoLayerTagger) Output() OutputChannels {
	return MultiChannel{Layers: []string{"coarse", "fine"}}
}

func (twoLayerTagger) Tag(_ context.Context, doc *domain.Document) error {
	gold, _ := doc.Layer(domain.GoldLayer)
	coarse := &domain.Layer{Name: "coarse"}
	fine := &domain.Layer{Name: "fine"}

	for _, s := range gold.Spans {
		if err := coarse.Add(doc, s.Start, s.End, "ENT"); err != nil {
			return err
		}

		if err := fine.Add(doc, s.Start, s.End, s.Labels...); err != nil {
			return err
		}
	}

	if err := doc.AddLayer(coarse); err != nil {
		return err
	}

	return doc.AddLayer(fine)
}

func TestEvaluate_MultiChannel(t *testing.T) {
	h := newTestHarness()

	report, err := h.Evaluate(context.Background(), testUnits(), twoLayerTagger{}, Options{Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, "coarse", report.Layer)

	for _, v := range report.Verdicts {
		assert.False(t, v.Correct)
	}

	report, err = h.Evaluate(context.Background(), testUnits(), twoLayerTagger{}, Options{Overwrite: true, Layer: "fine"})
	require.NoError(t, err)
	assert.Equal(t, "fine", report.Layer)

	for _, v := range report.Verdicts {
		assert.True(t, v.Correct)
	}
}

type countingPreprocessor struct {
	calls int
}

func (p *countingPreprocessor) Layer() string { return "tokens" }

func (p *countingPreprocessor) Tag(_ context.Context, doc *domain.Document) error {
	p.calls++

	return doc.AddLayer(&domain.Layer{Name: "tokens"})
}

type dependentTagger struct {
	TaggerFunc
	pre *countingPreprocessor
}

func (d dependentTagger) Prerequisites() []Preprocessor { return []Preprocessor{d.pre} }

func TestEvaluate_Prerequisites(t *testing.T) {
	pre := &countingPreprocessor{}
	inner := copyGold("ner", nil)

	tagger := dependentTagger{
		TaggerFunc: TaggerFunc{Layer: "ner", Fn: func(ctx context.Context, doc *domain.Document) error {
			if !doc.HasLayer("tokens") {
				return errTaggerBroken
			}

			return inner.Fn(ctx, doc)
		}},
		pre: pre,
	}

	units := testUnits()
	h := newTestHarness()

	_, err := h.Evaluate(context.Background(), units, tagger, Options{Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, 3, pre.calls)

	_, err = h.Evaluate(context.Background(), units, tagger, Options{Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, 3, pre.calls, "existing prerequisite layers are reused")
}

func TestEvaluate_NoOutputChannels(t *testing.T) {
	_, err := newTestHarness().Evaluate(context.Background(), testUnits(), TaggerFunc{}, Options{})
	require.ErrorIs(t, err, apperrors.ErrNoOutputChannels)
}

func TestEvaluate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestHarness().Evaluate(ctx, testUnits(), copyGold("ner", nil), Options{Overwrite: true})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMatches(t *testing.T) {
	gold := domain.Span{Start: 0, End: 4, Text: "Anna", Labels: []string{"PER", "B-PER"}}

	tests := []struct {
		name  string
		spans []domain.Span
		want  bool
	}{
		{name: "no spans", spans: nil, want: false},
		{name: "exact", spans: []domain.Span{{Start: 0, End: 4, Labels: []string{"PER"}}}, want: true},
		{name: "first label only", spans: []domain.Span{{Start: 0, End: 4, Labels: []string{"B-PER"}}}, want: false},
		{name: "wider", spans: []domain.Span{{Start: 0, End: 5, Labels: []string{"PER"}}}, want: false},
		{name: "one of many", spans: []domain.Span{{Start: 5, End: 9, Labels: []string{"LOC"}}, {Start: 0, End: 4, Labels: []string{"PER", "X"}}}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.spans, gold))
		})
	}
}

func TestOutputChannels(t *testing.T) {
	single := SingleChannel{Name: "ner"}
	assert.Equal(t, "ner", single.Primary())
	assert.Equal(t, []string{"ner"}, single.Names())
	assert.Empty(t, SingleChannel{}.Names())

	multi := MultiChannel{Layers: []string{"a", "b"}}
	assert.Equal(t, "a", multi.Primary())
	assert.Equal(t, []string{"a", "b"}, multi.Names())
	assert.Empty(t, MultiChannel{}.Primary())
}
