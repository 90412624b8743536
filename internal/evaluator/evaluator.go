// Package evaluator ties the benchmark loader, the evaluation harness and the weighted
// recall estimator together and keeps a leaderboard of evaluated taggers.
package evaluator

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/rs/zerolog"

	"github.com/lueurxax/ner-recall/internal/benchmark"
	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
	"github.com/lueurxax/ner-recall/internal/core/domain"
	"github.com/lueurxax/ner-recall/internal/harness"
	"github.com/lueurxax/ner-recall/internal/platform/observability"
	"github.com/lueurxax/ner-recall/internal/stats"
)

// MethodPreciseRecall is the only supported evaluation method: exact boundary and label
// match against the gold span, weighted by extrapolated population sizes.
const MethodPreciseRecall = "precise_recall"

const (
	boundLower = "lower"
	boundMean  = "mean"
	boundUpper = "upper"
)

var supportedMethods = []string{MethodPreciseRecall}

// Option configures a RecallEstimator.
type Option func(*RecallEstimator)

// WithMethod selects the evaluation method.
func WithMethod(method string) Option {
	return func(e *RecallEstimator) {
		e.method = method
	}
}

// WithCounts controls whether raw correct/incorrect counts are added to results.
// Enabled by default.
func WithCounts(enabled bool) Option {
	return func(e *RecallEstimator) {
		e.addCounts = enabled
	}
}

// WithIntervalStrategy replaces the confidence interval computation.
func WithIntervalStrategy(s stats.IntervalStrategy) Option {
	return func(e *RecallEstimator) {
		e.strategy = s
	}
}

// RecallEstimator evaluates taggers on one benchmark. The gold standard is loaded and
// validated once and reused by every evaluation; it is not safe for concurrent use.
type RecallEstimator struct {
	descriptionFile string
	gold            *benchmark.GoldStandard
	harness         *harness.Harness
	logger          *zerolog.Logger

	method    string
	addCounts bool
	strategy  stats.IntervalStrategy

	evalCounter int
	results     map[string]domain.Result
	order       []string
}

// New loads and validates the benchmark described by descriptionFile.
func New(descriptionFile string, logger *zerolog.Logger, opts ...Option) (*RecallEstimator, error) {
	e := &RecallEstimator{
		descriptionFile: descriptionFile,
		harness:         harness.New(logger),
		logger:          logger,
		method:          MethodPreciseRecall,
		addCounts:       true,
		strategy:        stats.WaldInterval{Z: stats.Z95},
		results:         make(map[string]domain.Result),
	}

	for _, opt := range opts {
		opt(e)
	}

	if !slices.Contains(supportedMethods, e.method) {
		return nil, fmt.Errorf("%w: %q, supported methods: %q", apperrors.ErrUnsupportedMethod, e.method, supportedMethods)
	}

	if info, err := os.Stat(descriptionFile); err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: description file %q", apperrors.ErrFileNotFound, descriptionFile)
	}

	gold, err := benchmark.LoadFile(descriptionFile)
	if err != nil {
		return nil, err
	}

	e.gold = gold
	observability.GoldStandardUnits.Set(float64(gold.Len()))

	logger.Info().Str("benchmark", descriptionFile).Int("size", gold.Len()).Msg("Loaded evaluation benchmark")

	return e, nil
}

// GoldStandard returns the loaded evaluation set.
func (e *RecallEstimator) GoldStandard() *benchmark.GoldStandard {
	return e.gold
}

// EvalOptions control one tagger evaluation.
type EvalOptions struct {
	// Name of the evaluation. Defaults to "<output layer>_#<evaluation count>".
	Name string
	// Layer overrides the scored output layer.
	Layer string
	// KeepExisting disables the removal of existing output layers before tagging. Tagging
	// an already tagged benchmark then fails with a duplicate layer error.
	KeepExisting bool
	// IgnoreErrors scores units the tagger fails on as misses.
	IgnoreErrors bool
}

// EvaluateTagger runs the tagger over the gold standard, estimates its recall and
// records the result under the evaluation name. It returns a copy of the stored result.
func (e *RecallEstimator) EvaluateTagger(ctx context.Context, tagger harness.Tagger, opts EvalOptions) (domain.Result, error) {
	report, err := e.harness.Evaluate(ctx, e.gold.Units, tagger, harness.Options{
		Name:         opts.Name,
		Layer:        opts.Layer,
		Overwrite:    !opts.KeepExisting,
		IgnoreErrors: opts.IgnoreErrors,
	})
	if err != nil {
		return domain.Result{}, fmt.Errorf("evaluate benchmark %q: %w", e.descriptionFile, err)
	}

	e.evalCounter++
	name := e.evalName(tagger, opts.Name)

	corpus, err := stats.ComputeCorpusStatistics(e.gold.Description)
	if err != nil {
		return domain.Result{}, fmt.Errorf("corpus statistics of %q: %w", e.descriptionFile, err)
	}

	estimate, err := stats.EstimateRecall(report.Verdicts, corpus, e.strategy)
	if err != nil {
		return domain.Result{}, fmt.Errorf("recall estimate of %q: %w", name, err)
	}

	result := domain.Result{RecallEstimate: estimate}
	if e.addCounts {
		counts := domain.CountVerdicts(report.Verdicts)
		result.Counts = &counts
	}

	e.store(name, result)

	observability.EvaluationsTotal.Inc()
	observability.RecallEstimate.WithLabelValues(name, boundMean).Set(estimate.Recall)
	observability.RecallEstimate.WithLabelValues(name, boundLower).Set(estimate.CI95.Lower())
	observability.RecallEstimate.WithLabelValues(name, boundUpper).Set(estimate.CI95.Upper())

	e.logger.Info().
		Str("eval_name", name).
		Float64("recall", estimate.Recall).
		Float64("ci_lower", estimate.CI95.Lower()).
		Float64("ci_upper", estimate.CI95.Upper()).
		Int("warnings", len(report.Warnings)).
		Msg("Tagger evaluated")

	return copyResult(result), nil
}

func (e *RecallEstimator) evalName(tagger harness.Tagger, name string) string {
	if name != "" {
		return name
	}

	return fmt.Sprintf("%s_#%d", tagger.Output().Primary(), e.evalCounter)
}

func (e *RecallEstimator) store(name string, result domain.Result) {
	if _, ok := e.results[name]; !ok {
		e.order = append(e.order, name)
	}

	e.results[name] = result
}

// Leaderboard returns every stored result in evaluation order, or sorted by descending
// recall when orderByRecall is set.
func (e *RecallEstimator) Leaderboard(orderByRecall bool) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(e.order))
	for _, name := range e.order {
		entries = append(entries, domain.LeaderboardEntry{EvalName: name, Result: copyResult(e.results[name])})
	}

	if orderByRecall {
		SortByRecall(entries)
	}

	return entries
}

// SortByRecall sorts entries by descending recall, keeping the order of ties.
func SortByRecall(entries []domain.LeaderboardEntry) {
	slices.SortStableFunc(entries, func(a, b domain.LeaderboardEntry) int {
		switch {
		case a.Recall > b.Recall:
			return -1
		case a.Recall < b.Recall:
			return 1
		default:
			return 0
		}
	})
}

func copyResult(r domain.Result) domain.Result {
	if r.Counts != nil {
		c := *r.Counts
		r.Counts = &c
	}

	return r
}
