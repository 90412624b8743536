package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/lueurxax/ner-recall/internal/evaluator"
	"github.com/lueurxax/ner-recall/internal/platform/observability"
	"github.com/lueurxax/ner-recall/internal/results"
	"github.com/lueurxax/ner-recall/internal/tagger"
)

type evaluateFlags struct {
	planFile      string
	only          []string
	method        string
	ignoreErrors  bool
	noCounts      bool
	keepExisting  bool
	orderByRecall bool
	resultsFile   string
	asJSON        bool
}

func (c *cli) evaluateCmd() *cobra.Command {
	var f evaluateFlags

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate the taggers of a plan and print the recall leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("plan") {
				f.planFile = c.cfg.TaggerPlanFile
			}

			if !cmd.Flags().Changed("results") {
				f.resultsFile = c.cfg.ResultsFile
			}

			if !cmd.Flags().Changed("ignore-errors") {
				f.ignoreErrors = c.cfg.IgnoreErrors
			}

			if !cmd.Flags().Changed("no-counts") {
				f.noCounts = !c.cfg.AddCounts
			}

			return c.evaluate(cmd.Context(), f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.planFile, "plan", "p", "", "YAML tagger plan (env TAGGER_PLAN_FILE)")
	flags.StringSliceVar(&f.only, "only", nil, "evaluate only the named taggers of the plan")
	flags.StringVar(&f.method, "method", evaluator.MethodPreciseRecall, "evaluation method")
	flags.BoolVar(&f.ignoreErrors, "ignore-errors", false, "score units a tagger fails on as misses (env IGNORE_TAGGER_ERRORS)")
	flags.BoolVar(&f.noCounts, "no-counts", false, "omit raw correct/incorrect counts")
	flags.BoolVar(&f.keepExisting, "keep-existing", false, "do not clear existing output layers before tagging")
	flags.BoolVar(&f.orderByRecall, "order-by-recall", true, "sort the leaderboard by descending recall")
	flags.StringVar(&f.resultsFile, "results", "", "append results to this JSONL file (env RESULTS_FILE)")
	flags.BoolVar(&f.asJSON, "json", false, "print the leaderboard as JSON")

	return cmd
}

func (c *cli) evaluate(ctx context.Context, f evaluateFlags) error {
	plan, err := tagger.LoadPlan(f.planFile)
	if err != nil {
		return err
	}

	specs := plan.Taggers
	if len(f.only) > 0 {
		specs = slices.DeleteFunc(slices.Clone(specs), func(s tagger.Spec) bool { return !slices.Contains(f.only, s.Name) })
	}

	if len(specs) == 0 {
		return fmt.Errorf("%w: plan %q has none of %q", errNoTaggers, f.planFile, f.only)
	}

	if c.cfg.MetricsPort > 0 {
		srv := observability.NewServer(c.cfg.MetricsPort, &c.logger)

		go func() {
			if err := srv.Start(ctx); err != nil {
				c.logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	estimator, err := evaluator.New(c.cfg.DescriptionFile, &c.logger,
		evaluator.WithMethod(f.method),
		evaluator.WithCounts(!f.noCounts),
	)
	if err != nil {
		return err
	}

	settings := tagger.Settings{
		HTTPTimeout: c.cfg.TaggerHTTPTimeout,
		RPS:         c.cfg.TaggerRPS,
		LLMAPIKey:   c.cfg.LLMAPIKey,
		LLMBaseURL:  c.cfg.LLMBaseURL,
		LLMModel:    c.cfg.LLMModel,
	}

	for _, spec := range specs {
		t, err := plan.Build(spec, settings, &c.logger)
		if err != nil {
			return err
		}

		_, err = estimator.EvaluateTagger(ctx, t, evaluator.EvalOptions{
			Name:         spec.Name,
			Layer:        spec.Layer,
			KeepExisting: f.keepExisting,
			IgnoreErrors: f.ignoreErrors || spec.IgnoreErrors,
		})
		if err != nil {
			return fmt.Errorf("tagger %q: %w", spec.Name, err)
		}
	}

	leaderboard := estimator.Leaderboard(f.orderByRecall)

	if f.resultsFile != "" {
		store := results.NewStore(f.resultsFile, c.cfg.ResultsLockTimeout, &c.logger)
		if _, err := store.Append(ctx, c.cfg.DescriptionFile, leaderboard); err != nil {
			return err
		}
	}

	if f.asJSON {
		return c.printJSON(leaderboard)
	}

	return c.printLeaderboard(leaderboard)
}

func (c *cli) leaderboardCmd() *cobra.Command {
	var (
		benchmarkFilter string
		orderByRecall   bool
		asJSON          bool
	)

	cmd := &cobra.Command{
		Use:   "leaderboard [results.jsonl]",
		Short: "Render the latest result of every evaluation stored in a results file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := c.cfg.ResultsFile
			if len(args) == 1 {
				path = args[0]
			}

			if path == "" {
				return errNoResultsFile
			}

			records, err := results.Load(path)
			if err != nil {
				return err
			}

			entries := results.Latest(records, benchmarkFilter)
			if orderByRecall {
				evaluator.SortByRecall(entries)
			}

			if asJSON {
				return c.printJSON(entries)
			}

			return c.printLeaderboard(entries)
		},
	}

	cmd.Flags().StringVar(&benchmarkFilter, "benchmark", "", "only show results of this description file")
	cmd.Flags().BoolVar(&orderByRecall, "order-by-recall", true, "sort by descending recall")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	return cmd
}
