package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/lueurxax/ner-recall/internal/platform/config"
)

const (
	flagDescription = "description"
	flagLogLevel    = "log-level"
)

// cli holds the state shared by every subcommand once the root command ran its
// persistent pre-run.
type cli struct {
	cfg     *config.Config
	logger  zerolog.Logger
	out     io.Writer
	printer *message.Printer
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	var (
		description string
		logLevel    string
	)

	root := &cobra.Command{
		Use:           "recall-eval",
		Short:         "Estimate NER tagger recall on stratified benchmarks",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `recall-eval checks stratified NER benchmarks and estimates the recall of
taggers on them. Every population is weighted by its extrapolated number of
true entities, so the estimate reflects the whole corpus rather than the
labelled sample.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if cmd.Flags().Changed(flagDescription) {
				cfg.DescriptionFile = description
			}

			if cmd.Flags().Changed(flagLogLevel) {
				cfg.LogLevel = logLevel
			}

			c.cfg = cfg
			c.logger = newLogger(cfg.AppEnv, cfg.LogLevel)
			c.out = cmd.OutOrStdout()
			c.printer = message.NewPrinter(language.English)

			return nil
		},
	}

	root.PersistentFlags().StringVarP(&description, flagDescription, "d", "", "benchmark description CSV (env DESCRIPTION_FILE)")
	root.PersistentFlags().StringVar(&logLevel, flagLogLevel, "", "log level (env LOG_LEVEL)")

	root.AddCommand(
		c.validateCmd(),
		c.statsCmd(),
		c.evaluateCmd(),
		c.overlapsCmd(),
		c.planCmd(),
		c.leaderboardCmd(),
	)

	return root
}
