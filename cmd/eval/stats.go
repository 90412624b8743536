package main

import (
	"github.com/spf13/cobra"

	"github.com/lueurxax/ner-recall/internal/benchmark"
	"github.com/lueurxax/ner-recall/internal/stats"
)

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Extrapolate the number of true entities per population",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			desc, err := benchmark.ReadDescription(c.cfg.DescriptionFile)
			if err != nil {
				return err
			}

			cs, err := stats.ComputeCorpusStatistics(desc)
			if err != nil {
				return err
			}

			weights, err := stats.PopulationWeights(cs)
			if err != nil {
				return err
			}

			w := c.table()
			c.printer.Fprintln(w, "FILE\tPOPULATION\tOCCURRENCES\tLABELLED\tPOSITIVE\tEST. POSITIVES\tLOWER\tUPPER")

			for _, r := range cs.Rows {
				c.printer.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.1f\t%d\t%d\n",
					r.File, r.Population, r.Occurrences, r.Labelled, r.Positive,
					r.EstimatedPositives, r.EstimatedPositivesLower, r.EstimatedPositivesUpper)
			}

			if err := w.Flush(); err != nil {
				return err
			}

			c.printer.Fprintf(c.out, "\nTotal estimated positives: %.1f\n\n", cs.TotalEstimatedPositives)

			w = c.table()
			c.printer.Fprintln(w, "POPULATION\tPOSITIVE\tEST. POSITIVES\tUNIT WEIGHT")

			for _, p := range cs.Populations() {
				c.printer.Fprintf(w, "%s\t%d\t%.1f\t%.6f\n", p.Population, p.Positive, p.EstimatedPositives, weights[p.Population].Weight)
			}

			return w.Flush()
		},
	}
}

func (c *cli) planCmd() *cobra.Command {
	var expected int

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Allocate a labelling budget across populations proportionally to their size",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			desc, err := benchmark.ReadDescription(c.cfg.DescriptionFile)
			if err != nil {
				return err
			}

			frequencies := make([]float64, len(desc.Rows))
			for i, r := range desc.Rows {
				frequencies[i] = float64(r.Occurrences)
			}

			sizes, err := stats.BalanceSampleSizes(frequencies, expected)
			if err != nil {
				return err
			}

			w := c.table()
			c.printer.Fprintln(w, "FILE\tPOPULATION\tOCCURRENCES\tSAMPLE SIZE")

			for i, r := range desc.Rows {
				c.printer.Fprintf(w, "%s\t%s\t%d\t%d\n", r.File, r.Population, r.Occurrences, sizes[i])
			}

			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&expected, "expected", "n", 0, "total number of units to label")
	_ = cmd.MarkFlagRequired("expected") //nolint:errcheck // flag is registered above

	return cmd
}
