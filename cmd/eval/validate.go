package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lueurxax/ner-recall/internal/benchmark"
)

func (c *cli) validateCmd() *cobra.Command {
	var checkDuplicates bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a benchmark description and its annotation files",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path := c.cfg.DescriptionFile

			if err := benchmark.ValidateFile(path); err != nil {
				return err
			}

			gold, err := benchmark.LoadFile(path, benchmark.SkipValidation())
			if err != nil {
				return err
			}

			c.printer.Fprintf(c.out, "Benchmark %s is valid: %d units in %d populations\n", path, gold.Len(), len(gold.Populations()))

			if !checkDuplicates {
				return nil
			}

			findings := benchmark.CheckGoldStandard(gold)
			for _, f := range findings {
				fmt.Fprintln(c.out, f.String())
			}

			if len(findings) > 0 {
				return fmt.Errorf("%w: %d findings", errDuplicatesFound, len(findings))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&checkDuplicates, "check-duplicates", false, "also report duplicate and conflicting annotations")

	return cmd
}

func (c *cli) overlapsCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "overlaps [root]",
		Short: "Report units shared between the benchmarks found under a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			report, err := benchmark.DetectOverlaps(root, filepath.Base(c.cfg.DescriptionFile), &c.logger)
			if err != nil {
				return err
			}

			w := c.table()
			c.printer.Fprintln(w, "SET\tUNITS")

			for _, s := range report.Sets {
				c.printer.Fprintf(w, "%s\t%d\n", s.Name, s.Units)
			}

			if err := w.Flush(); err != nil {
				return err
			}

			c.printer.Fprintf(c.out, "Duplicate texts: %d of %d (%.2f%%)\n", report.DuplicateTexts, report.TotalTexts, report.DuplicateTextsRate())
			c.printer.Fprintf(c.out, "Duplicate annotations: %d of %d (%.2f%%)\n",
				report.DuplicateAnnotations, report.TotalAnnotations, report.DuplicateAnnotationsRate())

			if !verbose {
				return nil
			}

			for _, d := range report.Duplicates {
				fmt.Fprintf(c.out, "%q\n", d.Text)

				for _, a := range d.Annotations {
					fmt.Fprintf(c.out, "  %s\n", a.Span)

					for _, src := range a.Sources {
						fmt.Fprintf(c.out, "    %s / %s\n", src.Set, src.Population)
					}
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list every duplicated annotation")

	return cmd
}
