package main

import (
	"encoding/json"
	"errors"
	"text/tabwriter"

	"github.com/lueurxax/ner-recall/internal/core/domain"
)

const (
	tabPadding   = 2
	notAvailable = "-"
)

var (
	errDuplicatesFound = errors.New("duplicate annotations found")
	errNoResultsFile   = errors.New("no results file given (argument or env RESULTS_FILE)")
	errNoTaggers       = errors.New("no tagger selected")
)

func (c *cli) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 0, tabPadding, ' ', 0)
}

func (c *cli) printLeaderboard(entries []domain.LeaderboardEntry) error {
	w := c.table()

	c.printer.Fprintln(w, "EVAL NAME\tRECALL\t95% CI\tCORRECT\tINCORRECT")

	for _, e := range entries {
		correct, incorrect := notAvailable, notAvailable
		if e.Counts != nil {
			correct = c.printer.Sprintf("%d", e.Counts.Correct)
			incorrect = c.printer.Sprintf("%d", e.Counts.Incorrect)
		}

		c.printer.Fprintf(w, "%s\t%.4f\t[%.4f, %.4f]\t%s\t%s\n",
			e.EvalName, e.Recall, e.CI95.Lower(), e.CI95.Upper(), correct, incorrect)
	}

	return w.Flush()
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
