package benchmark

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/lueurxax/ner-recall/internal/core/domain"
)

type descriptorRow struct {
	file        string
	population  string
	occurrences int
	labelled    int
	positive    int
}

type annotation struct {
	text string
	span domain.Span
}

// ann annotates the first occurrence of phrase in text.
func ann(text, phrase string, labels ...string) annotation {
	idx := strings.Index(text, phrase)
	if idx < 0 {
		panic(fmt.Sprintf("%q not in %q", phrase, text))
	}

	start := utf8.RuneCountInString(text[:idx])

	return annotation{
		text: text,
		span: domain.Span{Start: start, End: start + utf8.RuneCountInString(phrase), Text: phrase, Labels: labels},
	}
}

func spanLiteral(s domain.Span) string {
	labels := make([]string, len(s.Labels))
	for i, l := range s.Labels {
		labels[i] = "'" + l + "'"
	}

	return fmt.Sprintf("{'start': %d, 'end': %d, 'text': '%s', 'labels': [%s]}", s.Start, s.End, s.Text, strings.Join(labels, ", "))
}

func writeCSV(t *testing.T, path string, records [][]string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	f, err := os.Create(path)
	require.NoError(t, err)

	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(records))
}

func writeDescription(t *testing.T, dir string, rows []descriptorRow) string {
	t.Helper()

	records := [][]string{domain.DescriptionColumns}
	for _, r := range rows {
		records = append(records, []string{
			r.file, r.population, strconv.Itoa(r.occurrences), strconv.Itoa(r.labelled), strconv.Itoa(r.positive),
		})
	}

	path := filepath.Join(dir, DefaultDescriptionFile)
	writeCSV(t, path, records)

	return path
}

func writeAnnotations(t *testing.T, dir, file string, entries ...annotation) {
	t.Helper()

	records := [][]string{domain.AnnotationColumns}
	for _, e := range entries {
		records = append(records, []string{e.text, spanLiteral(e.span)})
	}

	writeCSV(t, filepath.Join(dir, file), records)
}

// writeNewsBenchmark writes two populations: "news" with two units and "forum" with one.
func writeNewsBenchmark(t *testing.T, dir string) string {
	t.Helper()

	writeAnnotations(t, dir, "news.csv",
		ann("Angela Merkel visited Paris.", "Angela Merkel", "PER"),
		ann("Gr\u00fc\u00dfe aus K\u00f6ln", "K\u00f6ln", "LOC"),
	)
	writeAnnotations(t, dir, "forum.csv",
		ann("I work at Acme Corp now", "Acme Corp", "ORG"),
	)

	return writeDescription(t, dir, []descriptorRow{
		{file: "news.csv", population: "news", occurrences: 100, labelled: 10, positive: 2},
		{file: "forum.csv", population: "forum", occurrences: 50, labelled: 10, positive: 1},
	})
}
