package benchmark

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"sort"

	"github.com/rs/zerolog"

	"github.com/lueurxax/ner-recall/internal/core/domain"
)

// DefaultDescriptionFile is the conventional name of a benchmark description file.
const DefaultDescriptionFile = "data_description.csv"

// AnnotationSource locates an annotation within the compared evaluation sets.
type AnnotationSource struct {
	Set        string
	Population string
}

// DuplicateAnnotation is an identical (start, end, text, labels) annotation found in
// more than one evaluation set.
type DuplicateAnnotation struct {
	Span    domain.Span
	Sources []AnnotationSource
}

// DuplicateText groups the duplicated annotations of one unit text.
type DuplicateText struct {
	Text        string
	Annotations []DuplicateAnnotation
}

// SetSize is the number of units loaded from one evaluation set.
type SetSize struct {
	Name  string
	Units int
}

// OverlapReport summarizes duplicated units across evaluation sets. It is diagnostic
// only; the data is never modified or rejected.
type OverlapReport struct {
	Sets                 []SetSize
	TotalTexts           int
	DuplicateTexts       int
	TotalAnnotations     int
	DuplicateAnnotations int
	Duplicates           []DuplicateText
}

// DuplicateTextsRate returns the share of duplicate texts in percent.
func (r *OverlapReport) DuplicateTextsRate() float64 {
	return percent(r.DuplicateTexts, r.TotalTexts)
}

// DuplicateAnnotationsRate returns the share of duplicate annotations in percent.
func (r *OverlapReport) DuplicateAnnotationsRate() float64 {
	return percent(r.DuplicateAnnotations, r.TotalAnnotations)
}

func percent(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}

	return float64(numerator) / float64(denominator) * 100.0
}

// DetectOverlaps walks root for files named descriptionFile, loads each one as a
// validated gold standard keyed by its directory, and compares them with FindOverlaps.
func DetectOverlaps(root, descriptionFile string, logger *zerolog.Logger) (*OverlapReport, error) {
	sets := make(map[string]*GoldStandard)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || d.Name() != descriptionFile {
			return nil
		}

		gs, err := LoadFile(path)
		if err != nil {
			return fmt.Errorf("load evaluation set %q: %w", path, err)
		}

		dir := filepath.Dir(path)
		sets[dir] = gs

		logger.Info().Str("set", dir).Int("size", gs.Len()).Msg("Loaded evaluation set")

		return nil
	})
	if err != nil {
		return nil, err
	}

	return FindOverlaps(sets), nil
}

type seenAnnotation struct {
	span   domain.Span
	source AnnotationSource
}

// FindOverlaps compares evaluation sets in name order. A text is a duplicate when it
// was already seen in any earlier unit; an annotation is a duplicate when the same
// text already carried the identical annotation in a different set.
func FindOverlaps(sets map[string]*GoldStandard) *OverlapReport {
	names := make([]string, 0, len(sets))
	for name := range sets {
		names = append(names, name)
	}

	sort.Strings(names)

	report := &OverlapReport{}
	seen := make(map[string][]seenAnnotation)
	confirmed := make(map[string][]DuplicateAnnotation)

	var textOrder []string

	for _, name := range names {
		gs := sets[name]
		report.Sets = append(report.Sets, SetSize{Name: name, Units: gs.Len()})

		for _, u := range gs.Units {
			report.TotalTexts++

			text := u.Doc.Text()
			prev, known := seen[text]

			if known {
				report.DuplicateTexts++
			}

			gold, _ := u.Doc.Layer(domain.GoldLayer)
			for _, span := range gold.Spans {
				report.TotalAnnotations++

				cur := seenAnnotation{span: span, source: AnnotationSource{Set: name, Population: u.Population}}

				for _, p := range prev {
					if p.source.Set == name || !p.span.Equal(span) {
						continue
					}

					if _, ok := confirmed[text]; !ok {
						textOrder = append(textOrder, text)
					}

					confirmed[text] = addDuplicate(confirmed[text], p, cur)
					report.DuplicateAnnotations++

					break
				}

				seen[text] = append(seen[text], cur)
			}
		}
	}

	for _, text := range textOrder {
		report.Duplicates = append(report.Duplicates, DuplicateText{Text: text, Annotations: confirmed[text]})
	}

	return report
}

func addDuplicate(groups []DuplicateAnnotation, prev, cur seenAnnotation) []DuplicateAnnotation {
	i := slices.IndexFunc(groups, func(g DuplicateAnnotation) bool { return g.Span.Equal(cur.span) })
	if i < 0 {
		groups = append(groups, DuplicateAnnotation{Span: cur.span})
		i = len(groups) - 1
	}

	for _, src := range []AnnotationSource{prev.source, cur.source} {
		if !slices.Contains(groups[i].Sources, src) {
			groups[i].Sources = append(groups[i].Sources, src)
		}
	}

	return groups
}
