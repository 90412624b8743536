// Package benchmark reads, validates and loads recall benchmark data: a population
// description table and the annotation files it references.
package benchmark

import (
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
	"github.com/lueurxax/ner-recall/internal/core/domain"
)

var descriptorValidate = validator.New()

// ValidateFile reads the description file and validates it together with every
// referenced annotation file.
func ValidateFile(path string) error {
	desc, err := ReadDescription(path)
	if err != nil {
		return err
	}

	return Validate(desc)
}

// Validate checks the structural integrity of a benchmark:
//   - descriptor counts satisfy 0 <= positive <= labelled <= occurences;
//   - rows of one population are consecutive (weight construction relies on it);
//   - no annotation file is referenced twice;
//   - every annotation file exists, parses and holds exactly `positive` rows;
//   - every annotated span is self-consistent with its text.
//
// Validation is all-or-nothing: the first violation is returned.
func Validate(desc *domain.Description) error {
	seenFiles := make(map[string]bool, len(desc.Rows))
	populationRows := make(map[string]int)
	lastPopulation := ""

	for _, row := range desc.Rows {
		if err := descriptorValidate.Struct(row); err != nil {
			return fmt.Errorf("%w: %q row %d (file %q): %w", apperrors.ErrInvalidDescriptor, desc.Path, row.Row, row.File, err)
		}

		populationRows[row.Population]++
		if populationRows[row.Population] > 1 && lastPopulation != row.Population {
			return fmt.Errorf("%w: files of the population %q: unexpectedly previous file is from another population %q in %q",
				apperrors.ErrNonContiguousPopulation, row.Population, lastPopulation, desc.Path)
		}

		key := filepath.Clean(row.Path)
		if seenFiles[key] {
			return fmt.Errorf("%w: %q in evaluation benchmark %q", apperrors.ErrDuplicateFile, row.File, desc.Path)
		}

		if err := validateAnnotationFile(row); err != nil {
			return fmt.Errorf("evaluation benchmark %q: %w", desc.Path, err)
		}

		seenFiles[key] = true
		lastPopulation = row.Population
	}

	return nil
}

func validateAnnotationFile(row domain.PopulationDescriptor) error {
	rows, err := ReadAnnotations(row.Path)
	if err != nil {
		return err
	}

	if len(rows) != row.Positive {
		return fmt.Errorf("%w: number of samples in file %q (%d) does not match with the declared positive count (%d)",
			apperrors.ErrSizeMismatch, row.File, len(rows), row.Positive)
	}

	for i, r := range rows {
		if err := CheckAnnotation(r.Text, r.Span); err != nil {
			return fmt.Errorf("%q:%d: %w", row.File, i, err)
		}
	}

	return nil
}

// CheckAnnotation verifies that a span is well formed and that span.Text equals the
// text at the span location (code point offsets).
func CheckAnnotation(text string, span domain.Span) error {
	if span.Text == "" {
		return apperrors.ErrEmptySpanText
	}

	if span.Start >= span.End {
		return fmt.Errorf("%w: start (%d) must be less than end (%d)", apperrors.ErrInvalidSpan, span.Start, span.End)
	}

	if len(span.Labels) == 0 {
		return fmt.Errorf("%w: span %q has no labels", apperrors.ErrInvalidSpan, span.Text)
	}

	runes := []rune(text)
	if span.Start < 0 || span.End > len(runes) {
		return fmt.Errorf("%w: span.text (%q) lies outside of text bounds [%d:%d] (length %d)",
			apperrors.ErrSpanMismatch, span.Text, span.Start, span.End, len(runes))
	}

	if phrase := string(runes[span.Start:span.End]); phrase != span.Text {
		return fmt.Errorf("%w: span.text (%q) != text@span_location (%q)", apperrors.ErrSpanMismatch, span.Text, phrase)
	}

	return nil
}
