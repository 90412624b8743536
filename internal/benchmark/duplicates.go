package benchmark

import (
	"fmt"
	"slices"

	"github.com/lueurxax/ner-recall/internal/core/domain"
)

// FindingKind classifies a DuplicatesChecker finding.
type FindingKind string

const (
	// FindingDuplicate marks a span already annotated for the same text.
	FindingDuplicate FindingKind = "duplicate"
	// FindingLabelConflict marks a location annotated with different labels.
	FindingLabelConflict FindingKind = "label_conflict"
)

// Finding is one problem reported by DuplicatesChecker.
type Finding struct {
	Kind     FindingKind
	Text     string
	Span     domain.Span
	Previous domain.Span
}

func (f Finding) String() string {
	switch f.Kind {
	case FindingLabelConflict:
		return fmt.Sprintf("span %q annotated with different labels: %q vs %q", f.Span.Text, f.Span.Labels, f.Previous.Labels)
	default:
		return fmt.Sprintf("duplicate entry: %s already annotated for %q", f.Span, f.Text)
	}
}

// DuplicatesChecker incrementally checks annotation entries for duplicates and for
// conflicting labels on the same location. It is meant for assembling or auditing
// a single annotation set; FindOverlaps compares separate sets.
type DuplicatesChecker struct {
	validate bool
	seen     map[string][]domain.Span
}

// NewDuplicatesChecker creates a checker. With validate set, every entry is passed
// through CheckAnnotation first.
func NewDuplicatesChecker(validate bool) *DuplicatesChecker {
	return &DuplicatesChecker{
		validate: validate,
		seen:     make(map[string][]domain.Span),
	}
}

// Check records the entry and returns findings against previously recorded entries.
func (c *DuplicatesChecker) Check(text string, span domain.Span) ([]Finding, error) {
	if c.validate {
		if err := CheckAnnotation(text, span); err != nil {
			return nil, err
		}
	}

	var findings []Finding

	prev := c.seen[text]

	if i := slices.IndexFunc(prev, span.Equal); i >= 0 {
		findings = append(findings, Finding{Kind: FindingDuplicate, Text: text, Span: span, Previous: prev[i]})
	}

	for _, p := range prev {
		if p.Start == span.Start && p.End == span.End && !slices.Equal(p.Labels, span.Labels) {
			findings = append(findings, Finding{Kind: FindingLabelConflict, Text: text, Span: span, Previous: p})
		}
	}

	c.seen[text] = append(prev, span)

	return findings, nil
}

// CheckGoldStandard runs every unit of a gold standard through a fresh checker.
func CheckGoldStandard(gs *GoldStandard) []Finding {
	c := NewDuplicatesChecker(false)

	var all []Finding

	for _, u := range gs.Units {
		findings, _ := c.Check(u.Doc.Text(), u.Gold) //nolint:errcheck // validation disabled, Check cannot fail
		all = append(all, findings...)
	}

	return all
}
