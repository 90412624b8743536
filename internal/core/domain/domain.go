package domain

// Column names of the population description table. The "occurences" spelling is part of
// the published benchmark format and must be preserved.
const (
	ColumnFile        = "file"
	ColumnPopulation  = "population"
	ColumnOccurrences = "occurences"
	ColumnLabelled    = "labelled"
	ColumnPositive    = "positive"

	ColumnText = "text"
	ColumnSpan = "span"
)

// DescriptionColumns lists the required columns of a population description table.
var DescriptionColumns = []string{ColumnFile, ColumnPopulation, ColumnOccurrences, ColumnLabelled, ColumnPositive}

// AnnotationColumns lists the required columns of an annotation file.
var AnnotationColumns = []string{ColumnText, ColumnSpan}

// PopulationDescriptor is one row of the population description table: a subpopulation
// and one of its annotation files.
type PopulationDescriptor struct {
	File        string `validate:"required"`
	Population  string `validate:"required"`
	Occurrences int    `validate:"gte=0"`
	Labelled    int    `validate:"gte=0,ltefield=Occurrences"`
	Positive    int    `validate:"gte=0,ltefield=Labelled"`

	// Path is File resolved against the directory of the description file.
	Path string
	// Row is the zero-based data row index in the description file.
	Row int
}

// Description is a parsed population description table.
type Description struct {
	Path string
	Rows []PopulationDescriptor
}

// AnnotationRow is one row of an annotation file.
type AnnotationRow struct {
	Text string
	Span Span
}

// EvaluationUnit is a gold-annotated text unit with exactly one reference span.
type EvaluationUnit struct {
	Doc        *Document
	Gold       Span
	Population string
	File       string
	Row        int
}

// Verdict is the correct/incorrect classification of one evaluation unit.
type Verdict struct {
	Population string
	Correct    bool
}

// Interval is a (lower, upper) pair. It marshals as a two element JSON array.
type Interval [2]float64

// Lower returns the lower bound.
func (i Interval) Lower() float64 { return i[0] }

// Upper returns the upper bound.
func (i Interval) Upper() float64 { return i[1] }

// RecallEstimate is the weighted recall estimate and its 95% confidence interval.
type RecallEstimate struct {
	Recall float64  `json:"Recall"`
	CI95   Interval `json:"Recall-95CI%"`
}

// Counts holds raw correct/incorrect verdict counts.
type Counts struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}

// Result is the stored outcome of one tagger evaluation. Counts is nil when raw counts
// were not requested.
type Result struct {
	RecallEstimate
	*Counts
}

// LeaderboardEntry is a named evaluation result.
type LeaderboardEntry struct {
	EvalName string `json:"eval_name"`
	Result
}

// CountVerdicts tallies correct and incorrect verdicts.
func CountVerdicts(verdicts []Verdict) Counts {
	var c Counts

	for _, v := range verdicts {
		if v.Correct {
			c.Correct++
		} else {
			c.Incorrect++
		}
	}

	return c
}
