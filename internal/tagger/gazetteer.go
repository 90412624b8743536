package tagger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/cases"

	"github.com/lueurxax/ner-recall/internal/core/domain"
	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
	"github.com/lueurxax/ner-recall/internal/harness"
)

const (
	lexiconColumnPhrase = "phrase"
	lexiconColumnLabel  = "label"
)

// Lexicon maps phrases to entity labels. Phrases are matched word by word,
// ignoring case.
type Lexicon struct {
	entries  map[string]string
	maxWords int
}

func NewLexicon() *Lexicon {
	return &Lexicon{entries: make(map[string]string)}
}

// Add registers a phrase. A phrase added twice keeps the latest label.
func (l *Lexicon) Add(phrase, label string) {
	words := splitWords(phrase)
	if len(words) == 0 || label == "" {
		return
	}

	l.entries[lexiconKey(words)] = label
	l.maxWords = max(l.maxWords, len(words))
}

// Len returns the number of phrases.
func (l *Lexicon) Len() int {
	return len(l.entries)
}

func (l *Lexicon) lookup(words []string) (string, bool) {
	label, ok := l.entries[lexiconKey(words)]

	return label, ok
}

// LoadLexicon reads a CSV file with "phrase" and "label" columns.
func LoadLexicon(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: lexicon %q: %w", apperrors.ErrFileNotFound, path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: lexicon %q header: %w", apperrors.ErrBadFormat, path, err)
	}

	phraseIdx, labelIdx := -1, -1

	for i, col := range header {
		switch strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")) {
		case lexiconColumnPhrase:
			phraseIdx = i
		case lexiconColumnLabel:
			labelIdx = i
		}
	}

	if phraseIdx < 0 || labelIdx < 0 {
		return nil, fmt.Errorf("%w: lexicon %q needs %q and %q", apperrors.ErrMissingColumns, path, lexiconColumnPhrase, lexiconColumnLabel)
	}

	lex := NewLexicon()

	for line := 2; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: lexicon %q line %d: %w", apperrors.ErrBadFormat, path, line, err)
		}

		lex.Add(record[phraseIdx], strings.TrimSpace(record[labelIdx]))
	}

	return lex, nil
}

// Gazetteer tags the longest lexicon phrases found over the words layer.
type Gazetteer struct {
	layer   string
	lexicon *Lexicon
}

func NewGazetteer(layer string, lexicon *Lexicon) *Gazetteer {
	return &Gazetteer{layer: layer, lexicon: lexicon}
}

func (g *Gazetteer) Output() harness.OutputChannels {
	return harness.SingleChannel{Name: g.layer}
}

func (g *Gazetteer) Prerequisites() []harness.Preprocessor {
	return []harness.Preprocessor{Words{}}
}

func (g *Gazetteer) Tag(_ context.Context, doc *domain.Document) error {
	words, ok := doc.Layer(WordsLayer)
	if !ok {
		return fmt.Errorf("%w: prerequisite %q", apperrors.ErrMissingOutput, WordsLayer)
	}

	out := &domain.Layer{Name: g.layer}
	tokens := words.Spans

	for i := 0; i < len(tokens); {
		n, label := g.longestMatch(tokens[i:])
		if n == 0 {
			i++
			continue
		}

		if err := out.Add(doc, tokens[i].Start, tokens[i+n-1].End, label); err != nil {
			return err
		}

		i += n
	}

	return doc.AddLayer(out)
}

func (g *Gazetteer) longestMatch(tokens []domain.Span) (int, string) {
	limit := min(g.lexicon.maxWords, len(tokens))
	words := make([]string, limit)

	for i := range limit {
		words[i] = tokens[i].Text
	}

	for n := limit; n > 0; n-- {
		if label, ok := g.lexicon.lookup(words[:n]); ok {
			return n, label
		}
	}

	return 0, ""
}

func splitWords(phrase string) []string {
	runes := []rune(phrase)
	bounds := Tokenize(runes)
	words := make([]string, len(bounds))

	for i, b := range bounds {
		words[i] = string(runes[b[0]:b[1]])
	}

	return words
}

func lexiconKey(words []string) string {
	return cases.Fold().String(strings.Join(words, " "))
}
