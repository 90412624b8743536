// Package tagger provides the taggers the benchmark can evaluate: a lexicon based
// gazetteer, a client for remote tagging services and an LLM backed tagger.
package tagger

import (
	"context"
	"unicode"

	"github.com/lueurxax/ner-recall/internal/core/domain"
)

// WordsLayer is the name of the word segmentation layer.
const WordsLayer = "words"

// Words segments a document into words. Runs of letters, digits and marks form one
// word; any other non-space code point is a word of its own.
type Words struct{}

func (Words) Layer() string { return WordsLayer }

func (w Words) Tag(_ context.Context, doc *domain.Document) error {
	layer := &domain.Layer{Name: WordsLayer}

	for _, b := range Tokenize(doc.Runes()) {
		if err := layer.Add(doc, b[0], b[1]); err != nil {
			return err
		}
	}

	return doc.AddLayer(layer)
}

// Tokenize returns [start, end) code point boundaries of the words in text.
func Tokenize(text []rune) [][2]int {
	var (
		bounds [][2]int
		start  = -1
	)

	flush := func(end int) {
		if start >= 0 {
			bounds = append(bounds, [2]int{start, end})
			start = -1
		}
	}

	for i, r := range text {
		switch {
		case isWordRune(r):
			if start < 0 {
				start = i
			}
		case unicode.IsSpace(r):
			flush(i)
		default:
			flush(i)
			bounds = append(bounds, [2]int{i, i + 1})
		}
	}

	flush(len(text))

	return bounds
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
