package domain

import (
	"fmt"
	"slices"

	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
)

// GoldLayer is the name of the sidecar layer holding the reference span of a unit.
const GoldLayer = "_gold_ner"

// Span is a labelled region of a document. Start and End are Unicode code point offsets,
// End is exclusive.
type Span struct {
	Start  int      `json:"start"`
	End    int      `json:"end"`
	Text   string   `json:"text"`
	Labels []string `json:"labels"`
}

// Label returns the first label of the span, or "" when it has none.
func (s Span) Label() string {
	if len(s.Labels) == 0 {
		return ""
	}

	return s.Labels[0]
}

// Equal reports whether both spans have the same location, text and labels.
func (s Span) Equal(o Span) bool {
	return s.Start == o.Start && s.End == o.End && s.Text == o.Text && slices.Equal(s.Labels, o.Labels)
}

// String renders the span in the annotation file literal notation.
func (s Span) String() string {
	return fmt.Sprintf("{'start': %d, 'end': %d, 'text': %q, 'labels': %q}", s.Start, s.End, s.Text, s.Labels)
}

// Layer is a named collection of spans attached to a document.
type Layer struct {
	Name  string
	Spans []Span
}

// Add appends a span covering [start, end) of the document text.
func (l *Layer) Add(doc *Document, start, end int, labels ...string) error {
	text, err := doc.Slice(start, end)
	if err != nil {
		return err
	}

	l.Spans = append(l.Spans, Span{Start: start, End: end, Text: text, Labels: labels})

	return nil
}

// Document is a text unit owning a mutable set of named layers (output channels).
// Documents are not safe for concurrent use.
type Document struct {
	text   string
	runes  []rune
	layers map[string]*Layer
	order  []string
}

// NewDocument creates a document without layers.
func NewDocument(text string) *Document {
	return &Document{
		text:   text,
		runes:  []rune(text),
		layers: make(map[string]*Layer),
	}
}

// Text returns the raw text.
func (d *Document) Text() string {
	return d.text
}

// Len returns the text length in code points.
func (d *Document) Len() int {
	return len(d.runes)
}

// Runes returns the text as code points. The returned slice must not be modified.
func (d *Document) Runes() []rune {
	return d.runes
}

// Slice returns the text between code point offsets start and end.
func (d *Document) Slice(start, end int) (string, error) {
	if start < 0 || end > len(d.runes) || start > end {
		return "", fmt.Errorf("%w: [%d:%d] out of text bounds (length %d)", apperrors.ErrInvalidSpan, start, end, len(d.runes))
	}

	return string(d.runes[start:end]), nil
}

// HasLayer reports whether a layer with the given name exists.
func (d *Document) HasLayer(name string) bool {
	_, ok := d.layers[name]

	return ok
}

// Layer returns the named layer.
func (d *Document) Layer(name string) (*Layer, bool) {
	l, ok := d.layers[name]

	return l, ok
}

// Layers returns layer names in insertion order.
func (d *Document) Layers() []string {
	return slices.Clone(d.order)
}

// AddLayer attaches a layer. Adding a layer whose name is already taken fails with
// ErrDuplicateChannel.
func (d *Document) AddLayer(l *Layer) error {
	if l == nil || l.Name == "" {
		return fmt.Errorf("%w: layer without a name", apperrors.ErrInvalidInput)
	}

	if d.HasLayer(l.Name) {
		return fmt.Errorf("%w: %q", apperrors.ErrDuplicateChannel, l.Name)
	}

	d.layers[l.Name] = l
	d.order = append(d.order, l.Name)

	return nil
}

// PopLayer removes and returns the named layer.
func (d *Document) PopLayer(name string) (*Layer, bool) {
	l, ok := d.layers[name]
	if !ok {
		return nil, false
	}

	delete(d.layers, name)
	d.order = slices.DeleteFunc(d.order, func(n string) bool { return n == name })

	return l, true
}
