package harness

import (
	"context"
	"slices"

	"github.com/lueurxax/ner-recall/internal/core/domain"
)

// OutputChannels describes the layers a tagger writes. It is either SingleChannel or
// MultiChannel.
type OutputChannels interface {
	// Primary is the layer scored by default.
	Primary() string
	// Names lists every layer the tagger creates.
	Names() []string

	outputChannels()
}

// SingleChannel is the output shape of a tagger creating one layer.
type SingleChannel struct {
	Name string
}

func (c SingleChannel) Primary() string { return c.Name }

func (c SingleChannel) Names() []string {
	if c.Name == "" {
		return nil
	}

	return []string{c.Name}
}

func (SingleChannel) outputChannels() {}

// MultiChannel is the output shape of a tagger creating several layers; the first
// one is the primary layer.
type MultiChannel struct {
	Layers []string
}

func (c MultiChannel) Primary() string {
	if len(c.Layers) == 0 {
		return ""
	}

	return c.Layers[0]
}

func (c MultiChannel) Names() []string { return slices.Clone(c.Layers) }

func (MultiChannel) outputChannels() {}

// Tagger adds its output layers to a document. Tag is expected to return promptly;
// the harness imposes no timeout of its own.
type Tagger interface {
	Output() OutputChannels
	Tag(ctx context.Context, doc *domain.Document) error
}

// Preprocessor creates a prerequisite layer a tagger depends on.
type Preprocessor interface {
	Layer() string
	Tag(ctx context.Context, doc *domain.Document) error
}

// DependentTagger is implemented by taggers that need prerequisite layers on the
// document before Tag is called.
type DependentTagger interface {
	Tagger
	Prerequisites() []Preprocessor
}

// TaggerFunc adapts a function to a single layer Tagger.
type TaggerFunc struct {
	Layer string
	Fn    func(ctx context.Context, doc *domain.Document) error
}

func (f TaggerFunc) Output() OutputChannels { return SingleChannel{Name: f.Layer} }

func (f TaggerFunc) Tag(ctx context.Context, doc *domain.Document) error { return f.Fn(ctx, doc) }
