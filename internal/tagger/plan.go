package tagger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
	"github.com/lueurxax/ner-recall/internal/harness"
)

// Tagger types of a plan.
const (
	TypeGazetteer = "gazetteer"
	TypeRemote    = "remote"
	TypeOpenAI    = "openai"
)

// Spec describes one tagger of a plan.
type Spec struct {
	Name     string            `yaml:"name" validate:"required"`
	Type     string            `yaml:"type" validate:"required"`
	Layers   []string          `yaml:"layers" validate:"required,min=1,dive,required"`
	Lexicon  string            `yaml:"lexicon,omitempty"`
	URL      string            `yaml:"url,omitempty"`
	Model    string            `yaml:"model,omitempty"`
	Labels   []string          `yaml:"labels,omitempty"`
	LabelMap map[string]string `yaml:"label_map,omitempty"`
	// Layer overrides the scored layer.
	Layer        string `yaml:"layer,omitempty"`
	IgnoreErrors bool   `yaml:"ignore_errors,omitempty"`
}

// Plan lists the taggers to evaluate on a benchmark.
type Plan struct {
	Taggers []Spec `yaml:"taggers" validate:"required,min=1,dive"`

	dir string
}

// Settings carries the environment level defaults for taggers built from a plan.
type Settings struct {
	HTTPTimeout time.Duration
	RPS         float64
	LLMAPIKey   string
	LLMBaseURL  string
	LLMModel    string
}

var planValidate = validator.New()

// LoadPlan reads a YAML plan. Relative lexicon paths resolve against the plan directory.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: tagger plan %q: %w", apperrors.ErrFileNotFound, path, err)
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("%w: tagger plan %q: %w", apperrors.ErrBadFormat, path, err)
	}

	if err := planValidate.Struct(&plan); err != nil {
		return nil, fmt.Errorf("%w: tagger plan %q: %w", apperrors.ErrInvalidInput, path, err)
	}

	plan.dir = filepath.Dir(path)

	return &plan, nil
}

// Build creates the tagger described by spec.
func (p *Plan) Build(spec Spec, settings Settings, logger *zerolog.Logger) (harness.Tagger, error) {
	switch spec.Type {
	case TypeGazetteer:
		path := spec.Lexicon
		if path != "" && !filepath.IsAbs(path) && p.dir != "" {
			path = filepath.Join(p.dir, path)
		}

		lexicon, err := LoadLexicon(path)
		if err != nil {
			return nil, fmt.Errorf("tagger %q: %w", spec.Name, err)
		}

		return NewGazetteer(spec.Layers[0], lexicon), nil
	case TypeRemote:
		return NewRemote(RemoteConfig{
			Name:       spec.Name,
			URL:        spec.URL,
			Layers:     spec.Layers,
			Timeout:    settings.HTTPTimeout,
			RPS:        settings.RPS,
			MaxRetries: defaultMaxRetries,
		}, logger)
	case TypeOpenAI:
		model := spec.Model
		if model == "" {
			model = settings.LLMModel
		}

		return NewLLM(LLMConfig{
			Name:     spec.Name,
			Layer:    spec.Layers[0],
			APIKey:   settings.LLMAPIKey,
			BaseURL:  settings.LLMBaseURL,
			Model:    model,
			Labels:   spec.Labels,
			LabelMap: spec.LabelMap,
			Timeout:  settings.HTTPTimeout,
			RPS:      settings.RPS,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: %q (tagger %q)", apperrors.ErrUnknownTagger, spec.Type, spec.Name)
	}
}
