package tagger

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/lueurxax/ner-recall/internal/core/domain"
	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
	"github.com/lueurxax/ner-recall/internal/harness"
)

const (
	defaultLLMTimeout = 60 * time.Second
	llmRateBurst      = 5

	nerPromptTemplate = `Extract every named entity from the text below.
Use these labels: %s.
Return a JSON object {"entities": [{"text": "<exact substring>", "label": "<label>"}]} listing entities in order of appearance.
Copy entity text exactly as it appears in the text. Return {"entities": []} when there are none.

Text:
%s`
)

var defaultLLMLabels = []string{"PER", "LOC", "ORG", "MISC"}

// LLMConfig configures a chat completion based tagger.
type LLMConfig struct {
	Name    string
	Layer   string
	APIKey  string
	BaseURL string
	Model   string
	Labels  []string
	// LabelMap renames upper cased labels returned by the model.
	LabelMap map[string]string
	Timeout  time.Duration
	RPS      float64
}

// LLM asks a chat model for the entities of a document and locates them in the text.
// Entities the model invents or misspells are dropped.
type LLM struct {
	cfg         LLMConfig
	client      *openai.Client
	rateLimiter *rate.Limiter
	breaker     *circuitBreaker
	logger      *zerolog.Logger
}

type llmEntity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

type llmResponse struct {
	Entities []llmEntity `json:"entities"`
}

func NewLLM(cfg LLMConfig, logger *zerolog.Logger) (*LLM, error) {
	if cfg.Layer == "" {
		return nil, fmt.Errorf("%w: llm tagger %q", apperrors.ErrNoOutputChannels, cfg.Name)
	}

	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	if len(cfg.Labels) == 0 {
		cfg.Labels = defaultLLMLabels
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultLLMTimeout
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	return &LLM{
		cfg:         cfg,
		client:      openai.NewClientWithConfig(clientCfg),
		rateLimiter: rate.NewLimiter(limit, llmRateBurst),
		breaker:     newCircuitBreaker(cfg.Name, logger),
		logger:      logger,
	}, nil
}

func (t *LLM) Output() harness.OutputChannels {
	return harness.SingleChannel{Name: t.cfg.Layer}
}

func (t *LLM) Tag(ctx context.Context, doc *domain.Document) error {
	entities, err := t.extract(ctx, doc.Text())
	if err != nil {
		return err
	}

	layer := &domain.Layer{Name: t.cfg.Layer}
	runes := doc.Runes()
	cursor := 0

	for _, e := range entities {
		needle := []rune(e.Text)
		if len(needle) == 0 {
			continue
		}

		start := runeIndex(runes, needle, cursor)
		if start < 0 {
			start = runeIndex(runes, needle, 0)
		}

		if start < 0 {
			t.logger.Debug().Str("tagger", t.cfg.Name).Str("entity", e.Text).Msg("Entity not found in text")
			continue
		}

		end := start + len(needle)
		if hasSpan(layer.Spans, start, end) {
			continue
		}

		if err := layer.Add(doc, start, end, t.label(e.Label)); err != nil {
			return err
		}

		cursor = end
	}

	return doc.AddLayer(layer)
}

func (t *LLM) extract(ctx context.Context, text string) ([]llmEntity, error) {
	if err := t.breaker.check(); err != nil {
		return nil, err
	}

	if err := t.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(nerPromptTemplate, strings.Join(t.cfg.Labels, ", "), text),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		t.breaker.recordFailure()

		return nil, fmt.Errorf("openai chat completion: %w", err)
	}

	t.breaker.recordSuccess()

	if len(resp.Choices) == 0 {
		return nil, apperrors.ErrEmptyResponse
	}

	content := resp.Choices[0].Message.Content
	t.logger.Debug().Str("content", content).Msg("LLM response")

	var parsed llmResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse llm response: %w", apperrors.ErrBadFormat, err)
	}

	return parsed.Entities, nil
}

func (t *LLM) label(raw string) string {
	label := cases.Upper(language.Und).String(strings.TrimSpace(raw))
	if mapped, ok := t.cfg.LabelMap[label]; ok {
		return mapped
	}

	return label
}

// extractJSON cuts the outermost JSON object out of a response with extra text.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}

	return text
}

func runeIndex(haystack, needle []rune, from int) int {
	for i := from; i+len(needle) <= len(haystack); i++ {
		if slices.Equal(haystack[i:i+len(needle)], needle) {
			return i
		}
	}

	return -1
}

func hasSpan(spans []domain.Span, start, end int) bool {
	return slices.ContainsFunc(spans, func(s domain.Span) bool { return s.Start == start && s.End == end })
}
