package tagger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/ner-recall/internal/core/domain"
	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
	"github.com/lueurxax/ner-recall/internal/harness"
	"github.com/lueurxax/ner-recall/internal/platform/observability"
)

const (
	defaultRemoteTimeout = 30 * time.Second
	defaultMaxRetries    = 2
	defaultInitialDelay  = 200 * time.Millisecond
	delayMultiplier      = 2
	rateLimiterBurst     = 1
	maxResponseBodySize  = 10 * 1024 * 1024 // 10MB
	errBodyReadLimit     = 1024
	contentTypeJSON      = "application/json"
	headerContentType    = "Content-Type"
	statusTransportError = "error"
	errStatusBodyFmt     = "%w: status %d, body: %s"
)

// RemoteConfig configures a remote tagging service.
type RemoteConfig struct {
	Name string
	URL  string
	// Layers are the output layers; the first is scored by default.
	Layers       []string
	Timeout      time.Duration
	RPS          float64
	MaxRetries   int
	InitialDelay time.Duration
}

// Remote sends documents to an HTTP tagging service.
//
// Request body: {"text": "..."}. Response body:
// {"layers": {"<layer>": [{"start": 0, "end": 5, "labels": ["PER"]}]}}.
// Offsets are code point offsets into the text. Layers the tagger does not declare
// are dropped.
type Remote struct {
	cfg        RemoteConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuitBreaker
	logger     *zerolog.Logger
}

type remoteRequest struct {
	Text string `json:"text"`
}

type remoteSpan struct {
	Start  int      `json:"start"`
	End    int      `json:"end"`
	Labels []string `json:"labels"`
}

type remoteResponse struct {
	Layers map[string][]remoteSpan `json:"layers"`
}

func NewRemote(cfg RemoteConfig, logger *zerolog.Logger) (*Remote, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: remote tagger %q has no url", apperrors.ErrInvalidInput, cfg.Name)
	}

	if len(cfg.Layers) == 0 {
		return nil, fmt.Errorf("%w: remote tagger %q", apperrors.ErrNoOutputChannels, cfg.Name)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRemoteTimeout
	}

	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = defaultInitialDelay
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	return &Remote{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, rateLimiterBurst),
		breaker:    newCircuitBreaker(cfg.Name, logger),
		logger:     logger,
	}, nil
}

func (r *Remote) Output() harness.OutputChannels {
	if len(r.cfg.Layers) == 1 {
		return harness.SingleChannel{Name: r.cfg.Layers[0]}
	}

	return harness.MultiChannel{Layers: r.cfg.Layers}
}

func (r *Remote) Tag(ctx context.Context, doc *domain.Document) error {
	if err := r.breaker.check(); err != nil {
		return err
	}

	resp, err := r.callWithRetry(ctx, doc.Text())
	if err != nil {
		r.breaker.recordFailure()

		return err
	}

	r.breaker.recordSuccess()

	layers := make([]*domain.Layer, 0, len(r.cfg.Layers))

	for _, name := range r.cfg.Layers {
		spans, ok := resp.Layers[name]
		if !ok {
			continue
		}

		layer := &domain.Layer{Name: name}

		for _, s := range spans {
			if err := layer.Add(doc, s.Start, s.End, s.Labels...); err != nil {
				return fmt.Errorf("layer %q from %s: %w", name, r.cfg.Name, err)
			}
		}

		layers = append(layers, layer)
	}

	for _, layer := range layers {
		if err := doc.AddLayer(layer); err != nil {
			return err
		}
	}

	return nil
}

func (r *Remote) callWithRetry(ctx context.Context, text string) (*remoteResponse, error) {
	var lastErr error

	delay := r.cfg.InitialDelay

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("retry interrupted: %w", ctx.Err())
			case <-time.After(delay):
				delay *= delayMultiplier
			}
		}

		resp, retryable, err := r.call(ctx, text)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !retryable {
			return nil, err
		}

		r.logger.Debug().Err(err).Str("tagger", r.cfg.Name).Int("attempt", attempt+1).Msg("Remote tagger call failed")
	}

	return nil, lastErr
}

func (r *Remote) call(ctx context.Context, text string) (*remoteResponse, bool, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, false, fmt.Errorf("rate limiter: %w", err)
	}

	payload, err := json.Marshal(remoteRequest{Text: text})
	if err != nil {
		return nil, false, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set(headerContentType, contentTypeJSON)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		observability.RemoteRequests.WithLabelValues(r.cfg.Name, statusTransportError).Inc()

		return nil, ctx.Err() == nil, fmt.Errorf("request %s: %w", r.cfg.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	observability.RemoteRequests.WithLabelValues(r.cfg.Name, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyReadLimit)) //nolint:errcheck // body is only used for the message

		return nil, resp.StatusCode >= http.StatusInternalServerError,
			fmt.Errorf(errStatusBodyFmt, apperrors.ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, false, fmt.Errorf("read response: %w", err)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, false, apperrors.ErrEmptyResponse
	}

	var result remoteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, false, fmt.Errorf("%w: parse response: %w", apperrors.ErrBadFormat, err)
	}

	return &result, false, nil
}
