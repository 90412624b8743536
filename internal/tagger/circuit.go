package tagger

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
)

const (
	circuitBreakerThreshold = 5
	circuitBreakerTimeout   = 1 * time.Minute
)

// circuitBreaker blocks calls to a remote tagger after consecutive failures.
type circuitBreaker struct {
	name                string
	threshold           int
	resetAfter          time.Duration
	consecutiveFailures int
	openUntil           time.Time
	mu                  sync.Mutex
	logger              *zerolog.Logger
	now                 func() time.Time
}

func newCircuitBreaker(name string, logger *zerolog.Logger) *circuitBreaker {
	return &circuitBreaker{
		name:       name,
		threshold:  circuitBreakerThreshold,
		resetAfter: circuitBreakerTimeout,
		logger:     logger,
		now:        time.Now,
	}
}

func (cb *circuitBreaker) check() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.now().Before(cb.openUntil) {
		return fmt.Errorf("%w until %v", apperrors.ErrCircuitBreakerOpen, cb.openUntil)
	}

	return nil
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures++

	if cb.consecutiveFailures >= cb.threshold {
		cb.openUntil = cb.now().Add(cb.resetAfter)

		if cb.logger != nil {
			cb.logger.Warn().
				Str("tagger", cb.name).
				Int("consecutive_failures", cb.consecutiveFailures).
				Time("open_until", cb.openUntil).
				Msg("Tagger circuit breaker opened")
		}
	}
}
