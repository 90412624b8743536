// Package errors provides centralized error definitions for the recall benchmark.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context (file, row, unit, population)
package errors

import "errors"

// Schema errors: the benchmark files cannot be read as expected.
var (
	// ErrFileNotFound indicates a description or annotation file does not exist.
	ErrFileNotFound = errors.New("non-existent or bad file name")

	// ErrBadFormat indicates a file could not be parsed as CSV or a field could not be decoded.
	ErrBadFormat = errors.New("bad file format")

	// ErrMissingColumns indicates required CSV columns are absent.
	ErrMissingColumns = errors.New("missing required columns")
)

// Consistency errors: the benchmark data is corrupted and must not be coerced.
var (
	// ErrDuplicateFile indicates an annotation file is referenced more than once.
	ErrDuplicateFile = errors.New("duplicate annotation file")

	// ErrNonContiguousPopulation indicates rows or verdicts of a population are interleaved
	// with another population.
	ErrNonContiguousPopulation = errors.New("non-consecutive population")

	// ErrSizeMismatch indicates the number of annotated rows disagrees with the declared count.
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrSpanMismatch indicates span.text differs from the text at the span location.
	ErrSpanMismatch = errors.New("span text mismatch")

	// ErrEmptySpanText indicates an annotated span has an empty text.
	ErrEmptySpanText = errors.New("span text cannot be empty")

	// ErrInvalidSpan indicates a span record is missing attributes or has bad boundaries.
	ErrInvalidSpan = errors.New("invalid span")

	// ErrInvalidDescriptor indicates a population descriptor row violates a count constraint.
	ErrInvalidDescriptor = errors.New("invalid population descriptor")
)

// Tagger and output channel errors.
var (
	// ErrMissingOutput indicates a tagger ran but did not create its declared output channel.
	ErrMissingOutput = errors.New("tagger did not create output layer")

	// ErrDuplicateChannel indicates an attempt to add a layer that already exists on a document.
	ErrDuplicateChannel = errors.New("duplicate layer")

	// ErrNoOutputChannels indicates a tagger declares no output channel at all.
	ErrNoOutputChannels = errors.New("tagger declares no output layers")

	// ErrReservedLayer indicates a tagger output or scored layer uses the gold layer name.
	ErrReservedLayer = errors.New("reserved layer name")
)

// Numeric errors.
var (
	// ErrDivideByZero indicates a statistic is undefined (zero labelled examples or
	// zero total estimated positives).
	ErrDivideByZero = errors.New("division by zero")
)

// Configuration errors.
var (
	// ErrUnsupportedMethod indicates an unknown evaluation method was requested.
	ErrUnsupportedMethod = errors.New("unsupported evaluation method")

	// ErrUnknownTagger indicates a tagger plan references an unknown tagger type.
	ErrUnknownTagger = errors.New("unknown tagger type")

	// ErrUnknownPopulation indicates verdicts reference a population absent from the descriptor.
	ErrUnknownPopulation = errors.New("unknown population")

	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")
)

// Transport errors raised by remote taggers.
var (
	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

	// ErrUnexpectedStatus indicates a remote service answered with a non-success status.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
