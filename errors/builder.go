package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrorBuilder provides a fluent API for constructing enriched errors.
type ErrorBuilder struct {
	err       error
	cause     error
	hints     []string
	context   map[string]interface{}
	exitCode  *int
	sentinels []error // Sentinel errors to mark with errors.Mark()
}

// Build creates a new ErrorBuilder from a base error.
// If the error is a sentinel error (simple errors.New() with no wrapping),
// it will be automatically marked as a sentinel for errors.Is() checks.
func Build(err error) *ErrorBuilder {
	builder := &ErrorBuilder{err: err}

	// A leaf error (no wrapped cause) is treated as a sentinel and marked
	// automatically so errors.Is() keeps working after enrichment.
	if err != nil && errors.UnwrapOnce(err) == nil {
		builder.sentinels = append(builder.sentinels, err)
	}

	return builder
}

// WithCause records the underlying error that triggered this failure.
// The cause becomes the tail of the error chain, so errors.Is() matches
// both the sentinel and the cause.
func (b *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	b.cause = cause
	return b
}

// WithHint adds a user-facing hint to the error.
// Multiple hints can be added and will be displayed to users.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.hints = append(b.hints, hint)
	return b
}

// WithHintf adds a formatted user-facing hint to the error.
func (b *ErrorBuilder) WithHintf(format string, args ...interface{}) *ErrorBuilder {
	b.hints = append(b.hints, fmt.Sprintf(format, args...))
	return b
}

// WithContext adds safe structured context to the error.
// Context keys are rendered sorted so output stays deterministic.
func (b *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	if b.context == nil {
		b.context = make(map[string]interface{})
	}
	b.context[key] = value
	return b
}

// WithExitCode attaches an exit code to the error.
func (b *ErrorBuilder) WithExitCode(code int) *ErrorBuilder {
	b.exitCode = &code
	return b
}

// WithSentinel marks the error with a sentinel error for errors.Is() checks.
// Multiple sentinels can be added and all will be marked.
func (b *ErrorBuilder) WithSentinel(sentinel error) *ErrorBuilder {
	b.sentinels = append(b.sentinels, sentinel)
	return b
}

// Err finalizes and returns the enriched error.
func (b *ErrorBuilder) Err() error {
	if b.err == nil {
		return nil
	}

	err := b.err

	// Chain the cause under the base error's message.
	if b.cause != nil {
		err = errors.Wrap(b.cause, b.err.Error())
	}

	// Add all hints.
	for _, hint := range b.hints {
		err = errors.WithHint(err, hint)
	}

	// Add context if present.
	if len(b.context) > 0 {
		// Sort keys for consistent output.
		keys := make([]string, 0, len(b.context))
		for k := range b.context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var formatParts []string
		var safeValues []interface{}

		for _, key := range keys {
			formatParts = append(formatParts, key+"=%s")
			safeValues = append(safeValues, errors.Safe(b.context[key]))
		}

		err = errors.WithSafeDetails(err, strings.Join(formatParts, " "), safeValues...)
	}

	// Mark with sentinel errors for errors.Is() checks.
	// This must be done AFTER all other wrapping to ensure sentinels are at the top level.
	for _, sentinel := range b.sentinels {
		err = errors.Mark(err, sentinel)
	}

	// Add exit code if specified.
	if b.exitCode != nil {
		err = WithExitCode(err, *b.exitCode)
	}

	return err
}
