// Package errors provides error categorization and retry strategies for
// units of work.
//
// The package implements a layered approach:
//   - Categorization: classify failures so each gets the right handling
//   - Retry: transport failures retried with exponential backoff
//
// Validation and semantic failures are never retried at this layer:
// validation failures are surfaced as structured data at the node boundary,
// and semantic failures (low-confidence results) belong to the workflow-level
// verify/replan loop, not to transport retry.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Category represents how a failure should be handled.
type Category int

const (
	// CategoryTransport indicates a timeout or connection failure on an
	// external call. Retry with backoff will likely help.
	CategoryTransport Category = iota

	// CategoryValidation indicates malformed input (request, plan entry).
	// Recovered locally and surfaced as a structured field; retry won't help.
	CategoryValidation

	// CategorySemantic indicates a low-confidence or irrelevant result.
	// Not a failure at the transport level; handled by the verify/replan loop.
	CategorySemantic

	// CategoryFatal indicates an executor-level invariant violation, such as
	// an unknown node label. Aborts the run: it is a configuration bug, not
	// a runtime condition.
	CategoryFatal
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransport:
		return "transport"
	case CategoryValidation:
		return "validation"
	case CategorySemantic:
		return "semantic"
	case CategoryFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Attempts is the number of attempts that have been made.
	Attempts int

	// Context describes what operation was being attempted.
	Context string
}

func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)",
			e.Context, e.Err, e.Category, e.Attempts)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)",
		e.Err, e.Category, e.Attempts)
}

func (e *CategorizedError) Unwrap() error { return e.Err }

// NewCategorized creates a new categorized error.
func NewCategorized(err error, category Category, context string) *CategorizedError {
	return &CategorizedError{Err: err, Category: category, Context: context}
}

// Transport creates a transport error.
func Transport(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryTransport, context)
}

// Validation creates a validation error.
func Validation(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryValidation, context)
}

// Semantic creates a semantic error.
func Semantic(err error, context string) *CategorizedError {
	return NewCategorized(err, CategorySemantic, context)
}

// Fatal creates a fatal error.
func Fatal(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryFatal, context)
}

// Categorize determines how an error should be handled.
//
// Already-categorized errors keep their category. Context deadline and
// network errors are transport. Everything else defaults to fatal, so an
// unrecognized failure is surfaced loudly rather than silently retried.
func Categorize(err error) Category {
	if err == nil {
		return CategoryFatal // shouldn't happen, fail safe
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransport
	}
	if errors.Is(err, context.Canceled) {
		return CategoryFatal
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryTransport
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range []string{"timeout", "timed out", "connection refused", "connection reset", "rate limit", "temporarily unavailable"} {
		if strings.Contains(msg, hint) {
			return CategoryTransport
		}
	}

	return CategoryFatal
}

// IsRetryable reports whether retrying the operation may help.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransport
}
