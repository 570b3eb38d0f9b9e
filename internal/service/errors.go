package service

import (
	"errors"
	"fmt"

	"github.com/sells-group/road-crawl-cli/internal/crawl"
	"github.com/sells-group/road-crawl-cli/internal/distribution"
	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/resilience"
	"github.com/sells-group/road-crawl-cli/internal/roadstats"
	"github.com/sells-group/road-crawl-cli/internal/scoring"
	"github.com/sells-group/road-crawl-cli/internal/spatial"
	"github.com/sells-group/road-crawl-cli/internal/store"
	"github.com/sells-group/road-crawl-cli/pkg/google"
)

// Category classifies an error for callers that map errors to responses.
type Category string

// Error categories.
const (
	CategoryValidation Category = "validation"
	CategoryNotFound   Category = "not_found"
	CategoryExternal   Category = "external"
	CategoryConflict   Category = "conflict"
	CategoryInternal   Category = "internal"
)

// Error is a categorized service error. Message is safe to show to API
// clients.
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func validationf(format string, args ...any) error {
	return &Error{Category: CategoryValidation, Message: fmt.Sprintf(format, args...)}
}

// wrap categorizes err and prefixes it with msg.
func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Category: CategoryOf(err), Message: msg, Err: err}
}

// CategoryOf maps an error from any layer to its Category.
func CategoryOf(err error) Category {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Category
	}

	var statusErr *google.StatusError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return CategoryNotFound
	case errors.Is(err, store.ErrSessionActive),
		errors.Is(err, model.ErrInvalidTransition):
		return CategoryConflict
	case errors.Is(err, model.ErrInvalid),
		errors.Is(err, spatial.ErrInvalidRadius),
		errors.Is(err, scoring.ErrNegativeCount),
		errors.Is(err, distribution.ErrNegativeCount),
		errors.Is(err, roadstats.ErrStateRequired):
		return CategoryValidation
	case errors.Is(err, crawl.ErrDailyCapReached),
		errors.Is(err, resilience.ErrCircuitOpen),
		errors.As(err, &statusErr),
		resilience.IsTransient(err):
		return CategoryExternal
	}
	return CategoryInternal
}
