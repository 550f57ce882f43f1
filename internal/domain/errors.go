package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the routing domain.
var (
	// ErrNoViableCandidate means a role had zero representative candidates.
	// It is structural and fatal: the whole planning call fails, never a
	// partial plan.
	ErrNoViableCandidate = fmt.Errorf("no viable candidate for role")

	// ErrUnknownModel means an override or preference named a model absent
	// from the catalog.
	ErrUnknownModel = fmt.Errorf("model not in catalog")

	// ErrMissingMetrics means a shadow comparison was requested for a side
	// with no recorded metrics.
	ErrMissingMetrics = fmt.Errorf("no shadow metrics recorded")

	// ErrBudgetExceeded is returned by budget checks only under hard
	// enforcement; soft and warn surface the breach without failing.
	ErrBudgetExceeded = fmt.Errorf("budget ceiling exceeded")

	// ErrExperimentNotFound means a named experiment is not registered.
	ErrExperimentNotFound = fmt.Errorf("experiment not found")

	// ErrInvalidInput covers malformed caller-supplied data that cannot be
	// tolerated as "no boost".
	ErrInvalidInput = fmt.Errorf("invalid input")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "Planner.Plan")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsFatal reports whether err should abort plan assembly rather than
// degrade to a conservative default.
func IsFatal(err error) bool {
	return errors.Is(err, ErrNoViableCandidate)
}
