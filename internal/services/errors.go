// Package services defines the business logic for identifier allocation and
// portal submissions. This file centralizes the service-level error values so
// they can be returned consistently by service methods and checked by callers
// with errors.Is / errors.As.
//
// Translation into HTTP status codes happens in the handler layer.
package services

import (
	"errors"
	"fmt"

	"github.com/tbourn/portal-rpa/internal/artifacts"
	"github.com/tbourn/portal-rpa/internal/domain"
)

var (
	// ErrInvalidInput is returned for an empty submission key or a submission
	// with missing fields. It is never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAllocationFailed wraps a failed counter store transaction. The store
	// is left unchanged.
	ErrAllocationFailed = errors.New("allocation failed")

	// ErrDriverFailure wraps any failure raised while driving the portal
	// session (launch, navigation, missing element, timeout).
	ErrDriverFailure = errors.New("driver failure")

	// ErrPublishFailed is returned when an artifact could not be uploaded,
	// shared, or linked.
	ErrPublishFailed = artifacts.ErrPublishFailed

	// ErrOrchestrationFailed matches any *OrchestrationError.
	ErrOrchestrationFailed = errors.New("orchestration failed")
)

// OrchestrationError is the terminal error of a submission run. It carries
// the number of attempts made and the most recent attempt's error.
type OrchestrationError struct {
	Kind     domain.Kind
	Attempts int
	Err      error
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("%s report failed after %d attempts. Last error: %v", e.Kind.Label(), e.Attempts, e.Err)
}

// Unwrap exposes the last attempt's error.
func (e *OrchestrationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrOrchestrationFailed) match.
func (e *OrchestrationError) Is(target error) bool { return target == ErrOrchestrationFailed }
