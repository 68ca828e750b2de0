/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All engine error types in one place. Domain errors are expected outcomes
  and are represented as sentinel values callers match with errors.Is();
  they must never terminate the process.

ERROR CATEGORIES:
  1. Domain errors - Unknown employee / unregistered chat user / unknown profile
  2. Store errors  - Durable I/O failures (fatal for the operation only)

USAGE:
  if errors.Is(err, ledger.ErrNotRegistered) {
      // prompt the user to register
  }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned when registration names an employee id
	// the directory does not know. Recoverable; surfaced to prompt correction.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrNotRegistered is returned on reads for a chat user with no profile.
	// Recoverable; surfaced to prompt registration.
	ErrNotRegistered = errors.New("chat user not registered")

	// ErrProfileNotFound is returned when a scan names an unknown loyalty id.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrStoreUnavailable wraps durable I/O failures. Fatal for the operation,
	// not for the process; callers must retry or surface a transient failure,
	// never interpret it as "no data".
	ErrStoreUnavailable = errors.New("store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry the identifier that failed to resolve
// =============================================================================

// EmployeeNotFoundError identifies the employee id that failed to resolve.
type EmployeeNotFoundError struct {
	EmployeeID string
}

func (e *EmployeeNotFoundError) Error() string {
	return fmt.Sprintf("employee %q not found in directory", e.EmployeeID)
}

func (e *EmployeeNotFoundError) Unwrap() error { return ErrEmployeeNotFound }

// NotRegisteredError identifies the chat user that has no profile.
type NotRegisteredError struct {
	ChatUserID string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("chat user %q has no loyalty profile", e.ChatUserID)
}

func (e *NotRegisteredError) Unwrap() error { return ErrNotRegistered }

// ProfileNotFoundError identifies the loyalty id that failed to resolve.
type ProfileNotFoundError struct {
	LoyaltyID string
}

func (e *ProfileNotFoundError) Error() string {
	return fmt.Sprintf("loyalty profile %q not found", e.LoyaltyID)
}

func (e *ProfileNotFoundError) Unwrap() error { return ErrProfileNotFound }

// storeErr tags a durable-store failure so it is never mistaken for a
// domain outcome.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error is any of the domain not-found
// variants.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrNotRegistered) ||
		errors.Is(err, ErrProfileNotFound)
}

// IsRetryable reports whether the operation might succeed if retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
