// Package apperr defines the error taxonomy shared by all components.
// Callers classify failures with errors.Is against these sentinels.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks an absent asset, track, event or session. Recoverable:
	// the API layer renders it as "no audio yet", not as a fault.
	ErrNotFound = errors.New("not found")

	// ErrIntegrityMismatch marks a multipart completion whose parts disagree
	// with what the object store recorded. Fatal to that upload attempt.
	ErrIntegrityMismatch = errors.New("multipart integrity mismatch")

	// ErrConflictingState marks a mutation that lost a race: the record no
	// longer matches the precondition the caller observed. Re-fetch and retry.
	ErrConflictingState = errors.New("conflicting state")

	// ErrStorageUnavailable marks a transport or backend fault of the object
	// store. Retryable. Must be logged distinctly even where it degrades to
	// "not found" for the caller.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrValidation marks bad input: oversized file, disallowed extension,
	// missing rejection comment and the like.
	ErrValidation = errors.New("validation failed")
)

// NotFoundf wraps ErrNotFound with context.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// Validationf wraps ErrValidation with context.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// Conflictf wraps ErrConflictingState with context.
func Conflictf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrConflictingState)...)
}
