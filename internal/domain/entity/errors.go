package entity

import "errors"

var (
	// ErrAuthentication is returned for an unknown login or a password mismatch
	ErrAuthentication = errors.New("invalid credentials")

	// ErrNotFound is returned when a referenced report, line or person does not exist
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed input, detected before any mutation
	ErrValidation = errors.New("validation failed")

	// ErrPersistence wraps failures reported by the underlying store
	ErrPersistence = errors.New("persistence failure")

	// ErrReportLocked is returned when a report's state forbids the requested edit
	ErrReportLocked = errors.New("report is locked in its current state")
)
