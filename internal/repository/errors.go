package repository

import "errors"

// ErrNotFound is returned when a requested record does not exist in the store.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a conditional write lost against a concurrent writer.
var ErrConflict = errors.New("conflict: record changed since it was read")

// ErrNotConfigured is returned by every operation when the store has no credentials.
var ErrNotConfigured = errors.New("record store not configured")
