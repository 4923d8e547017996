package tracker

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport indicates that a delivery attempt failed or was rejected by the backend.
	ErrTransport = errors.New("tracker transport failed")
	// ErrPersistenceWrite indicates that the queue snapshot could not be saved.
	ErrPersistenceWrite = errors.New("tracker snapshot save failed")
	// ErrPersistenceRead indicates that the queue snapshot could not be loaded.
	ErrPersistenceRead = errors.New("tracker snapshot load failed")
	// ErrDecode indicates that a stored snapshot is malformed.
	ErrDecode = errors.New("tracker snapshot is malformed")
	// ErrNotFound is returned by Storage.Load when the key has no value.
	ErrNotFound = errors.New("tracker storage key not found")
	// ErrInvalidEvent is returned when producer arguments are rejected.
	ErrInvalidEvent = errors.New("tracker event is invalid")
	// ErrClosed is reported for producer calls made after Close.
	ErrClosed = errors.New("tracker client is closed")
	// ErrTokenRequired is returned when the project token is empty.
	ErrTokenRequired = errors.New("tracker token is required")
	// ErrStorageRequired is returned when batch mode is enabled without a Storage.
	ErrStorageRequired = errors.New("tracker storage is required in batch mode")
	// ErrInvalidBatchSize indicates that the requested batch size is outside 1..MaxBatchSize.
	ErrInvalidBatchSize = errors.New("tracker batch size must be between 1 and 50")
)

// RestoreError reports a failed restore of the persisted queue.
// Err wraps ErrPersistenceRead or ErrDecode.
type RestoreError struct {
	Key string
	Err error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("tracker restore of %q failed: %v", e.Key, e.Err)
}

func (e *RestoreError) Unwrap() error {
	return e.Err
}
