package domain

import "errors"

var (
	// ErrSettingsMissing means the CommissionSettings singleton is absent.
	// Fatal to the calling batch: no rate may be guessed.
	ErrSettingsMissing = errors.New("commission settings not configured")

	// ErrStateConflict means an operation targeted a commission whose status
	// has already advanced past the expected state. The row is skipped;
	// batches continue.
	ErrStateConflict = errors.New("commission is not in the expected state")

	// ErrDuplicate means a commission for the (order line, artist) pair
	// already exists. Callers treat it as a no-op success so retried event
	// delivery is safe.
	ErrDuplicate = errors.New("commission already recorded for this line and artist")

	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
