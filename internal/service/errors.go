package service

import "errors"

var (
	// ErrAccessDenied is returned when the caller lacks project permission.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidSource is returned when a source locator cannot be parsed.
	ErrInvalidSource = errors.New("invalid source locator")
	// ErrAggregateNotFound is returned when a project has no aggregate (v1)
	// version yet. Creating one at project initialization is a precondition
	// of augmentation, not something the append path repairs.
	ErrAggregateNotFound = errors.New("aggregate version not found")
	// ErrVersionNumberConflict is returned when version number allocation
	// kept colliding with another writer process after every retry.
	ErrVersionNumberConflict = errors.New("version number conflict")
	// ErrStoreContention is returned when a contended write path gave up
	// after exhausting its retries.
	ErrStoreContention = errors.New("store contention, retries exhausted")
)
