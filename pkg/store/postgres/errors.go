package postgres

import "errors"

var (
	// ErrVersionConflict signals that another writer persisted the workflow
	// since it was loaded. The caller reloads and retries the command; this
	// is unrelated to outbox delivery retries.
	ErrVersionConflict = errors.New("workflow was modified concurrently")

	ErrNotFound = errors.New("record not found")
)
