package idempotency

import "github.com/go-faster/errors"

var (
	// ErrSavedResponseMissing means a conflicting record was found but carries no response.
	// The first submitter always saves its response in the same transaction that created the
	// record, so this indicates a broken invariant rather than work in progress.
	ErrSavedResponseMissing = errors.New("idempotency: expected a saved response but it was not found")

	ErrInvalidResponse = errors.New("idempotency: invalid response")
	ErrForeignHandle   = errors.New("idempotency: handle was not issued by this store")
)
