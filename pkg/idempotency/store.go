package idempotency

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/newsletter/pkg/repo"
)

// Handle is the open transaction owned by the first submitter of a key.
// Side effects executed through it commit together with the saved response.
type Handle interface {
	repo.Tx
	CallerID() uuid.UUID
	Key() Key
	// Rollback abandons the record and every side effect written through the handle.
	Rollback(ctx context.Context) error
}

// NextAction tells the caller whether to process the command or replay a saved response.
type NextAction struct {
	handle Handle
	saved  Response
}

func StartProcessing(h Handle) NextAction {
	return NextAction{handle: h}
}

func ReturnSaved(r Response) NextAction {
	return NextAction{saved: r}
}

// Handle returns the processing handle when the caller is the first submitter.
func (a NextAction) Handle() (Handle, bool) {
	return a.handle, a.handle != nil
}

// Saved returns the previously captured response when the key was already processed.
func (a NextAction) Saved() (Response, bool) {
	if a.handle != nil {
		return Response{}, false
	}
	return a.saved, true
}

type Store interface {
	TryBegin(ctx context.Context, callerID uuid.UUID, key Key) (NextAction, error)
	Complete(ctx context.Context, h Handle, resp Response) (Response, error)
}
