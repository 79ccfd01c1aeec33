package delivery

import (
	"context"

	"github.com/google/uuid"
)

// Queue hands out at most one task per Dequeue call. A nil Claim with a nil error means
// no task is currently eligible.
type Queue interface {
	Dequeue(ctx context.Context) (Claim, error)
}

// Claim holds a task locked by the caller until it is retired or released.
type Claim interface {
	Task() Task
	// Retire deletes the task and commits.
	Retire(ctx context.Context) error
	// Release gives the task back untouched.
	Release(ctx context.Context) error
}

type IssueSource interface {
	Content(ctx context.Context, issueID uuid.UUID) (Content, error)
}

type Sender interface {
	Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error
}

type pendingCounter interface {
	Pending(ctx context.Context) (int64, error)
	TableLabel() string
}
