package delivery

import "github.com/google/uuid"

// Task is one outstanding (issue, recipient) pair. Its row existing is the only record
// that the recipient has not been attempted yet.
type Task struct {
	IssueID         uuid.UUID
	SubscriberEmail string
}

// Content is what the worker needs from an issue to build an email.
type Content struct {
	Title       string
	HTMLContent string
	TextContent string
}

type Outcome int

const (
	TaskCompleted Outcome = iota + 1
	EmptyQueue
)

func (o Outcome) String() string {
	switch o {
	case TaskCompleted:
		return "completed"
	case EmptyQueue:
		return "empty"
	default:
		return "unknown"
	}
}
