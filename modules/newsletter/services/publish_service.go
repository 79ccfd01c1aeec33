package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/newsletter/modules/newsletter/domain/aggregates/issue"
	"github.com/iota-uz/newsletter/pkg/composables"
	"github.com/iota-uz/newsletter/pkg/idempotency"
	"github.com/iota-uz/newsletter/pkg/repo"
)

const AcceptedMessage = "The newsletter issue has been accepted - emails will go out shortly."

var ErrInvalidCommand = errors.New("invalid publish command")

// ValidationError lists the offending fields of a rejected command, keyed by form field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("%s: %s", ErrInvalidCommand, strings.Join(keys, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidCommand
}

type IssueWriter interface {
	Create(ctx context.Context, iss issue.Issue) (issue.Issue, error)
}

// DeliveryEnqueuer snapshots the confirmed subscribers of an issue into the delivery queue
// through the given transaction.
type DeliveryEnqueuer interface {
	EnqueueConfirmed(ctx context.Context, tx repo.Tx, issueID uuid.UUID) (int64, error)
}

type PublishCommand struct {
	CallerID       uuid.UUID
	IdempotencyKey string
	Issue          issue.CreateDTO
}

type PublishResult struct {
	IssueID    uuid.UUID `json:"issue_id"`
	Recipients int64     `json:"recipients"`
	Message    string    `json:"message"`
}

type PublishService struct {
	store  idempotency.Store
	issues IssueWriter
	queue  DeliveryEnqueuer
}

func NewPublishService(store idempotency.Store, issues IssueWriter, queue DeliveryEnqueuer) *PublishService {
	return &PublishService{store: store, issues: issues, queue: queue}
}

// Publish creates the issue and its delivery tasks at most once per (caller, idempotency key).
// Repeated and concurrent submissions of the same key get the response of the first one.
func (s *PublishService) Publish(ctx context.Context, cmd PublishCommand) (idempotency.Response, error) {
	if cmd.CallerID == uuid.Nil {
		return idempotency.Response{}, fmt.Errorf("%w: caller is required", ErrInvalidCommand)
	}
	key, err := idempotency.NewKey(cmd.IdempotencyKey)
	if err != nil {
		return idempotency.Response{}, &ValidationError{Fields: map[string]string{"idempotency_key": err.Error()}}
	}
	dto := cmd.Issue
	if fields, ok := dto.Ok(); !ok {
		return idempotency.Response{}, &ValidationError{Fields: fields}
	}

	logger := composables.UseLogger(ctx).WithFields(logrus.Fields{
		"caller_id":       cmd.CallerID.String(),
		"idempotency_key": key.String(),
	})

	action, err := s.store.TryBegin(ctx, cmd.CallerID, key)
	if err != nil {
		return idempotency.Response{}, err
	}
	if saved, ok := action.Saved(); ok {
		logger.Info("publish: replaying saved response")
		return saved, nil
	}

	h, _ := action.Handle()
	resp, err := s.publish(composables.WithTx(ctx, h), h, &dto)
	if err != nil {
		if rbErr := h.Rollback(ctx); rbErr != nil {
			logger.WithError(rbErr).Warn("publish: rollback failed")
		}
		return idempotency.Response{}, err
	}
	return s.store.Complete(ctx, h, resp)
}

func (s *PublishService) publish(ctx context.Context, tx repo.Tx, dto *issue.CreateDTO) (idempotency.Response, error) {
	iss, err := s.issues.Create(ctx, dto.ToEntity())
	if err != nil {
		return idempotency.Response{}, err
	}
	n, err := s.queue.EnqueueConfirmed(ctx, tx, iss.ID())
	if err != nil {
		return idempotency.Response{}, err
	}

	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"newsletter_issue_id": iss.ID().String(),
		"recipients":          n,
	}).Info("publish: issue accepted")

	return idempotency.NewJSONResponse(http.StatusAccepted, PublishResult{
		IssueID:    iss.ID(),
		Recipients: n,
		Message:    AcceptedMessage,
	})
}
