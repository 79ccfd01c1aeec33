package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/newsletter/modules/newsletter/domain/aggregates/issue"
	"github.com/iota-uz/newsletter/pkg/idempotency"
)

func threeSubscribers() *memQueue {
	return &memQueue{confirmed: []string{"ann@example.com", "bob@example.com", "cid@example.com"}}
}

func command(caller uuid.UUID, key string) PublishCommand {
	return PublishCommand{
		CallerID:       caller,
		IdempotencyKey: key,
		Issue: issue.CreateDTO{
			Title:       "Weekly",
			HTMLContent: "<p>Newsletter body as HTML</p>",
			TextContent: "Newsletter body as plain text",
		},
	}
}

func TestPublish_ReplaysSavedResponse(t *testing.T) {
	store := newMemStore()
	svc := NewPublishService(store, &memIssues{}, threeSubscribers())
	caller := uuid.New()

	first, err := svc.Publish(context.Background(), command(caller, "abc"))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, first.Status)

	var body PublishResult
	require.NoError(t, json.Unmarshal(first.Body, &body))
	require.Equal(t, AcceptedMessage, body.Message)
	require.Equal(t, int64(3), body.Recipients)
	require.NotEqual(t, uuid.Nil, body.IssueID)

	for i := 0; i < 3; i++ {
		again, err := svc.Publish(context.Background(), command(caller, "abc"))
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
	require.Equal(t, 1, store.issueCount())
	require.Equal(t, 3, store.taskCount())
}

func TestPublish_ConcurrentSameKeyExecutesOnce(t *testing.T) {
	store := newMemStore()
	gate := make(chan struct{})
	svc := NewPublishService(store, &memIssues{gate: gate}, threeSubscribers())
	caller := uuid.New()

	var wg sync.WaitGroup
	responses := make([]idempotency.Response, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			responses[i], errs[i] = svc.Publish(context.Background(), command(caller, "two-tabs"))
		}()
	}

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.calls == 2
	}, time.Second, time.Millisecond)
	close(gate)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, responses[0], responses[1])
	require.Equal(t, 1, store.issueCount())
	require.Equal(t, 3, store.taskCount())
	require.Equal(t, 1, store.completes)
}

func TestPublish_DifferentKeysAreIndependent(t *testing.T) {
	store := newMemStore()
	svc := NewPublishService(store, &memIssues{}, threeSubscribers())
	caller := uuid.New()

	a, err := svc.Publish(context.Background(), command(caller, "key-a"))
	require.NoError(t, err)
	b, err := svc.Publish(context.Background(), command(caller, "key-b"))
	require.NoError(t, err)

	require.NotEqual(t, a.Body, b.Body)
	require.Equal(t, 2, store.issueCount())
	require.Equal(t, 6, store.taskCount())
}

func TestPublish_SameKeyDifferentCallers(t *testing.T) {
	store := newMemStore()
	svc := NewPublishService(store, &memIssues{}, threeSubscribers())

	_, err := svc.Publish(context.Background(), command(uuid.New(), "shared"))
	require.NoError(t, err)
	_, err = svc.Publish(context.Background(), command(uuid.New(), "shared"))
	require.NoError(t, err)
	require.Equal(t, 2, store.issueCount())
}

func TestPublish_RejectsInvalidKeyBeforeTouchingStore(t *testing.T) {
	store := newMemStore()
	svc := NewPublishService(store, &memIssues{}, threeSubscribers())
	caller := uuid.New()

	for _, key := range []string{"", strings.Repeat("k", idempotency.MaxKeyLength)} {
		_, err := svc.Publish(context.Background(), command(caller, key))
		require.ErrorIs(t, err, ErrInvalidCommand)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "idempotency_key")
	}
	require.Zero(t, store.calls)

	_, err := svc.Publish(context.Background(), command(caller, strings.Repeat("k", idempotency.MaxKeyLength-1)))
	require.NoError(t, err)
	require.Equal(t, 1, store.calls)
}

func TestPublish_RejectsInvalidIssue(t *testing.T) {
	store := newMemStore()
	svc := NewPublishService(store, &memIssues{}, threeSubscribers())

	cmd := command(uuid.New(), "abc")
	cmd.Issue.Title = ""
	_, err := svc.Publish(context.Background(), cmd)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "required", verr.Fields["title"])
	require.Zero(t, store.calls)

	_, err = svc.Publish(context.Background(), command(uuid.Nil, "abc"))
	require.ErrorIs(t, err, ErrInvalidCommand)
}

func TestPublish_FailureRollsBackAndFreesKey(t *testing.T) {
	store := newMemStore()
	queue := threeSubscribers()
	queue.err = errors.New("connection reset")
	svc := NewPublishService(store, &memIssues{}, queue)
	caller := uuid.New()

	_, err := svc.Publish(context.Background(), command(caller, "retry-me"))
	require.ErrorContains(t, err, "connection reset")
	require.Zero(t, store.issueCount())
	require.Zero(t, store.taskCount())

	queue.err = nil
	resp, err := svc.Publish(context.Background(), command(caller, "retry-me"))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.Status)
	require.Equal(t, 1, store.issueCount())
	require.Equal(t, 3, store.taskCount())
}

type brokenStore struct{ err error }

func (s brokenStore) TryBegin(context.Context, uuid.UUID, idempotency.Key) (idempotency.NextAction, error) {
	return idempotency.NextAction{}, s.err
}

func (s brokenStore) Complete(context.Context, idempotency.Handle, idempotency.Response) (idempotency.Response, error) {
	return idempotency.Response{}, s.err
}

func TestPublish_PropagatesMissingSavedResponse(t *testing.T) {
	svc := NewPublishService(brokenStore{err: idempotency.ErrSavedResponseMissing}, &memIssues{}, threeSubscribers())
	_, err := svc.Publish(context.Background(), command(uuid.New(), "abc"))
	require.ErrorIs(t, err, idempotency.ErrSavedResponseMissing)
}
