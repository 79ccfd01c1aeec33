//go:build integration

package idempotency

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/newsletter/pkg/itf"
)

const createIdempotencyTable = `
CREATE TABLE idempotency (
  caller_id            UUID        NOT NULL,
  idempotency_key      TEXT        NOT NULL,
  response_status_code SMALLINT    NULL,
  response_headers     JSONB       NULL,
  response_body        BYTEA       NULL,
  created_at           TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (caller_id, idempotency_key)
);
CREATE TABLE side_effects (id SERIAL PRIMARY KEY, note TEXT NOT NULL);
`

func newTestStore(t *testing.T) (*PgStore, *itf.DatabaseManager) {
	t.Helper()
	dm := itf.NewDatabaseManager(t)
	_, err := dm.Pool().Exec(context.Background(), createIdempotencyTable)
	require.NoError(t, err)

	store, err := NewPgStore(dm.Pool(), pgx.Identifier{"idempotency"})
	require.NoError(t, err)
	return store, dm
}

func countSideEffects(t *testing.T, dm *itf.DatabaseManager) int {
	t.Helper()
	var n int
	require.NoError(t, dm.Pool().QueryRow(context.Background(), `SELECT count(*) FROM side_effects`).Scan(&n))
	return n
}

func TestPgStore_Integration_ReplaysSavedResponse(t *testing.T) {
	store, dm := newTestStore(t)
	ctx := context.Background()
	caller := uuid.New()
	key, err := NewKey("abc")
	require.NoError(t, err)

	action, err := store.TryBegin(ctx, caller, key)
	require.NoError(t, err)
	h, ok := action.Handle()
	require.True(t, ok)

	_, err = h.Exec(ctx, `INSERT INTO side_effects (note) VALUES ('publish')`)
	require.NoError(t, err)

	want := Response{
		Status: http.StatusAccepted,
		Headers: []HeaderPair{
			{Name: "Content-Type", Value: []byte("application/json")},
			{Name: "X-Dup", Value: []byte("1")},
			{Name: "X-Dup", Value: []byte("2")},
		},
		Body: []byte(`{"ok":true}`),
	}
	got, err := store.Complete(ctx, h, want)
	require.NoError(t, err)
	require.Equal(t, want, got)

	for i := 0; i < 3; i++ {
		action, err = store.TryBegin(ctx, caller, key)
		require.NoError(t, err)
		saved, ok := action.Saved()
		require.True(t, ok)
		require.Equal(t, want, saved)
	}
	require.Equal(t, 1, countSideEffects(t, dm))

	// Keys are partitioned by caller.
	action, err = store.TryBegin(ctx, uuid.New(), key)
	require.NoError(t, err)
	h, ok = action.Handle()
	require.True(t, ok)
	require.NoError(t, h.Rollback(ctx))
}

func TestPgStore_Integration_ConcurrentSubmissionBlocksUntilFirstCommits(t *testing.T) {
	store, dm := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	caller := uuid.New()
	key, err := NewKey("double-click")
	require.NoError(t, err)

	first, err := store.TryBegin(ctx, caller, key)
	require.NoError(t, err)
	h, ok := first.Handle()
	require.True(t, ok)
	_, err = h.Exec(ctx, `INSERT INTO side_effects (note) VALUES ('first')`)
	require.NoError(t, err)

	var (
		wg     sync.WaitGroup
		second NextAction
		secErr error
	)
	returned := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		second, secErr = store.TryBegin(ctx, caller, key)
		close(returned)
	}()

	select {
	case <-returned:
		t.Fatal("second submission must block while the first transaction is open")
	case <-time.After(300 * time.Millisecond):
	}

	want := Response{Status: http.StatusAccepted, Body: []byte("accepted")}
	_, err = store.Complete(ctx, h, want)
	require.NoError(t, err)

	wg.Wait()
	require.NoError(t, secErr)
	saved, ok := second.Saved()
	require.True(t, ok)
	require.Equal(t, want.Status, saved.Status)
	require.Equal(t, want.Body, saved.Body)
	require.Equal(t, 1, countSideEffects(t, dm))
}

func TestPgStore_Integration_RollbackLetsNextSubmitterStartFresh(t *testing.T) {
	store, dm := newTestStore(t)
	ctx := context.Background()
	caller := uuid.New()
	key, err := NewKey("retry-after-crash")
	require.NoError(t, err)

	action, err := store.TryBegin(ctx, caller, key)
	require.NoError(t, err)
	h, _ := action.Handle()
	_, err = h.Exec(ctx, `INSERT INTO side_effects (note) VALUES ('lost')`)
	require.NoError(t, err)
	require.NoError(t, h.Rollback(ctx))

	action, err = store.TryBegin(ctx, caller, key)
	require.NoError(t, err)
	h, ok := action.Handle()
	require.True(t, ok)
	_, err = store.Complete(ctx, h, Response{Status: http.StatusAccepted})
	require.NoError(t, err)
	require.Equal(t, 0, countSideEffects(t, dm))
}

func TestPgStore_Integration_NullResponseIsInvariantViolation(t *testing.T) {
	store, dm := newTestStore(t)
	ctx := context.Background()
	caller := uuid.New()

	_, err := dm.Pool().Exec(ctx,
		`INSERT INTO idempotency (caller_id, idempotency_key, created_at) VALUES ($1, 'orphan', now())`, caller)
	require.NoError(t, err)

	key, err := NewKey("orphan")
	require.NoError(t, err)
	_, err = store.TryBegin(ctx, caller, key)
	require.ErrorIs(t, err, ErrSavedResponseMissing)
}

func TestPgStore_Integration_CompleteRejectsInvalidResponse(t *testing.T) {
	store, dm := newTestStore(t)
	ctx := context.Background()
	caller := uuid.New()
	key, err := NewKey("bad-status")
	require.NoError(t, err)

	action, err := store.TryBegin(ctx, caller, key)
	require.NoError(t, err)
	h, _ := action.Handle()
	_, err = h.Exec(ctx, `INSERT INTO side_effects (note) VALUES ('discarded')`)
	require.NoError(t, err)

	_, err = store.Complete(ctx, h, Response{Status: 7})
	require.ErrorIs(t, err, ErrInvalidResponse)
	require.Equal(t, 0, countSideEffects(t, dm))

	// The record was rolled back too, so the key is free again.
	action, err = store.TryBegin(ctx, caller, key)
	require.NoError(t, err)
	h, ok := action.Handle()
	require.True(t, ok)
	require.NoError(t, h.Rollback(ctx))
}
