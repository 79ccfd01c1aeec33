package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iota-uz/newsletter/modules/newsletter/domain/aggregates/issue"
	"github.com/iota-uz/newsletter/pkg/composables"
	"github.com/iota-uz/newsletter/pkg/idempotency"
	"github.com/iota-uz/newsletter/pkg/repo"
)

var errNotSupported = errors.New("not supported by the in-memory store")

type world struct {
	issues []issue.Issue
	tasks  map[uuid.UUID][]string
}

type recordKey struct {
	caller uuid.UUID
	key    string
}

type memRecord struct {
	done chan struct{}
	resp *idempotency.Response
}

// memStore blocks a second submitter of an in-flight key until the first one completes or rolls
// back, and only publishes a handle's writes on Complete, like a Postgres transaction would.
type memStore struct {
	mu        sync.Mutex
	records   map[recordKey]*memRecord
	state     world
	calls     int
	completes int
}

func newMemStore() *memStore {
	return &memStore{
		records: make(map[recordKey]*memRecord),
		state:   world{tasks: make(map[uuid.UUID][]string)},
	}
}

func (s *memStore) TryBegin(ctx context.Context, callerID uuid.UUID, key idempotency.Key) (idempotency.NextAction, error) {
	k := recordKey{caller: callerID, key: key.String()}
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	for {
		s.mu.Lock()
		rec, exists := s.records[k]
		if !exists {
			rec = &memRecord{done: make(chan struct{})}
			s.records[k] = rec
			s.mu.Unlock()
			return idempotency.StartProcessing(&memHandle{store: s, k: k, rec: rec}), nil
		}
		if rec.resp != nil {
			resp := *rec.resp
			s.mu.Unlock()
			return idempotency.ReturnSaved(resp), nil
		}
		s.mu.Unlock()

		select {
		case <-rec.done:
		case <-ctx.Done():
			return idempotency.NextAction{}, ctx.Err()
		}
	}
}

func (s *memStore) Complete(ctx context.Context, h idempotency.Handle, resp idempotency.Response) (idempotency.Response, error) {
	mh := h.(*memHandle)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.issues = append(s.state.issues, mh.pendingIssues...)
	for id, emails := range mh.pendingTasks {
		s.state.tasks[id] = append(s.state.tasks[id], emails...)
	}
	saved := resp
	mh.rec.resp = &saved
	s.completes++
	close(mh.rec.done)
	return resp, nil
}

func (s *memStore) issueCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.issues)
}

func (s *memStore) taskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, emails := range s.state.tasks {
		n += len(emails)
	}
	return n
}

type memHandle struct {
	store *memStore
	k     recordKey
	rec   *memRecord

	pendingIssues []issue.Issue
	pendingTasks  map[uuid.UUID][]string
}

func (h *memHandle) CallerID() uuid.UUID { return h.k.caller }

func (h *memHandle) Key() idempotency.Key {
	k, _ := idempotency.NewKey(h.k.key)
	return k
}

func (h *memHandle) Rollback(ctx context.Context) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	delete(h.store.records, h.k)
	close(h.rec.done)
	return nil
}

func (h *memHandle) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errNotSupported
}

func (h *memHandle) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errNotSupported
}

func (h *memHandle) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return errRow{}
}

type errRow struct{}

func (errRow) Scan(dest ...any) error { return errNotSupported }

// memIssues stages issues on the handle bound to ctx.
type memIssues struct {
	gate chan struct{}
	err  error
}

func (m *memIssues) Create(ctx context.Context, iss issue.Issue) (issue.Issue, error) {
	if m.gate != nil {
		<-m.gate
	}
	if m.err != nil {
		return issue.Issue{}, m.err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return issue.Issue{}, err
	}
	h := tx.(*memHandle)
	h.pendingIssues = append(h.pendingIssues, iss)
	return iss, nil
}

type memQueue struct {
	confirmed []string
	err       error
}

func (q *memQueue) EnqueueConfirmed(ctx context.Context, tx repo.Tx, issueID uuid.UUID) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	h := tx.(*memHandle)
	if h.pendingTasks == nil {
		h.pendingTasks = make(map[uuid.UUID][]string)
	}
	h.pendingTasks[issueID] = append(h.pendingTasks[issueID], q.confirmed...)
	return int64(len(q.confirmed)), nil
}
