package delivery

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// memQueue mimics the skip-locked table: claimed tasks are invisible to other callers
// until they are retired or released.
type memQueue struct {
	mu       sync.Mutex
	tasks    []Task
	inFlight map[Task]bool
	err      error
	dequeues int
}

func newMemQueue(tasks ...Task) *memQueue {
	return &memQueue{tasks: tasks, inFlight: make(map[Task]bool)}
}

func (q *memQueue) Dequeue(ctx context.Context) (Claim, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dequeues++
	if q.err != nil {
		return nil, q.err
	}
	for _, t := range q.tasks {
		if !q.inFlight[t] {
			q.inFlight[t] = true
			return &memClaim{q: q, task: t}, nil
		}
	}
	return nil, nil
}

func (q *memQueue) remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *memQueue) locked() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inFlight)
}

func (q *memQueue) dequeueCalls() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dequeues
}

type memClaim struct {
	q    *memQueue
	task Task
}

func (c *memClaim) Task() Task { return c.task }

func (c *memClaim) Retire(ctx context.Context) error {
	c.q.mu.Lock()
	defer c.q.mu.Unlock()
	delete(c.q.inFlight, c.task)
	for i, t := range c.q.tasks {
		if t == c.task {
			c.q.tasks = append(c.q.tasks[:i], c.q.tasks[i+1:]...)
			return nil
		}
	}
	return errors.New("task already retired")
}

func (c *memClaim) Release(ctx context.Context) error {
	c.q.mu.Lock()
	defer c.q.mu.Unlock()
	delete(c.q.inFlight, c.task)
	return nil
}

type staticIssues struct {
	content map[uuid.UUID]Content
}

func (s staticIssues) Content(ctx context.Context, id uuid.UUID) (Content, error) {
	c, ok := s.content[id]
	if !ok {
		return Content{}, errors.New("issue not found")
	}
	return c, nil
}

type recordingSender struct {
	mu       sync.Mutex
	failFor  map[string]bool
	attempts map[string]int
	sent     []string
}

func newRecordingSender(failFor ...string) *recordingSender {
	s := &recordingSender{failFor: make(map[string]bool), attempts: make(map[string]int)}
	for _, r := range failFor {
		s.failFor[r] = true
	}
	return s
}

func (s *recordingSender) Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[recipient]++
	if s.failFor[recipient] {
		return errors.New("smtp: 550 mailbox unavailable")
	}
	s.sent = append(s.sent, recipient)
	return nil
}

func (s *recordingSender) sentTo() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func (s *recordingSender) attemptsFor(recipient string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[recipient]
}
