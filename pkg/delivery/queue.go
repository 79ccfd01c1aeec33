package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/newsletter/pkg/repo"
)

// PgQueue is the issue_delivery_queue table. Rows are claimed with FOR UPDATE SKIP LOCKED,
// so any number of workers can drain it without handing the same row to two of them.
type PgQueue struct {
	pool  *pgxpool.Pool
	table pgx.Identifier
	opts  QueueOptions

	m          *metrics
	tableLabel string
}

func NewQueue(pool *pgxpool.Pool, table pgx.Identifier, opts QueueOptions) (*PgQueue, error) {
	if pool == nil {
		return nil, invalidConfig("pool is required")
	}
	if len(table) == 0 {
		return nil, invalidConfig("table is required")
	}
	opts.setDefaults()

	return &PgQueue{
		pool:       pool,
		table:      table,
		opts:       opts,
		m:          getMetrics(),
		tableLabel: TableLabel(table),
	}, nil
}

func (q *PgQueue) TableLabel() string {
	return q.tableLabel
}

// EnqueueConfirmed adds one task per subscriber confirmed at this instant. It runs in the caller's
// transaction so the tasks become visible together with the issue that owns them.
func (q *PgQueue) EnqueueConfirmed(ctx context.Context, tx repo.Tx, issueID uuid.UUID) (int64, error) {
	if tx == nil {
		return 0, invalidConfig("tx is required")
	}
	if issueID == uuid.Nil {
		return 0, invalidConfig("issue id is required")
	}

	stmt := fmt.Sprintf(
		`INSERT INTO %s (newsletter_issue_id, subscriber_email)
		 SELECT $1, email
		   FROM %s
		  WHERE status = 'confirmed'`,
		q.table.Sanitize(),
		q.opts.SubscribersTable.Sanitize(),
	)
	tag, err := tx.Exec(ctx, stmt, issueID)
	if err != nil {
		return 0, fmt.Errorf("delivery enqueue: %w", err)
	}

	n := tag.RowsAffected()
	q.m.enqueueTotal.WithLabelValues(q.tableLabel).Add(float64(n))
	return n, nil
}

func (q *PgQueue) Dequeue(ctx context.Context) (Claim, error) {
	tx, err := q.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("delivery dequeue begin: %w", err)
	}

	sel := fmt.Sprintf(
		`SELECT newsletter_issue_id, subscriber_email
		   FROM %s
		  LIMIT 1
		  FOR UPDATE SKIP LOCKED`,
		q.table.Sanitize(),
	)
	var t Task
	err = tx.QueryRow(ctx, sel).Scan(&t.IssueID, &t.SubscriberEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		_ = tx.Rollback(ctx)
		return nil, nil
	}
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("delivery dequeue select: %w", err)
	}

	return &pgClaim{tx: tx, task: t, q: q}, nil
}

func (q *PgQueue) Pending(ctx context.Context) (int64, error) {
	var n int64
	stmt := fmt.Sprintf(`SELECT count(*) FROM %s`, q.table.Sanitize())
	if err := q.pool.QueryRow(ctx, stmt).Scan(&n); err != nil {
		return 0, fmt.Errorf("delivery pending count: %w", err)
	}
	return n, nil
}

type pgClaim struct {
	tx   pgx.Tx
	task Task
	q    *PgQueue
}

func (c *pgClaim) Task() Task {
	return c.task
}

func (c *pgClaim) Retire(ctx context.Context) error {
	stmt := fmt.Sprintf(
		`DELETE FROM %s WHERE newsletter_issue_id = $1 AND subscriber_email = $2`,
		c.q.table.Sanitize(),
	)
	if _, err := c.tx.Exec(ctx, stmt, c.task.IssueID, c.task.SubscriberEmail); err != nil {
		_ = c.tx.Rollback(ctx)
		return fmt.Errorf("delivery retire: %w", err)
	}
	if err := c.tx.Commit(ctx); err != nil {
		return fmt.Errorf("delivery retire commit: %w", err)
	}
	return nil
}

func (c *pgClaim) Release(ctx context.Context) error {
	return c.tx.Rollback(ctx)
}
