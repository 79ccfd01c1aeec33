package idempotency

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const DefaultTable = "idempotency"

// PgStore keeps idempotency records in a Postgres table keyed by (caller_id, idempotency_key).
//
// Concurrent first submissions are serialized by the primary key: the loser of the race blocks on
// its INSERT until the winner commits (the insert then becomes a no-op) or rolls back (the insert
// then succeeds and the loser becomes the first submitter).
type PgStore struct {
	pool  *pgxpool.Pool
	table pgx.Identifier
	m     *metrics
}

func NewPgStore(pool *pgxpool.Pool, table pgx.Identifier) (*PgStore, error) {
	if pool == nil {
		return nil, errors.New("idempotency: pool is required")
	}
	if len(table) == 0 {
		table = pgx.Identifier{DefaultTable}
	}
	return &PgStore{pool: pool, table: table, m: getMetrics()}, nil
}

type pgHandle struct {
	pgx.Tx
	callerID uuid.UUID
	key      Key
	store    *PgStore
}

func (h *pgHandle) CallerID() uuid.UUID { return h.callerID }
func (h *pgHandle) Key() Key            { return h.key }

func (s *PgStore) TryBegin(ctx context.Context, callerID uuid.UUID, key Key) (NextAction, error) {
	if key.IsZero() {
		return NextAction{}, ErrKeyEmpty
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return NextAction{}, errors.Wrap(err, "idempotency begin")
	}

	q := fmt.Sprintf(
		`INSERT INTO %s (caller_id, idempotency_key, created_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT DO NOTHING`,
		s.table.Sanitize(),
	)
	tag, err := tx.Exec(ctx, q, callerID, key.String())
	if err != nil {
		_ = tx.Rollback(ctx)
		s.m.outcomeTotal.WithLabelValues(outcomeFailed).Inc()
		return NextAction{}, errors.Wrap(err, "idempotency insert")
	}

	if tag.RowsAffected() > 0 {
		s.m.outcomeTotal.WithLabelValues(outcomeStarted).Inc()
		return StartProcessing(&pgHandle{Tx: tx, callerID: callerID, key: key, store: s}), nil
	}

	// Someone else already owns the key; release our transaction before reading.
	_ = tx.Rollback(ctx)

	saved, err := s.savedResponse(ctx, callerID, key)
	if err != nil {
		s.m.outcomeTotal.WithLabelValues(outcomeFailed).Inc()
		return NextAction{}, err
	}
	s.m.outcomeTotal.WithLabelValues(outcomeReplayed).Inc()
	return ReturnSaved(saved), nil
}

func (s *PgStore) savedResponse(ctx context.Context, callerID uuid.UUID, key Key) (Response, error) {
	q := fmt.Sprintf(
		`SELECT response_status_code, response_headers, response_body
		   FROM %s
		  WHERE caller_id = $1 AND idempotency_key = $2`,
		s.table.Sanitize(),
	)

	var (
		status  *int16
		headers []byte
		body    []byte
	)
	err := s.pool.QueryRow(ctx, q, callerID, key.String()).Scan(&status, &headers, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return Response{}, errors.Wrap(ErrSavedResponseMissing, "record disappeared")
	}
	if err != nil {
		return Response{}, errors.Wrap(err, "idempotency read saved response")
	}
	if status == nil {
		return Response{}, ErrSavedResponseMissing
	}

	var pairs []HeaderPair
	if len(headers) > 0 {
		if pairs, err = decodeHeaders(headers); err != nil {
			return Response{}, errors.Wrap(err, "idempotency decode headers")
		}
	}
	return Response{Status: int(*status), Headers: pairs, Body: body}, nil
}

// Complete saves resp on the record owned by h and commits h. It returns resp unchanged.
// On any failure the handle is rolled back, discarding every side effect written through it.
func (s *PgStore) Complete(ctx context.Context, h Handle, resp Response) (Response, error) {
	ph, ok := h.(*pgHandle)
	if !ok || ph.store != s {
		return Response{}, ErrForeignHandle
	}
	if err := resp.validate(); err != nil {
		_ = ph.Rollback(ctx)
		s.m.outcomeTotal.WithLabelValues(outcomeFailed).Inc()
		return Response{}, err
	}

	headers, err := encodeHeaders(resp.Headers)
	if err != nil {
		_ = ph.Rollback(ctx)
		s.m.outcomeTotal.WithLabelValues(outcomeFailed).Inc()
		return Response{}, errors.Wrap(err, "idempotency encode headers")
	}
	body := resp.Body
	if body == nil {
		body = []byte{}
	}

	q := fmt.Sprintf(
		`UPDATE %s
		    SET response_status_code = $3,
		        response_headers = $4,
		        response_body = $5
		  WHERE caller_id = $1 AND idempotency_key = $2`,
		s.table.Sanitize(),
	)
	if _, err := ph.Exec(ctx, q, ph.callerID, ph.key.String(), int16(resp.Status), headers, body); err != nil {
		_ = ph.Rollback(ctx)
		s.m.outcomeTotal.WithLabelValues(outcomeFailed).Inc()
		return Response{}, errors.Wrap(err, "idempotency save response")
	}
	if err := ph.Commit(ctx); err != nil {
		s.m.outcomeTotal.WithLabelValues(outcomeFailed).Inc()
		return Response{}, errors.Wrap(err, "idempotency commit")
	}

	s.m.outcomeTotal.WithLabelValues(outcomeCompleted).Inc()
	return resp, nil
}
