package persistence

import (
	"context"
	"errors"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iota-uz/newsletter/modules/newsletter/domain/aggregates/subscriber"
	"github.com/iota-uz/newsletter/pkg/composables"
)

var ErrDuplicate = errors.New("record already exists")

const (
	subscriberInsertQuery = `INSERT INTO subscriptions (id, email, name, subscribed_at, status)
		VALUES ($1, $2, $3, $4, $5)`
	subscriberInsertPendingQuery = `WITH created AS (
			INSERT INTO subscriptions (id, email, name, subscribed_at, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		)
		INSERT INTO subscription_tokens (subscription_token, subscriber_id)
		SELECT $6, id FROM created`
	subscriberConfirmQuery        = `UPDATE subscriptions SET status = 'confirmed' WHERE email = $1`
	subscriberConfirmByTokenQuery = `UPDATE subscriptions SET status = 'confirmed'
		WHERE id = (SELECT subscriber_id FROM subscription_tokens WHERE subscription_token = $1)`
	subscriberConfirmedQuery = `SELECT id, email, name, status, subscribed_at
		FROM subscriptions
		WHERE status = 'confirmed'
		ORDER BY subscribed_at, email`
)

const uniqueViolation = "23505"

type SubscriberRepository struct{}

func NewSubscriberRepository() *SubscriberRepository {
	return &SubscriberRepository{}
}

func (r *SubscriberRepository) Create(ctx context.Context, s subscriber.Subscriber) (subscriber.Subscriber, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return subscriber.Subscriber{}, err
	}
	_, err = tx.Exec(ctx, subscriberInsertQuery, s.ID(), s.Email(), s.Name(), s.SubscribedAt(), string(s.Status()))
	if isUniqueViolation(err) {
		return subscriber.Subscriber{}, ErrDuplicate
	}
	if err != nil {
		return subscriber.Subscriber{}, gerrors.Wrap(err, "insert subscriber")
	}
	return s, nil
}

func (r *SubscriberRepository) CreatePending(ctx context.Context, s subscriber.Subscriber, token subscriber.Token) (subscriber.Subscriber, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return subscriber.Subscriber{}, err
	}
	_, err = tx.Exec(ctx, subscriberInsertPendingQuery,
		s.ID(), s.Email(), s.Name(), s.SubscribedAt(), string(s.Status()), token.String())
	if isUniqueViolation(err) {
		return subscriber.Subscriber{}, ErrDuplicate
	}
	if err != nil {
		return subscriber.Subscriber{}, gerrors.Wrap(err, "insert pending subscriber")
	}
	return s, nil
}

func (r *SubscriberRepository) Confirm(ctx context.Context, email string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, subscriberConfirmQuery, email)
	if err != nil {
		return gerrors.Wrap(err, "confirm subscriber")
	}
	if tag.RowsAffected() == 0 {
		return subscriber.ErrNotFound
	}
	return nil
}

// ConfirmByToken is idempotent: a token whose subscriber is already confirmed still succeeds.
func (r *SubscriberRepository) ConfirmByToken(ctx context.Context, token subscriber.Token) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, subscriberConfirmByTokenQuery, token.String())
	if err != nil {
		return gerrors.Wrap(err, "confirm subscriber by token")
	}
	if tag.RowsAffected() == 0 {
		return subscriber.ErrTokenNotFound
	}
	return nil
}

// ListConfirmed returns a snapshot of the confirmed subscribers.
func (r *SubscriberRepository) ListConfirmed(ctx context.Context) ([]subscriber.Subscriber, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, subscriberConfirmedQuery)
	if err != nil {
		return nil, gerrors.Wrap(err, "list confirmed subscribers")
	}
	defer rows.Close()

	var out []subscriber.Subscriber
	for rows.Next() {
		var (
			id           uuid.UUID
			email, name  string
			status       string
			subscribedAt time.Time
		)
		if err := rows.Scan(&id, &email, &name, &status, &subscribedAt); err != nil {
			return nil, gerrors.Wrap(err, "scan subscriber")
		}
		out = append(out, subscriber.Hydrate(id, email, name, subscriber.Status(status), subscribedAt))
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(err, "list confirmed subscribers")
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
