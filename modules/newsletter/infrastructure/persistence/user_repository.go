package persistence

import (
	"context"
	"errors"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/newsletter/modules/newsletter/domain/aggregates/user"
	"github.com/iota-uz/newsletter/pkg/composables"
)

const (
	userInsertQuery     = `INSERT INTO users (user_id, username, password_hash) VALUES ($1, $2, $3)`
	userByUsernameQuery = `SELECT user_id, username, password_hash FROM users WHERE username = $1`
)

type UserRepository struct{}

func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

func (r *UserRepository) Create(ctx context.Context, u user.User) (user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return user.User{}, err
	}
	_, err = tx.Exec(ctx, userInsertQuery, u.ID(), u.Username(), u.PasswordHash())
	if isUniqueViolation(err) {
		return user.User{}, ErrDuplicate
	}
	if err != nil {
		return user.User{}, gerrors.Wrap(err, "insert user")
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return user.User{}, err
	}
	var (
		id           uuid.UUID
		name, hashed string
	)
	err = tx.QueryRow(ctx, userByUsernameQuery, username).Scan(&id, &name, &hashed)
	if errors.Is(err, pgx.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, gerrors.Wrap(err, "select user")
	}
	return user.Hydrate(id, name, hashed), nil
}
