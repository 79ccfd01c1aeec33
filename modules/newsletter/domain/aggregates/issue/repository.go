package issue

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("newsletter issue not found")

type Repository interface {
	Create(ctx context.Context, iss Issue) (Issue, error)
	GetByID(ctx context.Context, id uuid.UUID) (Issue, error)
}
