package controllers

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/iota-uz/newsletter/modules/newsletter/domain/aggregates/user"
	"github.com/iota-uz/newsletter/modules/newsletter/services"
	"github.com/iota-uz/newsletter/pkg/middleware"
)

type userAuthenticator struct {
	users *services.UserService
}

func (a userAuthenticator) Authenticate(ctx context.Context, username, password string) (uuid.UUID, error) {
	id, err := a.users.Authenticate(ctx, username, password)
	if errors.Is(err, user.ErrInvalidCredentials) {
		return uuid.Nil, middleware.ErrBadCredentials
	}
	return id, err
}
