package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/iota-uz/newsletter/modules/newsletter/domain/aggregates/user"
)

// dummyHash is compared against when the username is unknown, so both branches cost one bcrypt check.
var dummyHash = user.Hydrate(uuid.Nil, "", "$2a$10$CwTycUXWue0Thq9StjUM0uJ8.FXeEE1P/Fd9LbaCvl5P0oTBNnKZW")

type UserService struct {
	repo user.Repository
}

func NewUserService(repo user.Repository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Create(ctx context.Context, username, password string) (user.User, error) {
	u, err := user.New(username, password)
	if err != nil {
		return user.User{}, err
	}
	return s.repo.Create(ctx, u)
}

// Authenticate returns the id of the user owning the credentials, or user.ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (uuid.UUID, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, user.ErrNotFound) {
		dummyHash.CheckPassword(password)
		return uuid.Nil, user.ErrInvalidCredentials
	}
	if err != nil {
		return uuid.Nil, err
	}
	if !u.CheckPassword(password) {
		return uuid.Nil, user.ErrInvalidCredentials
	}
	return u.ID(), nil
}
