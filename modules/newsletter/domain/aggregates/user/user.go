package user

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type User struct {
	id           uuid.UUID
	username     string
	passwordHash string
}

// New hashes password with bcrypt and returns a user with a fresh id.
func New(username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return User{id: uuid.New(), username: username, passwordHash: string(hash)}, nil
}

func Hydrate(id uuid.UUID, username, passwordHash string) User {
	return User{id: id, username: username, passwordHash: passwordHash}
}

func (u User) ID() uuid.UUID        { return u.id }
func (u User) Username() string     { return u.username }
func (u User) PasswordHash() string { return u.passwordHash }

func (u User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)) == nil
}
