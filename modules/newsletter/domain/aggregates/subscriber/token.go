package subscriber

import (
	"crypto/rand"
	"errors"
	"strings"
)

const maxTokenLength = 64

var (
	ErrInvalidToken  = errors.New("invalid subscription token")
	ErrTokenNotFound = errors.New("subscription token not found")
)

// Token is the secret carried by a confirmation link.
type Token string

func NewToken() Token {
	return Token(rand.Text())
}

func ParseToken(raw string) (Token, error) {
	t := strings.TrimSpace(raw)
	if t == "" || len(t) > maxTokenLength {
		return "", ErrInvalidToken
	}
	return Token(t), nil
}

func (t Token) String() string {
	return string(t)
}
