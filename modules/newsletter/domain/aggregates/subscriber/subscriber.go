package subscriber

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rivo/uniseg"

	"github.com/iota-uz/newsletter/pkg/constants"
)

type Status string

const (
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusConfirmed           Status = "confirmed"
)

const maxNameLength = 256

var (
	ErrNotFound     = errors.New("subscriber not found")
	ErrInvalidEmail = errors.New("invalid subscriber email")
	ErrInvalidName  = errors.New("invalid subscriber name")
)

const forbiddenNameChars = `/()"<>\{}`

// ParseEmail validates and normalizes a subscriber address.
func ParseEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if err := constants.Validate.Var(email, "required,email"); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// ParseName rejects empty names, names longer than 256 user-perceived characters
// (grapheme clusters) and names with characters that are unsafe to echo back into HTML.
func ParseName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || uniseg.GraphemeClusterCount(name) > maxNameLength {
		return "", ErrInvalidName
	}
	if strings.ContainsAny(name, forbiddenNameChars) {
		return "", ErrInvalidName
	}
	return name, nil
}

type Subscriber struct {
	id           uuid.UUID
	email        string
	name         string
	status       Status
	subscribedAt time.Time
}

func New(email, name string) (Subscriber, error) {
	e, err := ParseEmail(email)
	if err != nil {
		return Subscriber{}, err
	}
	n, err := ParseName(name)
	if err != nil {
		return Subscriber{}, err
	}
	return Subscriber{
		id:           uuid.New(),
		email:        e,
		name:         n,
		status:       StatusPendingConfirmation,
		subscribedAt: time.Now().UTC(),
	}, nil
}

func Hydrate(id uuid.UUID, email, name string, status Status, subscribedAt time.Time) Subscriber {
	return Subscriber{
		id:           id,
		email:        email,
		name:         name,
		status:       status,
		subscribedAt: subscribedAt,
	}
}

func (s Subscriber) ID() uuid.UUID           { return s.id }
func (s Subscriber) Email() string           { return s.email }
func (s Subscriber) Name() string            { return s.name }
func (s Subscriber) Status() Status          { return s.status }
func (s Subscriber) SubscribedAt() time.Time { return s.subscribedAt }
func (s Subscriber) IsConfirmed() bool       { return s.status == StatusConfirmed }
