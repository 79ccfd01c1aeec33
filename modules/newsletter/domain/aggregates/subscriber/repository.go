package subscriber

import "context"

type Repository interface {
	Create(ctx context.Context, s Subscriber) (Subscriber, error)
	// CreatePending stores s together with its confirmation token, atomically.
	CreatePending(ctx context.Context, s Subscriber, token Token) (Subscriber, error)
	Confirm(ctx context.Context, email string) error
	// ConfirmByToken returns ErrTokenNotFound when no subscriber owns token.
	ConfirmByToken(ctx context.Context, token Token) error
	ListConfirmed(ctx context.Context) ([]Subscriber, error)
}
