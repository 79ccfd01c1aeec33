package idempotency

import "github.com/go-faster/errors"

// MaxKeyLength is the exclusive upper bound on key length in bytes.
const MaxKeyLength = 50

var (
	ErrKeyEmpty   = errors.New("idempotency key cannot be empty")
	ErrKeyTooLong = errors.New("idempotency key must be shorter than 50 characters")
)

// Key is a validated, caller-supplied idempotency key.
type Key struct {
	value string
}

func NewKey(raw string) (Key, error) {
	if raw == "" {
		return Key{}, ErrKeyEmpty
	}
	if len(raw) >= MaxKeyLength {
		return Key{}, ErrKeyTooLong
	}
	return Key{value: raw}, nil
}

func (k Key) String() string {
	return k.value
}

func (k Key) IsZero() bool {
	return k.value == ""
}
