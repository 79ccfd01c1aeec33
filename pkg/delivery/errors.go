package delivery

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid delivery configuration")

func invalidConfig(msg string, args ...any) error {
	return fmt.Errorf("%w: "+msg, append([]any{ErrInvalidConfig}, args...)...)
}
