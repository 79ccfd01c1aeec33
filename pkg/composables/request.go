package composables

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/form"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/newsletter/pkg/constants"
	"github.com/iota-uz/newsletter/pkg/logging"
)

var formDecoder = form.NewDecoder()

var (
	ErrNoLogger = errors.New("logger not found")
	ErrNoCaller = errors.New("caller identity not found")
)

type Params struct {
	IP        string
	UserAgent string
	RequestID string
	Request   *http.Request
}

// UseParams returns the request parameters from the context.
// If the parameters are not found, the second return value will be false.
func UseParams(ctx context.Context) (*Params, bool) {
	params, ok := ctx.Value(constants.ParamsKey).(*Params)
	return params, ok
}

// WithParams returns a new context with the request parameters.
func WithParams(ctx context.Context, params *Params) context.Context {
	return context.WithValue(ctx, constants.ParamsKey, params)
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the request-scoped logger, or a discarding one when none is set.
func UseLogger(ctx context.Context) *logrus.Entry {
	logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry)
	if !ok || logger == nil {
		return logging.Nop()
	}
	return logger
}

// WithCaller binds the authenticated caller identity to ctx.
func WithCaller(ctx context.Context, callerID uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.CallerKey, callerID)
}

func UseCaller(ctx context.Context) (uuid.UUID, error) {
	callerID, ok := ctx.Value(constants.CallerKey).(uuid.UUID)
	if !ok || callerID == uuid.Nil {
		return uuid.Nil, ErrNoCaller
	}
	return callerID, nil
}

// UseForm decodes the parsed request form into v using its `form` struct tags.
func UseForm[T any](v T, r *http.Request) (T, error) {
	if err := r.ParseForm(); err != nil {
		return v, err
	}
	return v, formDecoder.Decode(v, r.Form)
}
