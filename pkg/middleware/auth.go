package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/newsletter/pkg/composables"
	"github.com/iota-uz/newsletter/pkg/httpapi"
)

// ErrBadCredentials is what an Authenticator returns for an unknown user or a wrong password.
var ErrBadCredentials = errors.New("invalid username or password")

type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (uuid.UUID, error)
}

// BasicAuth requires HTTP basic credentials and binds the authenticated caller to the request context.
// Rejected requests get 401 with a WWW-Authenticate challenge for realm.
func BasicAuth(auth Authenticator, realm string) mux.MiddlewareFunc {
	challenge := fmt.Sprintf("Basic realm=%q", realm)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok {
				unauthorized(w, challenge, "missing basic credentials")
				return
			}
			callerID, err := auth.Authenticate(r.Context(), username, password)
			if errors.Is(err, ErrBadCredentials) {
				composables.UseLogger(r.Context()).WithField("username", username).Warn("auth: rejected credentials")
				unauthorized(w, challenge, "invalid username or password")
				return
			}
			if err != nil {
				composables.UseLogger(r.Context()).WithError(err).Error("auth: failed to authenticate")
				_ = httpapi.WriteError(w, httpapi.CodeInternal, "internal server error", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(composables.WithCaller(r.Context(), callerID)))
		})
	}
}

func unauthorized(w http.ResponseWriter, challenge, message string) {
	w.Header().Set("WWW-Authenticate", challenge)
	_ = httpapi.WriteError(w, httpapi.CodeUnauthorized, message, nil)
}
