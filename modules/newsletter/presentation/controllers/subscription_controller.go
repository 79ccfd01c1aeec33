package controllers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/newsletter/modules/newsletter/domain/aggregates/subscriber"
	"github.com/iota-uz/newsletter/modules/newsletter/services"
	"github.com/iota-uz/newsletter/pkg/application"
	"github.com/iota-uz/newsletter/pkg/composables"
	"github.com/iota-uz/newsletter/pkg/httpapi"
)

const maxSubscribeBody = 16 << 10

type SubscribeForm struct {
	Name  string `form:"name"`
	Email string `form:"email"`
}

type SubscriptionController struct {
	app         application.Application
	subscribers *services.SubscriberService
	basePath    string
}

func NewSubscriptionController(app application.Application) application.Controller {
	return &SubscriptionController{
		app:         app,
		subscribers: app.Service(services.SubscriberService{}).(*services.SubscriberService),
		basePath:    "/subscriptions",
	}
}

func (c *SubscriptionController) Key() string {
	return c.basePath
}

func (c *SubscriptionController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.Subscribe).Methods(http.MethodPost)
	router.HandleFunc("/confirm", c.Confirm).Methods(http.MethodGet)
}

// Subscribe answers 200 with an empty body once the confirmation email is on its way.
func (c *SubscriptionController) Subscribe(w http.ResponseWriter, r *http.Request) {
	logger := composables.UseLogger(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxSubscribeBody)
	f, err := composables.UseForm(&SubscribeForm{}, r)
	if err != nil {
		_ = httpapi.WriteError(w, httpapi.CodeSubscriptionInvalid, "invalid form", nil)
		return
	}

	if _, err := c.subscribers.SubscribeWithConfirmation(r.Context(), f.Email, f.Name); err != nil {
		switch {
		case errors.Is(err, subscriber.ErrInvalidEmail):
			_ = httpapi.WriteError(w, httpapi.CodeSubscriptionInvalid, err.Error(), map[string]string{"email": "invalid"})
		case errors.Is(err, subscriber.ErrInvalidName):
			_ = httpapi.WriteError(w, httpapi.CodeSubscriptionInvalid, err.Error(), map[string]string{"name": "invalid"})
		default:
			logger.WithError(err).Error("subscriptions: subscribe failed")
			_ = httpapi.WriteError(w, httpapi.CodeSubscriptionFailure, "internal error", nil)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (c *SubscriptionController) Confirm(w http.ResponseWriter, r *http.Request) {
	logger := composables.UseLogger(r.Context())

	err := c.subscribers.ConfirmByToken(r.Context(), r.URL.Query().Get(services.ConfirmationParam))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, subscriber.ErrInvalidToken):
		_ = httpapi.WriteError(w, httpapi.CodeSubscriptionInvalid, "invalid subscription_token", nil)
	case errors.Is(err, subscriber.ErrTokenNotFound):
		_ = httpapi.WriteError(w, httpapi.CodeTokenUnknown, "unknown subscription token", nil)
	default:
		logger.WithError(err).Error("subscriptions: confirm failed")
		_ = httpapi.WriteError(w, httpapi.CodeSubscriptionFailure, "internal error", nil)
	}
}
