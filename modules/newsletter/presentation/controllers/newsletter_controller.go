package controllers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/newsletter/modules/newsletter/domain/aggregates/issue"
	"github.com/iota-uz/newsletter/modules/newsletter/services"
	"github.com/iota-uz/newsletter/pkg/application"
	"github.com/iota-uz/newsletter/pkg/composables"
	"github.com/iota-uz/newsletter/pkg/httpapi"
	"github.com/iota-uz/newsletter/pkg/middleware"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	publishRealm         = "publish"
	maxPublishBody       = 1 << 20
)

// PublishForm is the body of a publish request, form-urlencoded or JSON.
type PublishForm struct {
	Title          string `form:"title" json:"title"`
	HTMLContent    string `form:"html_content" json:"html_content"`
	TextContent    string `form:"text_content" json:"text_content"`
	IdempotencyKey string `form:"idempotency_key" json:"idempotency_key"`
}

func (f *PublishForm) ToCommand(r *http.Request) services.PublishCommand {
	key := f.IdempotencyKey
	if key == "" {
		key = r.Header.Get(IdempotencyKeyHeader)
	}
	return services.PublishCommand{
		IdempotencyKey: key,
		Issue: issue.CreateDTO{
			Title:       f.Title,
			HTMLContent: f.HTMLContent,
			TextContent: f.TextContent,
		},
	}
}

type NewsletterController struct {
	app      application.Application
	publish  *services.PublishService
	users    *services.UserService
	basePath string
}

func NewNewsletterController(app application.Application) application.Controller {
	return &NewsletterController{
		app:      app,
		publish:  app.Service(services.PublishService{}).(*services.PublishService),
		users:    app.Service(services.UserService{}).(*services.UserService),
		basePath: "/admin/newsletters",
	}
}

func (c *NewsletterController) Key() string {
	return c.basePath
}

func (c *NewsletterController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.BasicAuth(userAuthenticator{users: c.users}, publishRealm))
	router.HandleFunc("", c.Publish).Methods(http.MethodPost)
}

func (c *NewsletterController) Publish(w http.ResponseWriter, r *http.Request) {
	logger := composables.UseLogger(r.Context())

	callerID, err := composables.UseCaller(r.Context())
	if err != nil {
		_ = httpapi.WriteError(w, httpapi.CodeUnauthorized, "authentication required", nil)
		return
	}

	f, err := decodePublishForm(w, r)
	if err != nil {
		_ = httpapi.WriteError(w, httpapi.CodeInvalidBody, err.Error(), nil)
		return
	}

	cmd := f.ToCommand(r)
	cmd.CallerID = callerID
	resp, err := c.publish.Publish(r.Context(), cmd)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			_ = httpapi.WriteError(w, httpapi.CodeValidationFailed, "validation failed", verr.Fields)
		case errors.Is(err, services.ErrInvalidCommand):
			_ = httpapi.WriteError(w, httpapi.CodeValidationFailed, err.Error(), nil)
		default:
			logger.WithError(err).Error("newsletter: publish failed")
			_ = httpapi.WriteError(w, httpapi.CodeNewsletterFailure, "internal error", nil)
		}
		return
	}

	if err := resp.Replay(w); err != nil {
		logger.WithError(err).Warn("newsletter: failed to write publish response")
	}
}

func decodePublishForm(w http.ResponseWriter, r *http.Request) (*PublishForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPublishBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		f := &PublishForm{}
		if err := json.NewDecoder(r.Body).Decode(f); err != nil {
			return nil, errors.New("invalid json")
		}
		return f, nil
	}
	f, err := composables.UseForm(&PublishForm{}, r)
	if err != nil {
		return nil, errors.New("invalid form")
	}
	return f, nil
}
