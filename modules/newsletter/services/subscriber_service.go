package services

import (
	"context"
	"fmt"
	"net/url"

	gerrors "github.com/go-faster/errors"

	"github.com/iota-uz/newsletter/modules/newsletter/domain/aggregates/subscriber"
	"github.com/iota-uz/newsletter/pkg/mail"
)

const (
	ConfirmationPath    = "/subscriptions/confirm"
	ConfirmationParam   = "subscription_token"
	confirmationSubject = "Welcome!"
)

type SubscriberServiceOptions struct {
	// Sender delivers confirmation emails. Defaults to a sender that only logs.
	Sender mail.Sender
	// BaseURL is the externally reachable root of the HTTP server.
	BaseURL string
}

func (o *SubscriberServiceOptions) setDefaults() {
	if o.Sender == nil {
		o.Sender = mail.NewLogSender("", nil)
	}
	if o.BaseURL == "" {
		o.BaseURL = "http://localhost:8000"
	}
}

type SubscriberService struct {
	repo subscriber.Repository
	opts SubscriberServiceOptions
}

func NewSubscriberService(repo subscriber.Repository, opts *SubscriberServiceOptions) *SubscriberService {
	o := SubscriberServiceOptions{}
	if opts != nil {
		o = *opts
	}
	o.setDefaults()
	return &SubscriberService{repo: repo, opts: o}
}

func (s *SubscriberService) Subscribe(ctx context.Context, email, name string) (subscriber.Subscriber, error) {
	entity, err := subscriber.New(email, name)
	if err != nil {
		return subscriber.Subscriber{}, err
	}
	return s.repo.Create(ctx, entity)
}

// SubscribeWithConfirmation stores a pending subscriber with a fresh token and mails the
// confirmation link. The row stays pending if the email cannot be sent.
func (s *SubscriberService) SubscribeWithConfirmation(ctx context.Context, email, name string) (subscriber.Subscriber, error) {
	entity, err := subscriber.New(email, name)
	if err != nil {
		return subscriber.Subscriber{}, err
	}
	token := subscriber.NewToken()
	created, err := s.repo.CreatePending(ctx, entity, token)
	if err != nil {
		return subscriber.Subscriber{}, err
	}

	link, err := s.ConfirmationLink(token)
	if err != nil {
		return subscriber.Subscriber{}, err
	}
	html := fmt.Sprintf(`Welcome to our newsletter!<br />Click <a href="%s">here</a> to confirm your subscription.`, link)
	text := fmt.Sprintf("Welcome to our newsletter!\nVisit %s to confirm your subscription.", link)
	if err := s.opts.Sender.Send(ctx, created.Email(), confirmationSubject, html, text); err != nil {
		return subscriber.Subscriber{}, gerrors.Wrap(err, "send confirmation email")
	}
	return created, nil
}

func (s *SubscriberService) ConfirmationLink(token subscriber.Token) (string, error) {
	base, err := url.Parse(s.opts.BaseURL)
	if err != nil {
		return "", gerrors.Wrap(err, "parse base url")
	}
	link := base.JoinPath(ConfirmationPath)
	link.RawQuery = url.Values{ConfirmationParam: {token.String()}}.Encode()
	return link.String(), nil
}

func (s *SubscriberService) Confirm(ctx context.Context, email string) error {
	parsed, err := subscriber.ParseEmail(email)
	if err != nil {
		return err
	}
	return s.repo.Confirm(ctx, parsed)
}

func (s *SubscriberService) ConfirmByToken(ctx context.Context, raw string) error {
	token, err := subscriber.ParseToken(raw)
	if err != nil {
		return err
	}
	return s.repo.ConfirmByToken(ctx, token)
}

func (s *SubscriberService) ListConfirmed(ctx context.Context) ([]subscriber.Subscriber, error) {
	return s.repo.ListConfirmed(ctx)
}
