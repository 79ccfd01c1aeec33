package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/newsletter/modules/newsletter/services"
	"github.com/iota-uz/newsletter/pkg/httpapi"
)

var confirmationLinkRe = regexp.MustCompile(`https?://\S+`)

func (f *fixture) postSubscription(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/subscriptions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func (f *fixture) confirmationLink(t *testing.T, email string) *url.URL {
	t.Helper()
	f.mail.mu.Lock()
	text, ok := f.mail.texts[email]
	f.mail.mu.Unlock()
	require.True(t, ok, "no confirmation email sent to %s", email)

	link, err := url.Parse(confirmationLinkRe.FindString(text))
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8000", link.Host)
	return link
}

func TestSubscribe_ValidData(t *testing.T) {
	f := newFixture(t)

	rec := f.postSubscription("name=le%20guin&email=ursula_le_guin%40gmail.com")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())

	s, ok := f.subscribers.all["ursula_le_guin@gmail.com"]
	require.True(t, ok)
	require.Equal(t, "le guin", s.Name())
	require.False(t, s.IsConfirmed())

	link := f.confirmationLink(t, "ursula_le_guin@gmail.com")
	require.Equal(t, services.ConfirmationPath, link.Path)
	require.NotEmpty(t, link.Query().Get(services.ConfirmationParam))
}

func TestSubscribe_MissingData(t *testing.T) {
	cases := []struct {
		body, reason string
	}{
		{"name=le%20guin", "missing the email"},
		{"email=ursula_le_guin%40gmail.com", "missing the name"},
		{"", "missing both name and email"},
		{"name=&email=ursula_le_guin%40gmail.com", "empty name"},
		{"name=Ursula&email=", "empty email"},
		{"name=Ursula&email=definitely-not-an-email", "invalid email"},
		{"name=%3Cscript%3E&email=ursula_le_guin%40gmail.com", "forbidden characters in name"},
	}
	for _, tc := range cases {
		t.Run(tc.reason, func(t *testing.T) {
			f := newFixture(t)
			rec := f.postSubscription(tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, "payload was %s", tc.reason)

			var env httpapi.ErrorEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			require.Equal(t, httpapi.CodeSubscriptionInvalid, env.Code)
			require.Empty(t, f.subscribers.all)
			require.Empty(t, f.mail.texts)
		})
	}
}

func TestSubscribe_SendFailureIsServerError(t *testing.T) {
	f := newFixture(t)
	f.mail.err = errors.New("relay down")

	rec := f.postSubscription("name=le%20guin&email=ursula_le_guin%40gmail.com")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), string(httpapi.CodeSubscriptionFailure))
}

func TestConfirm_WithoutTokenIsRejected(t *testing.T) {
	f := newFixture(t)
	rec := f.get("/subscriptions/confirm")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirm_UnknownTokenIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	rec := f.get("/subscriptions/confirm?subscription_token=doesnotexist")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, httpapi.CodeTokenUnknown, env.Code)
}

func TestConfirm_LinkFromEmailConfirmsSubscriber(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.postSubscription("name=le%20guin&email=ursula_le_guin%40gmail.com").Code)
	link := f.confirmationLink(t, "ursula_le_guin@gmail.com")

	rec := f.get(link.RequestURI())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())
	require.True(t, f.subscribers.all["ursula_le_guin@gmail.com"].IsConfirmed())

	require.Equal(t, http.StatusOK, f.get(link.RequestURI()).Code)
}

func TestSubscriptions_GetIsNotAllowed(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusMethodNotAllowed, f.get("/subscriptions").Code)
}
