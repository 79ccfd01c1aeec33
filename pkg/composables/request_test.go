package composables

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestUseCaller(t *testing.T) {
	_, err := UseCaller(context.Background())
	require.ErrorIs(t, err, ErrNoCaller)

	_, err = UseCaller(WithCaller(context.Background(), uuid.Nil))
	require.ErrorIs(t, err, ErrNoCaller)

	id := uuid.New()
	got, err := UseCaller(WithCaller(context.Background(), id))
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestUseLogger_FallsBackToNop(t *testing.T) {
	require.NotNil(t, UseLogger(context.Background()))

	entry := logrus.NewEntry(logrus.New()).WithField("request-id", "abc")
	require.Same(t, entry, UseLogger(WithLogger(context.Background(), entry)))
}

func TestUsePool_Missing(t *testing.T) {
	_, err := UsePool(context.Background())
	require.ErrorIs(t, err, ErrNoPool)

	_, err = UseTx(context.Background())
	require.ErrorIs(t, err, ErrNoPool)
}

func TestUseForm(t *testing.T) {
	type dto struct {
		Title string `form:"title"`
		Key   string `form:"idempotency_key"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("title=Hello&idempotency_key=k-1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	got, err := UseForm(&dto{}, req)
	require.NoError(t, err)
	require.Equal(t, "Hello", got.Title)
	require.Equal(t, "k-1", got.Key)
}
