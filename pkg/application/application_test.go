package application

import (
	"io/fs"
	"net/http"
	"testing"
	"testing/fstest"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type stubController struct{ key string }

func (c *stubController) Register(r *mux.Router) {
	r.HandleFunc("/"+c.key, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func (c *stubController) Key() string { return c.key }

type greeter struct{ name string }

type stubModule struct {
	name string
	err  error
}

func (m *stubModule) Name() string { return m.name }

func (m *stubModule) Register(app Application) error {
	if m.err != nil {
		return m.err
	}
	app.RegisterServices(&greeter{name: m.name})
	app.RegisterControllers(&stubController{key: m.name})
	return nil
}

func TestApplication_RegistersServicesAndControllers(t *testing.T) {
	app := New(&ApplicationOptions{})
	require.NoError(t, Load(app, &stubModule{name: "b"}, &stubModule{name: "a"}))

	svc := app.Service(greeter{}).(*greeter)
	require.Equal(t, "a", svc.name)

	controllers := app.Controllers()
	require.Len(t, controllers, 2)
	require.Equal(t, "a", controllers[0].Key())
	require.Equal(t, "b", controllers[1].Key())
}

func TestApplication_ServicePanicsWhenMissing(t *testing.T) {
	app := New(&ApplicationOptions{})
	require.Panics(t, func() { app.Service(greeter{}) })
}

func TestLoad_StopsAtFirstFailure(t *testing.T) {
	app := New(&ApplicationOptions{})
	err := Load(app, &stubModule{name: "broken", err: fs.ErrInvalid}, &stubModule{name: "never"})
	require.ErrorIs(t, err, fs.ErrInvalid)
	require.Contains(t, err.Error(), "broken")
	require.Empty(t, app.Controllers())
}

func TestUnionFS_MergesTopLevelEntries(t *testing.T) {
	a := fstest.MapFS{"00001_users.sql": {Data: []byte("a")}, "shared.sql": {Data: []byte("from a")}}
	b := fstest.MapFS{"00002_issues.sql": {Data: []byte("b")}, "shared.sql": {Data: []byte("from b")}}
	u := unionFS{a, b}

	entries, err := fs.ReadDir(u, ".")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Equal(t, []string{"00001_users.sql", "00002_issues.sql", "shared.sql"}, names)

	data, err := fs.ReadFile(u, "shared.sql")
	require.NoError(t, err)
	require.Equal(t, "from a", string(data))

	matches, err := fs.Glob(u, "*.sql")
	require.NoError(t, err)
	require.Len(t, matches, 3)

	_, err = u.Open("missing.sql")
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMigrationManager_RequiresPoolAndSchema(t *testing.T) {
	m := NewMigrationManager(nil, nil).(*migrationManager)
	_, err := m.provider()
	require.Error(t, err)
}
