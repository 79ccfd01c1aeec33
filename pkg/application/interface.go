package application

import (
	"context"
	"io/fs"
	"reflect"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

type Controller interface {
	Register(r *mux.Router)
	Key() string
}

type Module interface {
	Name() string
	Register(app Application) error
}

// BackgroundTask is a long-running job started next to the HTTP server.
// Run blocks until ctx is cancelled or the task fails.
type BackgroundTask interface {
	Name() string
	Run(ctx context.Context) error
}

type MigrationManager interface {
	RegisterSchema(fsys ...fs.FS)
	Run(ctx context.Context) error
	Rollback(ctx context.Context) error
	Status(ctx context.Context) ([]MigrationStatus, error)
}

// Application with a dynamically extendable service registry
type Application interface {
	DB() *pgxpool.Pool
	Logger() *logrus.Logger
	Middleware() []mux.MiddlewareFunc
	Controllers() []Controller
	BackgroundTasks() []BackgroundTask
	Migrations() MigrationManager
	RegisterControllers(controllers ...Controller)
	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	RegisterBackgroundTasks(tasks ...BackgroundTask)
	RegisterServices(services ...interface{})
	Service(service interface{}) interface{}
	Services() map[reflect.Type]interface{}
}
