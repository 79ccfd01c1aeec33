package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/newsletter/pkg/application"
	"github.com/iota-uz/newsletter/pkg/configuration"
	"github.com/iota-uz/newsletter/pkg/constants"
	"github.com/iota-uz/newsletter/pkg/httpapi"
	"github.com/iota-uz/newsletter/pkg/metrics"
	"github.com/iota-uz/newsletter/pkg/middleware"
	"github.com/iota-uz/newsletter/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	loggerOpts := middleware.DefaultLoggerOptions()
	loggerOpts.RequestIDHeader = conf.RequestIDHeader
	loggerOpts.RealIPHeader = conf.RealIPHeader

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, loggerOpts), // root span for each request

		middleware.TracedMiddleware("database"),
		middleware.Provide(constants.PoolKey, options.Pool),
	}
	app.RegisterMiddleware(middlewares...)

	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	serverInstance := server.NewHTTPServer(app, NotFound(), MethodNotAllowed())
	serverInstance.ShutdownTimeout = conf.ShutdownTimeout
	return serverInstance, nil
}

func NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, httpapi.CodeNotFound, "not found", map[string]string{"path": r.URL.Path})
	})
}

func MethodNotAllowed() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, httpapi.CodeMethodNotAllowed, "method not allowed", map[string]string{"method": r.Method})
	})
}
