package commands

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/newsletter/modules"
	"github.com/iota-uz/newsletter/pkg/application"
	"github.com/iota-uz/newsletter/pkg/composables"
	"github.com/iota-uz/newsletter/pkg/configuration"
)

// Runtime is a loaded application with its database pool, shared by every subcommand.
type Runtime struct {
	Conf   *configuration.Configuration
	Pool   *pgxpool.Pool
	App    application.Application
	Logger *logrus.Logger
}

func newRuntime(ctx context.Context, conf *configuration.Configuration) (*Runtime, error) {
	poolConf, err := pgxpool.ParseConfig(conf.Database.Opts)
	if err != nil {
		return nil, fmt.Errorf("parse database options: %w", err)
	}
	poolConf.MaxConns = conf.Database.MaxConns
	poolConf.ConnConfig.ConnectTimeout = conf.Database.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConf)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	app := application.New(&application.ApplicationOptions{
		Pool:   pool,
		Logger: conf.Logger(),
	})
	if err := modules.Load(app, modules.BuiltInModules(conf)...); err != nil {
		pool.Close()
		return nil, err
	}

	return &Runtime{Conf: conf, Pool: pool, App: app, Logger: conf.Logger()}, nil
}

// Context binds the pool to ctx so repositories can reach the database outside HTTP requests.
func (r *Runtime) Context(ctx context.Context) context.Context {
	return composables.WithPool(ctx, r.Pool)
}

func (r *Runtime) Close() {
	r.Pool.Close()
}
