package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iota-uz/newsletter/internal/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, with delivery workers unless DELIVERY_ENABLED=false",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := root.runtime(cmd.Context(), root.conf.Delivery.Enabled)
			if err != nil {
				return err
			}
			defer rt.Close()

			srv, err := server.Default(&server.DefaultOptions{
				Logger:        rt.Logger,
				Configuration: rt.Conf,
				Application:   rt.App,
				Pool:          rt.Pool,
			})
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				rt.Logger.WithField("address", rt.Conf.SocketAddress).Info("http: listening")
				return srv.Start(ctx, rt.Conf.SocketAddress)
			})
			runBackgroundTasks(ctx, g, rt)
			return g.Wait()
		},
	}
}

func newWorkerCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the delivery workers without the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := root.runtime(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer rt.Close()

			if len(rt.App.BackgroundTasks()) == 0 {
				return fmt.Errorf("no background tasks registered")
			}
			g, ctx := errgroup.WithContext(cmd.Context())
			runBackgroundTasks(ctx, g, rt)
			return g.Wait()
		},
	}
}

// runBackgroundTasks starts every registered task on g. A task that fails cancels ctx for the others.
func runBackgroundTasks(ctx context.Context, g *errgroup.Group, rt *Runtime) {
	for _, task := range rt.App.BackgroundTasks() {
		g.Go(func() error {
			logger := rt.Logger.WithField("task", task.Name())
			logger.Info("background task started")
			if err := task.Run(ctx); err != nil {
				return fmt.Errorf("%s: %w", task.Name(), err)
			}
			logger.Info("background task stopped")
			return nil
		})
	}
}
