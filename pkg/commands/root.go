package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/iota-uz/newsletter/pkg/configuration"
	"github.com/iota-uz/newsletter/pkg/logging"
)

type rootOptions struct {
	envFiles []string
	conf     *configuration.Configuration
	shutdown func()
}

// Execute runs the newsletter CLI until ctx is cancelled or the selected command returns.
func Execute(ctx context.Context) error {
	cmd, opts := newRootCmd()
	defer opts.close()
	return cmd.ExecuteContext(ctx)
}

// newRootCmd builds the command tree. Configuration is loaded once per invocation,
// before any subcommand runs.
func newRootCmd() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "newsletter",
		Short:         "Newsletter publishing API and delivery workers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := configuration.Load(opts.envFiles...)
			if err != nil {
				return err
			}
			opts.conf = conf
			if conf.OpenTelemetry.Enabled {
				opts.shutdown = logging.SetupTracing(cmd.Context(), conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.TempoURL)
				conf.Logger().WithField("endpoint", conf.OpenTelemetry.TempoURL).Info("tracing enabled")
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env", ".env.local"}, "env files to load before reading the environment")

	cmd.AddCommand(
		newServeCmd(opts),
		newWorkerCmd(opts),
		newMigrateCmd(opts),
		newUsersCmd(opts),
		newSubscribersCmd(opts),
	)
	return cmd, opts
}

func (o *rootOptions) close() {
	if o.shutdown != nil {
		o.shutdown()
		o.shutdown = nil
	}
	if o.conf != nil {
		o.conf.Unload()
		o.conf = nil
	}
}

// runtime loads the application. Admin commands pass withDelivery=false so no mail transport is built.
func (o *rootOptions) runtime(ctx context.Context, withDelivery bool) (*Runtime, error) {
	conf := *o.conf
	if !withDelivery {
		conf.Delivery.Enabled = false
	}
	return newRuntime(ctx, &conf)
}
