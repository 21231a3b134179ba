// Package cli implements gatekeeperctl, the operator tool for bootstrapping
// and administering admission policy against the shared database.
package cli

import (
	"context"
	"errors"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"gatekeeper/internal/app"
	"gatekeeper/internal/platform/config"
	"gatekeeper/internal/platform/logger"
	"gatekeeper/pkg/requestcontext"
)

var actorFlag string

// openApp builds the dependency graph for one command. Tests replace it.
var openApp = func(ctx context.Context) (*app.App, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL is required; in-memory state is lost when the command exits")
	}
	return app.Build(ctx, cfg, logger.New(cfg.LogLevel))
}

var rootCmd = &cobra.Command{
	Use:           "gatekeeperctl",
	Short:         "Administer gatekeeper admission policy",
	Long:          "Bootstraps the domain policy and first admins, and runs whitelist and admission request operations as a named admin.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", os.Getenv("GATEKEEPER_ACTOR"), "Admin email performing the operation (env GATEKEEPER_ACTOR)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withApp opens the app, tags the context like an HTTP request would be and
// runs fn. The app is closed afterwards so queued security events are flushed.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = requestcontext.WithRequestID(ctx, "cli-"+uuid.NewString())

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()
	return fn(ctx, a)
}

func requireActor() (string, error) {
	if actorFlag == "" {
		return "", errors.New("--actor is required")
	}
	return actorFlag, nil
}
