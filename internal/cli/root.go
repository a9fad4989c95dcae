package cli

import (
	"context"

	"resumecvpro/internal/config"
	"resumecvpro/internal/errors"

	"github.com/spf13/cobra"
)

// runtimeDeps is what every subcommand reads from its context.
type runtimeDeps struct {
	cfg    *config.Config
	logger *errors.Logger
}

type depsKey struct{}

var rootCmd = &cobra.Command{
	Use:   "resumecvpro",
	Short: "Optimize a résumé for a job posting using AI",
	Long: `ResumeCVPro scores a résumé against a job description or posting link,
explains the score, rewrites the résumé for the job and keeps a history of
past analyses. It runs once from the command line or as an HTTP API.`,
	SilenceUsage: true,
}

// Execute runs the command line with cfg and logger available to every subcommand.
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	return rootCmd.ExecuteContext(WithDependencies(ctx, cfg, logger))
}

// WithDependencies attaches the config and logger every subcommand reads.
func WithDependencies(ctx context.Context, cfg *config.Config, logger *errors.Logger) context.Context {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return context.WithValue(ctx, depsKey{}, runtimeDeps{cfg: cfg, logger: logger})
}

func depsFromContext(ctx context.Context) runtimeDeps {
	d, ok := ctx.Value(depsKey{}).(runtimeDeps)
	if !ok || d.cfg == nil {
		panic("cli: command context carries no configuration")
	}
	return d
}

func getConfigFromContext(ctx context.Context) *config.Config {
	return depsFromContext(ctx).cfg
}

func getLoggerFromContext(ctx context.Context) *errors.Logger {
	return depsFromContext(ctx).logger
}

func init() {
	rootCmd.AddCommand(optimizeCmd, historyCmd, prefsCmd, diffCmd, versionCmd, serveCmd)
}
