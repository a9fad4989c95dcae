package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"resumecvpro/internal/cli"
	"resumecvpro/internal/config"
	"resumecvpro/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Debug("Configuration loaded",
		"config_file", cfg.Sources.File,
		"env_vars", cfg.Sources.EnvVars,
		"prompt_files", cfg.Sources.PromptFiles)

	if err := config.ApplyVaultSecrets(ctx, cfg, logger); err != nil {
		logger.LogError(err, "Failed to load secrets from Vault")
		os.Exit(1)
	}

	logger.Info("Starting resumecvpro",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel,
		"ai_provider", cfg.AI.Provider,
		"storage_driver", cfg.Storage.Driver)

	if err := cli.Execute(ctx, cfg, logger); err != nil {
		logger.LogError(err, "Application execution failed")
		os.Exit(1)
	}
}
