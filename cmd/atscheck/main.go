package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"atscheck/internal/cli"
	"atscheck/internal/config"
	"atscheck/internal/errors"
)

func main() {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.LoadConfig(config.Options{
		ConfigFile: os.Getenv(config.EnvPrefix + "_CONFIG_FILE"),
		EnvFile:    ".env",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Debug("Starting atscheck",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel)

	// Execute command with cancellable context
	if err := cli.Execute(ctx, cfg, logger); err != nil {
		logger.LogError(err, "Application execution failed")
		stop()
		os.Exit(1)
	}
}
