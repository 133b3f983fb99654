package cli

import (
	"context"
	"fmt"
	"time"

	"atscheck/internal/analyzer"
	"atscheck/internal/config"
	"atscheck/internal/extractor"
	"atscheck/internal/observability"
	"atscheck/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP resume analysis service",
	Long: `Start an HTTP server that scores uploaded resumes.

Available endpoints:
- POST /api/analyze: multipart upload in the "file" field, returns the analysis
- GET /api/schema: JSON schema of the analysis response
- GET /health: Health check, including TLS certificate expiry
- GET /stats: Server statistics, rate limiting and extractor state

Metrics are served by Prometheus on observability.prometheus.port when enabled.

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

// applyServeFlags copies explicitly set flags over the loaded config.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	overrides := map[string]*string{
		"port":      &cfg.Server.Port,
		"host":      &cfg.Server.Host,
		"tls-mode":  &cfg.Server.TLS.Mode,
		"cert-file": &cfg.Server.TLS.CertFile,
		"key-file":  &cfg.Server.TLS.KeyFile,
		"ca-file":   &cfg.Server.TLS.CAFile,
	}
	for name, target := range overrides {
		if cmd.Flags().Changed(name) {
			*target, _ = cmd.Flags().GetString(name)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	applyServeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := om.Shutdown(ctx); err != nil {
			logger.LogError(err, "Failed to flush telemetry")
		}
	}()

	docs := extractor.New(cfg.Extractor, logger)
	service := analyzer.NewService(
		docs,
		analyzer.New(analyzer.Options{PreviewChars: cfg.Analysis.PreviewChars}),
		logger,
		analyzer.WithObserver(om),
		analyzer.WithTimeout(cfg.Analysis.Timeout),
	)

	return server.NewServer(cfg, Version, service, docs, om, logger).Start(cmd.Context())
}
