package server

import (
	"context"
	"time"

	"atscheck/internal/config"
	"atscheck/internal/errors"
	"atscheck/internal/observability"
	"atscheck/internal/types"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Analyzer runs one document through extraction and analysis.
type Analyzer interface {
	AnalyzeFile(ctx context.Context, filename string, data []byte) (*types.AnalysisResponse, error)
}

// ExtractorInfo reports extractor capabilities for /health and /stats.
type ExtractorInfo interface {
	SupportedExtensions() []string
	HighFidelityAvailable() bool
	Healthy() bool
	Stats() map[string]any
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig config.TLSConfig

	// Serving certificate, nil when TLS is disabled
	certs *certStore

	// Timeout configurations
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Upload size limit
	MaxFileSize int64

	// Rate limiting
	RateLimit   config.RateLimitConfig
	RateLimiter *RateLimiter

	analyzer  Analyzer
	extractor ExtractorInfo
	om        *observability.ObservabilityManager
	started   time.Time

	// Logger
	Logger *errors.Logger
}

// NewServer creates a Server from the application config. om may be nil, in
// which case tracing and metrics are disabled.
func NewServer(appCfg *config.Config, version string, analyzer Analyzer, extractor ExtractorInfo, om *observability.ObservabilityManager, logger *errors.Logger) *Server {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if om == nil {
		om, _ = observability.NewObservabilityManager(observability.ObservabilityConfig{}, appCfg)
	}

	var rateLimiter *RateLimiter
	if appCfg.Server.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			appCfg.Server.RateLimit.RequestsPerMin,
			appCfg.Server.RateLimit.BurstCapacity,
			appCfg.Server.RateLimit.CleanupAfter,
			logger,
		)
	}

	return &Server{
		Host:            appCfg.Server.Host,
		Port:            appCfg.Server.Port,
		Version:         version,
		AppConfig:       appCfg,
		TLSConfig:       appCfg.Server.TLS,
		ReadTimeout:     appCfg.Server.ReadTimeout,
		WriteTimeout:    appCfg.Server.WriteTimeout,
		IdleTimeout:     appCfg.Server.IdleTimeout,
		ShutdownTimeout: appCfg.Server.ShutdownTimeout,
		MaxFileSize:     appCfg.App.MaxFileSize,
		RateLimit:       appCfg.Server.RateLimit,
		RateLimiter:     rateLimiter,
		analyzer:        analyzer,
		extractor:       extractor,
		om:              om,
		started:         time.Now(),
		Logger:          logger,
	}
}
