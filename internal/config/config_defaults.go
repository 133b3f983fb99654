package config

import (
	"time"

	"github.com/spf13/viper"
)

// Extraction defaults shared with packages that build configs by hand.
const (
	DefaultMaxPages        = 8
	DefaultMinPrimaryChars = 200
	DefaultMaxXMLBytes     = 20 << 20
	DefaultPreviewChars    = 1500
	DefaultMaxFileSize     = 10 << 20
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.maxFileSize", DefaultMaxFileSize)
	v.SetDefault("app.concurrency", 4)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.shutdownTimeout", 30*time.Second)

	// TLS Configuration defaults
	v.SetDefault("server.tls.mode", "disabled") // disabled, server, mutual
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.caFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.tls.clientAuthPolicy", "require") // require, request, verify
	v.SetDefault("server.tls.autoReload.enabled", true)
	v.SetDefault("server.tls.autoReload.debounceDelay", time.Second)

	// Rate limiting defaults
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.cleanupAfter", 10*time.Minute)
	v.SetDefault("server.rateLimit.trustProxyHeaders", false)

	// CORS defaults
	v.SetDefault("server.cors.enabled", true)
	v.SetDefault("server.cors.allowedOrigins", []string{"*"})
	v.SetDefault("server.cors.allowedMethods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("server.cors.allowedHeaders", []string{"Content-Type", "X-Request-ID"})
	v.SetDefault("server.cors.maxAge", 600)

	// Extractor Configuration
	v.SetDefault("extractor.maxPages", DefaultMaxPages)
	v.SetDefault("extractor.highFidelity", true)
	v.SetDefault("extractor.minPrimaryChars", DefaultMinPrimaryChars)
	v.SetDefault("extractor.maxXMLBytes", DefaultMaxXMLBytes)
	v.SetDefault("extractor.circuitBreaker.enabled", true)
	v.SetDefault("extractor.circuitBreaker.maxRequests", 3)
	v.SetDefault("extractor.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("extractor.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("extractor.circuitBreaker.minRequests", 5)
	v.SetDefault("extractor.circuitBreaker.failureThreshold", 0.6)

	// Analysis Configuration
	v.SetDefault("analysis.previewChars", DefaultPreviewChars)
	v.SetDefault("analysis.timeout", 20*time.Second)

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "atscheck")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.console.prettyPrint", true)

	v.SetDefault("observability.customMetrics.analysis.enabled", true)
	v.SetDefault("observability.customMetrics.analysis.trackDuration", true)
	v.SetDefault("observability.customMetrics.analysis.trackScores", true)
	v.SetDefault("observability.customMetrics.analysis.trackSizes", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackCertReload", true)

	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}

// DefaultExtractorConfig returns the extractor settings LoadConfig would
// produce with no file or environment overrides.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		MaxPages:        DefaultMaxPages,
		HighFidelity:    true,
		MinPrimaryChars: DefaultMinPrimaryChars,
		MaxXMLBytes:     DefaultMaxXMLBytes,
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      3,
			Interval:         60 * time.Second,
			Timeout:          60 * time.Second,
			MinRequests:      5,
			FailureThreshold: 0.6,
		},
	}
}

// Default returns a fully defaulted configuration without touching the
// filesystem or the environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults only contain plain values, so decoding cannot fail.
	_ = v.Unmarshal(&cfg)
	cfg.applyFallbacks()
	return &cfg
}
