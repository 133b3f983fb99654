package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "atscheck/internal/errors"
)

// EnvPrefix is the prefix for environment overrides, e.g. ATSCHECK_SERVER_PORT.
const EnvPrefix = "ATSCHECK"

// Config holds all application configuration.
// Precedence, highest first:
// 1. Environment variables (ATSCHECK_*, optionally from a .env file)
// 2. Config file values
// 3. Default values
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Extractor     ExtractorConfig     `mapstructure:"extractor"`
	Analysis      AnalysisConfig      `mapstructure:"analysis"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel      string `mapstructure:"logLevel" validate:"oneof=debug info warn warning error"`
	DefaultFormat string `mapstructure:"defaultFormat" validate:"oneof=json text markdown"`
	MaxFileSize   int64  `mapstructure:"maxFileSize" validate:"gt=0"`
	Concurrency   int    `mapstructure:"concurrency" validate:"min=1,max=64"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port" validate:"required,numeric"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout" validate:"gt=0"`
	IdleTimeout     time.Duration `mapstructure:"idleTimeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" validate:"gt=0"`

	TLS       TLSConfig       `mapstructure:"tls"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode             string `mapstructure:"mode"`             // "disabled", "server", "mutual"
	CertFile         string `mapstructure:"certFile"`         // PEM
	KeyFile          string `mapstructure:"keyFile"`          // PEM
	CAFile           string `mapstructure:"caFile"`           // PEM, mutual mode only
	MinVersion       string `mapstructure:"minVersion"`       // "1.2", "1.3"
	ClientAuthPolicy string `mapstructure:"clientAuthPolicy"` // "require", "request", "verify"

	AutoReload AutoReloadConfig `mapstructure:"autoReload"`
}

// AutoReloadConfig controls certificate hot reloading
type AutoReloadConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay" validate:"gte=0"`
}

// RateLimitConfig holds per-client rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RequestsPerMin int           `mapstructure:"requestsPerMin" validate:"gte=0"`
	BurstCapacity  int           `mapstructure:"burstCapacity" validate:"gte=0"`
	ByIP           bool          `mapstructure:"byIP"`
	CleanupAfter   time.Duration `mapstructure:"cleanupAfter" validate:"gte=0"`
	// TrustProxyHeaders keys buckets on X-Forwarded-For and X-Real-IP.
	// Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool `mapstructure:"trustProxyHeaders"`
}

// CORSConfig holds cross-origin settings for browser clients
type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
	AllowedMethods []string `mapstructure:"allowedMethods"`
	AllowedHeaders []string `mapstructure:"allowedHeaders"`
	MaxAge         int      `mapstructure:"maxAge" validate:"gte=0"`
}

// ExtractorConfig controls document text extraction
type ExtractorConfig struct {
	MaxPages        int                  `mapstructure:"maxPages" validate:"min=1,max=100"`
	HighFidelity    bool                 `mapstructure:"highFidelity"`
	MinPrimaryChars int                  `mapstructure:"minPrimaryChars" validate:"gte=0"`
	MaxXMLBytes     int64                `mapstructure:"maxXMLBytes" validate:"gt=0"`
	CircuitBreaker  CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`                                 // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`                             // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval" validate:"gte=0"`               // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout" validate:"gte=0"`                // Open to half-open delay
	MinRequests      uint32        `mapstructure:"minRequests"`                             // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold" validate:"gte=0,lte=1"` // Failure ratio threshold (0.0-1.0)
}

// AnalysisConfig controls the analysis engine
type AnalysisConfig struct {
	PreviewChars int           `mapstructure:"previewChars" validate:"gte=0"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName" validate:"required"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate" validate:"gte=0,lte=1"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval" validate:"gt=0"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig toggles groups of application metrics
type CustomMetricsConfig struct {
	Analysis       AnalysisMetricsConfig       `mapstructure:"analysis"`
	Infrastructure InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// AnalysisMetricsConfig holds analysis metrics configuration
type AnalysisMetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	TrackDuration bool `mapstructure:"trackDuration"`
	TrackScores   bool `mapstructure:"trackScores"`
	TrackSizes    bool `mapstructure:"trackSizes"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
	TrackCertReload bool `mapstructure:"trackCertReload"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,startswith=/"`
	Port     string `mapstructure:"port" validate:"omitempty,numeric"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint" validate:"omitempty,url"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// Options tunes where LoadConfig looks.
type Options struct {
	// ConfigFile, when set, replaces the search path lookup.
	ConfigFile string
	// EnvFile is loaded with godotenv before reading the environment. A
	// missing file is not an error.
	EnvFile string
}

// LoadConfig loads configuration from defaults, a config file and the environment.
func LoadConfig(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			slog.Debug("No env file loaded", "file", opts.EnvFile, "error", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/atscheck/")
		v.AddConfigPath("$HOME/.atscheck")
		v.AddConfigPath(".")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || opts.ConfigFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileUsed = v.ConfigFileUsed()
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags first, then the cross-field TLS rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return invalidConfig(strings.Join(msgs, "; "), nil)
		}
		return invalidConfig("struct validation failed", err)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return invalidConfig("TLS configuration error", err).WithContext("section", "server.tls")
	}
	if c.Observability.Prometheus.Enabled && c.Observability.Prometheus.Port == "" {
		return invalidConfig("prometheus port is required when prometheus is enabled", nil)
	}
	if c.Observability.OTLP.Enabled && c.Observability.OTLP.Endpoint == "" {
		return invalidConfig("otlp endpoint is required when otlp is enabled", nil)
	}
	return nil
}

func invalidConfig(msg string, cause error) *apperrors.AppError {
	return apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig, msg, cause)
}
