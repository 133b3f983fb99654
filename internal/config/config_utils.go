package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// applyFallbacks fills values that depend on other settings
func (c *Config) applyFallbacks() {
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
	c.App.LogLevel = strings.ToLower(strings.TrimSpace(c.App.LogLevel))
	c.App.DefaultFormat = strings.ToLower(strings.TrimSpace(c.App.DefaultFormat))
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "" {
		c.Server.TLS.Mode = "disabled"
	}
	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// configEnvVars are the overrides worth reporting at debug level.
var configEnvVars = []string{
	"ATSCHECK_APP_LOGLEVEL",
	"ATSCHECK_APP_MAXFILESIZE",
	"ATSCHECK_SERVER_HOST",
	"ATSCHECK_SERVER_PORT",
	"ATSCHECK_SERVER_TLS_MODE",
	"ATSCHECK_EXTRACTOR_HIGHFIDELITY",
	"ATSCHECK_EXTRACTOR_MAXPAGES",
	"ATSCHECK_OBSERVABILITY_ENABLED",
	"ATSCHECK_OBSERVABILITY_OTLP_HEADERS",
}

// logConfigurationSources logs where the configuration came from
func (c *Config) logConfigurationSources(configFileUsed string) {
	source := configFileUsed
	if source == "" {
		source = "none (defaults)"
	}

	var envSet []string
	for _, name := range configEnvVars {
		if value, ok := os.LookupEnv(name); ok {
			if strings.Contains(name, "HEADERS") {
				value = "***MASKED***"
			}
			envSet = append(envSet, name+"="+value)
		}
	}

	slog.Debug("Configuration loaded",
		"config_file", source,
		"env_overrides", envSet,
		"server", c.Server.Host+":"+c.Server.Port,
		"tls_mode", c.Server.TLS.Mode,
		"log_level", c.App.LogLevel,
		"high_fidelity", c.Extractor.HighFidelity,
		"observability", c.Observability.Enabled)
}
