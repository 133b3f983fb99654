package server

import (
	"net/http"
	"time"
)

// Certificates expiring sooner than this make /health report degraded.
const (
	certCriticalThreshold = 24 * time.Hour
	certWarningThreshold  = 7 * 24 * time.Hour
)

// healthHandler reports liveness plus the state of the extractor and the
// TLS certificate.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "atscheck",
		"version": s.Version,
	}

	if s.extractor != nil {
		healthy := s.extractor.Healthy()
		response["extractor"] = map[string]any{
			"supported_extensions":    s.extractor.SupportedExtensions(),
			"high_fidelity_available": s.extractor.HighFidelityAvailable(),
			"healthy":                 healthy,
		}
		if !healthy {
			response["status"] = "degraded"
		}
	}

	status := http.StatusOK
	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if healthy, _ := certStatus["healthy"].(bool); !healthy {
			response["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, response)
}

// checkCertificateHealth grades the serving certificate by time to expiry.
func (s *Server) checkCertificateHealth() map[string]any {
	if s.certs == nil {
		return nil
	}

	certStatus := s.certs.status()
	timeToExpiry := time.Until(s.certs.notAfter())
	certStatus["time_to_expiry_hours"] = int(timeToExpiry.Hours())

	switch {
	case timeToExpiry <= 0:
		certStatus["healthy"] = false
		certStatus["status"] = "expired"
	case timeToExpiry <= certCriticalThreshold:
		certStatus["healthy"] = false
		certStatus["status"] = "critical"
	case timeToExpiry <= certWarningThreshold:
		certStatus["healthy"] = true
		certStatus["status"] = "warning"
	default:
		certStatus["healthy"] = true
		certStatus["status"] = "ok"
	}
	return certStatus
}

// statsHandler provides server statistics including rate limiting and
// extractor breaker state.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service":        "atscheck",
		"version":        s.Version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"server": map[string]any{
			"max_file_size_bytes": s.MaxFileSize,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}
	response["rate_limit_config"] = map[string]any{
		"enabled":          s.RateLimit.Enabled,
		"requests_per_min": s.RateLimit.RequestsPerMin,
		"burst_capacity":   s.RateLimit.BurstCapacity,
		"by_ip":            s.RateLimit.ByIP,
	}

	if s.extractor != nil {
		response["extractor"] = s.extractor.Stats()
	}

	writeJSON(w, http.StatusOK, response)
}
