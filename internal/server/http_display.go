package server

// displayServerInfo logs the effective server setup once at startup.
func (s *Server) displayServerInfo(addr string) {
	scheme := "http"
	if s.certs != nil {
		scheme = "https"
	}
	s.Logger.Info("Starting HTTP server",
		"address", addr,
		"url", scheme+"://"+addr,
		"tls_mode", s.TLSConfig.Mode,
		"endpoints", []string{"POST /api/analyze", "GET /api/schema", "GET /health", "GET /stats"})

	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
	if s.certs != nil {
		s.Logger.Info("TLS certificate loaded",
			"not_after", s.certs.notAfter(),
			"auto_reload", s.TLSConfig.AutoReload.Enabled)
	}
}

func (s *Server) displayRequestLimitInfo() {
	if s.MaxFileSize > 0 {
		s.Logger.Info("Upload size limit", "bytes", s.MaxFileSize)
		return
	}
	s.Logger.Warn("Upload size limit disabled")
}

func (s *Server) displayRateLimitInfo() {
	if !s.RateLimit.Enabled {
		s.Logger.Warn("Rate limiting disabled")
		return
	}
	s.Logger.Info("Rate limiting enabled",
		"requests_per_min", s.RateLimit.RequestsPerMin,
		"burst", s.RateLimit.BurstCapacity,
		"by_ip", s.RateLimit.ByIP)
}
