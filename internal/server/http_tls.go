package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"atscheck/internal/config"
	"atscheck/internal/errors"
	"atscheck/internal/observability"
)

// certStore serves the current key pair and swaps it on reload.
type certStore struct {
	mu       sync.RWMutex
	cert     *tls.Certificate
	leaf     *x509.Certificate
	certFile string
	keyFile  string

	reloads    int
	failures   int
	lastReload time.Time
	lastErr    string

	watcher *CertWatcher
	om      *observability.ObservabilityManager
	logger  *errors.Logger
}

func newCertStore(cfg config.TLSConfig, om *observability.ObservabilityManager, logger *errors.Logger) (*certStore, error) {
	cs := &certStore{certFile: cfg.CertFile, keyFile: cfg.KeyFile, om: om, logger: logger}
	if err := cs.load(); err != nil {
		return nil, err
	}
	return cs, nil
}

func (cs *certStore) load() error {
	cert, err := tls.LoadX509KeyPair(cs.certFile, cs.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load server cert/key from files: %w", err)
	}
	leaf := cert.Leaf
	if leaf == nil {
		if leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return fmt.Errorf("failed to parse server certificate: %w", err)
		}
	}

	cs.mu.Lock()
	cs.cert, cs.leaf = &cert, leaf
	cs.mu.Unlock()
	return nil
}

// reload swaps in the key pair on disk. A failed reload keeps serving the
// previous certificate.
func (cs *certStore) reload() {
	err := cs.load()

	cs.mu.Lock()
	cs.lastReload = time.Now()
	if err != nil {
		cs.failures++
		cs.lastErr = err.Error()
	} else {
		cs.reloads++
		cs.lastErr = ""
	}
	cs.mu.Unlock()

	if err != nil {
		cs.logger.LogError(err, "Failed to reload TLS certificates")
		cs.om.RecordCertReload(context.Background(), false, time.Time{})
		return
	}
	cs.logger.Info("TLS certificates reloaded successfully", "not_after", cs.notAfter())
	cs.om.RecordCertReload(context.Background(), true, cs.notAfter())
}

// GetCertificate implements tls.Config.GetCertificate.
func (cs *certStore) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.cert, nil
}

func (cs *certStore) notAfter() time.Time {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.leaf.NotAfter
}

func (cs *certStore) watch(debounce time.Duration) error {
	cs.watcher = NewCertWatcher([]string{cs.certFile, cs.keyFile}, debounce, cs.reload, cs.logger)
	return cs.watcher.Start()
}

func (cs *certStore) stop() error {
	if cs.watcher == nil {
		return nil
	}
	return cs.watcher.Stop()
}

func (cs *certStore) status() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	st := map[string]any{
		"subject":   cs.leaf.Subject.String(),
		"not_after": cs.leaf.NotAfter,
		"reloads":   cs.reloads,
		"failures":  cs.failures,
	}
	if !cs.lastReload.IsZero() {
		st["last_reload"] = cs.lastReload
	}
	if cs.lastErr != "" {
		st["last_error"] = cs.lastErr
	}
	autoReload := map[string]any{"enabled": cs.watcher != nil}
	if cs.watcher != nil {
		autoReload["running"] = cs.watcher.IsRunning()
		autoReload["watched_files"] = cs.watcher.GetWatchedFiles()
	}
	st["auto_reload"] = autoReload
	return st
}

// configureTLS sets up TLS configuration based on the mode
func (s *Server) configureTLS(httpServer *http.Server) error {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		return nil
	case "server", "mutual":
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	certs, err := newCertStore(s.TLSConfig, s.om, s.Logger)
	if err != nil {
		return err
	}
	if s.TLSConfig.AutoReload.Enabled {
		if err := certs.watch(s.TLSConfig.AutoReload.DebounceDelay); err != nil {
			return fmt.Errorf("failed to start certificate watcher: %w", err)
		}
	}
	s.certs = certs

	tlsConfig, err := s.buildTLSConfig()
	if err != nil {
		_ = certs.stop()
		return fmt.Errorf("failed to set up TLS: %w", err)
	}
	httpServer.TLSConfig = tlsConfig
	return nil
}

// buildTLSConfig creates the TLS configuration
func (s *Server) buildTLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:     tlsVersion(s.TLSConfig.MinVersion),
		GetCertificate: s.certs.GetCertificate,
		ClientAuth:     tls.NoClientCert,
	}

	if s.TLSConfig.Mode == "mutual" {
		pool, err := loadCACertificatePool(s.TLSConfig.CAFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = clientAuthPolicy(s.TLSConfig.ClientAuthPolicy)
	}

	return tlsConfig, nil
}

// loadCACertificatePool loads the CA bundle used to verify client certificates
func loadCACertificatePool(caFile string) (*x509.CertPool, error) {
	if caFile == "" {
		return nil, fmt.Errorf("CA certificate file is required for mutual TLS mode")
	}
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(caCert); !ok {
		return nil, fmt.Errorf("failed to append CA cert")
	}
	return pool, nil
}

func tlsVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

// clientAuthPolicy maps the configured policy; mutual TLS defaults to require.
func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}
