package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atscheck/internal/config"
	"atscheck/internal/errors"
)

// writeSelfSigned writes a fresh key pair valid for validFor into dir.
func writeSelfSigned(t *testing.T, dir, cn string, validFor time.Duration) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(validFor),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile = filepath.Join(dir, "server.crt")
	keyFile = filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func tlsServer(t *testing.T, mode string, validFor time.Duration) (*Server, config.TLSConfig) {
	t.Helper()
	certFile, keyFile := writeSelfSigned(t, t.TempDir(), "atscheck.test", validFor)

	cfg := testConfig()
	cfg.Server.TLS = config.TLSConfig{
		Mode:       mode,
		CertFile:   certFile,
		KeyFile:    keyFile,
		CAFile:     certFile,
		MinVersion: "1.2",
	}
	return newTestServer(t, cfg, &stubExtractor{}), cfg.Server.TLS
}

func TestCertStore_Reload(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, "first", 48*time.Hour)

	cs, err := newCertStore(config.TLSConfig{CertFile: certFile, KeyFile: keyFile}, nil, errors.NewNopLogger())
	require.NoError(t, err)
	first := cs.notAfter()

	writeSelfSigned(t, dir, "second", 96*time.Hour)
	cs.reload()

	assert.True(t, cs.notAfter().After(first))
	st := cs.status()
	assert.Equal(t, "CN=second", st["subject"])
	assert.Equal(t, 1, st["reloads"])
	assert.Equal(t, 0, st["failures"])

	cert, err := cs.GetCertificate(nil)
	require.NoError(t, err)
	require.NotNil(t, cert)
}

func TestCertStore_FailedReloadKeepsCertificate(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, "keep", 48*time.Hour)

	cs, err := newCertStore(config.TLSConfig{CertFile: certFile, KeyFile: keyFile}, nil, errors.NewNopLogger())
	require.NoError(t, err)
	before := cs.notAfter()

	require.NoError(t, os.WriteFile(certFile, []byte("not a certificate"), 0o600))
	cs.reload()

	assert.Equal(t, before, cs.notAfter())
	st := cs.status()
	assert.Equal(t, 1, st["failures"])
	assert.Contains(t, st, "last_error")
}

func TestNewCertStore_MissingFiles(t *testing.T) {
	_, err := newCertStore(config.TLSConfig{CertFile: "/nonexistent.crt", KeyFile: "/nonexistent.key"}, nil, errors.NewNopLogger())
	assert.Error(t, err)
}

func TestConfigureTLS(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(t, testConfig(), &stubExtractor{})
		httpServer := &http.Server{}
		require.NoError(t, s.configureTLS(httpServer))
		assert.Nil(t, httpServer.TLSConfig)
		assert.Nil(t, s.certs)
	})

	t.Run("server", func(t *testing.T) {
		s, _ := tlsServer(t, "server", 48*time.Hour)
		httpServer := &http.Server{}
		require.NoError(t, s.configureTLS(httpServer))
		require.NotNil(t, httpServer.TLSConfig)
		assert.Equal(t, uint16(tls.VersionTLS12), httpServer.TLSConfig.MinVersion)
		assert.Equal(t, tls.NoClientCert, httpServer.TLSConfig.ClientAuth)
		assert.NotNil(t, httpServer.TLSConfig.GetCertificate)
	})

	t.Run("mutual", func(t *testing.T) {
		s, _ := tlsServer(t, "mutual", 48*time.Hour)
		s.TLSConfig.ClientAuthPolicy = "verify"
		httpServer := &http.Server{}
		require.NoError(t, s.configureTLS(httpServer))
		assert.Equal(t, tls.VerifyClientCertIfGiven, httpServer.TLSConfig.ClientAuth)
		assert.NotNil(t, httpServer.TLSConfig.ClientCAs)
	})

	t.Run("mutual without CA", func(t *testing.T) {
		s, _ := tlsServer(t, "mutual", 48*time.Hour)
		s.TLSConfig.CAFile = ""
		assert.Error(t, s.configureTLS(&http.Server{}))
	})

	t.Run("invalid mode", func(t *testing.T) {
		s, _ := tlsServer(t, "bogus", 48*time.Hour)
		assert.Error(t, s.configureTLS(&http.Server{}))
	})

	t.Run("auto reload starts watcher", func(t *testing.T) {
		s, _ := tlsServer(t, "server", 48*time.Hour)
		s.TLSConfig.AutoReload = config.AutoReloadConfig{Enabled: true, DebounceDelay: 10 * time.Millisecond}
		require.NoError(t, s.configureTLS(&http.Server{}))
		require.NotNil(t, s.certs.watcher)
		assert.True(t, s.certs.watcher.IsRunning())
		assert.Len(t, s.certs.watcher.GetWatchedFiles(), 2)
	})
}

func TestHealthHandler_CertificateExpiry(t *testing.T) {
	tests := []struct {
		name       string
		validFor   time.Duration
		wantStatus int
		wantCert   string
	}{
		{"ok", 30 * 24 * time.Hour, http.StatusOK, "ok"},
		{"warning", 3 * 24 * time.Hour, http.StatusOK, "warning"},
		{"critical", 12 * time.Hour, http.StatusServiceUnavailable, "critical"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := tlsServer(t, "server", tt.validFor)
			require.NoError(t, s.configureTLS(&http.Server{}))

			rec := httptestGet(t, s.Handler(), "/health")
			assert.Equal(t, tt.wantStatus, rec.Code)

			body := decodeMap(t, rec)
			certs, ok := body["certificates"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.wantCert, certs["status"])
		})
	}
}

func TestCertWatcher_TriggersReload(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, "watched", 48*time.Hour)

	var calls atomic.Int32
	cw := NewCertWatcher([]string{certFile, keyFile, ""}, 20*time.Millisecond, func() { calls.Add(1) }, nil)
	assert.Equal(t, []string{certFile, keyFile}, cw.GetWatchedFiles())

	require.NoError(t, cw.Start())
	defer func() { _ = cw.Stop() }()
	assert.Error(t, cw.Start(), "second start is rejected")

	// Push the mod time forward so coarse filesystem clocks still see a change.
	writeSelfSigned(t, dir, "rotated", 96*time.Hour)
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(certFile, future, future))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestCertWatcher_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, "stop", time.Hour)

	cw := NewCertWatcher([]string{certFile, keyFile}, 0, func() {}, nil)
	require.NoError(t, cw.Start())
	require.NoError(t, cw.Stop())
	assert.False(t, cw.IsRunning())
	assert.NoError(t, cw.Stop())
}

func TestServe_GracefulShutdown(t *testing.T) {
	s := newTestServer(t, testConfig(), &stubExtractor{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, s.newHTTPServer(), ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_TLS(t *testing.T) {
	s, tlsCfg := tlsServer(t, "server", 48*time.Hour)
	httpServer := s.newHTTPServer()
	require.NoError(t, s.configureTLS(httpServer))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, httpServer, ln) }()

	pemBytes, err := os.ReadFile(tlsCfg.CertFile)
	require.NoError(t, err)
	pool := x509.NewCertPool()
	require.True(t, pool.AppendCertsFromPEM(pemBytes))

	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool}}}
	resp, err := client.Get("https://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	assert.NoError(t, <-done)
}
