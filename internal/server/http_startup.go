package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const defaultShutdownTimeout = 30 * time.Second

// Start serves until ctx is canceled, then drains in-flight requests within
// the shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	httpServer := s.newHTTPServer()

	if err := s.configureTLS(httpServer); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		s.cleanup()
		return fmt.Errorf("server failed to start: %w", err)
	}

	s.displayServerInfo(ln.Addr().String())
	return s.Serve(ctx, httpServer, ln)
}

func (s *Server) newHTTPServer() *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(s.Host, s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.ReadTimeout,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
	}
}

// Serve runs httpServer on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, httpServer *http.Server, ln net.Listener) error {
	serverErrors := make(chan error, 1)

	go func() {
		var err error
		if httpServer.TLSConfig != nil {
			// Certificates come from TLSConfig.GetCertificate.
			err = httpServer.ServeTLS(ln, "", "")
		} else {
			err = httpServer.Serve(ln)
		}
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		s.cleanup()
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(httpServer)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	defer s.cleanup()

	s.Logger.Info("Shutting down HTTP server...", "timeout", timeout)
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// cleanup stops the certificate watcher and the rate limiter janitor.
func (s *Server) cleanup() {
	if s.certs != nil {
		if err := s.certs.stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop certificate watcher")
		}
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}
}
