// Package server runs the HTTP listener with graceful shutdown.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds the graceful shutdown of in-flight requests.
const ShutdownTimeout = 10 * time.Second

// HTTPServer serves a handler over HTTP, or HTTPS when a certificate is set.
type HTTPServer struct {
	Handler  http.Handler
	CertFile string
	KeyFile  string
}

// NewHTTPServer creates a server for handler. TLS is enabled when both
// certFile and keyFile are non-empty.
func NewHTTPServer(handler http.Handler, certFile, keyFile string) *HTTPServer {
	return &HTTPServer{Handler: handler, CertFile: certFile, KeyFile: keyFile}
}

// TLS reports whether the server terminates TLS itself.
func (s *HTTPServer) TLS() bool {
	return s.CertFile != "" && s.KeyFile != ""
}

// Run listens on addr and serves until ctx is done.
func (s *HTTPServer) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if s.TLS() {
		srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if s.TLS() {
			err = srv.ServeTLS(ln, s.CertFile, s.KeyFile)
		} else {
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
