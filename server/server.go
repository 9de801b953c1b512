// Package server exposes the session table over HTTP: clients create a
// session, then submit numbered chunks of log lines until they send a
// terminal marker.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sonnes/logsink/console"
	"github.com/sonnes/logsink/core"
	"github.com/sonnes/logsink/session"
)

const (
	// DefaultMaxBodyBytes caps a single chunk submission.
	DefaultMaxBodyBytes = 8 << 20

	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Server routes session requests to a session table and reports every
// accepted chunk on the operator console.
type Server struct {
	// Sessions is the table of active sessions. The server is its only writer.
	Sessions *session.Table
	// Console receives operator-facing event lines.
	Console *console.Printer
	// Logger receives diagnostics such as malformed bodies.
	Logger *log.Logger
	// Transformers run over each chunk before it is printed.
	Transformers []core.Transformer
	// BaseURL prefixes every returned URL, e.g. "http://127.0.0.1:8080".
	BaseURL string
	// MaxBodyBytes caps a submission body. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// IdleTimeout removes sessions with no activity for this long. Zero
	// keeps abandoned sessions forever.
	IdleTimeout time.Duration
}

// New creates a Server with default limits and the default logger.
func New(sessions *session.Table, out *console.Printer, baseURL string) *Server {
	return &Server{
		Sessions:     sessions,
		Console:      out,
		Logger:       log.Default(),
		BaseURL:      baseURL,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// BaseURL builds the external URL for a listener bound on host. The port is
// taken from the listener so an ephemeral ":0" bind yields a usable URL.
func BaseURL(host string, ln net.Listener) string {
	port := "0"
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		port = fmt.Sprint(addr.Port)
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. The idle sweeper runs for the lifetime of the call when
// IdleTimeout is set.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go s.Sessions.Sweep(ctx, s.IdleTimeout, s.IdleTimeout/2, s.expired)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger().Info("listening", "addr", s.BaseURL)
	s.Console.Banner(s.BaseURL)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger().Info("shutting down", "sessions", s.Sessions.Len())
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) expired(id string) {
	s.logger().Debug("session expired", "session_id", id, "idle_timeout", s.IdleTimeout)
	s.Console.Expired(id)
}

func (s *Server) logger() *log.Logger {
	if s.Logger == nil {
		return log.Default()
	}
	return s.Logger
}

func (s *Server) maxBodyBytes() int64 {
	if s.MaxBodyBytes <= 0 {
		return DefaultMaxBodyBytes
	}
	return s.MaxBodyBytes
}
