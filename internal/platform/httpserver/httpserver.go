// Package httpserver builds the *http.Server for cmd/server.
package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"atti/internal/platform/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 2 * time.Minute
	// headroom past the request timeout so the Timeout middleware can
	// still write its 503 before the connection is cut.
	writeHeadroom = 5 * time.Second
)

// New wires server timeouts to the configured request timeout and routes
// net/http's internal errors (TLS handshakes, panics in hijacked conns)
// through the structured logger.
func New(cfg config.Server, handler http.Handler, log *slog.Logger) *http.Server {
	reqTimeout := cfg.RequestTimeout
	if reqTimeout <= 0 {
		reqTimeout = 30 * time.Second
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       reqTimeout,
		WriteTimeout:      reqTimeout + writeHeadroom,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}
}
