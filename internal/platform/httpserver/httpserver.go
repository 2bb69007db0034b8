package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with sane defaults for the admin surface.
// WriteTimeout is generous because POST /admin/sync/runs blocks for a cycle.
func New(addr string, handler http.Handler, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
}
