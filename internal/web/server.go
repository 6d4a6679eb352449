// Package web serves the rotator's HTML status page and a websocket
// feed of live position/status, adapted from the same net/http
// wiring style used for the rest of the daemon's network surfaces.
package web

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"time"
)

// Server wraps the HTTP status page and its websocket feed.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer builds a status server that polls statusFunc once per
// pushInterval and fans the result out to every connected websocket client.
func NewServer(addr string, statusFunc StatusFunc, pushInterval time.Duration) *Server {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("web: failed to sub static fs: %v", err)
	}
	hub := NewHub(statusFunc, pushInterval)
	return &Server{
		addr:     addr,
		handlers: NewHandlers(hub, subFS),
	}
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handlers.HandleStatusSocket)
	mux.HandleFunc("GET /status", s.handlers.HandleStatusOnce)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(s.handlers.staticFS))))
	mux.HandleFunc("GET /{$}", s.handlers.ServeIndex)
	return mux
}

// Run starts the hub and the HTTP server, blocking until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.handlers.hub.Run(ctx)

	srv := &http.Server{Addr: s.addr, Handler: s.Mux()}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("web status page listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
