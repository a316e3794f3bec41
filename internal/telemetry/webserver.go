package telemetry

import (
	"context"
	"embed"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rjboer/GoAOA/internal/logging"
)

//go:embed static/*
var staticFiles embed.FS

// WebServer exposes the latest estimate and live updates over HTTP.
type WebServer struct {
	srv    *http.Server
	hub    *Hub
	logger logging.Logger
}

// NewWebServer builds an HTTP server serving the embedded UI and the API.
func NewWebServer(addr string, hub *Hub, logger logging.Logger) *WebServer {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebServer{
		hub:    hub,
		srv:    &http.Server{Addr: addr, Handler: NewMux(hub)},
		logger: logger.With(logging.Field{Key: "subsystem", Value: "web"}),
	}
}

// NewMux routes the telemetry API and the embedded page.
func NewMux(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/static/", http.FileServer(http.FS(staticFiles)))
	mux.HandleFunc("/api/latest", hub.handleLatest)
	mux.HandleFunc("/api/live", hub.handleLive)
	mux.HandleFunc("/api/config", hub.handleConfig)
	mux.HandleFunc("/api/spectrum", hub.handleSpectrum)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Equivalent of http.ServeFileFS (Go 1.22+) for the Go 1.21 toolchain.
		f, err := http.FS(staticFiles).Open("/static/index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()
		d, err := f.Stat()
		if err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, d.Name(), d.ModTime(), f)
	})
	return mux
}

// Port returns the TCP port of the listen address, or 0 if it has none.
func (w *WebServer) Port() int {
	_, port, err := net.SplitHostPort(w.srv.Addr)
	if err != nil {
		return 0
	}
	p, err := net.LookupPort("tcp", port)
	if err != nil {
		return 0
	}
	return p
}

// Start begins listening and shuts down when the context is canceled.
func (w *WebServer) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := w.srv.Shutdown(shutdownCtx); err != nil {
			w.logger.Warn("web telemetry shutdown", logging.Field{Key: "error", Value: err})
		}
	}()

	w.logger.Info("web telemetry listening", logging.Field{Key: "addr", Value: w.srv.Addr})
	if err := w.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		w.logger.Error("web telemetry server error", logging.Field{Key: "error", Value: err})
	}
}
