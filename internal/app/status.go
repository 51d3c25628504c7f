package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newStatusMux builds the status surface: liveness, Prometheus metrics, and
// a JSON dump of the merged graph plus its configuration.
func (a *App) newStatusMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(a.metrics.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/graph", a.graphHandler)
	return mux
}

// healthHandler reports process liveness.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// graphHandler exports the merged graph and the config snapshot.
func (a *App) graphHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.store.Snapshot()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"application": a.name,
		"uuid":        a.id,
		"graph":       a.graph,
		"config":      snapshot,
	}); err != nil {
		a.logger.Error("Failed to encode graph export.", "error", err)
	}
}

// startStatusServer runs the status HTTP server in its own goroutine.
func (a *App) startStatusServer(mux *http.ServeMux) {
	addr := fmt.Sprintf(":%d", a.cfg.StatusPort)
	a.httpServer = &http.Server{Addr: addr, Handler: mux}

	go func() {
		a.logger.Info("🩺 Status server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		// ListenAndServe returns ErrServerClosed on graceful shutdown; only
		// anything else is a real failure.
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Status server failed unexpectedly", "error", err)
		}
	}()
}

// closeStatusServer shuts the status server down gracefully.
func (a *App) closeStatusServer() error {
	if a.httpServer == nil {
		a.logger.Debug("Status server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.logger.Info("🩺 Shutting down status server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Status server shutdown failed", "error", err)
		return err
	}
	a.logger.Debug("Status server shut down gracefully.")
	return nil
}
