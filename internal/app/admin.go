package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gatewayd/pkg/logger"
)

// startAdmin starts the operational HTTP endpoint (liveness, readiness,
// Prometheus metrics) when enabled. It lives on its own address and its own
// net/http stack, entirely outside the gateway data path.
func (a *App) startAdmin(_ context.Context) <-chan error {
	errCh := make(chan error, 1)
	if !a.eff.Config.Admin.Enabled {
		return errCh
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.readyzHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	a.admin = &http.Server{Addr: a.eff.Config.Admin.Address, Handler: r}
	go func() {
		logger.Info("admin_listening", "addr", a.eff.Config.Admin.Address)
		if err := a.admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

func (a *App) stopAdmin() {
	if a.admin == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.admin.Shutdown(ctx)
}

// healthzHandler handles the /healthz endpoint.
func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{\"status\":\"ok\"}"))
}

// readyzHandler reports ready once the workers are accepting.
func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !a.sup.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("{\"status\":\"not ready\"}"))
		return
	}
	w.WriteHeader(http.StatusOK)
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	_, _ = w.Write([]byte("{\"status\":\"ok\",\"version\":\"" + ver + "\"}"))
}
