package server

// Operational HTTP surface: /healthz and /metrics, routed with gorilla/mux
// the way the rest of the stack uses it for the admin-facing endpoints.

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OpsServer exposes health and metrics endpoints independent of the main
// client-facing listener(s).
type OpsServer struct {
	httpServer *http.Server
	registry   *Registry
}

// NewOpsServer builds the ops HTTP server bound to addr.
func NewOpsServer(addr string, registry *Registry) *OpsServer {
	router := mux.NewRouter()
	ops := &OpsServer{registry: registry}

	router.HandleFunc("/healthz", ops.handleHealthz).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	ops.httpServer = &http.Server{Addr: addr, Handler: router}
	return ops
}

func (o *OpsServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"clients": o.registry.Count(),
	})
}

// Start launches the ops HTTP server in a background goroutine.
func (o *OpsServer) Start() {
	go func() {
		_ = o.httpServer.ListenAndServe()
	}()
}

// Stop closes the ops HTTP server immediately, including any active
// connections.
func (o *OpsServer) Stop() error {
	return o.httpServer.Close()
}
