package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/limacina/launcher/internal/core"
	"github.com/limacina/launcher/internal/router"
	"github.com/limacina/launcher/internal/server"
)

// Server exposes the launcher's readiness flag, state and route table over
// HTTP so an external UI can gate on them.
type Server struct {
	server      *http.Server
	coreState   *core.State
	serverState *server.State
	routes      *router.Table
}

// HealthResponse represents the JSON response from the /healthz endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// StateResponse is the body of /api/state.
type StateResponse struct {
	Core   core.Snapshot   `json:"core"`
	Server server.Snapshot `json:"server"`
}

// PageResponse is the body served for a route table path.
type PageResponse struct {
	Route router.Route `json:"route"`
}

// NewServer creates a state server listening on addr.
func NewServer(addr string, coreState *core.State, serverState *server.State, routes *router.Table) *Server {
	s := &Server{
		coreState:   coreState,
		serverState: serverState,
		routes:      routes,
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// Handler builds the request router. Route table paths are registered as
// exact matches; they answer 503 until the application is ready.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/api/state", s.handleState).Methods(http.MethodGet)
	r.HandleFunc("/api/routes", s.handleRoutes).Methods(http.MethodGet)

	for _, route := range s.routes.Routes() {
		r.Handle(route.Path, s.pageHandler(route)).Methods(http.MethodGet)
	}
	return r
}

// Start listens on the configured address and serves in a background
// goroutine. It returns once the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.server.Addr = ln.Addr().String()

	go func() {
		log.Printf("[DEBUG] State server starting on %s", s.server.Addr)
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("[ERROR] State server error: %v", err)
		}
		log.Printf("[DEBUG] State server stopped")
	}()

	return nil
}

// Addr returns the bound address once Start has returned.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Shutdown gracefully shuts down the HTTP server, waiting for in-flight
// requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("[DEBUG] Shutting down state server...")
	return s.server.Shutdown(ctx)
}

// handleHealthz returns 200 once the application is ready and 503 while it
// is still loading.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.coreState.IsLoading() {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "loading"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ready"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StateResponse{
		Core:   s.coreState.Snapshot(),
		Server: s.serverState.Snapshot(),
	})
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.routes.Routes())
}

func (s *Server) pageHandler(route router.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.coreState.IsLoading() {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "loading",
				Error:  "application is still initializing",
			})
			return
		}
		writeJSON(w, http.StatusOK, PageResponse{Route: route})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] Failed to encode response: %v", err)
	}
}
