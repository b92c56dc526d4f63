// Package api serves a read-only HTTP view of a warehouse once its operation
// stream has been replayed.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"warehouse/internal/inventory"
	"warehouse/internal/logging"
)

// View is the read side of a warehouse.
type View interface {
	Sectors() []inventory.SectorSnapshot
	Sector(i int) (inventory.SectorSnapshot, bool)
	Product(id int) (inventory.Product, bool)
	Locate(id int) (inventory.Location, bool)
	Stats() inventory.Stats
	Len() int
	Dump() string
	Digest() uint64
}

// Response is the JSON envelope of every API reply.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ProductResponse pairs a product with its current location.
type ProductResponse struct {
	Product  inventory.Product  `json:"product"`
	Location inventory.Location `json:"location"`
}

// StatsResponse reports counters and occupancy.
type StatsResponse struct {
	inventory.Stats
	Products int `json:"products"`
}

// Server is the inspection HTTP server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	view       View
}

// New builds the router. A nil registry disables /metrics.
func New(addr string, view View, registry *prometheus.Registry) *Server {
	s := &Server{
		router: mux.NewRouter(),
		view:   view,
	}

	s.router.Use(mux.MiddlewareFunc(logging.HTTPMiddleware))

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/stats", s.handleStats).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/dump", s.handleDump).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/sectors", s.handleSectors).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/sectors/{index:[0-9]+}", s.handleSector).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/products/{id:-?[0-9]+}", s.handleProduct).Methods(http.MethodGet)
	if registry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		logging.Info(ctx, logging.ComponentHTTP, logging.ActionStart, "Inspection server listening", logging.Fields{
			"address": s.httpServer.Addr,
		})
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("inspection server: %w", err)
			return
		}
		serverErr <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logging.Info(ctx, logging.ComponentHTTP, logging.ActionStop, "Inspection server shutting down")
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{
		"status":   "healthy",
		"products": s.view.Len(),
	}})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: StatsResponse{
		Stats:    s.view.Stats(),
		Products: s.view.Len(),
	}})
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	etag := fmt.Sprintf(`"%016x"`, s.view.Digest())
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, s.view.Dump())
}

func (s *Server) handleSectors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: s.view.Sectors()})
}

func (s *Server) handleSector(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sector index")
		return
	}
	snap, ok := s.view.Sector(index)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("sector %d not found", index))
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: snap})
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	product, ok := s.view.Product(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("product %d not found", id))
		return
	}
	loc, _ := s.view.Locate(id)
	writeJSON(w, http.StatusOK, Response{Success: true, Data: ProductResponse{Product: product, Location: loc}})
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Warn(context.Background(), logging.ComponentHTTP, logging.ActionResponse, "Failed to encode response", logging.Fields{
			"error": err.Error(),
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Error: message})
}
