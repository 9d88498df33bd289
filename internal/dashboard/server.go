package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"effortwatch/internal/dataset"
	"effortwatch/internal/observability"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the persisted datasets and their derived summaries as JSON,
// plus health and Prometheus metrics endpoints. Datasets are held in memory
// and refreshed by Reload, typically driven by the file watcher.
type Server struct {
	addr       string
	basePoints []float64
	paths      map[string]string

	mu       sync.RWMutex
	datasets map[string]dataset.Months

	server *http.Server
}

// NewServer maps dataset names ("dev-up") to their JSON files and loads each
// one; a missing file starts as an empty dataset.
func NewServer(addr string, basePoints []float64, paths map[string]string) (*Server, error) {
	s := &Server{
		addr:       addr,
		basePoints: append([]float64(nil), basePoints...),
		paths:      make(map[string]string, len(paths)),
		datasets:   make(map[string]dataset.Months, len(paths)),
	}
	for name, path := range paths {
		s.paths[name] = path
		months, err := dataset.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load dataset %q: %w", name, err)
		}
		s.datasets[name] = months
	}
	return s, nil
}

// Reload re-reads one dataset from disk. Unknown names are ignored.
func (s *Server) Reload(name string) error {
	path, ok := s.paths[name]
	if !ok {
		return nil
	}
	months, err := dataset.Load(path)
	if err != nil {
		return fmt.Errorf("reload dataset %q: %w", name, err)
	}

	s.mu.Lock()
	s.datasets[name] = months
	s.mu.Unlock()

	observability.DatasetReloadsTotal.Inc()
	slog.Info("dataset reloaded", "dataset", name, "months", len(months))
	return nil
}

// ReloadPath reloads whichever registered dataset is stored at path.
func (s *Server) ReloadPath(path string) error {
	clean := filepath.Clean(path)
	for name, registered := range s.paths {
		if filepath.Clean(registered) == clean {
			return s.Reload(name)
		}
	}
	return nil
}

func (s *Server) DatasetNames() []string {
	names := make([]string, 0, len(s.paths))
	for name := range s.paths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handler returns the HTTP routes; split out so tests can drive them without
// binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/datasets", s.handleDatasets)
	mux.HandleFunc("/api/data", s.handleData)
	mux.HandleFunc("/api/summary", s.handleSummary)
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	slog.Info("dashboard server starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("dashboard server failed", "error", err)
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "up"})
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"datasets": s.DatasetNames()})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	months, ok := s.lookup(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown dataset"})
		return
	}
	writeJSON(w, http.StatusOK, months)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	months, ok := s.lookup(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown dataset"})
		return
	}

	var selectedBase *float64
	if raw := r.URL.Query().Get("base"); raw != "" {
		base, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "base must be numeric"})
			return
		}
		selectedBase = &base
	}

	writeJSON(w, http.StatusOK, BuildSummary(months, s.basePoints, selectedBase))
}

func (s *Server) lookup(r *http.Request) (dataset.Months, bool) {
	name := r.URL.Query().Get("dataset")
	s.mu.RLock()
	defer s.mu.RUnlock()
	months, ok := s.datasets[name]
	return months, ok
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("write response", "error", err)
	}
}
