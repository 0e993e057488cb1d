// Package api provides the read-only HTTP API for querying stored runs.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/agri-commons/internal/accounting"
	"github.com/talgya/agri-commons/internal/engine"
	"github.com/talgya/agri-commons/internal/persistence"
)

// Server serves stored runs over HTTP.
type Server struct {
	DB   *persistence.DB
	Addr string

	// Limits the daily record endpoints, which return whole runs.
	Limiter *RateLimiter
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	records := func(h http.HandlerFunc) http.HandlerFunc { return h }
	if s.Limiter != nil {
		records = func(h http.HandlerFunc) http.HandlerFunc { return RateLimitMiddleware(s.Limiter, h) }
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.handleRun)
	mux.HandleFunc("GET /api/v1/runs/{id}/summary", s.handleSummary)
	mux.HandleFunc("GET /api/v1/runs/{id}/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/v1/runs/{id}/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/runs/{id}/community", records(s.handleCommunity))
	mux.HandleFunc("GET /api/v1/runs/{id}/farms/{farm}", records(s.handleFarm))
	return corsMiddleware(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP API starting", "addr", s.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("HTTP API shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// CORS_ORIGINS is a comma-separated list; localhost dev servers are always
// allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.DB.Runs()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.DB.GetRun(r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	status, err := s.DB.GetMeta(run.ID, "status")
	if err != nil {
		status = "running"
	}
	writeJSON(w, map[string]any{
		"run":    run,
		"status": status,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	period, err := accounting.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	run, err := s.DB.GetRun(r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	records, err := s.DB.FarmRecords(run.ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	totals := accounting.Rollup(records, period)
	if totals == nil {
		totals = []accounting.Totals{}
	}
	writeJSON(w, totals)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.DB.Snapshot(r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	run, err := s.DB.GetRun(r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	events, err := s.DB.RecentEvents(run.ID, r.URL.Query().Get("category"), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, events)
}

func (s *Server) handleCommunity(w http.ResponseWriter, r *http.Request) {
	run, err := s.DB.GetRun(r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	records, err := s.DB.CommunityRecords(run.ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, records)
}

func (s *Server) handleFarm(w http.ResponseWriter, r *http.Request) {
	run, err := s.DB.GetRun(r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	records, err := s.DB.FarmRecords(run.ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	farm := r.PathValue("farm")
	var out []accounting.FarmRecord
	for _, rec := range records {
		if rec.FarmID == farm {
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		writeError(w, http.StatusNotFound, "no records for farm "+farm)
		return
	}
	writeJSON(w, out)
}

// fail maps store errors to responses.
func (s *Server) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, persistence.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	slog.Error("API query failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
