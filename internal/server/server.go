// Package server exposes the pipeline over a small HTTP control API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/export"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/pipeline"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/store"
)

// Server is the HTTP control API over one pipeline instance.
type Server struct {
	pipeline *pipeline.Pipeline
	store    store.Store
	inputDir string
	defaults model.ScoringFilters
	http     *http.Server
}

// New builds the Server and its router. Requests that omit filter fields
// fall back to the given defaults.
func New(p *pipeline.Pipeline, st store.Store, inputDir string, defaults model.ScoringFilters, port int) *Server {
	s := &Server{
		pipeline: p,
		store:    st,
		inputDir: inputDir,
		defaults: defaults,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Post("/start-scoring", s.handleStartScoring)
	r.Get("/status", s.handleStatus)
	r.Get("/download", s.handleDownload)
	r.Get("/stats", s.handleStats)
	r.Get("/logs", s.handleLogs)
	r.Get("/files", s.handleFiles)
	r.Get("/health", s.handleHealth)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown or failure.
func (s *Server) ListenAndServe() error {
	zap.L().Info("server: listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// handleStartScoring launches a pipeline run in the background. The request
// body optionally carries filter overrides; absent fields keep defaults.
// A second request while a run is active is rejected with 409.
func (s *Server) handleStartScoring(w http.ResponseWriter, r *http.Request) {
	filters := s.defaults
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&filters); err != nil {
			writeError(w, http.StatusBadRequest, eris.Wrap(err, "decode filters"))
			return
		}
	}

	if err := s.pipeline.Tracker().TryStart(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	// Hand the reservation to the run goroutine; Run's own TryStart would
	// collide with it, so drive the stages through the tracker directly.
	go func() {
		ctx := context.Background()
		if result, err := s.pipeline.RunReserved(ctx, filters); err != nil {
			zap.L().Error("server: scoring run failed", zap.Error(err))
		} else {
			zap.L().Info("server: scoring run complete",
				zap.Int("targets", result.TargetCount),
			)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "started",
		"message": "Скоринг запущен",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Tracker().Snapshot())
}

// handleDownload serves the result file of the most recent completed run.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	result := s.pipeline.Tracker().Result()
	if result == nil || result.OutputFile == "" {
		writeError(w, http.StatusNotFound, eris.New("файл результатов не найден"))
		return
	}
	if _, err := os.Stat(result.OutputFile); err != nil {
		writeError(w, http.StatusNotFound, eris.New("файл результатов не найден"))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.OutputFilename+`"`)
	http.ServeFile(w, r, result.OutputFile)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, eris.New("invalid limit"))
			return
		}
		limit = n
	}

	logs, err := s.store.ListErrorLogs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := export.ListInputFiles(s.inputDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("server: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}
