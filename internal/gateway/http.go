package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/arjun/flowtest/internal/orchestrator"
)

// HTTPServer exposes the run API. Submission is asynchronous: the POST returns
// a run id immediately and clients poll the GET for progress.
type HTTPServer struct {
	runs Runs
	srv  *http.Server
}

func NewHTTPServer(addr string, runs Runs) *HTTPServer {
	h := &HTTPServer{runs: runs}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/tests/run", h.handleStartRun)
	r.Get("/tests/{runID}", h.handleGetRun)
	r.Get("/healthz", h.handleHealth)

	h.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return h
}

// Handler exposes the router, mainly for tests.
func (h *HTTPServer) Handler() http.Handler {
	return h.srv.Handler
}

func (h *HTTPServer) Start() error {
	log.Printf("[http] listening on %s", h.srv.Addr)
	if err := h.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (h *HTTPServer) Stop(ctx context.Context) error {
	return h.srv.Shutdown(ctx)
}

type startRunRequest struct {
	Query       string            `json:"query"`
	Tags        []string          `json:"tags"`
	DocFilename string            `json:"doc_filename"`
	BaseURL     string            `json:"base_url"`
	TestData    map[string]string `json:"test_data"`
}

func (h *HTTPServer) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	runID := h.runs.StartRun(orchestrator.RunRequest{
		Query:       req.Query,
		Tags:        req.Tags,
		DocFilename: req.DocFilename,
		BaseURL:     req.BaseURL,
		Overrides:   req.TestData,
	})
	respondJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (h *HTTPServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	snap := h.runs.GetRun(runID)
	if len(snap.Run) == 0 {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[http] failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
