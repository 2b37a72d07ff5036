package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/mdtrace/internal/book"
	"github.com/dgallion1/mdtrace/internal/config"
	"github.com/dgallion1/mdtrace/internal/pipeline"
	"github.com/dgallion1/mdtrace/internal/registry"
)

type preprocessRequest struct {
	Config json.RawMessage `json:"config"`
	Book   *book.Book      `json:"book"`
}

// Matrix is the aggregated traces of one target.
type Matrix struct {
	Target  string         `json:"target"`
	Name    string         `json:"name"`
	Records []MatrixRecord `json:"records"`
}

type MatrixRecord struct {
	ID     string   `json:"id"`
	Traces []string `json:"traces"`
}

func (s *Server) handlePreprocess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.settings.MaxBodyBytes)

	var req preprocessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Book == nil {
		jsonError(w, "book is required", http.StatusBadRequest)
		return
	}
	if err := req.Book.Validate(); err != nil {
		jsonError(w, "invalid book: "+err.Error(), http.StatusBadRequest)
		return
	}

	cfg, err := config.DecodeJSON(req.Config)
	if err != nil {
		var dup *config.DuplicateTargetError
		if errors.As(err, &dup) {
			traceError(w, err, "", http.StatusUnprocessableEntity)
			return
		}
		jsonError(w, "invalid config: "+err.Error(), http.StatusBadRequest)
		return
	}

	run := pipeline.NewRun(req.Book.Title)
	s.runs.Put(run)
	log := s.log.With("run_id", run.ID)

	orch := pipeline.NewOrchestrator(cfg, s.log,
		pipeline.WithWorkers(s.settings.RenderWorkers),
		pipeline.WithRun(run),
	)
	res, err := orch.Run(r.Context(), req.Book)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if pipeline.ErrorKind(err) == "internal" {
			status = http.StatusInternalServerError
		}
		traceError(w, err, run.ID, status)
		return
	}
	log.Info("preprocessed book", "chapters", len(res.Book.All()), "traces", res.Registry.TraceCount())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"run_id":   run.ID,
		"book":     res.Book,
		"matrices": matrices(res.Registry),
	})
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run := s.runs.Get(runID)
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run.Snapshot())
}

func matrices(snap *registry.Snapshot) []Matrix {
	targets := snap.Targets()
	out := make([]Matrix, len(targets))
	for i, t := range targets {
		m := Matrix{Target: t.ID, Name: t.Name, Records: []MatrixRecord{}}
		for _, rec := range t.Records() {
			mr := MatrixRecord{ID: rec.ID, Traces: make([]string, len(rec.Traces))}
			for j, tr := range rec.Traces {
				mr.Traces[j] = tr.Qualified()
			}
			m.Records = append(m.Records, mr)
		}
		out[i] = m
	}
	return out
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func traceError(w http.ResponseWriter, err error, runID string, code int) {
	body := map[string]string{
		"error": err.Error(),
		"kind":  pipeline.ErrorKind(err),
	}
	if runID != "" {
		body["run_id"] = runID
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
