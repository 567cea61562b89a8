package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"fleetopt/internal/problem"
	"fleetopt/internal/store"
)

// SolveHandler handles POST /v1/solve. The body is a problem document in
// YAML or JSON. With ?async=true the run is accepted and solved in the
// background; progress streams on /v1/runs/{id}/ws. ?cache=false forces a
// fresh solve.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeProblem(w, r, http.StatusMethodNotAllowed, "", "")
		return
	}
	q := r.URL.Query()
	async, err := boolParam(q, "async", false)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "", err.Error())
		return
	}
	useCache, err := boolParam(q, "cache", true)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "", err.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeProblem(w, r, http.StatusRequestEntityTooLarge, "", err.Error())
			return
		}
		writeProblem(w, r, http.StatusBadRequest, "", err.Error())
		return
	}
	doc, err := problem.Parse(body)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Invalid Document", err.Error())
		return
	}
	if err := s.validateDocument(doc); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Invalid Document", err.Error())
		return
	}
	params, err := doc.SearchParameters()
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Invalid Search Parameters", err.Error())
		return
	}

	if useCache {
		if run, ok := s.cached(r.Context(), fingerprint(doc)); ok {
			run.Cached = true
			writeJSON(w, http.StatusOK, run)
			return
		}
	}

	j, err := s.newJob(doc, params)
	if err != nil {
		writeProblem(w, r, http.StatusUnprocessableEntity, "Unprocessable Model", err.Error())
		return
	}
	if err := s.Store.SaveRun(r.Context(), j.run); err != nil {
		s.log.Error("save run failed", zap.String("run", j.run.ID), zap.Error(err))
		writeProblem(w, r, http.StatusInternalServerError, "", "could not record run")
		return
	}

	if async {
		go s.execute(s.base, j)
		w.Header().Set("Location", "/v1/runs/"+j.run.ID)
		writeJSON(w, http.StatusAccepted, j.run)
		return
	}
	run := s.execute(r.Context(), j)
	writeJSON(w, http.StatusOK, run)
}

// RunsIndexHandler handles GET /v1/runs?cursor=&limit=.
func (s *Server) RunsIndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeProblem(w, r, http.StatusMethodNotAllowed, "", "")
		return
	}
	limit, err := limitParam(r.URL.Query())
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "", err.Error())
		return
	}
	runs, next, err := s.Store.ListRuns(r.Context(), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeProblem(w, r, http.StatusInternalServerError, "", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id} and the /v1/runs/{id}/ws stream.
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeProblem(w, r, http.StatusNotFound, "", "")
		return
	}
	switch sub {
	case "":
	case "ws":
		s.RunStreamHandler(w, r, id)
		return
	default:
		writeProblem(w, r, http.StatusNotFound, "", "")
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeProblem(w, r, http.StatusMethodNotAllowed, "", "")
		return
	}
	run, err := s.Store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, r, http.StatusNotFound, "", "run "+id+" not found")
		return
	}
	if err != nil {
		writeProblem(w, r, http.StatusInternalServerError, "", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler reports whether the store answers within a second.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.Store.(interface{ Ping(context.Context) error }); ok {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			writeProblem(w, r, http.StatusServiceUnavailable, "", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
