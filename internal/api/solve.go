package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fleetopt/internal/metrics"
	"fleetopt/internal/model"
	"fleetopt/internal/opt"
	"fleetopt/internal/problem"
)

// job is a validated, built problem waiting for a solver slot.
type job struct {
	run    model.Run
	model  *opt.Model
	params opt.SearchParameters
}

// newJob builds doc into a model. params come from doc.SearchParameters and
// are capped by the configured solve limit.
func (s *Server) newJob(doc *problem.Document, params opt.SearchParameters) (*job, error) {
	m, _, err := doc.Build()
	if err != nil {
		return nil, err
	}
	if c := s.cfg.SolveTimeLimit; c > 0 && (params.TimeLimit == 0 || params.TimeLimit > c) {
		params.TimeLimit = c
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	return &job{
		run: model.Run{
			ID:          id.String(),
			Name:        doc.Name,
			Fingerprint: fingerprint(doc),
			Status:      model.StatusRunning,
			CreatedAt:   time.Now().UTC(),
		},
		model:  m,
		params: params,
	}, nil
}

func fingerprint(doc *problem.Document) string { return fmt.Sprintf("%016x", doc.Fingerprint()) }

// cached returns a previous solved run for the same problem.
func (s *Server) cached(ctx context.Context, fp string) (model.Run, bool) {
	if s.cache == nil {
		return model.Run{}, false
	}
	if r, ok := s.cache.Get(fp); ok {
		return r, true
	}
	r, err := s.Store.LatestSolved(ctx, fp)
	if err != nil {
		return model.Run{}, false
	}
	s.cache.Add(fp, r)
	return r, true
}

// execute runs j to completion, stores the outcome and publishes the final
// event. It never returns an unsaved run.
func (s *Server) execute(ctx context.Context, j *job) model.Run {
	run := j.run
	log := s.log.With(zap.String("run", run.ID), zap.String("fingerprint", run.Fingerprint))
	start := time.Now()

	var (
		a   *opt.Assignment
		err error
	)
	if err = s.slots.Acquire(ctx, 1); err == nil {
		solver := opt.NewSolver(
			opt.WithLogger(log.Named("solver")),
			opt.WithProgress(func(p opt.Progress) {
				s.Broker.Publish(run.ID, model.ProgressEvent{
					RunID:     run.ID,
					Type:      "improved",
					State:     p.State.String(),
					Objective: p.Objective,
					Operator:  p.Operator,
					Sweeps:    p.Sweeps,
					Iteration: p.Iteration,
					ElapsedMs: p.Elapsed.Milliseconds(),
				})
			}),
		)
		a, err = solver.Solve(ctx, j.model, j.params)
		s.slots.Release(1)
	}
	run.FinishedAt = time.Now().UTC()
	elapsed := time.Since(start)

	var nse *opt.NoSolutionError
	switch {
	case err == nil:
		fillRun(&run, a)
		metrics.ObserveSolve(run.Status, elapsed.Seconds(), run.State, run.Objective, a.Metrics().MovesApplied)
	case errors.As(err, &nse):
		run.Status = model.StatusNoSolution
		run.Error = nse.Error()
		for _, n := range nse.Unassigned {
			run.Unassigned = append(run.Unassigned, int(n))
		}
		metrics.ObserveSolve(run.Status, elapsed.Seconds(), "", 0, nil)
	default:
		run.Status = model.StatusError
		run.Error = err.Error()
		metrics.ObserveSolve(run.Status, elapsed.Seconds(), "", 0, nil)
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Store.SaveRun(saveCtx, run); err != nil {
		log.Error("save run failed", zap.Error(err))
	}
	if run.Status == model.StatusSolved && s.cache != nil {
		s.cache.Add(run.Fingerprint, run)
	}
	log.Info("run finished", zap.String("status", run.Status), zap.Int64("objective", run.Objective), zap.Duration("elapsed", elapsed))
	s.Broker.Publish(run.ID, doneEvent(run))
	return run
}

func doneEvent(run model.Run) model.ProgressEvent {
	evt := model.ProgressEvent{
		RunID:     run.ID,
		Type:      "done",
		State:     run.State,
		Objective: run.Objective,
		Status:    run.Status,
	}
	if !run.FinishedAt.IsZero() {
		evt.ElapsedMs = run.FinishedAt.Sub(run.CreatedAt).Milliseconds()
	}
	return evt
}

// fillRun copies a solved assignment into run.
func fillRun(run *model.Run, a *opt.Assignment) {
	run.Status = model.StatusSolved
	run.State = a.State().String()
	run.Objective = a.ObjectiveValue()
	run.Routes = run.Routes[:0]
	for _, r := range a.Routes() {
		rec := model.Route{
			Vehicle: r.Vehicle,
			Nodes:   make([]int, len(r.Nodes)),
			ArcCost: r.ArcCost,
			Spans:   r.Spans,
			Cumuls:  make(map[string][]model.Range, len(r.Cumuls)),
		}
		for k, n := range r.Nodes {
			rec.Nodes[k] = int(n)
		}
		for name, rs := range r.Cumuls {
			out := make([]model.Range, len(rs))
			for k, x := range rs {
				out[k] = model.Range{Min: x.Min, Max: x.Max}
			}
			rec.Cumuls[name] = out
		}
		run.Routes = append(run.Routes, rec)
	}

	mt := a.Metrics()
	rm := &model.Metrics{
		InitialObjective: mt.InitialObjective,
		FinalObjective:   mt.FinalObjective,
		Sweeps:           mt.Sweeps,
		MovesEvaluated:   mt.MovesEvaluated,
		MovesApplied:     mt.MovesApplied,
		Iterations:       mt.Iterations,
		Improvements:     mt.Improvements,
		RuinSelects:      map[string]int{},
		FinalRuinWeights: map[string]float64{},
		ElapsedMs:        mt.Elapsed.Milliseconds(),
	}
	for k, name := range opt.RuinOperators {
		rm.RuinSelects[name] = mt.RuinSelects[k]
		rm.FinalRuinWeights[name] = mt.FinalRuinWeights[k]
	}
	for _, snap := range mt.Snapshots {
		ws := model.WeightSnapshot{Iteration: snap.Iteration, Ruin: map[string]float64{}}
		for k, name := range opt.RuinOperators {
			ws.Ruin[name] = snap.Ruin[k]
		}
		rm.Snapshots = append(rm.Snapshots, ws)
	}
	run.Metrics = rm
	run.Strategy = mt.Strategy
}
