package opt

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Progress is emitted each time the incumbent improves. Objective values
// across one run never increase.
type Progress struct {
	State     SearchState   `json:"state"`
	Objective int64         `json:"objective"`
	Operator  string        `json:"operator"`
	Sweeps    int           `json:"sweeps"`
	Iteration int           `json:"iteration"`
	Elapsed   time.Duration `json:"elapsedNs"`
}

// Solver runs searches over models. A Solver is stateless between calls and
// may be shared.
type Solver struct {
	log      *zap.Logger
	progress func(Progress)
}

// SolverOption configures a Solver.
type SolverOption func(*Solver)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) SolverOption {
	return func(s *Solver) {
		if l != nil {
			s.log = l
		}
	}
}

// WithProgress registers a callback invoked synchronously from the search
// goroutine on every incumbent improvement.
func WithProgress(fn func(Progress)) SolverOption {
	return func(s *Solver) { s.progress = fn }
}

// NewSolver returns a Solver.
func NewSolver(opts ...SolverOption) *Solver {
	s := &Solver{log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Solve constructs a seed solution and improves it until params.TimeLimit
// elapses, ctx is done, or the search converges. It returns the best
// assignment found, or an error matching ErrNoFeasibleSolution when no
// assignment satisfies every hard constraint. Running out of time during
// search is not an error; check Assignment.State. Running out of time before
// construction has placed every visit yields ErrNoFeasibleSolution.
func (s *Solver) Solve(ctx context.Context, m *Model, params SearchParameters) (*Assignment, error) {
	params, err := params.normalize()
	if err != nil {
		return nil, err
	}
	log := s.log.With(zap.Int("vehicles", m.mgr.NumVehicles()), zap.Int("visits", len(m.visits)))

	if m.pd.cyclic {
		log.Info("pickup and delivery precedence is cyclic")
		return nil, &NoSolutionError{Reason: "pickup and delivery precedence is cyclic"}
	}

	ctx, cancel := context.WithTimeout(ctx, params.TimeLimit)
	defer cancel()

	e := newEvaluator(m)
	seed, used, err := e.construct(ctx, params.FirstSolutionStrategy)
	if err != nil {
		log.Info("construction failed", zap.Error(err))
		return nil, err
	}
	if used != params.FirstSolutionStrategy {
		log.Info("construction fell back", zap.Stringer("requested", params.FirstSolutionStrategy), zap.Stringer("used", used))
	}
	log.Debug("seed constructed", zap.Stringer("strategy", used), zap.Int64("objective", seed.total(m).objective))

	srch := newSearch(m, params, log, s.progress)
	srch.metrics.Strategy = used.String()
	best, state := srch.run(ctx, seed)

	a := newAssignment(m, best, state, srch.metrics.clone())
	if err := m.CheckAssignment(a); err != nil {
		log.Error("search produced an invalid assignment", zap.Error(err))
		return nil, &NoSolutionError{Reason: err.Error()}
	}
	log.Info("search finished",
		zap.Stringer("state", state),
		zap.Int64("initial_objective", srch.metrics.InitialObjective),
		zap.Int64("objective", a.ObjectiveValue()),
		zap.Int("sweeps", srch.metrics.Sweeps),
		zap.Int("iterations", srch.metrics.Iterations),
		zap.Duration("elapsed", srch.metrics.Elapsed))
	return a, nil
}
