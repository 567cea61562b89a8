package model

import "time"

// Run statuses.
const (
	StatusRunning    = "running"
	StatusSolved     = "solved"
	StatusNoSolution = "no_solution"
	StatusError      = "error"
)

// Run is one solve request and its outcome.
type Run struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	Status      string    `json:"status"`
	State       string    `json:"state,omitempty"`    // final search state
	Strategy    string    `json:"strategy,omitempty"` // construction heuristic that produced the seed
	Objective   int64     `json:"objective"`
	Routes      []Route   `json:"routes,omitempty"`
	Unassigned  []int     `json:"unassigned,omitempty"`
	Error       string    `json:"error,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	FinishedAt  time.Time `json:"finishedAt,omitempty"`
}

// Done reports whether the run has reached a final status.
func (r Run) Done() bool { return r.Status != StatusRunning }

// Route is one vehicle's path in a stored run.
type Route struct {
	Vehicle int                `json:"vehicle"`
	Nodes   []int              `json:"nodes"`
	ArcCost int64              `json:"arcCost"`
	Spans   map[string]int64   `json:"spans,omitempty"`
	Cumuls  map[string][]Range `json:"cumuls,omitempty"`
}

// Range is a [Min, Max] cumul window.
type Range struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Metrics is the search summary kept with a run.
type Metrics struct {
	InitialObjective int64              `json:"initialObjective"`
	FinalObjective   int64              `json:"finalObjective"`
	Sweeps           int                `json:"sweeps"`
	MovesEvaluated   int64              `json:"movesEvaluated"`
	MovesApplied     map[string]int     `json:"movesApplied,omitempty"`
	Iterations       int                `json:"iterations"`
	Improvements     int                `json:"improvements"`
	RuinSelects      map[string]int     `json:"ruinSelects,omitempty"`
	FinalRuinWeights map[string]float64 `json:"finalRuinWeights,omitempty"`
	Snapshots        []WeightSnapshot   `json:"snapshots,omitempty"`
	ElapsedMs        int64              `json:"elapsedMs"`
}

// WeightSnapshot is the ruin roulette state at an iteration.
type WeightSnapshot struct {
	Iteration int                `json:"iteration"`
	Ruin      map[string]float64 `json:"ruin"`
}

// ProgressEvent is streamed to run subscribers.
type ProgressEvent struct {
	RunID     string `json:"runId"`
	Type      string `json:"type"` // improved | done
	State     string `json:"state,omitempty"`
	Objective int64  `json:"objective"`
	Operator  string `json:"operator,omitempty"`
	Sweeps    int    `json:"sweeps,omitempty"`
	Iteration int    `json:"iteration,omitempty"`
	ElapsedMs int64  `json:"elapsedMs"`
	Status    string `json:"status,omitempty"`
}
