package opt

import "time"

// Ruin operators, in roulette order.
const (
	ruinRandom = iota
	ruinRelated
)

// RuinOperators names the ruin operators in Metrics.RuinSelects order.
var RuinOperators = [2]string{"random", "related"}

// Metrics summarizes one search run.
type Metrics struct {
	Strategy         string         `json:"strategy"` // construction heuristic that produced the seed
	InitialObjective int64          `json:"initialObjective"`
	FinalObjective   int64          `json:"finalObjective"`
	Sweeps           int            `json:"sweeps"`
	MovesEvaluated   int64          `json:"movesEvaluated"`
	MovesApplied     map[string]int `json:"movesApplied"` // moves in the returned plan's history
	// ruin and recreate
	Iterations       int              `json:"iterations"`
	Improvements     int              `json:"improvements"`
	RuinSelects      [2]int           `json:"ruinSelects"` // random, related
	FinalRuinWeights [2]float64       `json:"finalRuinWeights"`
	Snapshots        []WeightSnapshot `json:"snapshots,omitempty"`
	Elapsed          time.Duration    `json:"elapsedNs"`
}

// WeightSnapshot records the ruin roulette weights at an iteration.
type WeightSnapshot struct {
	Iteration int        `json:"iteration"`
	Ruin      [2]float64 `json:"ruin"`
}

func (m *Metrics) clone() Metrics {
	c := *m
	c.MovesApplied = make(map[string]int, len(m.MovesApplied))
	for k, v := range m.MovesApplied {
		c.MovesApplied[k] = v
	}
	c.Snapshots = append([]WeightSnapshot(nil), m.Snapshots...)
	return c
}
