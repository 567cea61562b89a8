package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// Solves counts finished solves by outcome: solved, no_solution, error.
	Solves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fleetopt_solves_total", Help: "Finished solves by status."},
		[]string{"status"},
	)
	// SolveDuration tracks wall time per solve, construction included.
	SolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "fleetopt_solve_duration_seconds", Help: "Solve wall time in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 20, 60}},
	)
	// SearchMoves counts local search moves applied by operator
	SearchMoves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fleetopt_search_moves_total", Help: "Local search moves applied by operator."},
		[]string{"operator"},
	)
	// Objective is the objective of the most recent solution by final search state
	Objective = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "fleetopt_objective_value", Help: "Objective of the last solution."},
		[]string{"state"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Solves)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(SearchMoves)
		Registry.MustRegister(Objective)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// ObserveSolve records one finished solve. status is "solved",
// "no_solution" or "error"; moves and state are ignored unless solved.
func ObserveSolve(status string, seconds float64, state string, objective int64, moves map[string]int) {
	Solves.WithLabelValues(status).Inc()
	SolveDuration.Observe(seconds)
	if status != "solved" {
		return
	}
	Objective.WithLabelValues(state).Set(float64(objective))
	for op, n := range moves {
		SearchMoves.WithLabelValues(op).Add(float64(n))
	}
}
