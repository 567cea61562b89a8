package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveSolve(t *testing.T) {
	RegisterDefault()
	RegisterDefault() // idempotent

	solved := testutil.ToFloat64(Solves.WithLabelValues("solved"))
	relocs := testutil.ToFloat64(SearchMoves.WithLabelValues("relocate"))
	ObserveSolve("solved", 0.2, "CONVERGED", 420, map[string]int{"relocate": 3, "two_opt": 1})
	assert.Equal(t, solved+1, testutil.ToFloat64(Solves.WithLabelValues("solved")))
	assert.Equal(t, relocs+3, testutil.ToFloat64(SearchMoves.WithLabelValues("relocate")))
	assert.Equal(t, float64(420), testutil.ToFloat64(Objective.WithLabelValues("CONVERGED")))

	failed := testutil.ToFloat64(Solves.WithLabelValues("no_solution"))
	ObserveSolve("no_solution", 0.1, "", 0, map[string]int{"relocate": 9})
	assert.Equal(t, failed+1, testutil.ToFloat64(Solves.WithLabelValues("no_solution")))
	assert.Equal(t, relocs+3, testutil.ToFloat64(SearchMoves.WithLabelValues("relocate")))
}
