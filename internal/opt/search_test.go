package opt

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// twoVehiclePairModel is distanceMatrix served by two vehicles with the pair
// (1,2).
func twoVehiclePairModel(t *testing.T) *Model {
	t.Helper()
	mgr, err := NewIndexManager(len(distanceMatrix), 2, 0)
	require.NoError(t, err)
	b := NewBuilder(mgr, distanceMatrix.Transit)
	dim, err := b.AddDimension(DimensionSpec{Name: "Distance", Capacity: 3000, FixStartToZero: true})
	require.NoError(t, err)
	require.NoError(t, b.AddPickupAndDelivery(1, 2))
	require.NoError(t, b.SetPickupDeliveryDimension(dim))
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func planOf(t *testing.T, m *Model, routes ...[]Index) *plan {
	t.Helper()
	p := newPlan(len(routes))
	copy(p.routes, routes)
	require.Equal(t, -1, newEvaluator(m).evaluateAll(p))
	return p
}

func TestMovesNeverSplitPairs(t *testing.T) {
	m := twoVehiclePairModel(t)
	p := planOf(t, m, []Index{1, 2}, []Index{3, 4})
	s := newSearch(m, quickParams(), zap.NewNop(), nil)
	e := newEvaluator(m)

	for _, op := range []operator{opRelocate, opExchange} {
		for _, mv := range s.moves(p, op) {
			if mv.va == mv.vb {
				continue
			}
			x := p.routes[mv.va][mv.i]
			assert.NotContains(t, []Index{1, 2}, x, "%s %+v", op, mv)
		}
	}

	// swapping one member across vehicles splits the pair
	_, ok := e.evaluate(p, move{op: opCross, va: 0, vb: 1, i: 0, j: 0, la: 1, lb: 1})
	assert.False(t, ok)
	// moving both members together keeps it
	_, ok = e.evaluate(p, move{op: opCross, va: 0, vb: 1, i: 0, j: 0, la: 2, lb: 1})
	assert.True(t, ok)
}

func TestPairRelocateMovesWholeComponent(t *testing.T) {
	m := twoVehiclePairModel(t)
	p := planOf(t, m, []Index{1, 2, 3}, []Index{4})
	s := newSearch(m, quickParams(), zap.NewNop(), nil)

	moves := s.moves(p, opPairRelocate)
	require.Len(t, moves, 1)
	mv := moves[0]
	assert.Equal(t, 0, mv.va)
	assert.Equal(t, 1, mv.vb)

	require.True(t, s.apply(p, mv))
	assert.Equal(t, []Index{3}, p.routes[0])
	require.Len(t, p.routes[1], 3)
	assert.Less(t, indexIn(p.routes[1], 1), indexIn(p.routes[1], 2))
	assert.Equal(t, -1, newEvaluator(m).evaluateAll(p))
}

func indexIn(r []Index, x Index) int {
	for k, y := range r {
		if y == x {
			return k
		}
	}
	return -1
}

func TestMovesAppliedCountsIncumbentHistory(t *testing.T) {
	sum := func(m map[string]int) int {
		n := 0
		for _, v := range m {
			n += v
		}
		return n
	}
	t.Run("local search", func(t *testing.T) {
		m := timeWindowModel(t)
		var (
			mu    sync.Mutex
			moves int
		)
		s := NewSolver(WithProgress(func(p Progress) {
			mu.Lock()
			defer mu.Unlock()
			if p.State == Improving {
				moves++
			}
		}))
		params := quickParams()
		params.MaxRuinSize = 0
		a, err := s.Solve(context.Background(), m, params)
		require.NoError(t, err)
		assert.Equal(t, moves, sum(a.Metrics().MovesApplied))
	})
	t.Run("ruin and recreate", func(t *testing.T) {
		m := timeWindowModel(t)
		var (
			mu        sync.Mutex
			localMove int
		)
		s := NewSolver(WithProgress(func(p Progress) {
			mu.Lock()
			defer mu.Unlock()
			if p.State == Improving && p.Iteration == 0 {
				localMove++
			}
		}))
		a, err := s.Solve(context.Background(), m, quickParams())
		require.NoError(t, err)
		mt := a.Metrics()
		if mt.Improvements == 0 {
			// rejected candidates leave no trace
			assert.Equal(t, localMove, sum(mt.MovesApplied))
		} else {
			assert.GreaterOrEqual(t, sum(mt.MovesApplied), localMove)
		}
	})
}
