package opt

import (
	"context"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triangleModel has two vehicles at node 0 and unit arcs between all nodes.
// Indices: 0 start(0), 1, 2, 3 start(1), 4 end(0), 5 end(1).
func triangleModel(t *testing.T) *Model {
	t.Helper()
	mgr, err := NewIndexManager(3, 2, 0)
	require.NoError(t, err)
	m, err := NewBuilder(mgr, Matrix{{0, 1, 1}, {1, 0, 1}, {1, 1, 0}}.Transit).Build()
	require.NoError(t, err)
	return m
}

func TestCheapestInsertionTieBreaks(t *testing.T) {
	m := triangleModel(t)
	p, used, err := newEvaluator(m).construct(context.Background(), CheapestInsertion)
	require.NoError(t, err)
	assert.Equal(t, CheapestInsertion, used)
	// node 1 goes first onto vehicle 0; node 2 then ties at both
	// positions and takes the earlier one
	assert.Equal(t, []Index{2, 1}, p.routes[0])
	assert.Empty(t, p.routes[1])
	assert.Equal(t, int64(3), p.total(m).objective)
}

func TestPathCheapestArcExtendsRoute(t *testing.T) {
	m := triangleModel(t)
	p, used, err := newEvaluator(m).construct(context.Background(), PathCheapestArc)
	require.NoError(t, err)
	assert.Equal(t, PathCheapestArc, used)
	assert.Equal(t, []Index{1, 2}, p.routes[0])
	assert.Empty(t, p.routes[1])
}

func TestConstructKeepsPairsTogether(t *testing.T) {
	m := pickupDeliveryModel(t, [2]Node{1, 2}, [2]Node{3, 4}, [2]Node{4, 1})
	for _, s := range []FirstSolutionStrategy{PathCheapestArc, CheapestInsertion, RegretInsertion} {
		t.Run(s.String(), func(t *testing.T) {
			e := newEvaluator(m)
			p, _, err := e.construct(context.Background(), s)
			require.NoError(t, err)
			assert.Equal(t, []Index{3, 4, 1, 2}, p.routes[0])
			assert.Equal(t, -1, e.evaluateAll(p))
		})
	}
}

func TestConstructIsDeterministic(t *testing.T) {
	m := timeWindowModel(t)
	for _, s := range []FirstSolutionStrategy{PathCheapestArc, CheapestInsertion, RegretInsertion} {
		a, _, err := newEvaluator(m).construct(context.Background(), s)
		require.NoError(t, err)
		b, _, err := newEvaluator(m).construct(context.Background(), s)
		require.NoError(t, err)
		if diff := cmp.Diff(a.routes, b.routes); diff != "" {
			t.Fatalf("%s routes differ (-first +second):\n%s", s, diff)
		}
	}
}

func TestConstructRejectsInfeasibleEmptyRoute(t *testing.T) {
	mgr, err := NewIndexManager(3, 1, 0)
	require.NoError(t, err)
	b := NewBuilder(mgr, Matrix{{0, 1, 1}, {1, 0, 1}, {1, 1, 0}}.Transit)
	dim, err := b.AddDimension(DimensionSpec{Name: "Time", Capacity: 10, FixStartToZero: true})
	require.NoError(t, err)
	end, _ := mgr.End(0)
	require.NoError(t, dim.CumulVar(end).SetRange(5, 10))
	m, err := b.Build()
	require.NoError(t, err)

	_, _, err = newEvaluator(m).construct(context.Background(), CheapestInsertion)
	require.ErrorIs(t, err, ErrNoFeasibleSolution)
	var nse *NoSolutionError
	require.ErrorAs(t, err, &nse)
	assert.Contains(t, nse.Reason, "vehicle 0")
}

// chainModel has one vehicle, the chained pairs (1,2) and (2,3) and a lone
// visit 4 that must be reached by time 2. Node 4 is inserted first; the
// cheapest slot for each chain member then pushes 4 past its window, so only
// a placement that puts 4 between 1 and 2 is feasible.
func chainModel(t *testing.T) *Model {
	t.Helper()
	mat := Matrix{
		{0, 1, 1, 1, 1},
		{1, 0, 1, 1, 1},
		{1, 1, 0, 1, 1},
		{1, 1, 1, 0, 1},
		{1, 6, 5, 1, 0},
	}
	mgr, err := NewIndexManager(len(mat), 1, 0)
	require.NoError(t, err)
	b := NewBuilder(mgr, mat.Transit)
	dim, err := b.AddDimension(DimensionSpec{Name: "Time", SlackMax: 100, Capacity: 100, FixStartToZero: true})
	require.NoError(t, err)
	i4, err := mgr.NodeToIndex(4)
	require.NoError(t, err)
	require.NoError(t, dim.CumulVar(i4).SetRange(0, 2))
	for _, p := range [][2]Node{{1, 2}, {2, 3}} {
		pi, err := mgr.NodeToIndex(p[0])
		require.NoError(t, err)
		di, err := mgr.NodeToIndex(p[1])
		require.NoError(t, err)
		require.NoError(t, b.AddPickupAndDelivery(pi, di))
	}
	require.NoError(t, b.SetPickupDeliveryDimension(dim))
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func TestThreadStartsWithGreedyCandidate(t *testing.T) {
	m := chainModel(t)
	e := newEvaluator(m)
	var got [][]Index
	e.placements(0, []Index{4}, unit{1, 2, 3}, func(cand []Index) bool {
		got = append(got, append([]Index(nil), cand...))
		return true
	})
	// visit 4 can sit before, between or after the ordered members
	require.Len(t, got, 4)
	assert.Equal(t, []Index{1, 2, 3, 4}, got[0])
	assert.Contains(t, got, []Index{1, 4, 2, 3})
	assert.Contains(t, got, []Index{4, 1, 2, 3})
	for _, cand := range got {
		assert.Less(t, slices.Index(cand, 1), slices.Index(cand, 2), "%v", cand)
		assert.Less(t, slices.Index(cand, 2), slices.Index(cand, 3), "%v", cand)
	}

	n := 0
	e.placements(0, []Index{4}, unit{1, 2, 3}, func([]Index) bool {
		n++
		return n < 3
	})
	assert.Equal(t, 3, n)
}

func TestBestPlacementFindsNonGreedyThreading(t *testing.T) {
	m := chainModel(t)
	e := newEvaluator(m)
	base, ok := e.route(0, []Index{4})
	require.True(t, ok)
	ins, found := e.bestPlacement(0, []Index{4}, base.cost, unit{1, 2, 3})
	require.True(t, found)
	assert.Equal(t, []Index{1, 4, 2, 3}, ins.route)
	assert.Equal(t, int64(7), ins.delta)
}

func TestCheapestInsertionPlacesChainAroundWindow(t *testing.T) {
	m := chainModel(t)
	e := newEvaluator(m)
	p, left, err := e.seed(context.Background(), CheapestInsertion)
	require.NoError(t, err)
	require.Empty(t, left)
	assert.Equal(t, []Index{1, 4, 2, 3}, p.routes[0])
	assert.Equal(t, int64(9), p.total(m).objective)
}

func TestConstructStopsWhenContextExpires(t *testing.T) {
	m := timeWindowModel(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, s := range []FirstSolutionStrategy{PathCheapestArc, CheapestInsertion, RegretInsertion} {
		t.Run(s.String(), func(t *testing.T) {
			_, _, err := newEvaluator(m).construct(ctx, s)
			require.ErrorIs(t, err, ErrNoFeasibleSolution)
			var nse *NoSolutionError
			require.ErrorAs(t, err, &nse)
			assert.Contains(t, nse.Reason, "time limit")
			assert.Len(t, nse.Unassigned, len(timeMatrix)-1)
		})
	}
}
