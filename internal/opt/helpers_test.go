package opt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var timeMatrix = Matrix{
	{0, 6, 9, 8, 7, 3, 6, 2, 3, 2, 6, 6, 4, 4, 5, 9, 7},
	{6, 0, 8, 3, 2, 6, 8, 4, 8, 8, 13, 7, 5, 8, 12, 10, 14},
	{9, 8, 0, 11, 10, 6, 3, 9, 5, 8, 4, 15, 14, 13, 9, 18, 9},
	{8, 3, 11, 0, 1, 7, 10, 6, 10, 10, 14, 6, 7, 9, 14, 6, 16},
	{7, 2, 10, 1, 0, 6, 9, 4, 8, 9, 13, 4, 6, 8, 12, 8, 14},
	{3, 6, 6, 7, 6, 0, 2, 3, 2, 2, 7, 9, 7, 7, 6, 12, 8},
	{6, 8, 3, 10, 9, 2, 0, 6, 2, 5, 4, 12, 10, 10, 6, 15, 5},
	{2, 4, 9, 6, 4, 3, 6, 0, 4, 4, 8, 5, 4, 3, 7, 8, 10},
	{3, 8, 5, 10, 8, 2, 2, 4, 0, 3, 4, 9, 8, 7, 3, 13, 6},
	{2, 8, 8, 10, 9, 2, 5, 4, 3, 0, 4, 6, 5, 4, 3, 9, 5},
	{6, 13, 4, 14, 13, 7, 4, 8, 4, 4, 0, 10, 9, 8, 4, 13, 4},
	{6, 7, 15, 6, 4, 9, 12, 5, 9, 6, 10, 0, 1, 3, 7, 3, 10},
	{4, 5, 14, 7, 6, 7, 10, 4, 8, 5, 9, 1, 0, 2, 6, 4, 8},
	{4, 8, 13, 9, 8, 7, 10, 3, 7, 4, 8, 3, 2, 0, 4, 5, 6},
	{5, 12, 9, 14, 12, 6, 6, 7, 3, 3, 4, 7, 6, 4, 0, 9, 2},
	{9, 10, 18, 6, 8, 12, 15, 8, 13, 9, 13, 3, 4, 5, 9, 0, 9},
	{7, 14, 9, 16, 14, 8, 5, 10, 6, 5, 4, 10, 8, 6, 2, 9, 0},
}

var timeWindows = [][2]int64{
	{0, 5}, {7, 12}, {10, 15}, {16, 18}, {10, 13}, {0, 5}, {5, 10}, {0, 4}, {5, 10},
	{0, 3}, {10, 16}, {10, 15}, {0, 5}, {5, 10}, {7, 8}, {10, 15}, {11, 15},
}

var distanceMatrix = Matrix{
	{0, 100, 100, 80, 100},
	{100, 0, 80, 100, 100},
	{100, 100, 0, 100, 80},
	{100, 80, 100, 0, 100},
	{100, 100, 100, 100, 0},
}

// timeWindowModel is the 17-node, 4-vehicle instance with a Time dimension.
func timeWindowModel(t *testing.T) *Model {
	t.Helper()
	mgr, err := NewIndexManager(len(timeMatrix), 4, 0)
	require.NoError(t, err)
	b := NewBuilder(mgr, timeMatrix.Transit)
	dim, err := b.AddDimension(DimensionSpec{Name: "Time", SlackMax: 30, Capacity: 30})
	require.NoError(t, err)
	for n := 1; n < len(timeWindows); n++ {
		i, err := mgr.NodeToIndex(Node(n))
		require.NoError(t, err)
		require.NoError(t, dim.CumulVar(i).SetRange(timeWindows[n][0], timeWindows[n][1]))
	}
	for v := 0; v < mgr.NumVehicles(); v++ {
		s, _ := mgr.Start(v)
		require.NoError(t, dim.CumulVar(s).SetRange(timeWindows[0][0], timeWindows[0][1]))
	}
	for v := 0; v < mgr.NumVehicles(); v++ {
		s, _ := mgr.Start(v)
		e, _ := mgr.End(v)
		require.NoError(t, b.AddVariableMinimizedByFinalizer(dim.CumulVar(s)))
		require.NoError(t, b.AddVariableMinimizedByFinalizer(dim.CumulVar(e)))
	}
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

// pickupDeliveryModel is the 5-node, 1-vehicle instance with a Distance
// dimension and the given pairs.
func pickupDeliveryModel(t *testing.T, pairs ...[2]Node) *Model {
	t.Helper()
	mgr, err := NewIndexManager(len(distanceMatrix), 1, 0)
	require.NoError(t, err)
	b := NewBuilder(mgr, distanceMatrix.Transit)
	dim, err := b.AddDimension(DimensionSpec{Name: "Distance", Capacity: 3000, FixStartToZero: true})
	require.NoError(t, err)
	require.NoError(t, dim.SetGlobalSpanCostCoefficient(100))
	for _, p := range pairs {
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

func quickParams() SearchParameters {
	p := DefaultSearchParameters()
	p.TimeLimit = 5 * time.Second
	p.LNSTimeLimit = 50 * time.Millisecond
	p.LNSStallLimit = 20
	p.Workers = 4
	return p
}

// requireInvariants checks the properties every returned assignment must
// hold: coverage, accumulation on both bounds, windows and pairing.
func requireInvariants(t *testing.T, m *Model, a *Assignment) {
	t.Helper()
	require.NoError(t, m.CheckAssignment(a))
	mgr := m.Manager()

	visits := map[Node]int{}
	for _, r := range a.Routes() {
		require.GreaterOrEqual(t, len(r.Indices), 2)
		require.True(t, mgr.IsStart(r.Indices[0]))
		require.True(t, mgr.IsEnd(r.Indices[len(r.Indices)-1]))
		for _, i := range r.Indices[1 : len(r.Indices)-1] {
			n, err := mgr.IndexToNode(i)
			require.NoError(t, err)
			visits[n]++
		}
		for _, d := range m.Dimensions() {
			for k := 0; k+1 < len(r.Indices); k++ {
				from, to := d.CumulVar(r.Indices[k]), d.CumulVar(r.Indices[k+1])
				tr := d.Transit(r.Indices[k], r.Indices[k+1])
				for _, get := range []func(Var) int64{a.Min, a.Max} {
					step := get(to) - get(from)
					require.GreaterOrEqual(t, step, tr, "%s %v -> %v", d.Name(), from, to)
					require.LessOrEqual(t, step, tr+d.SlackMax(), "%s %v -> %v", d.Name(), from, to)
				}
			}
			for _, i := range r.Indices {
				lo, hi := d.CumulVar(i).Range()
				require.GreaterOrEqual(t, a.Min(d.CumulVar(i)), lo)
				require.LessOrEqual(t, a.Max(d.CumulVar(i)), hi)
				require.LessOrEqual(t, a.Min(d.CumulVar(i)), a.Max(d.CumulVar(i)))
			}
		}
	}
	for i := 0; i < mgr.NumIndices(); i++ {
		if !mgr.IsVisit(Index(i)) {
			continue
		}
		n, _ := mgr.IndexToNode(Index(i))
		require.Equal(t, 1, visits[n], "node %d", n)
	}
	for _, p := range m.Pairs() {
		require.Equal(t, a.Value(m.VehicleVar(p.Pickup)), a.Value(m.VehicleVar(p.Delivery)))
		if d := m.precedence; d != nil {
			require.LessOrEqual(t, a.Min(d.CumulVar(p.Pickup)), a.Min(d.CumulVar(p.Delivery)))
		}
	}
}
