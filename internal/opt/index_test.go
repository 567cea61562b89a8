package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexManagerSharedDepot(t *testing.T) {
	mgr, err := NewIndexManager(17, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, 17, mgr.NumNodes())
	assert.Equal(t, 4, mgr.NumVehicles())
	assert.Equal(t, 17-1+2*4, mgr.NumIndices())
	assert.Equal(t, mgr.NumIndices()-4, mgr.Size())

	for n := 1; n < 17; n++ {
		i, err := mgr.NodeToIndex(Node(n))
		require.NoError(t, err)
		assert.Equal(t, Index(n), i)
		back, err := mgr.IndexToNode(i)
		require.NoError(t, err)
		assert.Equal(t, Node(n), back)
		assert.True(t, mgr.IsVisit(i))
	}

	wantStarts := []Index{0, 17, 18, 19}
	for v := 0; v < 4; v++ {
		s, err := mgr.Start(v)
		require.NoError(t, err)
		e, err := mgr.End(v)
		require.NoError(t, err)
		assert.Equal(t, wantStarts[v], s)
		assert.Equal(t, Index(20+v), e)
		assert.True(t, mgr.IsStart(s))
		assert.True(t, mgr.IsEnd(e))
		assert.Equal(t, v, mgr.StartVehicle(s))
		assert.Equal(t, v, mgr.EndVehicle(e))
		for _, i := range []Index{s, e} {
			n, err := mgr.IndexToNode(i)
			require.NoError(t, err)
			assert.Equal(t, Node(0), n)
		}
	}

	depot, err := mgr.NodeToIndex(0)
	require.NoError(t, err)
	start0, _ := mgr.Start(0)
	assert.Equal(t, start0, depot)
}

func TestIndexManagerIsIdempotent(t *testing.T) {
	mgr, err := NewIndexManager(5, 2, 0)
	require.NoError(t, err)
	for n := 0; n < 5; n++ {
		a, err := mgr.NodeToIndex(Node(n))
		require.NoError(t, err)
		b, err := mgr.NodeToIndex(Node(n))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestIndexManagerDistinctStartsAndEnds(t *testing.T) {
	// vehicle 0: 0 -> 4, vehicle 1: 1 -> 4
	mgr, err := NewIndexManagerWithEnds(5, []Node{0, 1}, []Node{4, 4})
	require.NoError(t, err)
	assert.Equal(t, 5-3+2*2, mgr.NumIndices())

	s0, _ := mgr.Start(0)
	s1, _ := mgr.Start(1)
	assert.Equal(t, Index(0), s0)
	assert.Equal(t, Index(1), s1)

	// 2 and 3 are plain visits
	for _, n := range []Node{2, 3} {
		i, err := mgr.NodeToIndex(n)
		require.NoError(t, err)
		assert.True(t, mgr.IsVisit(i))
	}
	e0, _ := mgr.End(0)
	e1, _ := mgr.End(1)
	assert.NotEqual(t, e0, e1)
	i4, err := mgr.NodeToIndex(4)
	require.NoError(t, err)
	assert.Equal(t, e0, i4)
}

func TestIndexManagerOutOfRange(t *testing.T) {
	mgr, err := NewIndexManager(4, 1, 0)
	require.NoError(t, err)

	_, err = mgr.NodeToIndex(4)
	require.ErrorIs(t, err, ErrOutOfRange)
	var oor *OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, "node", oor.Kind)
	assert.Equal(t, 4, oor.Value)

	_, err = mgr.NodeToIndex(-1)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = mgr.IndexToNode(Index(mgr.NumIndices()))
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = mgr.Start(1)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = mgr.End(-1)
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = NewIndexManager(4, 1, 9)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = NewIndexManager(4, 0, 0)
	require.ErrorIs(t, err, ErrInvalidModel)
	_, err = NewIndexManagerWithEnds(4, []Node{0}, []Node{0, 1})
	require.ErrorIs(t, err, ErrInvalidModel)
}
