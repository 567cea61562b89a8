package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetopt/internal/model"
)

func TestMemoryRuns(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.GetRun(ctx, "r0")
	require.ErrorIs(t, err, ErrNotFound)

	for i := 0; i < 5; i++ {
		require.NoError(t, m.SaveRun(ctx, model.Run{ID: fmt.Sprintf("r%d", i), Status: model.StatusRunning}))
	}
	// replacing keeps the original position
	require.NoError(t, m.SaveRun(ctx, model.Run{ID: "r1", Status: model.StatusSolved, Objective: 9}))
	r, err := m.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(9), r.Objective)

	page, next, err := m.ListRuns(ctx, "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"r0", "r1"}, ids(page))
	assert.Equal(t, "r1", next)

	page, next, err = m.ListRuns(ctx, next, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r3"}, ids(page))

	page, next, err = m.ListRuns(ctx, next, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"r4"}, ids(page))
	assert.Empty(t, next)
}

func TestMemoryLatestSolved(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.SaveRun(ctx, model.Run{ID: "a", Fingerprint: "f", Status: model.StatusSolved, Objective: 5}))
	require.NoError(t, m.SaveRun(ctx, model.Run{ID: "b", Fingerprint: "f", Status: model.StatusSolved, Objective: 4}))
	require.NoError(t, m.SaveRun(ctx, model.Run{ID: "c", Fingerprint: "f", Status: model.StatusNoSolution}))

	r, err := m.LatestSolved(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, "b", r.ID)

	_, err = m.LatestSolved(ctx, "g")
	require.ErrorIs(t, err, ErrNotFound)
}

func ids(runs []model.Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}
