//go:build postgres_integration

package store

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetopt/internal/model"
)

func TestPostgresRunLifecycle(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	p, err := NewPostgres(dsn)
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Ping(t.Context()))
	require.NoError(t, p.EnsureSchema(t.Context()))

	id := uuid.Must(uuid.NewV7()).String()
	fp := "it-" + id
	run := model.Run{ID: id, Fingerprint: fp, Status: model.StatusRunning, CreatedAt: time.Now().UTC()}
	require.NoError(t, p.SaveRun(t.Context(), run))
	_, err = p.LatestSolved(t.Context(), fp)
	require.ErrorIs(t, err, ErrNotFound)

	run.Status = model.StatusSolved
	run.Objective = 42
	require.NoError(t, p.SaveRun(t.Context(), run))
	got, err := p.GetRun(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Objective)
	got, err = p.LatestSolved(t.Context(), fp)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	_, err = p.GetRun(t.Context(), "missing")
	require.ErrorIs(t, err, ErrNotFound)

	// the newest run is always the last page
	var all []string
	runs, next, err := p.ListRuns(t.Context(), "", maxLimit)
	for {
		require.NoError(t, err)
		for _, r := range runs {
			all = append(all, r.ID)
		}
		if next == "" {
			break
		}
		runs, next, err = p.ListRuns(t.Context(), next, maxLimit)
	}
	require.NotEmpty(t, all)
	assert.Equal(t, id, all[len(all)-1])
	prev := ""
	if len(all) > 1 {
		prev = all[len(all)-2]
	}
	tail, next, err := p.ListRuns(t.Context(), prev, 1)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, id, tail[0].ID)
	assert.Empty(t, next)
}
