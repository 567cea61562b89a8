package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetopt/internal/model"
)

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	assert.Equal(t, "pdp", nullIfEmpty("pdp"))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaultLimit, clampLimit(0))
	assert.Equal(t, defaultLimit, clampLimit(-4))
	assert.Equal(t, defaultLimit, clampLimit(maxLimit+1))
	assert.Equal(t, 7, clampLimit(7))
}

func TestDecodeRunRejectsGarbage(t *testing.T) {
	_, err := decodeRun([]byte(`{"id": 3`))
	require.Error(t, err)

	r, err := decodeRun([]byte(`{"id":"r1","status":"solved","objective":420,"unassigned":[1,2]}`))
	require.NoError(t, err)
	assert.Equal(t, "r1", r.ID)
	assert.Equal(t, int64(420), r.Objective)
	assert.Equal(t, []int{1, 2}, r.Unassigned)
}

func TestPageCursorOnlyWhenMoreRows(t *testing.T) {
	runs := func(ids ...string) []model.Run {
		out := []model.Run{}
		for _, id := range ids {
			out = append(out, model.Run{ID: id})
		}
		return out
	}

	got, next := page(runs("a", "b"), 2)
	assert.Len(t, got, 2)
	assert.Empty(t, next, "a full last page has no next page")

	got, next = page(runs("a", "b", "c"), 2)
	assert.Equal(t, runs("a", "b"), got)
	assert.Equal(t, "b", next)

	got, next = page(runs(), 2)
	assert.Empty(t, got)
	assert.Empty(t, next)
}
