package store

import (
	"context"
	"errors"

	"fleetopt/internal/model"
)

// Store persists solve runs for the API server.
type Store interface {
	// SaveRun inserts run or replaces the stored run with the same ID.
	SaveRun(ctx context.Context, run model.Run) error
	GetRun(ctx context.Context, id string) (model.Run, error)
	// ListRuns pages through runs oldest first. The returned cursor is empty
	// on the last page.
	ListRuns(ctx context.Context, cursor string, limit int) ([]model.Run, string, error)
	// LatestSolved returns the newest solved run with the given problem
	// fingerprint.
	LatestSolved(ctx context.Context, fingerprint string) (model.Run, error)
}

var ErrNotFound = errors.New("not found")

const (
	defaultLimit = 100
	maxLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxLimit {
		return defaultLimit
	}
	return limit
}
