package store

import (
	"context"
	"sync"

	"fleetopt/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu    sync.Mutex
	runs  map[string]model.Run // id -> run
	order []string             // ids in insertion order
}

func NewMemory() *Memory {
	return &Memory{runs: map[string]model.Run{}}
}

func (m *Memory) SaveRun(ctx context.Context, run model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		m.order = append(m.order, run.ID)
	}
	m.runs[run.ID] = run
	return nil
}

func (m *Memory) GetRun(ctx context.Context, id string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return model.Run{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) ListRuns(ctx context.Context, cursor string, limit int) ([]model.Run, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = clampLimit(limit)
	start := 0
	if cursor != "" {
		for i, id := range m.order {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	out := []model.Run{}
	var next string
	for i := start; i < len(m.order) && len(out) < limit; i++ {
		out = append(out, m.runs[m.order[i]])
		next = m.order[i]
	}
	if len(out) < limit || start+len(out) == len(m.order) {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) LatestSolved(ctx context.Context, fingerprint string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.order) - 1; i >= 0; i-- {
		r := m.runs[m.order[i]]
		if r.Fingerprint == fingerprint && r.Status == model.StatusSolved {
			return r, nil
		}
	}
	return model.Run{}, ErrNotFound
}
