package api

import (
	"fmt"
	"net/url"
	"strconv"

	"fleetopt/internal/problem"
)

// validateDocument applies service limits on top of problem.Validate.
func (s *Server) validateDocument(doc *problem.Document) error {
	if limit := s.cfg.MaxNodes; limit > 0 && len(doc.Matrix) > limit {
		return fmt.Errorf("matrix has %d nodes, limit is %d", len(doc.Matrix), limit)
	}
	if limit := s.cfg.MaxNodes; limit > 0 && doc.Vehicles > limit {
		return fmt.Errorf("%d vehicles exceeds limit %d", doc.Vehicles, limit)
	}
	return nil
}

// boolParam reads a boolean query parameter, falling back to def when absent.
func boolParam(q url.Values, key string, def bool) (bool, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s must be a boolean", key)
	}
	return b, nil
}

func limitParam(q url.Values) (int, error) {
	v := q.Get("limit")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("limit must be a non-negative integer")
	}
	return n, nil
}
