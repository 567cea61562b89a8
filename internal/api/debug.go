package api

import (
	"net/http"
	"time"

	"fleetopt/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":                  s.cfg.Port,
			"RATE_RPS":              s.cfg.RateRPS,
			"RATE_BURST":            s.cfg.RateBurst,
			"SOLVE_TIME_LIMIT":      s.cfg.SolveTimeLimit.String(),
			"SOLVE_CACHE_SIZE":      s.cfg.CacheSize,
			"MAX_CONCURRENT_SOLVES": s.cfg.MaxConcurrentSolves,
			"MAX_NODES":             s.cfg.MaxNodes,
			"HAS_DATABASE_URL":      s.cfg.DatabaseURL != "",
			"HAS_REDIS_URL":         s.cfg.RedisURL != "",
		},
	})
}
