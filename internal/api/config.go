package api

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the server configuration, read from the environment.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	// RateRPS is the sustained request rate across all clients; zero
	// disables limiting.
	RateRPS   float64
	RateBurst int

	// SolveTimeLimit caps every solve regardless of the document's own
	// limit; zero means no cap.
	SolveTimeLimit time.Duration
	CacheSize      int
	// MaxConcurrentSolves bounds solves running at once; further requests
	// wait for a slot.
	MaxConcurrentSolves int64
	MaxBodyBytes        int64
	MaxNodes            int
}

// ConfigFromEnv reads PORT, DATABASE_URL, REDIS_URL, RATE_RPS, RATE_BURST,
// SOLVE_TIME_LIMIT_MS, SOLVE_CACHE_SIZE, MAX_CONCURRENT_SOLVES,
// MAX_BODY_BYTES and MAX_NODES.
func ConfigFromEnv() Config {
	c := Config{
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:            strings.TrimSpace(os.Getenv("REDIS_URL")),
		RateRPS:             10,
		RateBurst:           20,
		SolveTimeLimit:      30 * time.Second,
		CacheSize:           128,
		MaxConcurrentSolves: 4,
		MaxBodyBytes:        4 << 20,
		MaxNodes:            2000,
	}
	if v, err := strconv.ParseFloat(os.Getenv("RATE_RPS"), 64); err == nil && v >= 0 {
		c.RateRPS = v
	}
	if v, err := strconv.Atoi(os.Getenv("RATE_BURST")); err == nil && v > 0 {
		c.RateBurst = v
	}
	if v, err := strconv.Atoi(os.Getenv("SOLVE_TIME_LIMIT_MS")); err == nil && v >= 0 {
		c.SolveTimeLimit = time.Duration(v) * time.Millisecond
	}
	if v, err := strconv.Atoi(os.Getenv("SOLVE_CACHE_SIZE")); err == nil && v >= 0 {
		c.CacheSize = v
	}
	if v, err := strconv.ParseInt(os.Getenv("MAX_CONCURRENT_SOLVES"), 10, 64); err == nil && v > 0 {
		c.MaxConcurrentSolves = v
	}
	if v, err := strconv.ParseInt(os.Getenv("MAX_BODY_BYTES"), 10, 64); err == nil && v > 0 {
		c.MaxBodyBytes = v
	}
	if v, err := strconv.Atoi(os.Getenv("MAX_NODES")); err == nil && v > 0 {
		c.MaxNodes = v
	}
	return c
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
