// Package api serves the solver over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"fleetopt/internal/model"
	"fleetopt/internal/store"
)

type Server struct {
	Store  store.Store
	Broker EventBroker

	cfg     Config
	log     *zap.Logger
	cache   *lru.Cache[string, model.Run] // fingerprint -> solved run
	limiter *rate.Limiter
	slots   *semaphore.Weighted

	// base outlives requests; async solves run under it.
	base   context.Context
	cancel context.CancelFunc
}

// NewServer creates a Server. If DATABASE_URL is unset, uses in-memory store;
// if REDIS_URL is unset, progress events stay in process.
func NewServer(cfg Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var s store.Store
	if cfg.DatabaseURL == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := sp.EnsureSchema(context.Background()); err != nil {
			_ = sp.Close()
			return nil, err
		}
		s = sp
	}

	var broker EventBroker
	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.RedisURL)
		if err != nil {
			log.Warn("redis broker unavailable, using in-process broker", zap.Error(err))
			broker = NewBroker()
		} else {
			broker = rb
		}
	} else {
		broker = NewBroker()
	}
	return newServer(cfg, log, s, broker)
}

func newServer(cfg Config, log *zap.Logger, s store.Store, b EventBroker) (*Server, error) {
	srv := &Server{Store: s, Broker: b, cfg: cfg, log: log}
	if cfg.CacheSize > 0 {
		c, err := lru.New[string, model.Run](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("solve cache: %w", err)
		}
		srv.cache = c
	}
	if cfg.RateRPS > 0 {
		srv.limiter = rate.NewLimiter(rate.Limit(cfg.RateRPS), cfg.RateBurst)
	}
	slots := cfg.MaxConcurrentSolves
	if slots <= 0 {
		slots = 1
	}
	srv.slots = semaphore.NewWeighted(slots)
	srv.base, srv.cancel = context.WithCancel(context.Background())
	return srv, nil
}

// Routes returns the instrumented mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/v1/solve", s.instrument("/v1/solve", s.limit(http.HandlerFunc(s.SolveHandler))))
	mux.Handle("/v1/runs", s.instrument("/v1/runs", http.HandlerFunc(s.RunsIndexHandler)))
	mux.Handle("/v1/runs/", s.instrument("/v1/runs/{id}", http.HandlerFunc(s.RunByIDHandler))) // includes /ws
	mux.Handle("/healthz", s.instrument("/healthz", http.HandlerFunc(s.HealthHandler)))
	mux.Handle("/readyz", s.instrument("/readyz", http.HandlerFunc(s.ReadyHandler)))
	mux.Handle("/debug/info", s.instrument("/debug/info", http.HandlerFunc(s.DebugJSON)))
	mux.Handle("/metrics", metricsHandler())
	return s.logRequests(mux)
}

// Close stops async solves and releases the store and broker.
func (s *Server) Close() error {
	s.cancel()
	var errs []error
	if c, ok := s.Broker.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	if c, ok := s.Store.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
