package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"fleetopt/internal/api"
	"fleetopt/internal/buildinfo"
)

func main() {
	envErr := godotenv.Load()

	log, err := newLogger(os.Getenv("LOG_LEVEL") == "debug")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	if envErr != nil {
		log.Info("no .env file found, using environment variables")
	}

	cfg := api.ConfigFromEnv()
	srv, err := api.NewServer(cfg, log)
	if err != nil {
		log.Fatal("failed to init server", zap.Error(err))
	}

	// WriteTimeout stays above the solve cap so synchronous solves can answer.
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.SolveTimeLimit + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("API listening", zap.String("addr", httpSrv.Addr), zap.String("version", buildinfo.String()))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	if err := srv.Close(); err != nil {
		log.Warn("close", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
