// Command vrpsolve solves a routing problem document, or a built-in sample,
// and prints the routes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"fleetopt/internal/buildinfo"
	"fleetopt/internal/opt"
	"fleetopt/internal/problem"
	"fleetopt/internal/report"
)

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "vrpsolve:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("vrpsolve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		path      = fs.String("problem", "", "path to a YAML or JSON problem document")
		sample    = fs.String("sample", "", "built-in sample: timewindows or pdp")
		timeLimit = fs.Duration("time-limit", 0, "override the document's search time limit")
		debug     = fs.Bool("debug", false, "development logging and per-improvement search logs")
		version   = fs.Bool("version", false, "print the version and exit")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *version {
		fmt.Fprintln(stdout, buildinfo.String())
		return nil
	}

	doc, err := loadDocument(*path, *sample)
	if err != nil {
		return err
	}
	params, err := doc.SearchParameters()
	if err != nil {
		return err
	}
	if *timeLimit > 0 {
		params.TimeLimit = *timeLimit
	}

	log := zap.NewNop()
	if *debug {
		params.LogSearch = true
		if log, err = zap.NewDevelopment(); err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
	}

	m, _, err := doc.Build()
	if err != nil {
		return err
	}
	start := time.Now()
	a, err := opt.NewSolver(opt.WithLogger(log)).Solve(ctx, m, params)
	if errors.Is(err, opt.ErrNoFeasibleSolution) {
		log.Info("no solution", zap.Error(err))
		fmt.Fprintln(stdout, "No solution found.")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("solved",
		zap.Int64("objective", a.ObjectiveValue()),
		zap.Stringer("state", a.State()),
		zap.Duration("elapsed", time.Since(start)))

	fmt.Fprintf(stdout, "Objective: %d\n", a.ObjectiveValue())
	if _, ok := m.Dimension("Time"); ok {
		return report.Write(stdout, a, "Time", "min")
	}
	return report.WriteDistance(stdout, a, "m")
}

func loadDocument(path, sample string) (*problem.Document, error) {
	switch {
	case path != "" && sample != "":
		return nil, errors.New("-problem and -sample are exclusive")
	case path != "":
		return problem.Load(path)
	case sample != "":
		doc, ok := problem.Sample(sample)
		if !ok {
			return nil, fmt.Errorf("unknown sample %q", sample)
		}
		return doc, nil
	}
	return nil, errors.New("one of -problem or -sample is required")
}
