package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"fleetopt/internal/opt"
	"fleetopt/internal/problem"
)

func solvePDP(t *testing.T) *opt.Assignment {
	t.Helper()
	doc := problem.PickupDeliverySample()
	m, _, err := doc.Build()
	require.NoError(t, err)
	p, err := doc.SearchParameters()
	require.NoError(t, err)
	p.TimeLimit = 2 * time.Second
	p.LNSTimeLimit = 20 * time.Millisecond
	p.LNSStallLimit = 5
	a, err := opt.NewSolver().Solve(context.Background(), m, p)
	require.NoError(t, err)
	return a
}

func TestWriteDistance(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDistance(&buf, solvePDP(t), "m"))
	want := strings.Join([]string{
		"Route for Vehicle 0:",
		"0 -> 3 -> 4 -> 1 -> 2 -> 0",
		"Distance of the route: 460m",
		"Total Distance of all routes: 460m",
		"",
	}, "\n")
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCumuls(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, solvePDP(t), "Distance", "m"))
	want := strings.Join([]string{
		"Route for Vehicle 0:",
		"0 Distance(0,0) -> 3 Distance(80,80) -> 4 Distance(180,180) -> 1 Distance(280,280) -> 2 Distance(360,360) -> 0 Distance(460,460)",
		"Distance of the route: 460m",
		"Total distance of all routes: 460m",
		"",
	}, "\n")
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteUnknownDimension(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, Write(&buf, solvePDP(t), "Time", "min"))
}
