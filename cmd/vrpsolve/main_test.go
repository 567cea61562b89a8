package main

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSample(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"-sample", "pdp", "-time-limit", "2s"}, &out, io.Discard)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Objective: 46460\n")
	assert.Contains(t, out.String(), "0 -> 3 -> 4 -> 1 -> 2 -> 0\n")
	assert.Contains(t, out.String(), "Total Distance of all routes: 460m\n")
}

func TestRunProblemFile(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"-problem", "../../internal/problem/testdata/pdp.yaml"}, &out, io.Discard)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Objective: 42420\n")
	assert.Contains(t, out.String(), "0 -> 3 -> 1 -> 2 -> 4 -> 0\n")
}

func TestRunArguments(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, &out, io.Discard))
	assert.Equal(t, "dev\n", out.String())

	for _, args := range [][]string{
		nil,
		{"-sample", "nope"},
		{"-sample", "pdp", "-problem", "x.yaml"},
		{"-problem", "missing.yaml"},
		{"-bogus"},
	} {
		assert.Error(t, run(context.Background(), args, io.Discard, io.Discard), "%v", args)
	}
}
