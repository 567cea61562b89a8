package opt

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOutOfRange reports a node, index or vehicle outside its domain.
	ErrOutOfRange = errors.New("opt: identifier out of range")
	// ErrInfeasibleRange reports an empty or contradictory cumul range.
	ErrInfeasibleRange = errors.New("opt: infeasible range")
	// ErrNoFeasibleSolution is the "no solution" result of a search.
	ErrNoFeasibleSolution = errors.New("opt: no feasible solution")
	// ErrModelFrozen is returned by builder calls made after Build.
	ErrModelFrozen = errors.New("opt: model is frozen")
	// ErrInvalidModel reports a structurally invalid model declaration.
	ErrInvalidModel = errors.New("opt: invalid model")
	// ErrInvalidParameters reports unusable search parameters.
	ErrInvalidParameters = errors.New("opt: invalid search parameters")
	// ErrInvalidAssignment is returned by CheckAssignment.
	ErrInvalidAssignment = errors.New("opt: assignment violates model")
)

// OutOfRangeError carries the offending identifier.
type OutOfRangeError struct {
	Kind  string // "node", "index" or "vehicle"
	Value int
	Limit int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("opt: %s %d out of range [0,%d)", e.Kind, e.Value, e.Limit)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

// InfeasibleRangeError describes a rejected SetRange call. Cur holds the
// bounds in force before the call.
type InfeasibleRangeError struct {
	Dimension    string
	Index        Index
	Lo, Hi       int64
	CurLo, CurHi int64
}

func (e *InfeasibleRangeError) Error() string {
	if e.Lo > e.Hi {
		return fmt.Sprintf("opt: dimension %q index %d: empty range [%d,%d]", e.Dimension, e.Index, e.Lo, e.Hi)
	}
	return fmt.Sprintf("opt: dimension %q index %d: range [%d,%d] contradicts bounds [%d,%d]",
		e.Dimension, e.Index, e.Lo, e.Hi, e.CurLo, e.CurHi)
}

func (e *InfeasibleRangeError) Unwrap() error { return ErrInfeasibleRange }

// NoSolutionError is returned when no assignment satisfies every hard
// constraint. Unassigned lists the nodes construction could not place, when
// that is the cause.
type NoSolutionError struct {
	Reason     string
	Unassigned []Node
}

func (e *NoSolutionError) Error() string {
	var b strings.Builder
	b.WriteString("opt: no feasible solution")
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if len(e.Unassigned) > 0 {
		fmt.Fprintf(&b, " (unassigned nodes %v)", e.Unassigned)
	}
	return b.String()
}

func (e *NoSolutionError) Unwrap() error { return ErrNoFeasibleSolution }
