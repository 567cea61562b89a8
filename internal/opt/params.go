package opt

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// FirstSolutionStrategy selects the construction heuristic.
type FirstSolutionStrategy int

const (
	Automatic FirstSolutionStrategy = iota
	PathCheapestArc
	CheapestInsertion
	RegretInsertion
)

func (s FirstSolutionStrategy) String() string {
	switch s {
	case Automatic:
		return "AUTOMATIC"
	case PathCheapestArc:
		return "PATH_CHEAPEST_ARC"
	case CheapestInsertion:
		return "CHEAPEST_INSERTION"
	case RegretInsertion:
		return "REGRET_INSERTION"
	}
	return fmt.Sprintf("FirstSolutionStrategy(%d)", int(s))
}

// ParseFirstSolutionStrategy accepts the names printed by String, case
// insensitively. The empty string is Automatic.
func ParseFirstSolutionStrategy(s string) (FirstSolutionStrategy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "AUTOMATIC":
		return Automatic, nil
	case "PATH_CHEAPEST_ARC":
		return PathCheapestArc, nil
	case "CHEAPEST_INSERTION":
		return CheapestInsertion, nil
	case "REGRET_INSERTION":
		return RegretInsertion, nil
	}
	return Automatic, fmt.Errorf("%w: unknown first solution strategy %q", ErrInvalidParameters, s)
}

// Policy selects which improving move a sweep applies.
type Policy int

const (
	FirstImprovement Policy = iota
	BestImprovement
)

func (p Policy) String() string {
	if p == BestImprovement {
		return "best"
	}
	return "first"
}

// ParsePolicy accepts "first" or "best".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return FirstImprovement, nil
	case "best":
		return BestImprovement, nil
	}
	return FirstImprovement, fmt.Errorf("%w: unknown policy %q", ErrInvalidParameters, s)
}

// SearchParameters configures a Solve call.
type SearchParameters struct {
	FirstSolutionStrategy FirstSolutionStrategy
	// TimeLimit bounds the whole search. Zero means DefaultTimeLimit.
	TimeLimit time.Duration
	// LNSTimeLimit caps each ruin-and-recreate round.
	LNSTimeLimit time.Duration
	Policy       Policy
	// Workers bounds concurrent move evaluation. Zero means GOMAXPROCS.
	Workers int
	Seed    int64
	// MaxRuinSize is the largest number of visits removed per round; zero
	// disables ruin and recreate.
	MaxRuinSize int
	// LNSStallLimit ends the search after that many rounds without
	// improvement.
	LNSStallLimit int
	LogSearch     bool
}

const (
	DefaultTimeLimit    = 20 * time.Second
	DefaultLNSTimeLimit = 100 * time.Millisecond
)

// DefaultSearchParameters mirrors the reference configuration.
func DefaultSearchParameters() SearchParameters {
	return SearchParameters{
		FirstSolutionStrategy: Automatic,
		TimeLimit:             DefaultTimeLimit,
		LNSTimeLimit:          DefaultLNSTimeLimit,
		Policy:                FirstImprovement,
		Seed:                  1,
		MaxRuinSize:           3,
		LNSStallLimit:         100,
	}
}

func (p SearchParameters) normalize() (SearchParameters, error) {
	switch {
	case p.TimeLimit < 0:
		return p, fmt.Errorf("%w: negative time limit %s", ErrInvalidParameters, p.TimeLimit)
	case p.LNSTimeLimit < 0:
		return p, fmt.Errorf("%w: negative lns time limit %s", ErrInvalidParameters, p.LNSTimeLimit)
	case p.Workers < 0:
		return p, fmt.Errorf("%w: negative worker count %d", ErrInvalidParameters, p.Workers)
	case p.MaxRuinSize < 0 || p.LNSStallLimit < 0:
		return p, fmt.Errorf("%w: negative ruin settings", ErrInvalidParameters)
	case p.FirstSolutionStrategy < Automatic || p.FirstSolutionStrategy > RegretInsertion:
		return p, fmt.Errorf("%w: %s", ErrInvalidParameters, p.FirstSolutionStrategy)
	case p.Policy != FirstImprovement && p.Policy != BestImprovement:
		return p, fmt.Errorf("%w: unknown policy %d", ErrInvalidParameters, int(p.Policy))
	}
	if p.TimeLimit == 0 {
		p.TimeLimit = DefaultTimeLimit
	}
	if p.LNSTimeLimit == 0 {
		p.LNSTimeLimit = DefaultLNSTimeLimit
	}
	if p.Workers == 0 {
		p.Workers = runtime.GOMAXPROCS(0)
	}
	if p.FirstSolutionStrategy == Automatic {
		p.FirstSolutionStrategy = CheapestInsertion
	}
	return p, nil
}
