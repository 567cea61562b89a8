package opt

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SearchState is the lifecycle of a search.
type SearchState int

const (
	Seeded SearchState = iota
	Improving
	Converged
	TimedOut
)

func (s SearchState) String() string {
	switch s {
	case Seeded:
		return "seeded"
	case Improving:
		return "improving"
	case Converged:
		return "converged"
	case TimedOut:
		return "timed_out"
	}
	return "unknown"
}

// MarshalText renders the state by name.
func (s SearchState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type operator int

const (
	opRelocate operator = iota
	opExchange
	opTwoOpt
	opCross
	opPairRelocate
	numOperators
)

var operatorNames = [numOperators]string{"relocate", "exchange", "two_opt", "cross", "pair_relocate"}

func (o operator) String() string { return operatorNames[o] }

// move is a neighborhood candidate. Its fields are interpreted per operator;
// see build.
type move struct {
	op     operator
	va, vb int
	i, j   int
	la, lb int
}

type search struct {
	m        *Model
	params   SearchParameters
	log      *zap.Logger
	rng      *rand.Rand
	pool     sync.Pool
	metrics  Metrics
	evals    atomic.Int64
	start    time.Time
	progress func(Progress)
	state    SearchState
}

func newSearch(m *Model, params SearchParameters, log *zap.Logger, progress func(Progress)) *search {
	s := &search{
		m:        m,
		params:   params,
		log:      log,
		rng:      rand.New(rand.NewSource(params.Seed)),
		progress: progress,
		start:    time.Now(),
		metrics:  Metrics{MovesApplied: make(map[string]int, numOperators)},
	}
	s.pool.New = func() any { return newEvaluator(m) }
	return s
}

func (s *search) evaluator() *evaluator { return s.pool.Get().(*evaluator) }

func (s *search) report(obj int64, op string) {
	if s.progress == nil {
		return
	}
	s.progress(Progress{
		State:     s.state,
		Objective: obj,
		Operator:  op,
		Sweeps:    s.metrics.Sweeps,
		Iteration: s.metrics.Iterations,
		Elapsed:   time.Since(s.start),
	})
}

// run improves seed until the context expires or the search converges and
// returns the best plan found along with the terminal state.
func (s *search) run(ctx context.Context, seed *plan) (*plan, SearchState) {
	best := seed
	s.metrics.InitialObjective = best.total(s.m).objective
	s.state = Seeded
	s.report(s.metrics.InitialObjective, "construction")

	s.state = Improving
	if !s.descend(ctx, best, true, s.metrics.MovesApplied) {
		return best, s.finish(best, TimedOut)
	}
	s.log.Debug("local search converged",
		zap.Int64("objective", best.total(s.m).objective),
		zap.Int("sweeps", s.metrics.Sweeps))
	if s.params.MaxRuinSize == 0 || s.params.LNSStallLimit == 0 || len(s.m.visits) == 0 {
		return best, s.finish(best, Converged)
	}
	best, state := s.ruinAndRecreate(ctx, best)
	return best, s.finish(best, state)
}

func (s *search) finish(best *plan, state SearchState) SearchState {
	s.state = state
	s.metrics.FinalObjective = best.total(s.m).objective
	s.metrics.MovesEvaluated = s.evals.Load()
	s.metrics.Elapsed = time.Since(s.start)
	return state
}

// descend applies improving moves to p until no neighborhood yields one,
// counting them per operator in applied. It reports false if ctx expired
// first. Moves are applied one at a time between deadline checks, so p is
// always consistent.
func (s *search) descend(ctx context.Context, p *plan, incumbent bool, applied map[string]int) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		mv, found, err := s.sweep(ctx, p)
		if err != nil {
			return false
		}
		s.metrics.Sweeps++
		if !found {
			return true
		}
		if !s.apply(p, mv) {
			return true
		}
		applied[mv.op.String()]++
		if incumbent {
			obj := p.total(s.m).objective
			if s.params.LogSearch {
				s.log.Info("move applied", zap.Stringer("operator", mv.op), zap.Int64("objective", obj))
			}
			s.report(obj, mv.op.String())
		}
	}
}

// sweep scans the neighborhoods in operator order. Under FirstImprovement it
// stops at the first operator with an improving move and returns the lowest
// ordinal one; under BestImprovement it scans all and returns the best.
func (s *search) sweep(ctx context.Context, p *plan) (move, bool, error) {
	cur := p.total(s.m)
	var (
		best      move
		bestRank  rank
		bestFound bool
	)
	for op := operator(0); op < numOperators; op++ {
		moves := s.moves(p, op)
		if len(moves) == 0 {
			continue
		}
		k, r, err := s.scan(ctx, p, moves, cur)
		if err != nil {
			return move{}, false, err
		}
		if k < 0 {
			continue
		}
		if s.params.Policy == FirstImprovement {
			return moves[k], true, nil
		}
		if !bestFound || r.less(bestRank) {
			best, bestRank, bestFound = moves[k], r, true
		}
	}
	return best, bestFound, nil
}

type scanResult struct {
	k int
	r rank
}

// scan evaluates moves concurrently against the read-only plan p and returns
// the ordinal of the selected improving move, or -1.
func (s *search) scan(ctx context.Context, p *plan, moves []move, cur rank) (int, rank, error) {
	workers := min(s.params.Workers, len(moves))
	chunk := (len(moves) + workers - 1) / workers
	results := make([]scanResult, workers)
	first := s.params.Policy == FirstImprovement

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.params.Workers)
	for w := 0; w < workers; w++ {
		w := w // per-iteration copy; go directive predates Go 1.22 loopvar semantics
		lo, hi := w*chunk, min((w+1)*chunk, len(moves))
		results[w].k = -1
		g.Go(func() error {
			e := s.evaluator()
			defer s.pool.Put(e)
			res := scanResult{k: -1}
			var n int64
			for k := lo; k < hi; k++ {
				if k%64 == 0 {
					if err := gctx.Err(); err != nil {
						s.evals.Add(n)
						return err
					}
				}
				n++
				r, ok := e.evaluate(p, moves[k])
				if !ok || !r.less(cur) {
					continue
				}
				if res.k < 0 || r.less(res.r) {
					res = scanResult{k: k, r: r}
				}
				if first {
					break
				}
			}
			s.evals.Add(n)
			results[w] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return -1, rank{}, err
	}
	sel := scanResult{k: -1}
	for _, res := range results {
		if res.k < 0 {
			continue
		}
		if sel.k < 0 || (!first && res.r.less(sel.r)) {
			sel = res
		}
		if first {
			break
		}
	}
	return sel.k, sel.r, nil
}

// moves enumerates the candidates of one neighborhood in a fixed order.
func (s *search) moves(p *plan, op operator) []move {
	var out []move
	pd := s.m.pd
	nv := len(p.routes)
	switch op {
	case opRelocate:
		for va, ra := range p.routes {
			for i, x := range ra {
				for vb := 0; vb < nv; vb++ {
					if vb != va && pd.comp[x] >= 0 {
						continue
					}
					limit := len(p.routes[vb])
					if vb == va {
						limit = len(ra) - 1
					}
					for j := 0; j <= limit; j++ {
						if vb == va && j == i {
							continue
						}
						out = append(out, move{op: op, va: va, vb: vb, i: i, j: j})
					}
				}
			}
		}
	case opExchange:
		for va, ra := range p.routes {
			for i, x := range ra {
				for vb := va; vb < nv; vb++ {
					rb := p.routes[vb]
					j0 := 0
					if vb == va {
						j0 = i + 1
					}
					for j := j0; j < len(rb); j++ {
						if vb != va && (pd.comp[x] >= 0 || pd.comp[rb[j]] >= 0) {
							continue
						}
						out = append(out, move{op: op, va: va, vb: vb, i: i, j: j})
					}
				}
			}
		}
	case opTwoOpt:
		for va, ra := range p.routes {
			for i := 0; i < len(ra); i++ {
				for j := i + 1; j < len(ra); j++ {
					out = append(out, move{op: op, va: va, vb: va, i: i, j: j})
				}
			}
		}
	case opCross:
		for va := 0; va < nv; va++ {
			for vb := va + 1; vb < nv; vb++ {
				ra, rb := p.routes[va], p.routes[vb]
				for i := range ra {
					for j := range rb {
						for la := 1; la <= 2 && i+la <= len(ra); la++ {
							for lb := 1; lb <= 2 && j+lb <= len(rb); lb++ {
								out = append(out, move{op: op, va: va, vb: vb, i: i, j: j, la: la, lb: lb})
							}
						}
					}
				}
			}
		}
	case opPairRelocate:
		if pd.cyclic {
			return nil
		}
		for c, members := range pd.members {
			va := p.vehicleOf(members[0])
			if va < 0 {
				continue
			}
			for vb := 0; vb < nv; vb++ {
				if vb != va {
					out = append(out, move{op: op, va: va, vb: vb, i: c})
				}
			}
		}
	}
	return out
}

// build writes the routes the move would produce. rb is nil for intra-route
// moves. The returned slices alias evaluator scratch.
func (e *evaluator) build(p *plan, mv move) (ra, rb []Index, ok bool) {
	src := p.routes[mv.va]
	switch mv.op {
	case opRelocate:
		x := src[mv.i]
		e.bufA = append(e.bufA[:0], src[:mv.i]...)
		e.bufA = append(e.bufA, src[mv.i+1:]...)
		if mv.vb == mv.va {
			e.bufA = insertAt(e.bufA, mv.j, x)
			return e.bufA, nil, true
		}
		dst := p.routes[mv.vb]
		e.bufB = append(e.bufB[:0], dst...)
		e.bufB = insertAt(e.bufB, mv.j, x)
		return e.bufA, e.bufB, true
	case opExchange:
		e.bufA = append(e.bufA[:0], src...)
		if mv.vb == mv.va {
			e.bufA[mv.i], e.bufA[mv.j] = e.bufA[mv.j], e.bufA[mv.i]
			return e.bufA, nil, true
		}
		e.bufB = append(e.bufB[:0], p.routes[mv.vb]...)
		e.bufA[mv.i], e.bufB[mv.j] = e.bufB[mv.j], e.bufA[mv.i]
		return e.bufA, e.bufB, true
	case opTwoOpt:
		e.bufA = append(e.bufA[:0], src...)
		for a, b := mv.i, mv.j; a < b; a, b = a+1, b-1 {
			e.bufA[a], e.bufA[b] = e.bufA[b], e.bufA[a]
		}
		return e.bufA, nil, true
	case opCross:
		dst := p.routes[mv.vb]
		e.bufA = append(e.bufA[:0], src[:mv.i]...)
		e.bufA = append(e.bufA, dst[mv.j:mv.j+mv.lb]...)
		e.bufA = append(e.bufA, src[mv.i+mv.la:]...)
		e.bufB = append(e.bufB[:0], dst[:mv.j]...)
		e.bufB = append(e.bufB, src[mv.i:mv.i+mv.la]...)
		e.bufB = append(e.bufB, dst[mv.j+mv.lb:]...)
		return e.bufA, e.bufB, true
	case opPairRelocate:
		u := unit(e.m.pd.members[mv.i])
		e.bufA = e.bufA[:0]
		for _, x := range src {
			if e.m.pd.comp[x] != mv.i {
				e.bufA = append(e.bufA, x)
			}
		}
		ins, found := e.bestPlacement(mv.vb, p.routes[mv.vb], p.evals[mv.vb].cost, u)
		if !found {
			return nil, nil, false
		}
		e.bufB = append(e.bufB[:0], ins.route...)
		return e.bufA, e.bufB, true
	}
	return nil, nil, false
}

func insertAt(r []Index, pos int, x Index) []Index {
	r = append(r, 0)
	copy(r[pos+1:], r[pos:])
	r[pos] = x
	return r
}

// evaluate scores the plan that mv would produce. It reports false when the
// move breaks a dimension or pairing constraint.
func (e *evaluator) evaluate(p *plan, mv move) (rank, bool) {
	ra, rb, ok := e.build(p, mv)
	if !ok {
		return rank{}, false
	}
	ea, ok := e.route(mv.va, ra)
	if !ok {
		return rank{}, false
	}
	if rb == nil {
		return p.costWith(e.m, mv.va, ea, -1, routeEval{}), true
	}
	eb, ok := e.route(mv.vb, rb)
	if !ok {
		return rank{}, false
	}
	return p.costWith(e.m, mv.va, ea, mv.vb, eb), true
}

// apply rebuilds mv and commits it to p. It reports false, leaving p
// untouched, if the move no longer builds. It is only called by the single
// search goroutine.
func (s *search) apply(p *plan, mv move) bool {
	e := s.evaluator()
	defer s.pool.Put(e)
	ra, rb, ok := e.build(p, mv)
	if !ok {
		return false
	}
	ea, ok := e.route(mv.va, ra)
	if !ok {
		return false
	}
	if rb != nil {
		eb, ok := e.route(mv.vb, rb)
		if !ok {
			return false
		}
		p.routes[mv.vb] = append([]Index(nil), rb...)
		p.evals[mv.vb] = eb
	}
	p.routes[mv.va] = append([]Index(nil), ra...)
	p.evals[mv.va] = ea
	return true
}

// ruinAndRecreate perturbs the converged incumbent: it removes a few units
// chosen by a roulette over the ruin operators, re-inserts them by cheapest
// insertion and descends again within a per-round budget. A candidate
// replaces the incumbent only when strictly better.
func (s *search) ruinAndRecreate(ctx context.Context, best *plan) (*plan, SearchState) {
	weights := [2]float64{1, 1}
	bestRank := best.total(s.m)
	stall := 0
	const snapshotEvery = 50
	defer func() { s.metrics.FinalRuinWeights = weights }()
	for {
		if ctx.Err() != nil {
			return best, TimedOut
		}
		if stall >= s.params.LNSStallLimit {
			s.log.Debug("ruin and recreate stalled", zap.Int("iterations", s.metrics.Iterations))
			return best, Converged
		}
		s.metrics.Iterations++
		op := selectOp(weights[:], s.rng)
		s.metrics.RuinSelects[op]++

		cand, ok := s.perturb(ctx, best, op)
		// Moves on a candidate count only once it replaces the incumbent.
		applied := make(map[string]int)
		if ok {
			roundCtx, cancel := context.WithTimeout(ctx, s.params.LNSTimeLimit)
			s.descend(roundCtx, cand, false, applied)
			cancel()
		}
		if ok && cand.total(s.m).less(bestRank) {
			best, bestRank = cand, cand.total(s.m)
			for name, n := range applied {
				s.metrics.MovesApplied[name] += n
			}
			weights[op] += 0.1
			s.metrics.Improvements++
			stall = 0
			if s.params.LogSearch {
				s.log.Info("ruin and recreate improved",
					zap.String("ruin", RuinOperators[op]), zap.Int64("objective", bestRank.objective))
			}
			s.report(bestRank.objective, "ruin_"+RuinOperators[op])
		} else {
			weights[op] = math.Max(0.01, weights[op]*0.999)
			stall++
		}
		if s.metrics.Iterations%snapshotEvery == 0 {
			s.metrics.Snapshots = append(s.metrics.Snapshots, WeightSnapshot{Iteration: s.metrics.Iterations, Ruin: weights})
		}
	}
}

// perturb returns a ruined and recreated copy of best, or false when the
// removal or the re-insertion is infeasible.
func (s *search) perturb(ctx context.Context, best *plan, op int) (*plan, bool) {
	k := 1 + s.rng.Intn(s.params.MaxRuinSize)
	var removed []unit
	switch op {
	case ruinRandom:
		removed = s.randomRemoval(best, k)
	case ruinRelated:
		removed = s.relatedRemoval(best, k)
	}
	if len(removed) == 0 {
		return nil, false
	}
	drop := make(map[Index]bool)
	for _, u := range removed {
		for _, i := range u {
			drop[i] = true
		}
	}
	cand := best.clone()
	for v, r := range cand.routes {
		kept := r[:0]
		for _, i := range r {
			if !drop[i] {
				kept = append(kept, i)
			}
		}
		cand.routes[v] = kept
	}
	e := s.evaluator()
	defer s.pool.Put(e)
	if e.evaluateAll(cand) >= 0 {
		return nil, false
	}
	if left := e.cheapestInsertion(ctx, cand, removed); len(left) > 0 {
		return nil, false
	}
	return cand, true
}

func (s *search) routed(p *plan) []Index {
	var all []Index
	for _, r := range p.routes {
		all = append(all, r...)
	}
	sort.Slice(all, func(a, b int) bool { return all[a] < all[b] })
	return all
}

// unitsOf expands picked visits to whole units, without duplicates.
func (s *search) unitsOf(picked []Index) []unit {
	seen := make(map[Index]bool)
	var out []unit
	for _, i := range picked {
		if seen[i] {
			continue
		}
		u := unit(s.m.pd.component(i))
		for _, j := range u {
			seen[j] = true
		}
		out = append(out, u)
	}
	return out
}

func (s *search) randomRemoval(p *plan, k int) []unit {
	all := s.routed(p)
	var picked []Index
	for n := 0; n < k && len(all) > 0; n++ {
		j := s.rng.Intn(len(all))
		picked = append(picked, all[j])
		all = append(all[:j], all[j+1:]...)
	}
	return s.unitsOf(picked)
}

// relatedRemoval picks a random seed visit and the k-1 visits closest to it
// by round-trip arc cost.
func (s *search) relatedRemoval(p *plan, k int) []unit {
	all := s.routed(p)
	if len(all) == 0 {
		return nil
	}
	seed := all[s.rng.Intn(len(all))]
	type scored struct {
		i Index
		d int64
	}
	rel := make([]scored, 0, len(all)-1)
	for _, i := range all {
		if i != seed {
			rel = append(rel, scored{i, s.m.ArcCost(seed, i) + s.m.ArcCost(i, seed)})
		}
	}
	sort.SliceStable(rel, func(a, b int) bool { return rel[a].d < rel[b].d })
	picked := []Index{seed}
	for n := 0; n < len(rel) && len(picked) < k; n++ {
		picked = append(picked, rel[n].i)
	}
	return s.unitsOf(picked)
}

func selectOp(weights []float64, rng *rand.Rand) int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return 0
	}
	r := rng.Float64() * sum
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return i
		}
	}
	return len(weights) - 1
}
