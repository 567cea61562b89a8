package opt

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
)

// unit is a group of visits that is inserted and removed as one: a single
// unpaired visit, or a whole pickup/delivery component in precedence order.
type unit []Index

// units groups visits into units ordered by their lowest node.
func (m *Model) units(visits []Index) []unit {
	seen := make(map[int]bool)
	var out []unit
	for _, i := range visits {
		c := m.pd.comp[i]
		if c < 0 {
			out = append(out, unit{i})
			continue
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, unit(m.pd.members[c]))
	}
	sort.SliceStable(out, func(a, b int) bool { return m.lowestNode(out[a]) < m.lowestNode(out[b]) })
	return out
}

func (m *Model) lowestNode(u unit) Node {
	lowest := m.mgr.node(u[0])
	for _, i := range u[1:] {
		if n := m.mgr.node(i); n < lowest {
			lowest = n
		}
	}
	return lowest
}

// maxThreadings caps the placements tried for components of three or more
// visits.
const maxThreadings = 1024

// placements calls fn with every candidate route obtained by inserting u into
// route for vehicle v, in ascending position order for one and two visit
// units. The slice passed to fn is scratch and must be copied to be kept; fn
// returns false to stop.
func (e *evaluator) placements(v int, route []Index, u unit, fn func(cand []Index) bool) {
	switch len(u) {
	case 1:
		for pos := 0; pos <= len(route); pos++ {
			e.cand = append(e.cand[:0], route[:pos]...)
			e.cand = append(e.cand, u[0])
			e.cand = append(e.cand, route[pos:]...)
			if !fn(e.cand) {
				return
			}
		}
	case 2:
		for i := 0; i <= len(route); i++ {
			for j := i; j <= len(route); j++ {
				e.cand = append(e.cand[:0], route[:i]...)
				e.cand = append(e.cand, u[0])
				e.cand = append(e.cand, route[i:j]...)
				e.cand = append(e.cand, u[1])
				e.cand = append(e.cand, route[j:]...)
				if !fn(e.cand) {
					return
				}
			}
		}
	default:
		e.thread(v, route, u, fn)
	}
}

// thread enumerates the order preserving placements of a larger component.
// Each member tries its slots after the previous member cheapest first, so
// the first candidate is the greedy threading and later ones backtrack from
// it. At most maxThreadings candidates are produced.
func (e *evaluator) thread(v int, route []Index, u unit, fn func(cand []Index) bool) {
	type slot struct {
		pos   int
		delta int64
	}
	work := append(make([]Index, 0, len(route)+len(u)), route...)
	left := maxThreadings
	var walk func(k, from int) bool
	walk = func(k, from int) bool {
		if k == len(u) {
			left--
			e.cand = append(e.cand[:0], work...)
			return fn(e.cand) && left > 0
		}
		x := u[k]
		slots := make([]slot, 0, len(work)-from+1)
		for pos := from; pos <= len(work); pos++ {
			slots = append(slots, slot{pos, e.insertDelta(v, work, x, pos)})
		}
		sort.SliceStable(slots, func(a, b int) bool { return slots[a].delta < slots[b].delta })
		for _, sl := range slots {
			work = slices.Insert(work, sl.pos, x)
			more := walk(k+1, sl.pos+1)
			work = slices.Delete(work, sl.pos, sl.pos+1)
			if !more {
				return false
			}
		}
		return true
	}
	walk(0, 0)
}

// insertDelta is the arc cost change of inserting x at pos of route.
func (e *evaluator) insertDelta(v int, route []Index, x Index, pos int) int64 {
	m := e.m
	prev := m.mgr.start(v)
	if pos > 0 {
		prev = route[pos-1]
	}
	next := m.mgr.end(v)
	if pos < len(route) {
		next = route[pos]
	}
	return m.ArcCost(prev, x) + m.ArcCost(x, next) - m.ArcCost(prev, next)
}

// insertion is a feasible placement of one unit.
type insertion struct {
	unit    int
	vehicle int
	delta   int64
	route   []Index
	eval    routeEval
}

// bestInsertion finds the cheapest feasible placement of u on vehicle v.
func (e *evaluator) bestInsertion(p *plan, v int, u unit) (insertion, bool) {
	return e.bestPlacement(v, p.routes[v], p.evals[v].cost, u)
}

// bestPlacement is bestInsertion against an arbitrary base route whose arc
// cost is base. Feasibility is only checked for placements that beat the
// current best.
func (e *evaluator) bestPlacement(v int, route []Index, base int64, u unit) (insertion, bool) {
	var best insertion
	found := false
	e.placements(v, route, u, func(cand []Index) bool {
		delta := e.arcCost(v, cand) - base
		if found && delta >= best.delta {
			return true
		}
		ev, ok := e.route(v, cand)
		if !ok {
			return true
		}
		best = insertion{vehicle: v, delta: delta, route: append([]Index(nil), cand...), eval: ev}
		found = true
		return true
	})
	return best, found
}

// cheapestInsertion inserts pending units one at a time, always taking the
// globally cheapest feasible (unit, vehicle, position). Ties go to the lower
// unit, then the lower vehicle, then the earlier position. It returns the
// units that could not be placed, or were still pending when ctx expired.
func (e *evaluator) cheapestInsertion(ctx context.Context, p *plan, pending []unit) []unit {
	pending = append([]unit(nil), pending...)
	for len(pending) > 0 {
		var best insertion
		found := false
		for ui, u := range pending {
			if ctx.Err() != nil {
				return pending
			}
			for v := range p.routes {
				ins, ok := e.bestInsertion(p, v, u)
				if !ok {
					continue
				}
				if !found || ins.delta < best.delta {
					ins.unit = ui
					best = ins
					found = true
				}
			}
		}
		if !found {
			return pending
		}
		p.routes[best.vehicle] = best.route
		p.evals[best.vehicle] = best.eval
		pending = append(pending[:best.unit], pending[best.unit+1:]...)
	}
	return nil
}

// pathCheapestArc extends each vehicle's route in turn with the unit whose
// first visit is the cheapest feasible arc from the route's last visit.
// Whatever is left is offered to cheapestInsertion.
func (e *evaluator) pathCheapestArc(ctx context.Context, p *plan, pending []unit) []unit {
	pending = append([]unit(nil), pending...)
	m := e.m
	for v := range p.routes {
		for len(pending) > 0 {
			if ctx.Err() != nil {
				return pending
			}
			last := m.mgr.start(v)
			if r := p.routes[v]; len(r) > 0 {
				last = r[len(r)-1]
			}
			var best insertion
			found := false
			for ui, u := range pending {
				arc := m.ArcCost(last, u[0])
				if found && arc >= best.delta {
					continue
				}
				cand := append(append([]Index(nil), p.routes[v]...), u...)
				ev, ok := e.route(v, cand)
				if !ok {
					continue
				}
				best = insertion{unit: ui, vehicle: v, delta: arc, route: cand, eval: ev}
				found = true
			}
			if !found {
				break
			}
			p.routes[v] = best.route
			p.evals[v] = best.eval
			pending = append(pending[:best.unit], pending[best.unit+1:]...)
		}
	}
	return e.cheapestInsertion(ctx, p, pending)
}

// regretInsertion places first the unit that would lose the most if its best
// vehicle were taken away: the gap between its cheapest and second cheapest
// vehicle. Units with a single feasible vehicle go first. Ties go to the
// lower unit.
func (e *evaluator) regretInsertion(ctx context.Context, p *plan, pending []unit) []unit {
	pending = append([]unit(nil), pending...)
	for len(pending) > 0 {
		var (
			pick      insertion
			pickScore int64
			found     bool
		)
		for ui, u := range pending {
			if ctx.Err() != nil {
				return pending
			}
			var best, second insertion
			options := 0
			for v := range p.routes {
				ins, ok := e.bestInsertion(p, v, u)
				if !ok {
					continue
				}
				options++
				switch {
				case options == 1 || ins.delta < best.delta:
					second, best = best, ins
				case options == 2 || ins.delta < second.delta:
					second = ins
				}
			}
			if options == 0 {
				continue
			}
			score := int64(math.MaxInt64)
			if options > 1 {
				score = second.delta - best.delta
			}
			if !found || score > pickScore {
				best.unit = ui
				pick, pickScore, found = best, score, true
			}
		}
		if !found {
			return pending
		}
		p.routes[pick.vehicle] = pick.route
		p.evals[pick.vehicle] = pick.eval
		pending = append(pending[:pick.unit], pending[pick.unit+1:]...)
	}
	return nil
}

// construct builds the seed plan with strategy, falling back to the other
// heuristics in turn when it strands visits. It returns the strategy that
// produced the plan. Unplaceable visits are reported as a *NoSolutionError
// listing the nodes the requested strategy left out. Construction stops
// between insertions once ctx expires; the visits not yet placed are then
// reported the same way, without trying the fallbacks.
func (e *evaluator) construct(ctx context.Context, strategy FirstSolutionStrategy) (*plan, FirstSolutionStrategy, error) {
	p, left, err := e.seed(ctx, strategy)
	if err != nil {
		return nil, strategy, err
	}
	if len(left) == 0 {
		return p, strategy, nil
	}
	for _, alt := range []FirstSolutionStrategy{CheapestInsertion, RegretInsertion, PathCheapestArc} {
		if ctx.Err() != nil {
			break
		}
		if alt == strategy {
			continue
		}
		if q, rest, err := e.seed(ctx, alt); err == nil && len(rest) == 0 {
			return q, alt, nil
		}
	}
	reason := "construction left visits unrouted"
	if ctx.Err() != nil {
		reason = "time limit reached during construction"
	}
	var nodes []Node
	for _, u := range left {
		for _, i := range u {
			nodes = append(nodes, e.m.mgr.node(i))
		}
	}
	sort.Slice(nodes, func(a, b int) bool { return nodes[a] < nodes[b] })
	return p, strategy, &NoSolutionError{Reason: reason, Unassigned: nodes}
}

func (e *evaluator) seed(ctx context.Context, strategy FirstSolutionStrategy) (*plan, []unit, error) {
	m := e.m
	p := newPlan(m.mgr.NumVehicles())
	if v := e.evaluateAll(p); v >= 0 {
		return nil, nil, &NoSolutionError{Reason: fmt.Sprintf("vehicle %d cannot complete an empty route", v)}
	}
	switch strategy {
	case PathCheapestArc:
		return p, e.pathCheapestArc(ctx, p, m.units(m.visits)), nil
	case RegretInsertion:
		return p, e.regretInsertion(ctx, p, m.units(m.visits)), nil
	}
	return p, e.cheapestInsertion(ctx, p, m.units(m.visits)), nil
}
