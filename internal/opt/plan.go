package opt

// routeEval is the cached score of one vehicle route.
type routeEval struct {
	cost  int64   // arc cost sum
	spans []int64 // minimal span per dimension
	score int64   // finalizer tie-break
}

// plan is the mutable route state owned by the search. routes hold visit
// indices only; starts and ends are implicit.
type plan struct {
	routes [][]Index
	evals  []routeEval
}

func newPlan(vehicles int) *plan {
	return &plan{
		routes: make([][]Index, vehicles),
		evals:  make([]routeEval, vehicles),
	}
}

func (p *plan) clone() *plan {
	c := newPlan(len(p.routes))
	for v, r := range p.routes {
		c.routes[v] = append([]Index(nil), r...)
	}
	copy(c.evals, p.evals)
	return c
}

// rank is the lexicographic (objective, finalizer score) pair.
type rank struct {
	objective int64
	score     int64
}

func (c rank) less(o rank) bool {
	if c.objective != o.objective {
		return c.objective < o.objective
	}
	return c.score < o.score
}

// costWith scores the plan with up to two routes replaced. Pass va or vb = -1
// to leave them out.
func (p *plan) costWith(m *Model, va int, ea routeEval, vb int, eb routeEval) rank {
	var c rank
	for di, d := range m.dims {
		if d.spanCoef == 0 {
			continue
		}
		var longest int64
		for v := range p.evals {
			e := p.evals[v]
			switch v {
			case va:
				e = ea
			case vb:
				e = eb
			}
			if e.spans[di] > longest {
				longest = e.spans[di]
			}
		}
		c.objective += d.spanCoef * longest
	}
	for v := range p.evals {
		e := p.evals[v]
		switch v {
		case va:
			e = ea
		case vb:
			e = eb
		}
		c.objective += e.cost
		c.score += e.score
	}
	return c
}

func (p *plan) total(m *Model) rank { return p.costWith(m, -1, routeEval{}, -1, routeEval{}) }

// vehicleOf returns the vehicle routing index i, or -1.
func (p *plan) vehicleOf(i Index) int {
	for v, r := range p.routes {
		for _, j := range r {
			if j == i {
				return v
			}
		}
	}
	return -1
}

// evaluator holds per-goroutine scratch for route evaluation.
type evaluator struct {
	m       *Model
	full    []Index
	cand    []Index
	bufA    []Index
	bufB    []Index
	prop    []window
	spanBuf []window
	posOf   []int
	stamp   []uint32
	gen     uint32
}

func newEvaluator(m *Model) *evaluator {
	n := m.mgr.NumIndices()
	return &evaluator{
		m:     m,
		posOf: make([]int, n),
		stamp: make([]uint32, n),
	}
}

func (e *evaluator) fullRoute(v int, visits []Index) []Index {
	e.full = append(e.full[:0], e.m.mgr.start(v))
	e.full = append(e.full, visits...)
	e.full = append(e.full, e.m.mgr.end(v))
	if cap(e.prop) < len(e.full) {
		e.prop = make([]window, len(e.full), 2*len(e.full))
		e.spanBuf = make([]window, len(e.full), 2*len(e.full))
	}
	e.prop = e.prop[:len(e.full)]
	e.spanBuf = e.spanBuf[:len(e.full)]
	return e.full
}

// arcCost sums the arc costs of a visit sequence for vehicle v.
func (e *evaluator) arcCost(v int, visits []Index) int64 {
	m := e.m
	prev := m.mgr.start(v)
	var total int64
	for _, i := range visits {
		total += m.ArcCost(prev, i)
		prev = i
	}
	return total + m.ArcCost(prev, m.mgr.end(v))
}

// route evaluates visits as the route of vehicle v and reports whether every
// dimension and pairing constraint holds.
func (e *evaluator) route(v int, visits []Index) (routeEval, bool) {
	if !e.pairingOK(visits) {
		return routeEval{}, false
	}
	m := e.m
	full := e.fullRoute(v, visits)
	ev := routeEval{spans: make([]int64, len(m.dims))}
	for k := 0; k+1 < len(full); k++ {
		ev.cost += m.ArcCost(full[k], full[k+1])
	}
	for di, d := range m.dims {
		if !d.propagate(full, e.prop, nil) {
			return routeEval{}, false
		}
		span := d.minSpan(full, e.prop, e.spanBuf)
		if span > d.spanBound[v] {
			return routeEval{}, false
		}
		ev.spans[di] = span
		for k, i := range full {
			for _, fv := range m.finalizerAt[i] {
				if fv.dim == d {
					// lower bounds survive finalization unchanged
					ev.score += e.prop[k].lo
				}
			}
		}
	}
	return ev, true
}

// pairingOK checks that every paired index on the route has its whole
// component on the route and that every precedence holds in route order.
func (e *evaluator) pairingOK(visits []Index) bool {
	pd := e.m.pd
	if len(pd.members) == 0 {
		return true
	}
	if pd.cyclic {
		for _, i := range visits {
			if pd.comp[i] >= 0 {
				return false
			}
		}
		return true
	}
	e.gen++
	if e.gen == 0 {
		for k := range e.stamp {
			e.stamp[k] = 0
		}
		e.gen = 1
	}
	for k, i := range visits {
		e.stamp[i] = e.gen
		e.posOf[i] = k
	}
	for k, i := range visits {
		c := pd.comp[i]
		if c < 0 {
			continue
		}
		for _, j := range pd.members[c] {
			if e.stamp[j] != e.gen {
				return false
			}
		}
		for _, j := range pd.after[i] {
			if e.posOf[j] <= k {
				return false
			}
		}
	}
	return true
}

// evaluateAll fills p.evals and reports the first infeasible vehicle, or -1.
func (e *evaluator) evaluateAll(p *plan) int {
	for v, r := range p.routes {
		ev, ok := e.route(v, r)
		if !ok {
			return v
		}
		p.evals[v] = ev
	}
	return -1
}
