package opt

import "fmt"

// Range is a resolved [Min, Max] cumul interval.
type Range struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Route is one vehicle's resolved path, start and end included.
type Route struct {
	Vehicle int                `json:"vehicle"`
	Indices []Index            `json:"indices"`
	Nodes   []Node             `json:"nodes"`
	Cumuls  map[string][]Range `json:"cumuls"`
	ArcCost int64              `json:"arcCost"`
	Spans   map[string]int64   `json:"spans"`
}

// Empty reports whether the vehicle goes straight from start to end.
func (r Route) Empty() bool { return len(r.Indices) <= 2 }

// Assignment is a frozen solution. It is read-only and safe for concurrent
// use.
type Assignment struct {
	m         *Model
	next      []Index
	vehicle   []int
	cumul     [][]window // by dimension, by index
	routes    []Route
	objective int64
	state     SearchState
	metrics   Metrics
}

// newAssignment resolves p into an assignment: cumul intervals are
// propagated per route, then finalizer variables are fixed to their minimum
// in registration order.
func newAssignment(m *Model, p *plan, state SearchState, metrics Metrics) *Assignment {
	n := m.mgr.NumIndices()
	a := &Assignment{
		m:         m,
		next:      make([]Index, n),
		vehicle:   make([]int, n),
		cumul:     make([][]window, len(m.dims)),
		routes:    make([]Route, len(p.routes)),
		objective: p.total(m).objective,
		state:     state,
		metrics:   metrics,
	}
	for i := range a.next {
		a.next[i] = Index(i)
		a.vehicle[i] = -1
	}
	for di := range a.cumul {
		a.cumul[di] = make([]window, n)
		for i := range a.cumul[di] {
			d := m.dims[di]
			a.cumul[di][i] = window{d.lo[i], d.hi[i]}
		}
	}

	e := newEvaluator(m)
	for v, visits := range p.routes {
		full := append([]Index(nil), e.fullRoute(v, visits)...)
		r := Route{
			Vehicle: v,
			Indices: full,
			Nodes:   make([]Node, len(full)),
			Cumuls:  make(map[string][]Range, len(m.dims)),
			Spans:   make(map[string]int64, len(m.dims)),
		}
		pos := make(map[Index]int, len(full))
		for k, i := range full {
			r.Nodes[k] = m.mgr.node(i)
			a.vehicle[i] = v
			pos[i] = k
			if k+1 < len(full) {
				a.next[i] = full[k+1]
				r.ArcCost += m.ArcCost(i, full[k+1])
			}
		}
		for di, d := range m.dims {
			prop := make([]window, len(full))
			d.propagate(full, prop, nil)
			r.Spans[d.name] = d.minSpan(full, prop, make([]window, len(full)))
			var pins []pin
			for _, fv := range m.finalizer {
				k, on := pos[fv.index]
				if fv.kind != varCumul || fv.dim != d || !on {
					continue
				}
				pins = append(pins, pin{pos: k, w: window{prop[k].lo, prop[k].lo}})
				d.propagate(full, prop, pins)
			}
			ranges := make([]Range, len(full))
			for k, i := range full {
				a.cumul[di][i] = prop[k]
				ranges[k] = Range{Min: prop[k].lo, Max: prop[k].hi}
			}
			r.Cumuls[d.name] = ranges
		}
		a.routes[v] = r
	}
	return a
}

// Model returns the model the assignment solves.
func (a *Assignment) Model() *Model { return a.m }

// Value returns the successor index of a NextVar (an end index maps to
// itself), the vehicle of a VehicleVar, or the resolved minimum of a cumul.
func (a *Assignment) Value(v Var) int64 {
	if !a.m.mgr.validIndex(v.index) {
		return -1
	}
	switch v.kind {
	case varNext:
		return int64(a.next[v.index])
	case varVehicle:
		return int64(a.vehicle[v.index])
	case varCumul:
		return a.Min(v)
	}
	return -1
}

// Min returns the lower bound of v in the assignment.
func (a *Assignment) Min(v Var) int64 {
	if v.kind != varCumul {
		return a.Value(v)
	}
	if v.dim == nil || !a.m.mgr.validIndex(v.index) {
		return 0
	}
	return a.cumul[v.dim.pos][v.index].lo
}

// Max returns the upper bound of v in the assignment.
func (a *Assignment) Max(v Var) int64 {
	if v.kind != varCumul {
		return a.Value(v)
	}
	if v.dim == nil || !a.m.mgr.validIndex(v.index) {
		return 0
	}
	return a.cumul[v.dim.pos][v.index].hi
}

// Routes returns every vehicle's route, unused vehicles included.
func (a *Assignment) Routes() []Route { return append([]Route(nil), a.routes...) }

// Route returns vehicle v's route.
func (a *Assignment) Route(v int) (Route, error) {
	if v < 0 || v >= len(a.routes) {
		return Route{}, &OutOfRangeError{Kind: "vehicle", Value: v, Limit: len(a.routes)}
	}
	return a.routes[v], nil
}

// ObjectiveValue returns the total arc cost plus the weighted longest spans.
func (a *Assignment) ObjectiveValue() int64 { return a.objective }

// State returns the terminal search state.
func (a *Assignment) State() SearchState { return a.state }

// Metrics returns the search statistics.
func (a *Assignment) Metrics() Metrics { return a.metrics.clone() }

// CheckAssignment validates a against every hard constraint of the model:
// coverage, cumul bounds and accumulation, and pickup/delivery pairing.
func (m *Model) CheckAssignment(a *Assignment) error {
	if a == nil || a.m != m {
		return fmt.Errorf("%w: assignment belongs to another model", ErrInvalidAssignment)
	}
	seen := make([]int, m.mgr.NumIndices())
	position := make([]int, m.mgr.NumIndices())
	for v := 0; v < m.mgr.NumVehicles(); v++ {
		i := m.mgr.start(v)
		for k := 0; ; k++ {
			if k > m.mgr.NumIndices() {
				return fmt.Errorf("%w: vehicle %d route does not terminate", ErrInvalidAssignment, v)
			}
			seen[i]++
			position[i] = k
			if a.vehicle[i] != v {
				return fmt.Errorf("%w: index %d reports vehicle %d on route of vehicle %d", ErrInvalidAssignment, i, a.vehicle[i], v)
			}
			if m.mgr.IsEnd(i) {
				if m.mgr.EndVehicle(i) != v {
					return fmt.Errorf("%w: vehicle %d ends at the end of vehicle %d", ErrInvalidAssignment, v, m.mgr.EndVehicle(i))
				}
				break
			}
			nx := a.next[i]
			if err := m.checkArc(a, i, nx); err != nil {
				return err
			}
			i = nx
		}
	}
	for i, c := range seen {
		if c != 1 {
			return fmt.Errorf("%w: index %d (node %d) visited %d times", ErrInvalidAssignment, i, m.mgr.node(Index(i)), c)
		}
	}
	for di, d := range m.dims {
		for i := range a.cumul[di] {
			w := a.cumul[di][i]
			if w.lo > w.hi || w.lo < d.lo[i] || w.hi > d.hi[i] {
				return fmt.Errorf("%w: %s(%d) = [%d,%d] outside [%d,%d]", ErrInvalidAssignment, d.name, i, w.lo, w.hi, d.lo[i], d.hi[i])
			}
		}
	}
	for _, p := range m.pairs {
		if a.vehicle[p.Pickup] != a.vehicle[p.Delivery] {
			return fmt.Errorf("%w: pickup %d and delivery %d on vehicles %d and %d",
				ErrInvalidAssignment, p.Pickup, p.Delivery, a.vehicle[p.Pickup], a.vehicle[p.Delivery])
		}
		if position[p.Pickup] >= position[p.Delivery] {
			return fmt.Errorf("%w: delivery %d precedes pickup %d", ErrInvalidAssignment, p.Delivery, p.Pickup)
		}
		if d := m.precedence; d != nil && a.cumul[d.pos][p.Pickup].lo > a.cumul[d.pos][p.Delivery].lo {
			return fmt.Errorf("%w: %s(%d) exceeds %s(%d)", ErrInvalidAssignment, d.name, p.Pickup, d.name, p.Delivery)
		}
	}
	return nil
}

// checkArc verifies accumulation on from -> to for both resolved bounds.
func (m *Model) checkArc(a *Assignment, from, to Index) error {
	if !m.mgr.validIndex(to) || m.mgr.IsStart(to) {
		return fmt.Errorf("%w: index %d has invalid successor %d", ErrInvalidAssignment, from, to)
	}
	for di, d := range m.dims {
		t := d.Transit(from, to)
		f, g := a.cumul[di][from], a.cumul[di][to]
		for _, pair := range [][2]int64{{f.lo, g.lo}, {f.hi, g.hi}} {
			step := pair[1] - pair[0]
			if step < t || step > t+d.slackMax {
				return fmt.Errorf("%w: %s step %d -> %d is %d, want [%d,%d]",
					ErrInvalidAssignment, d.name, from, to, step, t, t+d.slackMax)
			}
		}
	}
	return nil
}
