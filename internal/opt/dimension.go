package opt

import (
	"fmt"
	"math"
)

// DimensionSpec declares a cumulative resource track.
type DimensionSpec struct {
	Name string
	// Transit is the per-arc accumulation. Nil means the arc cost evaluator.
	Transit TransitFunc
	// SlackMax bounds the idle amount insertable after a node.
	SlackMax int64
	// Capacity bounds every cumul along any route.
	Capacity       int64
	FixStartToZero bool
}

// Dimension is a named cumulative track. Declared bounds live in the lo/hi
// arrays addressed by route index; they are only written while the owning
// builder is open.
type Dimension struct {
	b   *Builder
	mgr *IndexManager
	pos int // declaration order

	name     string
	transit  TransitFunc
	slackMax int64
	capacity int64
	fixStart bool

	lo, hi []int64

	spanCoef  int64
	spanBound []int64 // per vehicle
}

func newDimension(b *Builder, spec DimensionSpec) (*Dimension, error) {
	if spec.SlackMax < 0 {
		return nil, fmt.Errorf("%w: dimension %q: negative slack max %d", ErrInvalidModel, spec.Name, spec.SlackMax)
	}
	if spec.Capacity < 0 {
		return nil, fmt.Errorf("%w: dimension %q: negative capacity %d", ErrInvalidModel, spec.Name, spec.Capacity)
	}
	transit := spec.Transit
	if transit == nil {
		transit = b.arcCost
	}
	if transit == nil {
		return nil, fmt.Errorf("%w: dimension %q has no transit evaluator", ErrInvalidModel, spec.Name)
	}
	n := b.mgr.NumIndices()
	d := &Dimension{
		b:         b,
		mgr:       b.mgr,
		pos:       len(b.dims),
		name:      spec.Name,
		transit:   transit,
		slackMax:  spec.SlackMax,
		capacity:  spec.Capacity,
		fixStart:  spec.FixStartToZero,
		lo:        make([]int64, n),
		hi:        make([]int64, n),
		spanBound: make([]int64, b.mgr.NumVehicles()),
	}
	for i := range d.hi {
		d.hi[i] = spec.Capacity
	}
	for v := range d.spanBound {
		d.spanBound[v] = math.MaxInt64
	}
	if spec.FixStartToZero {
		for v := 0; v < b.mgr.NumVehicles(); v++ {
			d.hi[b.mgr.start(v)] = 0
		}
	}
	return d, nil
}

// Name returns the dimension name.
func (d *Dimension) Name() string { return d.name }

// SlackMax returns the per-node slack bound.
func (d *Dimension) SlackMax() int64 { return d.slackMax }

// Capacity returns the cumul upper bound.
func (d *Dimension) Capacity() int64 { return d.capacity }

// CumulVar returns the cumul variable of the dimension at index.
func (d *Dimension) CumulVar(index Index) Var {
	return Var{kind: varCumul, index: index, dim: d}
}

// Transit returns the dimension's transit between two route indices.
func (d *Dimension) Transit(from, to Index) int64 {
	return d.transit(d.mgr.node(from), d.mgr.node(to))
}

// GlobalSpanCostCoefficient returns the weight of the longest route span in
// the objective.
func (d *Dimension) GlobalSpanCostCoefficient() int64 { return d.spanCoef }

// SetGlobalSpanCostCoefficient adds coef × max(route span) to the objective.
func (d *Dimension) SetGlobalSpanCostCoefficient(coef int64) error {
	if d.b.built {
		return ErrModelFrozen
	}
	if coef < 0 {
		return fmt.Errorf("%w: dimension %q: negative span cost coefficient %d", ErrInvalidModel, d.name, coef)
	}
	d.spanCoef = coef
	return nil
}

// SetSpanUpperBoundForVehicle makes any route of vehicle v whose minimal span
// exceeds bound infeasible.
func (d *Dimension) SetSpanUpperBoundForVehicle(bound int64, v int) error {
	if d.b.built {
		return ErrModelFrozen
	}
	if v < 0 || v >= d.mgr.NumVehicles() {
		return &OutOfRangeError{Kind: "vehicle", Value: v, Limit: d.mgr.NumVehicles()}
	}
	if bound < 0 {
		return fmt.Errorf("%w: dimension %q: negative span bound %d", ErrInvalidModel, d.name, bound)
	}
	d.spanBound[v] = bound
	return nil
}

func (d *Dimension) setRange(index Index, lo, hi int64) error {
	if d.b.built {
		return ErrModelFrozen
	}
	if !d.mgr.validIndex(index) {
		return &OutOfRangeError{Kind: "index", Value: int(index), Limit: d.mgr.NumIndices()}
	}
	cur := window{d.lo[index], d.hi[index]}
	if lo > hi {
		return &InfeasibleRangeError{Dimension: d.name, Index: index, Lo: lo, Hi: hi, CurLo: cur.lo, CurHi: cur.hi}
	}
	next, ok := cur.intersect(window{lo, hi})
	if !ok {
		return &InfeasibleRangeError{Dimension: d.name, Index: index, Lo: lo, Hi: hi, CurLo: cur.lo, CurHi: cur.hi}
	}
	d.lo[index], d.hi[index] = next.lo, next.hi
	return nil
}

// window is a closed interval of cumul values.
type window struct{ lo, hi int64 }

func (w window) intersect(o window) (window, bool) {
	r := window{max(w.lo, o.lo), min(w.hi, o.hi)}
	return r, r.lo <= r.hi
}

// pin fixes route position pos to w during propagation.
type pin struct {
	pos int
	w   window
}

// propagate computes the tightest cumul interval at every position of route
// (start through end) that is consistent with the declared bounds and with
// cur(next) - cur(prev) ∈ [t, t+slackMax] on every arc. It reports false when
// some interval is empty or a transit is negative.
func (d *Dimension) propagate(route []Index, out []window, pins []pin) bool {
	k := len(route) - 1
	out[0] = window{d.lo[route[0]], d.hi[route[0]]}
	for _, p := range pins {
		if p.pos == 0 {
			var ok bool
			if out[0], ok = out[0].intersect(p.w); !ok {
				return false
			}
		}
	}
	if out[0].lo > out[0].hi {
		return false
	}
	for j := 0; j < k; j++ {
		t := d.Transit(route[j], route[j+1])
		if t < 0 {
			return false
		}
		reach := window{satAdd(out[j].lo, t), satAdd(satAdd(out[j].hi, t), d.slackMax)}
		w, ok := reach.intersect(window{d.lo[route[j+1]], d.hi[route[j+1]]})
		if !ok {
			return false
		}
		for _, p := range pins {
			if p.pos == j+1 {
				if w, ok = w.intersect(p.w); !ok {
					return false
				}
			}
		}
		out[j+1] = w
	}
	for j := k - 1; j >= 0; j-- {
		t := d.Transit(route[j], route[j+1])
		back := window{satSub(satSub(out[j+1].lo, t), d.slackMax), satSub(out[j+1].hi, t)}
		w, ok := out[j].intersect(back)
		if !ok {
			return false
		}
		out[j] = w
	}
	return true
}

// minSpan returns the earliest end of a propagated route minus the latest
// start compatible with that end. scratch must hold len(route) windows.
func (d *Dimension) minSpan(route []Index, prop, scratch []window) int64 {
	k := len(route) - 1
	end := prop[k].lo
	scratch[k] = window{end, end}
	for j := k - 1; j >= 0; j-- {
		t := d.Transit(route[j], route[j+1])
		back := window{satSub(satSub(scratch[j+1].lo, t), d.slackMax), satSub(scratch[j+1].hi, t)}
		scratch[j], _ = prop[j].intersect(back)
	}
	return end - scratch[0].hi
}

func satAdd(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	if b < 0 && a < math.MinInt64-b {
		return math.MinInt64
	}
	return a + b
}

func satSub(a, b int64) int64 {
	if b == math.MinInt64 {
		return satAdd(satAdd(a, math.MaxInt64), 1)
	}
	return satAdd(a, -b)
}
