package opt

import (
	"fmt"
	"sort"
)

// TransitFunc returns the cost or resource consumed on the arc from -> to.
// It must be pure; the engine calls it concurrently.
type TransitFunc func(from, to Node) int64

// Matrix is a dense N×N transit table.
type Matrix [][]int64

// Validate checks that m is square, non-empty and non-negative.
func (m Matrix) Validate() error {
	n := len(m)
	if n == 0 {
		return fmt.Errorf("%w: empty matrix", ErrInvalidModel)
	}
	for i, row := range m {
		if len(row) != n {
			return fmt.Errorf("%w: matrix row %d has %d columns, want %d", ErrInvalidModel, i, len(row), n)
		}
		for j, c := range row {
			if c < 0 {
				return fmt.Errorf("%w: matrix[%d][%d] = %d is negative", ErrInvalidModel, i, j, c)
			}
		}
	}
	return nil
}

// Transit implements TransitFunc over the matrix.
func (m Matrix) Transit(from, to Node) int64 { return m[from][to] }

type varKind uint8

const (
	varNext varKind = iota + 1
	varVehicle
	varCumul
)

// Var is a handle on a solver variable: the successor of an index, the
// vehicle serving it, or a dimension's cumul at it. Handles are plain values;
// bounds live in index-addressed arrays on the owning dimension.
type Var struct {
	kind  varKind
	index Index
	dim   *Dimension
}

// Index returns the route index the variable is attached to.
func (v Var) Index() Index { return v.index }

// Dimension returns the owning dimension of a cumul variable, or nil.
func (v Var) Dimension() *Dimension { return v.dim }

// SetRange narrows a cumul variable to [lo, hi].
func (v Var) SetRange(lo, hi int64) error {
	if v.kind != varCumul || v.dim == nil {
		return fmt.Errorf("%w: SetRange on %s", ErrInvalidModel, v)
	}
	return v.dim.setRange(v.index, lo, hi)
}

// Range returns the declared bounds of a cumul variable.
func (v Var) Range() (lo, hi int64) {
	if v.kind != varCumul || v.dim == nil || !v.dim.mgr.validIndex(v.index) {
		return 0, 0
	}
	return v.dim.lo[v.index], v.dim.hi[v.index]
}

func (v Var) String() string {
	switch v.kind {
	case varNext:
		return fmt.Sprintf("Next(%d)", v.index)
	case varVehicle:
		return fmt.Sprintf("Vehicle(%d)", v.index)
	case varCumul:
		return fmt.Sprintf("%s(%d)", v.dim.name, v.index)
	}
	return "Var(?)"
}

// Pair is a registered pickup and delivery.
type Pair struct {
	Pickup   Index
	Delivery Index
}

// Builder stages a routing model. It is not safe for concurrent use.
// Build freezes everything it created.
type Builder struct {
	mgr        *IndexManager
	arcCost    TransitFunc
	dims       []*Dimension
	dimByName  map[string]*Dimension
	pairs      []Pair
	precedence *Dimension
	finalizer  []Var
	built      bool
}

// NewBuilder starts a model over mgr with arcCost as the arc cost evaluator
// of every vehicle.
func NewBuilder(mgr *IndexManager, arcCost TransitFunc) *Builder {
	return &Builder{
		mgr:       mgr,
		arcCost:   arcCost,
		dimByName: map[string]*Dimension{},
	}
}

// Manager returns the index manager the builder was created with.
func (b *Builder) Manager() *IndexManager { return b.mgr }

// NextVar returns the successor variable of index.
func (b *Builder) NextVar(index Index) Var { return Var{kind: varNext, index: index} }

// VehicleVar returns the vehicle variable of index.
func (b *Builder) VehicleVar(index Index) Var { return Var{kind: varVehicle, index: index} }

// AddDimension declares a cumulative resource track.
func (b *Builder) AddDimension(spec DimensionSpec) (*Dimension, error) {
	if b.built {
		return nil, ErrModelFrozen
	}
	if spec.Name == "" {
		return nil, fmt.Errorf("%w: dimension name is empty", ErrInvalidModel)
	}
	if _, dup := b.dimByName[spec.Name]; dup {
		return nil, fmt.Errorf("%w: dimension %q already exists", ErrInvalidModel, spec.Name)
	}
	d, err := newDimension(b, spec)
	if err != nil {
		return nil, err
	}
	b.dims = append(b.dims, d)
	b.dimByName[spec.Name] = d
	return d, nil
}

// Dimension returns a declared dimension by name.
func (b *Builder) Dimension(name string) (*Dimension, bool) {
	d, ok := b.dimByName[name]
	return d, ok
}

// AddPickupAndDelivery requires pickup and delivery to ride the same vehicle
// with pickup visited first. Endpoints may be shared across pairs.
func (b *Builder) AddPickupAndDelivery(pickup, delivery Index) error {
	if b.built {
		return ErrModelFrozen
	}
	for _, i := range []Index{pickup, delivery} {
		if !b.mgr.validIndex(i) {
			return &OutOfRangeError{Kind: "index", Value: int(i), Limit: b.mgr.NumIndices()}
		}
		if !b.mgr.IsVisit(i) {
			return fmt.Errorf("%w: index %d is a vehicle start or end and cannot be paired", ErrInvalidModel, i)
		}
	}
	if pickup == delivery {
		return fmt.Errorf("%w: pickup and delivery are both index %d", ErrInvalidModel, pickup)
	}
	b.pairs = append(b.pairs, Pair{Pickup: pickup, Delivery: delivery})
	return nil
}

// SetPickupDeliveryDimension designates the dimension on which
// CumulVar(pickup) <= CumulVar(delivery) is enforced.
func (b *Builder) SetPickupDeliveryDimension(d *Dimension) error {
	if b.built {
		return ErrModelFrozen
	}
	if d == nil || d.b != b {
		return fmt.Errorf("%w: precedence dimension does not belong to this model", ErrInvalidModel)
	}
	b.precedence = d
	return nil
}

// AddVariableMinimizedByFinalizer registers v as a tie-break preference: its
// resolved value is pushed to its minimum, and among equal-cost solutions the
// one with the smaller value wins.
func (b *Builder) AddVariableMinimizedByFinalizer(v Var) error {
	if b.built {
		return ErrModelFrozen
	}
	if !b.mgr.validIndex(v.index) {
		return &OutOfRangeError{Kind: "index", Value: int(v.index), Limit: b.mgr.NumIndices()}
	}
	if v.kind == varCumul && (v.dim == nil || v.dim.b != b) {
		return fmt.Errorf("%w: %s does not belong to this model", ErrInvalidModel, v)
	}
	if v.kind == 0 {
		return fmt.Errorf("%w: zero Var", ErrInvalidModel)
	}
	b.finalizer = append(b.finalizer, v)
	return nil
}

// Build freezes the declarations into an immutable Model. A cyclic
// pickup/delivery precedence is not a build error: the model is well formed
// but has no solution, which Solve reports.
func (b *Builder) Build() (*Model, error) {
	if b.built {
		return nil, ErrModelFrozen
	}
	if b.mgr == nil {
		return nil, fmt.Errorf("%w: nil index manager", ErrInvalidModel)
	}
	if b.arcCost == nil {
		return nil, fmt.Errorf("%w: nil arc cost evaluator", ErrInvalidModel)
	}
	b.built = true

	m := &Model{
		mgr:        b.mgr,
		arcCost:    b.arcCost,
		dims:       append([]*Dimension(nil), b.dims...),
		dimByName:  make(map[string]*Dimension, len(b.dims)),
		pairs:      append([]Pair(nil), b.pairs...),
		precedence: b.precedence,
		finalizer:  append([]Var(nil), b.finalizer...),
	}
	for _, d := range m.dims {
		m.dimByName[d.name] = d
	}
	m.pd = newPairGraph(b.mgr.NumIndices(), m.pairs)
	m.finalizerAt = make([][]Var, b.mgr.NumIndices())
	for _, v := range m.finalizer {
		if v.kind == varCumul {
			m.finalizerAt[v.index] = append(m.finalizerAt[v.index], v)
		}
	}
	m.visits = make([]Index, 0, b.mgr.NumIndices())
	for i := 0; i < b.mgr.NumIndices(); i++ {
		if b.mgr.IsVisit(Index(i)) {
			m.visits = append(m.visits, Index(i))
		}
	}
	sort.Slice(m.visits, func(x, y int) bool {
		return b.mgr.node(m.visits[x]) < b.mgr.node(m.visits[y])
	})
	return m, nil
}

// Model is an immutable routing model. It is shared read-only by every
// engine component and safe for concurrent use.
type Model struct {
	mgr         *IndexManager
	arcCost     TransitFunc
	dims        []*Dimension
	dimByName   map[string]*Dimension
	pairs       []Pair
	precedence  *Dimension
	finalizer   []Var
	finalizerAt [][]Var // cumul finalizer vars by index
	pd          *pairGraph
	visits      []Index // customer indices, ascending node order
}

// Manager returns the model's index manager.
func (m *Model) Manager() *IndexManager { return m.mgr }

// Dimensions returns the declared dimensions in declaration order.
func (m *Model) Dimensions() []*Dimension { return append([]*Dimension(nil), m.dims...) }

// Dimension returns a dimension by name.
func (m *Model) Dimension(name string) (*Dimension, bool) {
	d, ok := m.dimByName[name]
	return d, ok
}

// Pairs returns the registered pickup and delivery pairs.
func (m *Model) Pairs() []Pair { return append([]Pair(nil), m.pairs...) }

// NextVar returns the successor variable of index.
func (m *Model) NextVar(index Index) Var { return Var{kind: varNext, index: index} }

// VehicleVar returns the vehicle variable of index.
func (m *Model) VehicleVar(index Index) Var { return Var{kind: varVehicle, index: index} }

// ArcCost returns the objective cost of travelling from -> to.
func (m *Model) ArcCost(from, to Index) int64 {
	return m.arcCost(m.mgr.node(from), m.mgr.node(to))
}

// HasPrecedenceCycle reports whether the pickup/delivery pairs require some
// node to precede itself, which makes every assignment infeasible.
func (m *Model) HasPrecedenceCycle() bool { return m.pd.cyclic }
