// Package problem reads routing problems from YAML or JSON documents and
// turns them into opt models.
package problem

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"fleetopt/internal/opt"
)

// ErrInvalidDocument wraps every Validate failure.
var ErrInvalidDocument = errors.New("problem: invalid document")

// Document is the on-disk form of a routing problem. YAML is the primary
// format; JSON parses through the same decoder.
type Document struct {
	Name     string    `yaml:"name,omitempty" json:"name,omitempty"`
	Matrix   [][]int64 `yaml:"matrix" json:"matrix"`
	Vehicles int       `yaml:"vehicles" json:"vehicles"`
	Depot    int       `yaml:"depot" json:"depot"`
	// Starts and Ends override Depot per vehicle when set.
	Starts []int `yaml:"starts,omitempty" json:"starts,omitempty"`
	Ends   []int `yaml:"ends,omitempty" json:"ends,omitempty"`

	Dimensions          []Dimension `yaml:"dimensions,omitempty" json:"dimensions,omitempty"`
	PickupsDeliveries   [][]int     `yaml:"pickups_deliveries,omitempty" json:"pickups_deliveries,omitempty"`
	PrecedenceDimension string      `yaml:"precedence_dimension,omitempty" json:"precedence_dimension,omitempty"`

	Search Search `yaml:"search,omitempty" json:"search,omitempty"`
}

// Dimension declares one cumulative quantity.
type Dimension struct {
	Name string `yaml:"name" json:"name"`
	// Transit defaults to the arc cost matrix.
	Transit               [][]int64 `yaml:"transit,omitempty" json:"transit,omitempty"`
	SlackMax              int64     `yaml:"slack_max" json:"slack_max"`
	Capacity              int64     `yaml:"capacity" json:"capacity"`
	FixStartToZero        bool      `yaml:"fix_start_to_zero,omitempty" json:"fix_start_to_zero,omitempty"`
	GlobalSpanCoefficient int64     `yaml:"global_span_coefficient,omitempty" json:"global_span_coefficient,omitempty"`
	SpanUpperBound        int64     `yaml:"span_upper_bound,omitempty" json:"span_upper_bound,omitempty"`
	Windows               []Window  `yaml:"windows,omitempty" json:"windows,omitempty"`
	StartWindow           []int64   `yaml:"start_window,omitempty" json:"start_window,omitempty"`
	EndWindow             []int64   `yaml:"end_window,omitempty" json:"end_window,omitempty"`
	// MinimizeStartEnd registers every start and end cumul with the
	// finalizer, vehicle by vehicle.
	MinimizeStartEnd bool `yaml:"minimize_start_end,omitempty" json:"minimize_start_end,omitempty"`
}

// Window restricts the cumul at a visit node.
type Window struct {
	Node int   `yaml:"node" json:"node"`
	Min  int64 `yaml:"min" json:"min"`
	Max  int64 `yaml:"max" json:"max"`
}

// Search holds the solver settings. Durations use time.ParseDuration syntax.
type Search struct {
	FirstSolutionStrategy string `yaml:"first_solution_strategy,omitempty" json:"first_solution_strategy,omitempty"`
	TimeLimit             string `yaml:"time_limit,omitempty" json:"time_limit,omitempty"`
	LNSTimeLimit          string `yaml:"lns_time_limit,omitempty" json:"lns_time_limit,omitempty"`
	Policy                string `yaml:"policy,omitempty" json:"policy,omitempty"`
	Workers               int    `yaml:"workers,omitempty" json:"workers,omitempty"`
	Seed                  int64  `yaml:"seed,omitempty" json:"seed,omitempty"`
	MaxRuinSize           *int   `yaml:"max_ruin_size,omitempty" json:"max_ruin_size,omitempty"`
	LNSStallLimit         *int   `yaml:"lns_stall_limit,omitempty" json:"lns_stall_limit,omitempty"`
	LogSearch             bool   `yaml:"log_search,omitempty" json:"log_search,omitempty"`
}

// Load reads and validates the document at path.
func Load(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load problem %q: %w", path, err)
	}
	doc, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("load problem %q: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a YAML or JSON document and validates it. Unknown fields are
// rejected.
func Parse(b []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidDocument)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidDocument}, args...)...)
}

// Validate checks the document without building a model.
func (d *Document) Validate() error {
	if err := opt.Matrix(d.Matrix).Validate(); err != nil {
		return invalid("matrix: %v", err)
	}
	n := len(d.Matrix)
	inRange := func(node int) bool { return node >= 0 && node < n }

	if d.Vehicles <= 0 {
		return invalid("vehicles must be positive, got %d", d.Vehicles)
	}
	if !inRange(d.Depot) {
		return invalid("depot %d outside [0,%d)", d.Depot, n)
	}
	if len(d.Starts) != len(d.Ends) {
		return invalid("%d starts for %d ends", len(d.Starts), len(d.Ends))
	}
	if len(d.Starts) > 0 && len(d.Starts) != d.Vehicles {
		return invalid("%d starts for %d vehicles", len(d.Starts), d.Vehicles)
	}
	for v := range d.Starts {
		if !inRange(d.Starts[v]) || !inRange(d.Ends[v]) {
			return invalid("vehicle %d: start %d or end %d outside [0,%d)", v, d.Starts[v], d.Ends[v], n)
		}
	}

	names := make(map[string]bool, len(d.Dimensions))
	for _, dim := range d.Dimensions {
		if dim.Name == "" {
			return invalid("dimension without a name")
		}
		if names[dim.Name] {
			return invalid("duplicate dimension %q", dim.Name)
		}
		names[dim.Name] = true
		if dim.Transit != nil {
			if err := opt.Matrix(dim.Transit).Validate(); err != nil {
				return invalid("dimension %q transit: %v", dim.Name, err)
			}
			if len(dim.Transit) != n {
				return invalid("dimension %q transit is %dx%d, want %dx%d", dim.Name, len(dim.Transit), len(dim.Transit), n, n)
			}
		}
		if dim.SlackMax < 0 || dim.Capacity < 0 || dim.GlobalSpanCoefficient < 0 || dim.SpanUpperBound < 0 {
			return invalid("dimension %q has a negative setting", dim.Name)
		}
		for _, w := range dim.Windows {
			if !inRange(w.Node) {
				return invalid("dimension %q window on node %d outside [0,%d)", dim.Name, w.Node, n)
			}
			if w.Min > w.Max {
				return invalid("dimension %q window on node %d is empty: [%d,%d]", dim.Name, w.Node, w.Min, w.Max)
			}
		}
		for label, w := range map[string][]int64{"start_window": dim.StartWindow, "end_window": dim.EndWindow} {
			if w == nil {
				continue
			}
			if len(w) != 2 || w[0] > w[1] {
				return invalid("dimension %q %s must be [min, max], got %v", dim.Name, label, w)
			}
		}
	}

	for k, p := range d.PickupsDeliveries {
		if len(p) != 2 {
			return invalid("pickup/delivery %d must be [pickup, delivery], got %v", k, p)
		}
		if !inRange(p[0]) || !inRange(p[1]) {
			return invalid("pickup/delivery %d: node outside [0,%d)", k, n)
		}
	}
	if d.PrecedenceDimension != "" && !names[d.PrecedenceDimension] {
		return invalid("precedence dimension %q is not declared", d.PrecedenceDimension)
	}

	if _, err := d.SearchParameters(); err != nil {
		return invalid("search: %v", err)
	}
	return nil
}

// Build declares the document on a fresh builder and freezes it.
func (d *Document) Build() (*opt.Model, *opt.IndexManager, error) {
	mgr, err := d.manager()
	if err != nil {
		return nil, nil, err
	}
	b := opt.NewBuilder(mgr, opt.Matrix(d.Matrix).Transit)

	for _, spec := range d.Dimensions {
		if err := d.declare(b, spec); err != nil {
			return nil, nil, err
		}
	}

	for _, p := range d.PickupsDeliveries {
		pi, err := mgr.NodeToIndex(opt.Node(p[0]))
		if err != nil {
			return nil, nil, err
		}
		di, err := mgr.NodeToIndex(opt.Node(p[1]))
		if err != nil {
			return nil, nil, err
		}
		if err := b.AddPickupAndDelivery(pi, di); err != nil {
			return nil, nil, fmt.Errorf("pair %v: %w", p, err)
		}
	}
	if d.PrecedenceDimension != "" {
		dim, ok := b.Dimension(d.PrecedenceDimension)
		if !ok {
			return nil, nil, invalid("precedence dimension %q is not declared", d.PrecedenceDimension)
		}
		if err := b.SetPickupDeliveryDimension(dim); err != nil {
			return nil, nil, err
		}
	}

	m, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	return m, mgr, nil
}

func (d *Document) manager() (*opt.IndexManager, error) {
	n := len(d.Matrix)
	if len(d.Starts) == 0 {
		return opt.NewIndexManager(n, d.Vehicles, opt.Node(d.Depot))
	}
	starts := make([]opt.Node, len(d.Starts))
	ends := make([]opt.Node, len(d.Ends))
	for v := range d.Starts {
		starts[v] = opt.Node(d.Starts[v])
		ends[v] = opt.Node(d.Ends[v])
	}
	return opt.NewIndexManagerWithEnds(n, starts, ends)
}

func (d *Document) declare(b *opt.Builder, spec Dimension) error {
	mgr := b.Manager()
	ds := opt.DimensionSpec{
		Name:           spec.Name,
		SlackMax:       spec.SlackMax,
		Capacity:       spec.Capacity,
		FixStartToZero: spec.FixStartToZero,
	}
	if spec.Transit != nil {
		ds.Transit = opt.Matrix(spec.Transit).Transit
	}
	dim, err := b.AddDimension(ds)
	if err != nil {
		return err
	}
	if err := dim.SetGlobalSpanCostCoefficient(spec.GlobalSpanCoefficient); err != nil {
		return err
	}

	for _, w := range spec.Windows {
		i, err := mgr.NodeToIndex(opt.Node(w.Node))
		if err != nil {
			return err
		}
		if !mgr.IsVisit(i) {
			return invalid("dimension %q: node %d is a vehicle start or end, use start_window or end_window", spec.Name, w.Node)
		}
		if err := dim.CumulVar(i).SetRange(w.Min, w.Max); err != nil {
			return fmt.Errorf("dimension %q node %d: %w", spec.Name, w.Node, err)
		}
	}

	for v := 0; v < mgr.NumVehicles(); v++ {
		s, _ := mgr.Start(v)
		e, _ := mgr.End(v)
		if spec.StartWindow != nil {
			if err := dim.CumulVar(s).SetRange(spec.StartWindow[0], spec.StartWindow[1]); err != nil {
				return fmt.Errorf("dimension %q vehicle %d start: %w", spec.Name, v, err)
			}
		}
		if spec.EndWindow != nil {
			if err := dim.CumulVar(e).SetRange(spec.EndWindow[0], spec.EndWindow[1]); err != nil {
				return fmt.Errorf("dimension %q vehicle %d end: %w", spec.Name, v, err)
			}
		}
		if spec.SpanUpperBound > 0 {
			if err := dim.SetSpanUpperBoundForVehicle(spec.SpanUpperBound, v); err != nil {
				return err
			}
		}
	}

	if spec.MinimizeStartEnd {
		for v := 0; v < mgr.NumVehicles(); v++ {
			s, _ := mgr.Start(v)
			e, _ := mgr.End(v)
			if err := b.AddVariableMinimizedByFinalizer(dim.CumulVar(s)); err != nil {
				return err
			}
			if err := b.AddVariableMinimizedByFinalizer(dim.CumulVar(e)); err != nil {
				return err
			}
		}
	}
	return nil
}

// SearchParameters overlays the document's search block on
// opt.DefaultSearchParameters.
func (d *Document) SearchParameters() (opt.SearchParameters, error) {
	p := opt.DefaultSearchParameters()
	s := d.Search

	var err error
	if p.FirstSolutionStrategy, err = opt.ParseFirstSolutionStrategy(s.FirstSolutionStrategy); err != nil {
		return p, err
	}
	if p.Policy, err = opt.ParsePolicy(s.Policy); err != nil {
		return p, err
	}
	if s.TimeLimit != "" {
		if p.TimeLimit, err = time.ParseDuration(s.TimeLimit); err != nil {
			return p, fmt.Errorf("time_limit: %w", err)
		}
	}
	if s.LNSTimeLimit != "" {
		if p.LNSTimeLimit, err = time.ParseDuration(s.LNSTimeLimit); err != nil {
			return p, fmt.Errorf("lns_time_limit: %w", err)
		}
	}
	if p.TimeLimit < 0 || p.LNSTimeLimit < 0 {
		return p, errors.New("time limits must not be negative")
	}
	if s.Workers < 0 {
		return p, fmt.Errorf("workers must not be negative, got %d", s.Workers)
	}
	p.Workers = s.Workers
	if s.Seed != 0 {
		p.Seed = s.Seed
	}
	if s.MaxRuinSize != nil {
		p.MaxRuinSize = *s.MaxRuinSize
	}
	if s.LNSStallLimit != nil {
		p.LNSStallLimit = *s.LNSStallLimit
	}
	if p.MaxRuinSize < 0 || p.LNSStallLimit < 0 {
		return p, errors.New("ruin settings must not be negative")
	}
	p.LogSearch = s.LogSearch
	return p, nil
}

// Fingerprint hashes everything that affects the solve. Two documents that
// differ only in Name share a fingerprint.
func (d *Document) Fingerprint() uint64 {
	c := *d
	c.Name = ""
	b, err := json.Marshal(c)
	if err != nil {
		// Document holds only plain values.
		panic(err)
	}
	return xxhash.Sum64(b)
}
