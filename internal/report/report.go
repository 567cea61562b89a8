// Package report prints assignments in the plain-text route format used by
// the command line tools.
package report

import (
	"bufio"
	"fmt"
	"io"

	"fleetopt/internal/opt"
)

// Write prints every route with the [Min, Max] cumul of dimension at each
// stop, followed by the route's end cumul and the total over all routes.
// unit labels the totals, e.g. "min".
func Write(w io.Writer, a *opt.Assignment, dimension, unit string) error {
	m := a.Model()
	dim, ok := m.Dimension(dimension)
	if !ok {
		return fmt.Errorf("report: unknown dimension %q", dimension)
	}
	bw := bufio.NewWriter(w)
	var total int64
	for _, r := range a.Routes() {
		fmt.Fprintf(bw, "Route for Vehicle %d:\n", r.Vehicle)
		last := len(r.Indices) - 1
		for k, i := range r.Indices {
			v := dim.CumulVar(i)
			fmt.Fprintf(bw, "%d %s(%d,%d)", r.Nodes[k], dim.Name(), a.Min(v), a.Max(v))
			if k < last {
				bw.WriteString(" -> ")
			}
		}
		end := a.Min(dim.CumulVar(r.Indices[last]))
		fmt.Fprintf(bw, "\n%s of the route: %d%s\n", dim.Name(), end, unit)
		total += end
	}
	fmt.Fprintf(bw, "Total %s of all routes: %d%s\n", lower(dim.Name()), total, unit)
	return bw.Flush()
}

// WriteDistance prints every route as a node sequence with its arc cost,
// followed by the total arc cost.
func WriteDistance(w io.Writer, a *opt.Assignment, unit string) error {
	bw := bufio.NewWriter(w)
	var total int64
	for _, r := range a.Routes() {
		fmt.Fprintf(bw, "Route for Vehicle %d:\n", r.Vehicle)
		for k, n := range r.Nodes {
			if k > 0 {
				bw.WriteString(" -> ")
			}
			fmt.Fprintf(bw, "%d", n)
		}
		fmt.Fprintf(bw, "\nDistance of the route: %d%s\n", r.ArcCost, unit)
		total += r.ArcCost
	}
	fmt.Fprintf(bw, "Total Distance of all routes: %d%s\n", total, unit)
	return bw.Flush()
}

func lower(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
