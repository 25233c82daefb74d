package models

import (
	"fmt"
	"sort"
)

// Row maps characteristic name to measured value for one physical part.
type Row map[string]float64

// Table is an ordered collection of part measurements. Row order is the
// physical order of the parts and is significant for FIFO assembly.
type Table []Row

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Columns returns the sorted union of column names across all rows.
func (t Table) Columns() []string {
	seen := make(map[string]struct{})
	for _, row := range t {
		for k := range row {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Column returns the values of a single column. Missing cells are reported as an error.
func (t Table) Column(name string) ([]float64, error) {
	out := make([]float64, len(t))
	for i, row := range t {
		v, ok := row[name]
		if !ok {
			return nil, fmt.Errorf("row %d has no column %q", i, name)
		}
		out[i] = v
	}
	return out, nil
}

// Reorder returns a new table whose i-th row is t[idx[i]].
func (t Table) Reorder(idx []int) Table {
	out := make(Table, len(idx))
	for i, j := range idx {
		out[i] = t[j]
	}
	return out
}

// Merge combines two tables of equal length row by row. Columns present in
// both keep the value from other.
func (t Table) Merge(other Table) (Table, error) {
	if len(t) != len(other) {
		return nil, fmt.Errorf("cannot merge tables of %d and %d rows", len(t), len(other))
	}
	out := make(Table, len(t))
	for i := range t {
		out[i] = MergeRows(t[i], other[i])
	}
	return out, nil
}

// MergeRows returns the column union of a and b. b wins on duplicate keys.
func MergeRows(a, b Row) Row {
	out := make(Row, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Concat appends tables in order into a new table.
func Concat(tables ...Table) Table {
	n := 0
	for _, t := range tables {
		n += len(t)
	}
	out := make(Table, 0, n)
	for _, t := range tables {
		out = append(out, t...)
	}
	return out
}

// Tolerance is the closed acceptance interval of one test point.
type Tolerance struct {
	Lower float64 `yaml:"lower" json:"lower"`
	Upper float64 `yaml:"upper" json:"upper"`
}

// Width returns Upper - Lower.
func (t Tolerance) Width() float64 {
	return t.Upper - t.Lower
}

// Contains reports whether lower <= v <= upper.
func (t Tolerance) Contains(v float64) bool {
	return t.Lower <= v && v <= t.Upper
}

// Center returns the midpoint of the interval.
func (t Tolerance) Center() float64 {
	return (t.Lower + t.Upper) / 2
}
