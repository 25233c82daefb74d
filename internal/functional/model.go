// Package functional evaluates the linear functional model of a product
// variant: the fulfillment of every test point is the coefficient-weighted
// sum of characteristic deviations from their nominal means.
package functional

import (
	"fmt"
	"slices"

	"github.com/microsoft/tolstack/internal/config"
	"github.com/microsoft/tolstack/internal/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Model is a functional model bound to a fixed set of characteristics.
type Model struct {
	variant *config.Variant
	chars   []string
	means   []float64
	coefs   [][]float64
	weights []float64
}

// Compile binds the variant's functional model to the characteristics
// available in columns. Characteristics without a coefficient are ignored.
func Compile(v *config.Variant, columns []string) (*Model, error) {
	m := &Model{variant: v}
	for _, c := range v.Characteristics() {
		if !slices.Contains(columns, c) {
			continue
		}
		mean, err := v.Mean(c)
		if err != nil {
			return nil, err
		}
		m.chars = append(m.chars, c)
		m.means = append(m.means, mean)
		m.coefs = append(m.coefs, v.FunctionalModel[c])
	}
	if len(m.chars) == 0 {
		return nil, &models.ConfigError{
			Param: "functional_model",
			Msg:   fmt.Sprintf("no characteristic of variant %q is present in the input columns %v", v.Name, columns),
		}
	}
	m.weights = v.TestPointWeights
	if len(m.weights) == 0 {
		m.weights = nil
	}
	return m, nil
}

// Characteristics returns the characteristics the model reads.
func (m *Model) Characteristics() []string {
	return m.chars
}

// TestPoints returns the number of test points.
func (m *Model) TestPoints() int {
	return len(m.variant.TestPoints)
}

// Eval computes the fulfillment of one part for every test point.
func (m *Model) Eval(row models.Row) ([]float64, error) {
	out := make([]float64, m.TestPoints())
	for k, c := range m.chars {
		v, ok := row[c]
		if !ok {
			return nil, &models.ConfigError{Param: "input", Msg: fmt.Sprintf("part is missing characteristic %q", c)}
		}
		floats.AddScaled(out, v-m.means[k], m.coefs[k])
	}
	return out, nil
}

// Combine returns the weighted average of per-test-point fulfillments.
// Without configured weights all test points count equally.
func (m *Model) Combine(values []float64) float64 {
	return stat.Mean(values, m.weights)
}

// Fulfillment is the result of evaluating a table, stored column-major.
type Fulfillment struct {
	TestPoints []string
	Values     [][]float64
	// Weighted is the weight-averaged column; nil unless requested.
	Weighted []float64
}

// Len returns the number of evaluated parts.
func (f Fulfillment) Len() int {
	if len(f.Values) == 0 {
		return 0
	}
	return len(f.Values[0])
}

// Column returns the fulfillment of test point i for every part.
func (f Fulfillment) Column(i int) []float64 {
	return f.Values[i]
}

// Row returns the fulfillment of part r for every test point.
func (f Fulfillment) Row(r int) []float64 {
	out := make([]float64, len(f.Values))
	for i := range f.Values {
		out[i] = f.Values[i][r]
	}
	return out
}

// Columns returns the per-test-point columns followed by the weighted column, if any.
func (f Fulfillment) Columns() [][]float64 {
	if f.Weighted == nil {
		return f.Values
	}
	return append(slices.Clone(f.Values), f.Weighted)
}

// Evaluate computes the fulfillment of every part in table.
func Evaluate(table models.Table, v *config.Variant, weighted bool) (Fulfillment, error) {
	m, err := Compile(v, table.Columns())
	if err != nil {
		return Fulfillment{}, err
	}
	return m.EvaluateTable(table, weighted)
}

// EvaluateTable evaluates every part of table with a compiled model.
func (m *Model) EvaluateTable(table models.Table, weighted bool) (Fulfillment, error) {
	n := m.TestPoints()
	f := Fulfillment{
		TestPoints: m.variant.TestPoints,
		Values:     make([][]float64, n),
	}
	for i := range f.Values {
		f.Values[i] = make([]float64, len(table))
	}
	if weighted {
		f.Weighted = make([]float64, len(table))
	}
	for r, row := range table {
		vals, err := m.Eval(row)
		if err != nil {
			return Fulfillment{}, fmt.Errorf("row %d: %w", r, err)
		}
		for i, x := range vals {
			f.Values[i][r] = x
		}
		if weighted {
			f.Weighted[r] = m.Combine(vals)
		}
	}
	return f, nil
}

// EvaluateOne computes the fulfillment of a single part. When weighted is
// set the weighted average is appended as the last element.
func EvaluateOne(row models.Row, v *config.Variant, weighted bool) ([]float64, error) {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	m, err := Compile(v, cols)
	if err != nil {
		return nil, err
	}
	vals, err := m.Eval(row)
	if err != nil {
		return nil, err
	}
	if weighted {
		vals = append(vals, m.Combine(vals))
	}
	return vals, nil
}
