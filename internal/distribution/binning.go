package distribution

import (
	"fmt"
	"math"
	"sort"

	"github.com/microsoft/tolstack/internal/models"
)

// FromSamples bins values into a histogram of the boundary interval.
// Values below or above the interval, infinities included, are counted in
// the outer bins. The masses are relative frequencies. A NaN value is an
// error.
func FromSamples(values []float64, bins int, boundary models.Tolerance) (Histogram, error) {
	edges, err := Edges(boundary, bins)
	if err != nil {
		return Histogram{}, err
	}
	delta := boundary.Width() / float64(bins)
	counts := make([]float64, bins)
	n := 0
	for i, v := range values {
		var k int
		switch {
		case math.IsNaN(v):
			return Histogram{}, &models.ConfigError{Param: "values", Msg: fmt.Sprintf("sample %d is NaN", i)}
		case v < boundary.Lower:
			k = 0
		case v >= boundary.Upper:
			k = bins - 1
		default:
			k = min(int((v-boundary.Lower)/delta), bins-1)
		}
		counts[k]++
		n++
	}
	if n == 0 {
		return Histogram{}, &models.ConfigError{Param: "values", Msg: "no samples to bin"}
	}
	for i := range counts {
		counts[i] /= float64(n)
	}
	return Histogram{Edges: edges, Probs: counts}, nil
}

// EqualCountEdges returns nbin+1 edges that split values into classes of
// (approximately) equal size, interpolating between order statistics.
func EqualCountEdges(values []float64, nbin int) ([]float64, error) {
	if len(values) == 0 || nbin < 1 {
		return nil, models.Invariantf("equal count edges", "need values and at least one class (got %d values, %d classes)", len(values), nbin)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	edges := make([]float64, nbin+1)
	for i := range edges {
		x := float64(i) * float64(n) / float64(nbin)
		edges[i] = interpIndex(sorted, x)
	}
	return edges, nil
}

// interpIndex linearly interpolates ys at fractional index x, clamping at both ends.
func interpIndex(ys []float64, x float64) float64 {
	last := len(ys) - 1
	if x <= 0 {
		return ys[0]
	}
	if x >= float64(last) {
		return ys[last]
	}
	k := int(math.Floor(x))
	frac := x - float64(k)
	return ys[k] + frac*(ys[k+1]-ys[k])
}

// AxisRange widens a tolerance by one bin on each side so the outer bins of
// a bins-wide histogram collect out-of-tolerance mass.
func AxisRange(tol models.Tolerance, bins int) (models.Tolerance, error) {
	if bins <= 2 {
		return models.Tolerance{}, &models.ConfigError{Param: "bins", Msg: fmt.Sprintf("at least 3 bins are required, got %d", bins)}
	}
	bw := tol.Width() / float64(bins-2)
	return models.Tolerance{Lower: tol.Lower - bw, Upper: tol.Upper + bw}, nil
}
