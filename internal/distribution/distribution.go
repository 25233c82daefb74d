// Package distribution holds the discrete probability machinery of the
// engine: histograms on a bounded axis, discretization of continuous
// densities, boundary-folding convolution and sample binning.
package distribution

import (
	"fmt"
	"math"
	"sort"

	"github.com/microsoft/tolstack/internal/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Distribution is a one-dimensional probability law with a density.
type Distribution interface {
	PDF(x float64) float64
	Mean() float64
	StdDev() float64
}

// Normal is a Gaussian distribution.
type Normal struct {
	dist distuv.Normal
}

// NewNormal returns N(mu, sigma²). sigma must be positive.
func NewNormal(mu, sigma float64) (Normal, error) {
	if !(sigma > 0) {
		return Normal{}, &models.ConfigError{Param: "std", Msg: fmt.Sprintf("standard deviation must be positive, got %g", sigma)}
	}
	return Normal{dist: distuv.Normal{Mu: mu, Sigma: sigma}}, nil
}

// FitNormal returns the maximum likelihood normal fit of values.
func FitNormal(values []float64) (Normal, error) {
	if len(values) < 2 {
		return Normal{}, &models.ConfigError{Param: "values", Msg: "at least two values are needed to fit a normal distribution"}
	}
	var n distuv.Normal
	n.Fit(values, nil)
	return NewNormal(n.Mu, n.Sigma)
}

func (n Normal) PDF(x float64) float64 { return n.dist.Prob(x) }
func (n Normal) Mean() float64         { return n.dist.Mu }
func (n Normal) StdDev() float64       { return n.dist.Sigma }

// Histogram is a piecewise-uniform distribution. Probs[i] is the mass of
// the half-open bin [Edges[i], Edges[i+1]); the last bin is closed.
type Histogram struct {
	Edges []float64 `json:"x"`
	Probs []float64 `json:"y"`
}

// NewHistogram validates edges and masses. Edges may also be given as bin
// centres (same length as probs); they are then widened to boundaries.
func NewHistogram(edges, probs []float64) (Histogram, error) {
	if len(probs) == 0 {
		return Histogram{}, &models.ConfigError{Param: "y", Msg: "histogram has no bins"}
	}
	switch len(edges) {
	case len(probs) + 1:
	case len(probs):
		edges = BoundariesFromCenters(edges)
	default:
		return Histogram{}, &models.ConfigError{Param: "x", Msg: "len(x) must be len(y) or len(y) + 1"}
	}
	if !sort.Float64sAreSorted(edges) {
		return Histogram{}, &models.ConfigError{Param: "x", Msg: "edges must be increasing"}
	}
	for _, p := range probs {
		if p < 0 || math.IsNaN(p) {
			return Histogram{}, &models.ConfigError{Param: "y", Msg: "masses must be non-negative"}
		}
	}
	return Histogram{Edges: append([]float64(nil), edges...), Probs: append([]float64(nil), probs...)}, nil
}

// Len returns the number of bins.
func (h Histogram) Len() int { return len(h.Probs) }

// Sum returns the total mass.
func (h Histogram) Sum() float64 { return floats.Sum(h.Probs) }

// Centers returns the bin midpoints.
func (h Histogram) Centers() []float64 {
	out := make([]float64, len(h.Probs))
	for i := range out {
		out[i] = (h.Edges[i] + h.Edges[i+1]) / 2
	}
	return out
}

// Normalize returns a copy whose masses sum to one. A zero histogram is returned unchanged.
func (h Histogram) Normalize() Histogram {
	out := Histogram{Edges: append([]float64(nil), h.Edges...), Probs: append([]float64(nil), h.Probs...)}
	if s := floats.Sum(out.Probs); s > 0 {
		floats.Scale(1/s, out.Probs)
	}
	return out
}

// PDF returns the density at x.
func (h Histogram) PDF(x float64) float64 {
	n := len(h.Probs)
	if n == 0 || x < h.Edges[0] || x > h.Edges[n] {
		return 0
	}
	s := h.Sum()
	if s == 0 {
		return 0
	}
	i := sort.SearchFloat64s(h.Edges, x)
	// SearchFloat64s returns the first edge >= x; step back unless x sits on an edge.
	if i == len(h.Edges) || h.Edges[i] != x {
		i--
	}
	if i >= n {
		i = n - 1
	}
	w := h.Edges[i+1] - h.Edges[i]
	if w <= 0 {
		return 0
	}
	return h.Probs[i] / (s * w)
}

// Mean returns the expectation of the piecewise-uniform law.
func (h Histogram) Mean() float64 {
	s := h.Sum()
	if s == 0 {
		return math.NaN()
	}
	return floats.Dot(h.Probs, h.Centers()) / s
}

// Variance returns the variance of the piecewise-uniform law,
// including the within-bin spread w²/12.
func (h Histogram) Variance() float64 {
	s := h.Sum()
	if s == 0 {
		return math.NaN()
	}
	mean := h.Mean()
	var m2 float64
	for i, c := range h.Centers() {
		w := h.Edges[i+1] - h.Edges[i]
		m2 += h.Probs[i] * (c*c + w*w/12)
	}
	return m2/s - mean*mean
}

// StdDev returns the standard deviation.
func (h Histogram) StdDev() float64 {
	v := h.Variance()
	if v < 0 {
		// rounding on near-degenerate histograms
		return 0
	}
	return math.Sqrt(v)
}

// Merge adds the masses of histograms sharing the same edges and renormalises.
func Merge(hists ...Histogram) (Histogram, error) {
	if len(hists) == 0 {
		return Histogram{}, models.Invariantf("merge histograms", "nothing to merge")
	}
	out := Histogram{
		Edges: append([]float64(nil), hists[0].Edges...),
		Probs: make([]float64, hists[0].Len()),
	}
	for i, h := range hists {
		if h.Len() != out.Len() || !floats.EqualApprox(h.Edges, out.Edges, 1e-9) {
			return Histogram{}, models.Invariantf("merge histograms", "histogram %d does not share the bin edges of histogram 0", i)
		}
		floats.Add(out.Probs, h.Probs)
	}
	return out.Normalize(), nil
}

var (
	_ Distribution = Normal{}
	_ Distribution = Histogram{}
)
