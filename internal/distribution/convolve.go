package distribution

import (
	"math"

	"github.com/microsoft/tolstack/internal/models"
	"gonum.org/v1/gonum/floats"
)

// positionEps snaps sum positions that land within rounding distance of a bin centre.
const positionEps = 1e-9

// Grid returns the bins centres of the boundary interval.
func Grid(boundary models.Tolerance, bins int) ([]float64, error) {
	if err := checkAxis(boundary, bins); err != nil {
		return nil, err
	}
	delta := boundary.Width() / float64(bins)
	grid := make([]float64, bins)
	for k := range grid {
		grid[k] = boundary.Lower + delta/2 + float64(k)*delta
	}
	return grid, nil
}

// Edges returns the bins+1 bin boundaries of the boundary interval.
func Edges(boundary models.Tolerance, bins int) ([]float64, error) {
	if err := checkAxis(boundary, bins); err != nil {
		return nil, err
	}
	delta := boundary.Width() / float64(bins)
	edges := make([]float64, bins+1)
	for k := range edges {
		edges[k] = boundary.Lower + float64(k)*delta
	}
	edges[bins] = boundary.Upper
	return edges, nil
}

// BoundariesFromCenters widens equally spaced bin centres to bin edges.
func BoundariesFromCenters(centers []float64) []float64 {
	if len(centers) == 0 {
		return nil
	}
	width := 1.0
	if len(centers) > 1 {
		width = centers[1] - centers[0]
	}
	out := make([]float64, len(centers)+1)
	for i, c := range centers {
		out[i] = c - width/2
	}
	out[len(centers)] = centers[len(centers)-1] + width/2
	return out
}

func checkAxis(boundary models.Tolerance, bins int) error {
	if bins < 1 {
		return models.Invariantf("grid", "bins must be positive, got %d", bins)
	}
	if !(boundary.Lower < boundary.Upper) {
		return models.Invariantf("grid", "empty boundary [%g, %g]", boundary.Lower, boundary.Upper)
	}
	return nil
}

// Discretize samples the density of d at the bin centres of boundary and
// multiplies by the cell width. Mass missing because of the truncated
// domain is split evenly onto the two outer bins; mass above one is
// normalised away.
func Discretize(d Distribution, boundary models.Tolerance, bins int) (Histogram, error) {
	grid, err := Grid(boundary, bins)
	if err != nil {
		return Histogram{}, err
	}
	edges, _ := Edges(boundary, bins)
	delta := boundary.Width() / float64(bins)

	probs := make([]float64, bins)
	for k, x := range grid {
		probs[k] = d.PDF(x) * delta
	}
	switch s := floats.Sum(probs); {
	case s < 1:
		residual := (1 - s) / 2
		probs[0] += residual
		probs[bins-1] += residual
	case s > 1:
		floats.Scale(1/s, probs)
	}
	return Histogram{Edges: edges, Probs: probs}, nil
}

// Convolve returns the distribution of the sum of independent variables,
// each discretized on the boundary grid. After every pairwise step the
// result is mapped back onto the grid; mass beyond the boundary is folded
// into the outer bins so the histogram stays proper.
func Convolve(dists []Distribution, boundary models.Tolerance, bins int) (Histogram, error) {
	if len(dists) == 0 {
		return Histogram{}, models.Invariantf("convolve", "no distributions")
	}
	hists := make([]Histogram, len(dists))
	for i, d := range dists {
		h, err := Discretize(d, boundary, bins)
		if err != nil {
			return Histogram{}, err
		}
		hists[i] = h
	}
	return ConvolveDiscrete(hists, boundary, bins)
}

// ConvolveDiscrete convolves histograms that are already discretized on
// the boundary grid.
func ConvolveDiscrete(hists []Histogram, boundary models.Tolerance, bins int) (Histogram, error) {
	if len(hists) == 0 {
		return Histogram{}, models.Invariantf("convolve", "no distributions")
	}
	edges, err := Edges(boundary, bins)
	if err != nil {
		return Histogram{}, err
	}
	for i, h := range hists {
		if h.Len() != bins {
			return Histogram{}, models.Invariantf("convolve", "distribution %d has %d bins, expected %d", i, h.Len(), bins)
		}
	}

	delta := boundary.Width() / float64(bins)
	// The centre sum g_i + g_j with i+j = m lies at grid position m + offset.
	offset := boundary.Lower/delta + 0.5

	acc := append([]float64(nil), hists[0].Probs...)
	for _, h := range hists[1:] {
		full := fullConvolution(acc, h.Probs)
		acc = make([]float64, bins)
		for m, p := range full {
			if p == 0 {
				continue
			}
			foldOnto(acc, float64(m)+offset, p)
		}
	}
	return Histogram{Edges: edges, Probs: acc}, nil
}

func fullConvolution(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		if x == 0 {
			continue
		}
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

// foldOnto deposits mass p at fractional grid position pos. Positions
// between two centres are split linearly, which keeps the first moment;
// positions outside the grid go to the nearest outer bin.
func foldOnto(dst []float64, pos, p float64) {
	last := len(dst) - 1
	if r := math.Round(pos); math.Abs(pos-r) < positionEps {
		pos = r
	}
	switch {
	case pos <= 0:
		dst[0] += p
	case pos >= float64(last):
		dst[last] += p
	default:
		k := int(math.Floor(pos))
		frac := pos - float64(k)
		dst[k] += p * (1 - frac)
		if frac > 0 {
			dst[k+1] += p * frac
		}
	}
}
