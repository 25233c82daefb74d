// Package statistics estimates the sampling uncertainty of fulfillment
// statistics computed from small measured batches.
package statistics

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ConfidenceInterval is a percentile bootstrap interval of the sample mean.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	NumBootstraps   int     `json:"num_bootstraps"`
}

// DefaultBootstrapIterations is the number of bootstrap resamples.
const DefaultBootstrapIterations = 2000

// MeanCI computes a bootstrap confidence interval of the mean of values
// with the percentile method. confidenceLevel should be in (0, 1), e.g. 0.95.
// The resampling is seeded so equal inputs give equal intervals. Fewer than
// two values give a degenerate interval at the mean.
func MeanCI(values []float64, confidenceLevel float64, seed uint64) ConfidenceInterval {
	n := len(values)
	m := 0.0
	if n > 0 {
		m = stat.Mean(values, nil)
	}
	if n < 2 {
		return ConfidenceInterval{Lower: m, Upper: m, Mean: m, ConfidenceLevel: confidenceLevel}
	}

	rng := rand.New(rand.NewPCG(seed, uint64(n)))
	iters := DefaultBootstrapIterations
	bootMeans := make([]float64, iters)
	sample := make([]float64, n)
	for i := range bootMeans {
		for j := range sample {
			sample[j] = values[rng.IntN(n)]
		}
		bootMeans[i] = stat.Mean(sample, nil)
	}
	sort.Float64s(bootMeans)

	alpha := 1.0 - confidenceLevel
	loIdx := int(math.Floor(alpha / 2.0 * float64(iters)))
	hiIdx := min(int(math.Floor((1.0-alpha/2.0)*float64(iters))), iters-1)

	return ConfidenceInterval{
		Lower:           bootMeans[loIdx],
		Upper:           bootMeans[hiIdx],
		Mean:            m,
		ConfidenceLevel: confidenceLevel,
		NumBootstraps:   iters,
	}
}

// Contains reports whether x lies inside the interval.
func (ci ConfidenceInterval) Contains(x float64) bool {
	return ci.Lower <= x && x <= ci.Upper
}
