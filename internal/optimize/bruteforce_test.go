package optimize

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"testing"

	"github.com/microsoft/tolstack/internal/metrics/metricsmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func absDiff(_ context.Context, a, b float64) (float64, error) {
	return math.Abs(a - b), nil
}

func TestBruteForce(t *testing.T) {
	tests := []struct {
		name      string
		a, b      []float64
		perm      []int
		total     float64
		evaluated int64
	}{
		{"two by two", []float64{0, 1}, []float64{0, 1}, []int{0, 1}, 0, 2},
		{"swap", []float64{0, 1}, []float64{1, 0}, []int{1, 0}, 0, 2},
		{"ties keep lexicographic first", []float64{0, 0, 0}, []float64{1, 1, 1}, []int{0, 1, 2}, 3, 6},
		{"fewer a than b", []float64{5}, []float64{1, 5, 3}, []int{1}, 0, 3},
		{"more a than b", []float64{1, 2, 3}, []float64{3, 1}, []int{1, 0}, 1, 2},
		{"single", []float64{1}, []float64{4}, []int{0}, 3, 1},
		{"empty", nil, []float64{1, 2}, []int{}, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := BruteForce(context.Background(), tt.a, tt.b, absDiff)
			require.NoError(t, err)
			assert.Equal(t, tt.perm, res.Permutation)
			assert.InDelta(t, tt.total, res.Total, 1e-12)
			assert.Equal(t, tt.evaluated, res.Evaluated)
			assert.Len(t, res.Costs, len(tt.perm))
		})
	}
}

func TestBruteForce_MatchesNaiveSearch(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	a := make([]float64, 5)
	b := make([]float64, 6)
	for i := range a {
		a[i] = rng.Float64()
	}
	for i := range b {
		b[i] = rng.Float64()
	}
	cost := func(_ context.Context, x, y float64) (float64, error) { return (x - y) * (x - y), nil }

	res, err := BruteForce(context.Background(), a, b, cost, WithWorkers(3))
	require.NoError(t, err)

	wantPerm, wantTotal := naive(a, b, cost)
	assert.Equal(t, wantPerm, res.Permutation)
	assert.InDelta(t, wantTotal, res.Total, 1e-12)
	assert.Equal(t, int64(6*5*4*3*2), res.Evaluated)
}

func TestBruteForce_DeterministicAcrossWorkers(t *testing.T) {
	// Quantised costs produce many ties.
	a := []float64{0, 1, 2, 3, 4, 5}
	b := []float64{5, 3, 1, 4, 2, 0}
	cost := func(_ context.Context, x, y float64) (float64, error) {
		return math.Floor(math.Abs(x-y) / 2), nil
	}

	serial, err := BruteForce(context.Background(), a, b, cost, WithWorkers(1))
	require.NoError(t, err)
	for _, w := range []int{2, 4, 8} {
		res, err := BruteForce(context.Background(), a, b, cost, WithWorkers(w))
		require.NoError(t, err)
		assert.Equal(t, serial.Permutation, res.Permutation, "workers=%d", w)
	}

	wantPerm, _ := naive(a, b, cost)
	assert.Equal(t, wantPerm, serial.Permutation)
}

func TestBruteForce_EvaluatesEachPairOnce(t *testing.T) {
	var calls atomic.Int64
	cost := func(ctx context.Context, x, y float64) (float64, error) {
		calls.Add(1)
		return absDiff(ctx, x, y)
	}

	_, err := BruteForce(context.Background(), []float64{1, 2, 3, 4}, []float64{4, 3, 2, 1}, cost)
	require.NoError(t, err)
	assert.Equal(t, int64(16), calls.Load())
}

func TestBruteForce_CostError(t *testing.T) {
	boom := errors.New("boom")
	cost := func(context.Context, float64, float64) (float64, error) { return 0, boom }

	_, err := BruteForce(context.Background(), []float64{1}, []float64{1}, cost)
	require.ErrorIs(t, err, boom)
}

func TestBruteForce_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BruteForce(ctx, []float64{1, 2}, []float64{1, 2}, absDiff)
	require.ErrorIs(t, err, context.Canceled)
}

func TestBruteForce_NaNCostsFallBackToIdentity(t *testing.T) {
	cost := func(context.Context, float64, float64) (float64, error) { return math.NaN(), nil }

	res, err := BruteForce(context.Background(), []float64{1, 2}, []float64{1, 2}, cost)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, res.Permutation)
	assert.True(t, math.IsNaN(res.Total))
}

func TestBruteForce_ReportsMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	collector := metricsmock.NewMockCollector(ctrl)
	collector.EXPECT().ObservePairCosts(4)
	collector.EXPECT().ObservePermutations(int64(2))

	_, err := BruteForce(context.Background(), []float64{0, 1}, []float64{0, 1}, absDiff, WithCollector(collector))
	require.NoError(t, err)
}

// naive enumerates full permutations of b in lexicographic order and
// keeps the first strictly better truncated prefix.
func naive(a, b []float64, cost CostFunc[float64, float64]) ([]int, float64) {
	k := min(len(a), len(b))
	idx := make([]int, len(b))
	for i := range idx {
		idx[i] = i
	}
	var best []int
	bestTotal := math.Inf(1)
	for {
		var total float64
		for i := 0; i < k; i++ {
			c, _ := cost(context.Background(), a[i], b[idx[i]])
			total += c
		}
		if total < bestTotal {
			bestTotal = total
			best = append([]int(nil), idx[:k]...)
		}
		if !nextPermutation(idx) {
			return best, bestTotal
		}
	}
}

func nextPermutation(p []int) bool {
	i := len(p) - 2
	for i >= 0 && p[i] >= p[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(p) - 1
	for p[j] <= p[i] {
		j--
	}
	p[i], p[j] = p[j], p[i]
	for l, r := i+1, len(p)-1; l < r; l, r = l+1, r-1 {
		p[l], p[r] = p[r], p[l]
	}
	return true
}
