package allocation

import (
	"context"
	"testing"

	"github.com/microsoft/tolstack/internal/cache"
	"github.com/microsoft/tolstack/internal/config"
	"github.com/microsoft/tolstack/internal/config/configtest"
	"github.com/microsoft/tolstack/internal/metrics/metricsmock"
	"github.com/microsoft/tolstack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	catalog, err := config.NewCatalog(configtest.Variant(t))
	require.NoError(t, err)
	return New(catalog, append([]Option{WithWorkers(2)}, opts...)...)
}

func settings() models.Settings {
	return models.Settings{ConfigName: "gearbox", ComponentNames: []string{"housing", "shaft"}}
}

// Housing batch 0 sits high, batch 1 low; shaft batch 0 high, batch 1 low.
// Pairing high with low cancels the deviations.
func housingBatches() []models.Table {
	return []models.Table{
		configtest.Housing(10.05, 10.05),
		configtest.Housing(9.95, 9.95),
	}
}

func shaftBatches() []models.Table {
	return []models.Table{
		configtest.Shaft(5.05, 5.05),
		configtest.Shaft(4.95, 4.95),
	}
}

func TestAllocate(t *testing.T) {
	tests := []struct {
		name      string
		strategy  models.QcStrategy
		valuation models.Valuation
	}{
		{"statistical mean", models.QcNone, models.ValuationMean},
		{"statistical quality loss", models.QcNone, models.ValuationQualityLoss},
		{"conventional mean", models.QcConventional, models.ValuationMean},
		{"best fit mean std", models.QcBestFit, models.ValuationMeanStd},
		{"ascending descending cpk", models.QcAscendingDescending, models.ValuationCpk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			res, err := e.Allocate(context.Background(), [][]models.Table{housingBatches(), shaftBatches()}, Request{
				Strategy:  tt.strategy,
				Valuation: tt.valuation,
				Algorithm: models.AlgorithmBruteForce,
				Settings:  settings(),
			})
			require.NoError(t, err)
			assert.Equal(t, []int{1, 0}, res.Permutation)
			assert.Equal(t, int64(2), res.Evaluated)
			assert.Len(t, res.Costs, 2)
		})
	}
}

func TestAllocate_ZeroCostForCancellingBatches(t *testing.T) {
	e := newEngine(t)
	res, err := e.Allocate(context.Background(), [][]models.Table{housingBatches(), shaftBatches()}, Request{
		Valuation: models.ValuationMean,
		Algorithm: models.AlgorithmBruteForce,
		Settings:  settings(),
	})
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Total, 1e-9)
}

func TestAllocate_ConfigErrors(t *testing.T) {
	valid := Request{
		Valuation: models.ValuationMean,
		Algorithm: models.AlgorithmBruteForce,
		Settings:  settings(),
	}
	two := [][]models.Table{housingBatches(), shaftBatches()}

	tests := []struct {
		name       string
		components [][]models.Table
		mutate     func(*Request)
		param      string
	}{
		{"three components with brute force", append(two, shaftBatches()), func(*Request) {}, "components"},
		{"one component", two[:1], func(*Request) {}, "components"},
		{"unknown algorithm", two, func(r *Request) { r.Algorithm = "genetic" }, "algorithm"},
		{"unknown strategy", two, func(r *Request) { r.Strategy = "random" }, "qc_strategy"},
		{"unknown valuation", two, func(r *Request) { r.Valuation = "median" }, "valuation"},
		{"unknown variant", two, func(r *Request) { r.Settings.ConfigName = "turbine" }, "config_name"},
		{"too few bins", two, func(r *Request) { r.Settings.Bins = 2 }, "bins"},
		{"component limit checked before strategy", append(two, shaftBatches()), func(r *Request) { r.Strategy = "random" }, "components"},
		{"component count checked before algorithm", two[:1], func(r *Request) { r.Algorithm = "genetic" }, "components"},
		{"algorithm checked before strategy", two, func(r *Request) {
			r.Algorithm = "genetic"
			r.Strategy = "random"
		}, "algorithm"},
		{"strategy checked before valuation", two, func(r *Request) {
			r.Strategy = "random"
			r.Valuation = "median"
		}, "qc_strategy"},
		{"quality loss without components", two, func(r *Request) {
			r.Valuation = models.ValuationQualityLoss
			r.Settings.ComponentNames = []string{"rotor"}
		}, "component_names"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := newEngine(t).Allocate(context.Background(), tt.components, req)
			var cfgErr *models.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.param, cfgErr.Param)
		})
	}
}

func TestAllocate_LengthMismatchIsInvariant(t *testing.T) {
	e := newEngine(t)
	_, err := e.Allocate(context.Background(), [][]models.Table{
		{configtest.Housing(10, 10)},
		{configtest.Shaft(5)},
	}, Request{
		Strategy:  models.QcConventional,
		Valuation: models.ValuationMean,
		Algorithm: models.AlgorithmBruteForce,
		Settings:  settings(),
	})
	var invErr *models.InvariantError
	require.ErrorAs(t, err, &invErr)
}

func TestAllocate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(t).Allocate(ctx, [][]models.Table{housingBatches(), shaftBatches()}, Request{
		Valuation: models.ValuationMean,
		Algorithm: models.AlgorithmBruteForce,
		Settings:  settings(),
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestAllocate_UsesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	collector := metricsmock.NewMockCollector(ctrl)
	collector.EXPECT().ObservePairCosts(4).Times(1)
	collector.EXPECT().ObservePermutations(int64(2)).Times(1)
	collector.EXPECT().ObserveAllocation(LevelBatch, gomock.Any(), gomock.Nil()).Times(1)

	c := cache.New(t.TempDir())
	e := newEngine(t, WithCollector(collector), WithCache(c))
	req := Request{Valuation: models.ValuationMean, Algorithm: models.AlgorithmBruteForce, Settings: settings()}
	components := [][]models.Table{housingBatches(), shaftBatches()}

	first, err := e.Allocate(context.Background(), components, req)
	require.NoError(t, err)
	second, err := e.Allocate(context.Background(), components, req)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAllocateComplete_SingleBatchSinglePart(t *testing.T) {
	ctrl := gomock.NewController(t)
	collector := metricsmock.NewMockCollector(ctrl)
	// only the part level runs; there is no batch search
	collector.EXPECT().ObservePairCosts(1).Times(1)
	collector.EXPECT().ObservePermutations(int64(1)).Times(1)
	collector.EXPECT().ObserveAllocation(LevelPart, gomock.Any(), gomock.Nil()).Times(1)

	e := newEngine(t, WithCollector(collector))
	got, err := e.AllocateComplete(context.Background(), [][][]models.Table{
		{{configtest.Housing(10.01)}},
		{{configtest.Shaft(4.99)}},
	}, Request{Valuation: models.ValuationMean, Algorithm: models.AlgorithmBruteForce, Settings: settings()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.BatchAllocation{BatchIndex: 0, PartPermutation: []int{0}}, got[0])
}

func TestAllocateComplete(t *testing.T) {
	e := newEngine(t)
	housing := [][]models.Table{
		{configtest.Housing(10.05, 10.05), configtest.Housing(10.05, 10.05)},
		{configtest.Housing(9.95, 9.95), configtest.Housing(9.95, 9.95)},
	}
	shaft := [][]models.Table{
		{configtest.Shaft(5.05, 5.05), configtest.Shaft(5.05, 5.05)},
		{configtest.Shaft(4.95, 4.95), configtest.Shaft(4.95, 4.95)},
	}

	got, err := e.AllocateComplete(context.Background(), [][][]models.Table{housing, shaft},
		Request{Valuation: models.ValuationMean, Algorithm: models.AlgorithmBruteForce, Settings: settings()})
	require.NoError(t, err)

	// entry i belongs to housing batch i and names the original shaft batch
	assert.Equal(t, []models.BatchAllocation{
		{BatchIndex: 1, PartPermutation: []int{0, 1}},
		{BatchIndex: 0, PartPermutation: []int{0, 1}},
	}, got)
}

func TestAllocateComplete_ThreeComponents(t *testing.T) {
	b := [][]models.Table{{configtest.Housing(10)}}
	_, err := newEngine(t).AllocateComplete(context.Background(), [][][]models.Table{b, b, b},
		Request{Valuation: models.ValuationMean, Algorithm: models.AlgorithmBruteForce, Settings: settings()})
	var cfgErr *models.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "components", cfgErr.Param)
}
