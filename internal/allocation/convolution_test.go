package allocation

import (
	"context"
	"math"
	"testing"

	"github.com/microsoft/tolstack/internal/config/configtest"
	"github.com/microsoft/tolstack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQcConvolution(t *testing.T) {
	e := newEngine(t)
	tables := []models.Table{
		configtest.Housing(10.02, 9.98, 10.01, 9.99),
		configtest.Shaft(5.03, 4.97, 5.0, 5.01),
	}

	for _, strategy := range []models.QcStrategy{models.QcNone, models.QcConventional, models.QcBestFit, models.QcSelective} {
		t.Run(strategy.String(), func(t *testing.T) {
			hists, err := e.QcConvolution(context.Background(), tables, strategy, settings(), true)
			require.NoError(t, err)
			// two test points and the weighted column
			require.Len(t, hists, 3)
			for _, h := range hists {
				assert.Equal(t, 11, h.Len())
				assert.Len(t, h.Edges, 12)
				assert.InDelta(t, 1, h.Sum(), 1e-9)
			}
		})
	}
}

func TestQcConvolution_Unweighted(t *testing.T) {
	e := newEngine(t)
	tables := []models.Table{configtest.Housing(10), configtest.Shaft(5)}

	hists, err := e.QcConvolution(context.Background(), tables, models.QcNone, settings(), false)
	require.NoError(t, err)
	require.Len(t, hists, 2)
	assert.InDelta(t, 0, hists[0].Mean(), 1e-9)
}

func TestQcConvolution_OutOfRangePartsLandInOuterBins(t *testing.T) {
	e := newEngine(t)

	for _, housing := range []float64{math.Inf(1), 1e300} {
		tables := []models.Table{configtest.Housing(housing, 10), configtest.Shaft(5, 5)}
		hists, err := e.QcConvolution(context.Background(), tables, models.QcConventional, settings(), false)
		require.NoError(t, err)
		for tp, h := range hists {
			assert.InDelta(t, 0, h.Probs[0], 1e-12, "TP%d first bin", tp+1)
			assert.InDelta(t, 0.5, h.Probs[h.Len()-1], 1e-12, "TP%d last bin", tp+1)
			assert.InDelta(t, 1, h.Sum(), 1e-12)
		}
	}

	low := []models.Table{configtest.Housing(-1e300, 10), configtest.Shaft(5, 5)}
	hists, err := e.QcConvolution(context.Background(), low, models.QcConventional, settings(), false)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, hists[0].Probs[0], 1e-12)
}

func TestQcConvolution_NaNPartIsRejected(t *testing.T) {
	e := newEngine(t)
	tables := []models.Table{configtest.Housing(math.NaN(), 10), configtest.Shaft(5, 5)}

	_, err := e.QcConvolution(context.Background(), tables, models.QcConventional, settings(), false)
	var cfgErr *models.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "values", cfgErr.Param)
}

func TestQcConvolution_StatisticalAcceptsManyComponents(t *testing.T) {
	e := newEngine(t)
	tables := []models.Table{configtest.Housing(10), configtest.Shaft(5), configtest.Shaft(5)}

	hists, err := e.QcConvolution(context.Background(), tables, models.QcNone, settings(), false)
	require.NoError(t, err)
	assert.Len(t, hists, 2)
}

func TestQcConvolution_Errors(t *testing.T) {
	e := newEngine(t)
	var cfgErr *models.ConfigError
	var invErr *models.InvariantError

	_, err := e.QcConvolution(context.Background(), []models.Table{configtest.Housing(10), configtest.Shaft(5), configtest.Shaft(5)},
		models.QcConventional, settings(), false)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "components", cfgErr.Param)

	_, err = e.QcConvolution(context.Background(), []models.Table{configtest.Housing(10, 10), configtest.Shaft(5)},
		models.QcConventional, settings(), false)
	require.ErrorAs(t, err, &invErr)

	_, err = e.QcConvolution(context.Background(), []models.Table{configtest.Housing(10), configtest.Shaft(5)},
		"random", settings(), false)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "qc_strategy", cfgErr.Param)

	_, err = e.QcConvolution(context.Background(), nil, models.QcNone, settings(), false)
	require.ErrorAs(t, err, &cfgErr)
}

func TestConvolutionRegistryCoversEveryStrategy(t *testing.T) {
	for _, s := range models.QcStrategies {
		_, err := lookupConvolution(s)
		assert.NoError(t, err, s.String())
	}
	_, err := lookupConvolution(models.QcNone)
	assert.NoError(t, err)
}

func TestSimulateAssembly(t *testing.T) {
	e := newEngine(t)
	main := configtest.Housing(10.05, 9.95)
	mating := configtest.Shaft(4.95, 5.05)

	got, err := e.SimulateAssembly(context.Background(), models.QcConventional, main, mating, settings())
	require.NoError(t, err)

	assert.Equal(t, []string{"TP1", "TP2"}, got.TestPoints)
	assert.Equal(t, []int{0, 1}, got.MainOrder)
	assert.Equal(t, []int{0, 1}, got.MatingOrder)
	require.Len(t, got.Fulfillment, 3)
	for _, x := range got.Fulfillment[0] {
		assert.InDelta(t, 0, x, 1e-9)
	}
	require.Len(t, got.Histograms, 3)
	require.Len(t, got.Valuations, 2)
	assert.InDelta(t, 0, got.Valuations[0].MeanOffset, 1e-9)
	assert.InDelta(t, 0, got.Valuations[0].QualityLoss, 1e-9)
	assert.Less(t, got.Valuations[0].Cpk, 0.0)
}

func TestSimulateAssembly_Errors(t *testing.T) {
	e := newEngine(t)

	_, err := e.SimulateAssembly(context.Background(), models.QcConventional, configtest.Housing(10, 10), configtest.Shaft(5), settings())
	var invErr *models.InvariantError
	require.ErrorAs(t, err, &invErr)

	_, err = e.SimulateAssembly(context.Background(), models.QcNone, configtest.Housing(10), configtest.Shaft(5), settings())
	var cfgErr *models.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "qc_strategy", cfgErr.Param)
}

func TestQualityLoss(t *testing.T) {
	e := newEngine(t)
	base := [][]models.Table{{configtest.Housing(10, 10)}}
	centred := [][]models.Table{{configtest.Shaft(5, 5)}}

	got, err := e.QualityLoss(context.Background(), base, centred, models.QcNone, settings())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Parts)
	require.Len(t, got.Allocation, 1)
	require.Len(t, got.Losses, 2)
	assert.InDelta(t, 0, got.Loss, 1e-9)
	require.Len(t, got.Convolutions, 3)
	for _, h := range got.Convolutions {
		assert.InDelta(t, 2, h.Sum(), 1e-9)
	}

	shifted := [][]models.Table{{configtest.Shaft(5.08, 5.08)}}
	worse, err := e.QualityLoss(context.Background(), base, shifted, models.QcConventional, settings())
	require.NoError(t, err)
	assert.Greater(t, worse.Loss, got.Loss)
	assert.Greater(t, worse.Losses[0], 0.0)
}

func TestQualityLoss_PrefersCancellingBatches(t *testing.T) {
	e := newEngine(t)
	base := [][]models.Table{
		{configtest.Housing(10.05, 10.05)},
		{configtest.Housing(9.95, 9.95)},
	}
	comparison := [][]models.Table{
		{configtest.Shaft(5.05, 5.05)},
		{configtest.Shaft(4.95, 4.95)},
	}

	got, err := e.QualityLoss(context.Background(), base, comparison, models.QcNone, settings())
	require.NoError(t, err)
	require.Len(t, got.Allocation, 2)
	assert.Equal(t, 1, got.Allocation[0].BatchIndex)
	assert.Equal(t, 0, got.Allocation[1].BatchIndex)
	assert.Equal(t, 4, got.Parts)
	assert.InDelta(t, 0, got.Loss, 1e-9)
}

func TestQualityLoss_NoBatches(t *testing.T) {
	_, err := newEngine(t).QualityLoss(context.Background(), nil, nil, models.QcNone, settings())
	var cfgErr *models.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}
