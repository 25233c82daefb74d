package simulation

import (
	"context"
	"errors"
	"testing"

	"github.com/microsoft/tolstack/internal/config/configtest"
	"github.com/microsoft/tolstack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulate_Strategies(t *testing.T) {
	v := configtest.Variant(t)

	tests := []struct {
		name        string
		strategy    models.QcStrategy
		main        models.Table
		mating      models.Table
		mainOrder   []int
		matingOrder []int
		stats       Stats
	}{
		{
			name:        "conventional is FIFO",
			strategy:    models.QcConventional,
			main:        configtest.Housing(10.1, 9.9, 10.0),
			mating:      configtest.Shaft(5.0, 5.1, 4.9),
			mainOrder:   []int{0, 1, 2},
			matingOrder: []int{0, 1, 2},
		},
		{
			name:        "first fit takes the first in-tolerance candidate",
			strategy:    models.QcFirstFit,
			main:        configtest.Housing(10.1, 10.0),
			mating:      configtest.Shaft(5.1, 4.9),
			mainOrder:   []int{0, 1},
			matingOrder: []int{1, 0},
			stats:       Stats{SelectedIndices: []int{1, 0}},
		},
		{
			name:        "first fit does not look for the closest candidate",
			strategy:    models.QcFirstFit,
			main:        configtest.Housing(10.0, 10.05),
			mating:      configtest.Shaft(5.08, 5.0),
			mainOrder:   []int{0, 1},
			matingOrder: []int{0, 1},
			stats:       Stats{SelectedIndices: []int{0, 0}},
		},
		{
			name:        "first fit falls back to the pool head",
			strategy:    models.QcFirstFit,
			main:        configtest.Housing(10.5),
			mating:      configtest.Shaft(5.5),
			mainOrder:   []int{0},
			matingOrder: []int{0},
			stats:       Stats{NotInTolerance: 1, MismatchIndices: []int{0}, SelectedIndices: []int{0}},
		},
		{
			name:        "best fit takes the closest in-tolerance candidate",
			strategy:    models.QcBestFit,
			main:        configtest.Housing(10.0, 10.05),
			mating:      configtest.Shaft(5.08, 5.0),
			mainOrder:   []int{0, 1},
			matingOrder: []int{1, 0},
			stats:       Stats{NotInTolerance: 1, MismatchIndices: []int{1}, SelectedIndices: []int{1, 0}},
		},
		{
			name:        "best fit falls back to the globally closest candidate",
			strategy:    models.QcBestFit,
			main:        configtest.Housing(10.5, 10.0),
			mating:      configtest.Shaft(5.3, 4.3),
			mainOrder:   []int{0, 1},
			matingOrder: []int{1, 0},
			stats:       Stats{NotInTolerance: 2, MismatchIndices: []int{0, 1}, SelectedIndices: []int{1, 0}},
		},
		{
			name:        "ascending descending",
			strategy:    models.QcAscendingDescending,
			main:        configtest.Housing(10.2, 9.8, 10.0),
			mating:      configtest.Shaft(5.1, 4.8, 5.0),
			mainOrder:   []int{1, 2, 0},
			matingOrder: []int{0, 2, 1},
		},
		{
			name:        "simplex",
			strategy:    models.QcSimplex,
			main:        configtest.Housing(10.1, 9.9),
			mating:      configtest.Shaft(5.075, 4.925),
			mainOrder:   []int{0, 1},
			matingOrder: []int{1, 0},
			stats:       Stats{AssignmentOrder: []int{1, 0}},
		},
		{
			name:        "selective pairs opposite classes",
			strategy:    models.QcSelective,
			main:        configtest.Housing(10.0, 10.2, 9.8, 10.1),
			mating:      configtest.Shaft(4.9, 5.1, 4.8, 5.2),
			mainOrder:   []int{0, 1, 2, 3},
			matingOrder: []int{1, 0, 3, 2},
		},
		{
			name:        "selective falls back when a class runs dry",
			strategy:    models.QcSelective,
			main:        configtest.Housing(10.0, 10.0, 10.0, 10.0),
			mating:      configtest.Shaft(4.9, 5.1, 4.8, 5.2),
			mainOrder:   []int{0, 1, 2, 3},
			matingOrder: []int{0, 2, 1, 3},
			stats:       Stats{SelectiveFallbacks: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Simulate(context.Background(), tt.strategy, tt.main, tt.mating, v)
			require.NoError(t, err)

			assert.Equal(t, tt.mainOrder, res.MainOrder)
			assert.Equal(t, tt.matingOrder, res.MatingOrder)
			assert.Equal(t, tt.stats, res.Stats)
			require.Len(t, res.Assembled, len(tt.main))
			assert.Equal(t, len(tt.main), res.Fulfillment.Len())
			assert.NotNil(t, res.Fulfillment.Weighted)
		})
	}
}

func TestSimulate_AssembledFulfillment(t *testing.T) {
	v := configtest.Variant(t)

	res, err := Simulate(context.Background(), models.QcConventional,
		configtest.Housing(10.1, 9.9, 10.0), configtest.Shaft(5.0, 5.1, 4.9), v)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{0.1, 0.0, -0.1}, res.Fulfillment.Column(0), 1e-9)
	assert.Equal(t, models.Row{"A1": 9.9, "B1": 5.1}, res.Assembled[1])
}

func TestSimulate_GroupedSortsWithinWindows(t *testing.T) {
	v := configtest.Variant(t)
	n := GroupSize + 1
	mainVals := make([]float64, n)
	matingVals := make([]float64, n)
	for i := range n {
		mainVals[i] = 10 - 0.01*float64(i)
		matingVals[i] = 5 + 0.01*float64(i)
	}

	res, err := Simulate(context.Background(), models.QcAscendingDescendingGrouped,
		configtest.Housing(mainVals...), configtest.Shaft(matingVals...), v)
	require.NoError(t, err)

	want := make([]int, 0, n)
	for i := GroupSize - 1; i >= 0; i-- {
		want = append(want, i)
	}
	want = append(want, GroupSize)
	assert.Equal(t, want, res.MainOrder)
	assert.Equal(t, want, res.MatingOrder)
}

func TestSimulate_Errors(t *testing.T) {
	v := configtest.Variant(t)

	t.Run("length mismatch", func(t *testing.T) {
		_, err := Simulate(context.Background(), models.QcConventional,
			configtest.Housing(10, 10), configtest.Shaft(5), v)
		var invErr *models.InvariantError
		require.True(t, errors.As(err, &invErr))
	})

	t.Run("no strategy", func(t *testing.T) {
		_, err := Simulate(context.Background(), models.QcNone,
			configtest.Housing(10), configtest.Shaft(5), v)
		var cfgErr *models.ConfigError
		require.True(t, errors.As(err, &cfgErr))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Simulate(ctx, models.QcConventional,
			configtest.Housing(10), configtest.Shaft(5), v)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("empty tables", func(t *testing.T) {
		res, err := Simulate(context.Background(), models.QcBestFit, nil, nil, v)
		require.NoError(t, err)
		assert.Empty(t, res.Assembled)
	})
}

func TestPoolTake(t *testing.T) {
	p := newPool([]int{4, 5, 6})

	j, err := p.take(1)
	require.NoError(t, err)
	assert.Equal(t, 5, j)
	assert.Equal(t, []int{4, 6}, p.idx)

	_, err = p.take(2)
	require.Error(t, err)
}
