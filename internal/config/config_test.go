package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/microsoft/tolstack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gearboxYAML = `name: gearbox-a
bins: 51
test_points: [TP1, TP2]
test_point_weights: [3, 1]
tolerances:
  TP1: {lower: -0.1, upper: 0.1}
  TP2: {lower: -0.3, upper: 0.2}
mean_values:
  A1: 10.0
  A2: 4.0
  B1: 5.0
  TP1: 0.01
functional_model:
  A1: [1.0, 0.5]
  A2: [0.0, 1.0]
  B1: [-1.0, 0.25]
components:
  housing: [A1, A2]
  shaft: [B1]
quality_loss:
  inefficiency_costs: [100, 50]
`

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant([]byte(gearboxYAML))
	require.NoError(t, err)

	assert.Equal(t, "gearbox-a", v.Name)
	assert.Equal(t, 51, v.Bins)
	assert.Equal(t, []string{"TP1", "TP2"}, v.TestPoints)
	assert.Equal(t, []string{"A1", "A2", "B1"}, v.Characteristics())
	assert.Equal(t, []models.Tolerance{{Lower: -0.1, Upper: 0.1}, {Lower: -0.3, Upper: 0.2}}, v.ToleranceList())
	assert.True(t, v.Weighted())
	assert.InDelta(t, 0.01, v.TargetMean("TP1"), 1e-12)
	assert.Zero(t, v.TargetMean("TP2"))
}

func TestParseVariant_SchemaErrorIsConfigError(t *testing.T) {
	_, err := ParseVariant([]byte("name: broken\n"))
	require.Error(t, err)

	var cfgErr *models.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "variant", cfgErr.Param)
}

func TestVariantValidate(t *testing.T) {
	base := func() *Variant {
		v, err := ParseVariant([]byte(gearboxYAML))
		require.NoError(t, err)
		return v
	}

	tests := []struct {
		name   string
		mutate func(v *Variant)
		param  string
	}{
		{"missing tolerance", func(v *Variant) { delete(v.Tolerances, "TP2") }, "tolerances"},
		{"inverted tolerance", func(v *Variant) { v.Tolerances["TP1"] = models.Tolerance{Lower: 1, Upper: -1} }, "tolerances"},
		{"duplicate test point", func(v *Variant) { v.TestPoints = []string{"TP1", "TP1"} }, "test_points"},
		{"weight count", func(v *Variant) { v.TestPointWeights = []float64{1} }, "test_point_weights"},
		{"zero weights", func(v *Variant) { v.TestPointWeights = []float64{0, 0} }, "test_point_weights"},
		{"coefficient count", func(v *Variant) { v.FunctionalModel["A1"] = []float64{1} }, "functional_model"},
		{"cost count", func(v *Variant) { v.QualityLoss.InefficiencyCosts = []float64{1, 2, 3} }, "quality_loss"},
		{"too few bins", func(v *Variant) { v.Bins = 2 }, "bins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := base()
			tt.mutate(v)
			err := v.Validate()
			var cfgErr *models.ConfigError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %v", err)
			assert.Equal(t, tt.param, cfgErr.Param)
		})
	}
}

func TestCombinedTolerance(t *testing.T) {
	v, err := ParseVariant([]byte(gearboxYAML))
	require.NoError(t, err)

	tol := v.CombinedTolerance()
	assert.InDelta(t, (3*-0.1+1*-0.3)/4, tol.Lower, 1e-12)
	assert.InDelta(t, (3*0.1+1*0.2)/4, tol.Upper, 1e-12)

	v.WeightedTolerance = &models.Tolerance{Lower: -1, Upper: 1}
	assert.Equal(t, models.Tolerance{Lower: -1, Upper: 1}, v.CombinedTolerance())
}

func TestComponentCharacteristicsAndNominalRow(t *testing.T) {
	v, err := ParseVariant([]byte(gearboxYAML))
	require.NoError(t, err)

	chars, err := v.ComponentCharacteristics([]string{"housing", "shaft"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2", "B1"}, chars)

	row, err := v.NominalRow(chars)
	require.NoError(t, err)
	assert.Equal(t, models.Row{"A1": 10, "A2": 4, "B1": 5}, row)

	_, err = v.ComponentCharacteristics([]string{"cover"})
	var cfgErr *models.ConfigError
	require.True(t, errors.As(err, &cfgErr))

	_, err = v.NominalRow([]string{"C9"})
	require.True(t, errors.As(err, &cfgErr))
}

func TestInefficiencyCost(t *testing.T) {
	v, err := ParseVariant([]byte(gearboxYAML))
	require.NoError(t, err)

	c, err := v.InefficiencyCost(1)
	require.NoError(t, err)
	assert.Equal(t, 50.0, c)

	_, err = v.InefficiencyCost(2)
	require.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gearbox-a.yaml"), []byte(gearboxYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	cat, err := LoadCatalog(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"gearbox-a"}, cat.Names())

	v, err := cat.Get("gearbox-a")
	require.NoError(t, err)
	assert.Equal(t, "gearbox-a", v.Name)

	_, err = cat.Get("gearbox-z")
	var cfgErr *models.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "config_name", cfgErr.Param)
}

func TestNewCatalog_Duplicate(t *testing.T) {
	a, err := ParseVariant([]byte(gearboxYAML))
	require.NoError(t, err)
	b, err := ParseVariant([]byte(gearboxYAML))
	require.NoError(t, err)

	_, err = NewCatalog(a, b)
	require.Error(t, err)
}
