// Package configtest provides variant fixtures for tests.
package configtest

import (
	"testing"

	"github.com/microsoft/tolstack/internal/config"
	"github.com/microsoft/tolstack/internal/models"
)

// Variant returns a two-test-point variant with one characteristic per component:
//
//	TP1 = (A1-10) + (B1-5)      tolerance [-0.1, 0.1]
//	TP2 = 0.5(A1-10) + (B1-5)   tolerance [-0.2, 0.2]
//
// Components are "housing" (A1) and "shaft" (B1).
func Variant(t testing.TB) *config.Variant {
	t.Helper()
	v := &config.Variant{
		Name:             "gearbox",
		Bins:             11,
		TestPoints:       []string{"TP1", "TP2"},
		TestPointWeights: []float64{1, 1},
		Tolerances: map[string]models.Tolerance{
			"TP1": {Lower: -0.1, Upper: 0.1},
			"TP2": {Lower: -0.2, Upper: 0.2},
		},
		MeanValues: map[string]float64{"A1": 10, "B1": 5},
		FunctionalModel: map[string][]float64{
			"A1": {1, 0.5},
			"B1": {1, 1},
		},
		Components: map[string][]string{
			"housing": {"A1"},
			"shaft":   {"B1"},
		},
		QualityLoss: config.QualityLossConfig{InefficiencyCosts: []float64{100, 100}},
	}
	if err := v.Validate(); err != nil {
		t.Fatalf("fixture variant: %v", err)
	}
	return v
}

// Housing builds a table of A1 measurements.
func Housing(values ...float64) models.Table {
	return column("A1", values)
}

// Shaft builds a table of B1 measurements.
func Shaft(values ...float64) models.Table {
	return column("B1", values)
}

func column(name string, values []float64) models.Table {
	t := make(models.Table, len(values))
	for i, v := range values {
		t[i] = models.Row{name: v}
	}
	return t
}
