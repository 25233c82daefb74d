// Package config loads and validates product variant definitions: test
// points, tolerances, the linear functional model and quality-loss costs.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/microsoft/tolstack/internal/models"
	"github.com/microsoft/tolstack/internal/validation"
	"gopkg.in/yaml.v3"
)

// QualityLossConfig holds the cost of a part at the tolerance limit, per test point.
type QualityLossConfig struct {
	InefficiencyCosts []float64 `yaml:"inefficiency_costs,omitempty" json:"inefficiency_costs,omitempty"`
}

// Variant is the configuration of one product variant. It is read-only
// after Validate and may be shared between goroutines.
type Variant struct {
	Name              string                      `yaml:"name" json:"name"`
	Description       string                      `yaml:"description,omitempty" json:"description,omitempty"`
	Bins              int                         `yaml:"bins,omitempty" json:"bins,omitempty"`
	TestPoints        []string                    `yaml:"test_points" json:"test_points"`
	TestPointWeights  []float64                   `yaml:"test_point_weights,omitempty" json:"test_point_weights,omitempty"`
	Tolerances        map[string]models.Tolerance `yaml:"tolerances" json:"tolerances"`
	WeightedTolerance *models.Tolerance           `yaml:"weighted_tolerance,omitempty" json:"weighted_tolerance,omitempty"`
	MeanValues        map[string]float64          `yaml:"mean_values,omitempty" json:"mean_values,omitempty"`
	// FunctionalModel maps a characteristic to its coefficient for each test point.
	FunctionalModel map[string][]float64 `yaml:"functional_model" json:"functional_model"`
	Components      map[string][]string  `yaml:"components,omitempty" json:"components,omitempty"`
	QualityLoss     QualityLossConfig    `yaml:"quality_loss,omitempty" json:"quality_loss,omitempty"`
}

// LoadVariant reads a variant YAML file, checks it against the schema and validates it.
func LoadVariant(path string) (*Variant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading variant %s: %w", path, err)
	}
	v, err := ParseVariant(data)
	if err != nil {
		return nil, fmt.Errorf("variant %s: %w", path, err)
	}
	return v, nil
}

// ParseVariant decodes and validates variant YAML bytes.
func ParseVariant(data []byte) (*Variant, error) {
	if errs := validation.ValidateVariantBytes(data); len(errs) > 0 {
		return nil, &models.ConfigError{Param: "variant", Msg: strings.Join(errs, "; ")}
	}
	var v Variant
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, &models.ConfigError{Param: "variant", Msg: err.Error()}
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

// Validate checks the cross-field invariants the schema cannot express.
func (v *Variant) Validate() error {
	if v.Name == "" {
		return &models.ConfigError{Param: "name", Msg: "variant name is required"}
	}
	if len(v.TestPoints) == 0 {
		return &models.ConfigError{Param: "test_points", Msg: "at least one test point is required"}
	}
	n := len(v.TestPoints)
	seen := make(map[string]bool, n)
	for _, tp := range v.TestPoints {
		if seen[tp] {
			return &models.ConfigError{Param: "test_points", Msg: fmt.Sprintf("duplicate test point %q", tp)}
		}
		seen[tp] = true
		tol, ok := v.Tolerances[tp]
		if !ok {
			return &models.ConfigError{Param: "tolerances", Msg: fmt.Sprintf("no tolerance for test point %q", tp)}
		}
		if !(tol.Lower < tol.Upper) {
			return &models.ConfigError{Param: "tolerances", Msg: fmt.Sprintf("test point %q: lower %g must be below upper %g", tp, tol.Lower, tol.Upper)}
		}
	}
	if len(v.TestPointWeights) > 0 {
		if len(v.TestPointWeights) != n {
			return &models.ConfigError{Param: "test_point_weights", Msg: fmt.Sprintf("expected %d weights, got %d", n, len(v.TestPointWeights))}
		}
		var sum float64
		for _, w := range v.TestPointWeights {
			sum += w
		}
		if sum <= 0 {
			return &models.ConfigError{Param: "test_point_weights", Msg: "weights must not sum to zero"}
		}
	}
	if v.WeightedTolerance != nil && !(v.WeightedTolerance.Lower < v.WeightedTolerance.Upper) {
		return &models.ConfigError{Param: "weighted_tolerance", Msg: "lower must be below upper"}
	}
	if len(v.FunctionalModel) == 0 {
		return &models.ConfigError{Param: "functional_model", Msg: "no coefficients"}
	}
	for c, coefs := range v.FunctionalModel {
		if len(coefs) != n {
			return &models.ConfigError{Param: "functional_model", Msg: fmt.Sprintf("characteristic %q has %d coefficients, expected %d", c, len(coefs), n)}
		}
	}
	if costs := v.QualityLoss.InefficiencyCosts; len(costs) > 0 && len(costs) != n {
		return &models.ConfigError{Param: "quality_loss", Msg: fmt.Sprintf("expected %d inefficiency costs, got %d", n, len(costs))}
	}
	if v.Bins != 0 && v.Bins < 3 {
		return &models.ConfigError{Param: "bins", Msg: "bins must be at least 3"}
	}
	return nil
}

// ToleranceList returns the tolerances in test point order.
func (v *Variant) ToleranceList() []models.Tolerance {
	out := make([]models.Tolerance, len(v.TestPoints))
	for i, tp := range v.TestPoints {
		out[i] = v.Tolerances[tp]
	}
	return out
}

// Weighted reports whether test point weights are configured.
func (v *Variant) Weighted() bool {
	return len(v.TestPointWeights) > 0
}

// CombinedTolerance returns the tolerance of the weighted test point column.
// Without an explicit weighted_tolerance it is the weight average of the
// per-test-point limits.
func (v *Variant) CombinedTolerance() models.Tolerance {
	if v.WeightedTolerance != nil {
		return *v.WeightedTolerance
	}
	var lo, hi, sum float64
	for i, tol := range v.ToleranceList() {
		w := 1.0
		if v.Weighted() {
			w = v.TestPointWeights[i]
		}
		lo += w * tol.Lower
		hi += w * tol.Upper
		sum += w
	}
	return models.Tolerance{Lower: lo / sum, Upper: hi / sum}
}

// Characteristics returns the characteristic names of the functional model, sorted.
func (v *Variant) Characteristics() []string {
	out := make([]string, 0, len(v.FunctionalModel))
	for c := range v.FunctionalModel {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Mean returns the nominal mean of a characteristic.
func (v *Variant) Mean(characteristic string) (float64, error) {
	m, ok := v.MeanValues[characteristic]
	if !ok {
		return 0, &models.ConfigError{Param: "mean_values", Msg: fmt.Sprintf("no mean value for %q", characteristic)}
	}
	return m, nil
}

// TargetMean returns the configured target of a test point; zero when unset.
func (v *Variant) TargetMean(testPoint string) float64 {
	return v.MeanValues[testPoint]
}

// ComponentCharacteristics returns the characteristics belonging to the named components.
func (v *Variant) ComponentCharacteristics(names []string) ([]string, error) {
	var out []string
	for _, name := range names {
		chars, ok := v.Components[name]
		if !ok {
			return nil, &models.ConfigError{Param: "component_names", Msg: fmt.Sprintf("unknown component %q in variant %q", name, v.Name)}
		}
		out = append(out, chars...)
	}
	return out, nil
}

// NominalRow builds a single part whose characteristics sit at their nominal means.
func (v *Variant) NominalRow(characteristics []string) (models.Row, error) {
	row := make(models.Row, len(characteristics))
	for _, c := range characteristics {
		m, err := v.Mean(c)
		if err != nil {
			return nil, err
		}
		row[c] = m
	}
	return row, nil
}

// InefficiencyCost returns the quality-loss cost of test point i.
func (v *Variant) InefficiencyCost(i int) (float64, error) {
	costs := v.QualityLoss.InefficiencyCosts
	if i < 0 || i >= len(costs) {
		return 0, &models.ConfigError{Param: "quality_loss", Msg: fmt.Sprintf("no inefficiency cost for test point %d in variant %q", i, v.Name)}
	}
	return costs[i], nil
}
