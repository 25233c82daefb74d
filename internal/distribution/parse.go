package distribution

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/microsoft/tolstack/internal/models"
)

// Params is the loosely typed description of a distribution:
//
//	{dist: norm, mean: 0, std: 0.01}
//	{dist: hist, x: [...edges or centres], y: [...masses]}
//	{dist: emp, values: [...], fit: norm}
//	{dist: emp, values: [...], fit: hist, bins: 20, range: [-0.1, 0.1]}
type Params struct {
	Dist   string    `mapstructure:"dist"`
	Mean   float64   `mapstructure:"mean"`
	Std    float64   `mapstructure:"std"`
	X      []float64 `mapstructure:"x"`
	Y      []float64 `mapstructure:"y"`
	Values []float64 `mapstructure:"values"`
	Fit    string    `mapstructure:"fit"`
	Bins   int       `mapstructure:"bins"`
	Range  []float64 `mapstructure:"range"`
}

// Parse decodes and builds a distribution from a generic map.
func Parse(raw map[string]any) (Distribution, error) {
	var p Params
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, &models.ConfigError{Param: "distribution", Msg: err.Error()}
	}
	return p.Build()
}

// Build constructs the distribution described by p.
func (p Params) Build() (Distribution, error) {
	switch p.Dist {
	case "norm":
		return NewNormal(p.Mean, p.Std)
	case "hist":
		return NewHistogram(p.X, p.Y)
	case "emp":
		return p.fitEmpirical()
	default:
		return nil, &models.ConfigError{Param: "dist", Msg: fmt.Sprintf("unsupported distribution %q", p.Dist)}
	}
}

func (p Params) fitEmpirical() (Distribution, error) {
	switch p.Fit {
	case "norm":
		return FitNormal(p.Values)
	case "hist":
		if len(p.Range) != 2 {
			return nil, &models.ConfigError{Param: "range", Msg: "range param must be a list of len 2"}
		}
		if p.Bins < 1 || !(p.Range[0] < p.Range[1]) {
			return nil, &models.ConfigError{Param: "bins", Msg: "hist fit needs positive bins and an increasing range"}
		}
		return FromSamples(p.Values, p.Bins, models.Tolerance{Lower: p.Range[0], Upper: p.Range[1]})
	default:
		return nil, &models.ConfigError{Param: "fit", Msg: fmt.Sprintf("unsupported fit method %q", p.Fit)}
	}
}
