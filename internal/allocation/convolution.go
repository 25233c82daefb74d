package allocation

import (
	"context"
	"fmt"

	"github.com/microsoft/tolstack/internal/config"
	"github.com/microsoft/tolstack/internal/distribution"
	"github.com/microsoft/tolstack/internal/functional"
	"github.com/microsoft/tolstack/internal/models"
	"github.com/microsoft/tolstack/internal/simulation"
)

// convolutionFunc turns the parts of two or more components into one
// histogram per test point, followed by the weighted column when requested.
type convolutionFunc func(ctx context.Context, e *Engine, v *config.Variant, tables []models.Table, bins int, weighted bool) ([]distribution.Histogram, error)

// convolutions is keyed by every supported strategy. QcNone convolves the
// component distributions as independent variables; the others simulate
// the physical pairing.
var convolutions = map[models.QcStrategy]convolutionFunc{
	models.QcNone:                       statisticalConvolution,
	models.QcConventional:               simulatedConvolution(models.QcConventional),
	models.QcSelective:                  simulatedConvolution(models.QcSelective),
	models.QcFirstFit:                   simulatedConvolution(models.QcFirstFit),
	models.QcBestFit:                    simulatedConvolution(models.QcBestFit),
	models.QcSimplex:                    simulatedConvolution(models.QcSimplex),
	models.QcAscendingDescending:        simulatedConvolution(models.QcAscendingDescending),
	models.QcAscendingDescendingGrouped: simulatedConvolution(models.QcAscendingDescendingGrouped),
}

func lookupConvolution(strategy models.QcStrategy) (convolutionFunc, error) {
	f, ok := convolutions[strategy]
	if !ok {
		return nil, &models.ConfigError{Param: "qc_strategy", Msg: fmt.Sprintf("unsupported QC strategy %q", string(strategy))}
	}
	return f, nil
}

// QcConvolution returns the distribution of the assembled product for every
// test point of the variant named in settings. With weighted set and test
// point weights configured, the weighted column's histogram is appended.
func (e *Engine) QcConvolution(ctx context.Context, tables []models.Table, strategy models.QcStrategy, settings models.Settings, weighted bool) ([]distribution.Histogram, error) {
	v, err := e.Variant(settings)
	if err != nil {
		return nil, err
	}
	bins, err := resolveBins(settings, v)
	if err != nil {
		return nil, err
	}
	conv, err := lookupConvolution(strategy)
	if err != nil {
		return nil, err
	}
	return conv(ctx, e, v, tables, bins, weighted)
}

// axes returns the histogram range of every test point, plus the combined
// tolerance's range when weighted.
func axes(v *config.Variant, bins int, weighted bool) ([]models.Tolerance, error) {
	tols := v.ToleranceList()
	if weighted {
		tols = append(tols, v.CombinedTolerance())
	}
	out := make([]models.Tolerance, len(tols))
	for i, tol := range tols {
		r, err := distribution.AxisRange(tol, bins)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func statisticalConvolution(ctx context.Context, _ *Engine, v *config.Variant, tables []models.Table, bins int, weighted bool) ([]distribution.Histogram, error) {
	if len(tables) == 0 {
		return nil, &models.ConfigError{Param: "components", Msg: "no component data"}
	}
	weighted = weighted && v.Weighted()
	ranges, err := axes(v, bins, weighted)
	if err != nil {
		return nil, err
	}

	columns := make([][][]float64, len(tables))
	for c, t := range tables {
		f, err := functional.Evaluate(t, v, weighted)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", c, err)
		}
		columns[c] = f.Columns()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]distribution.Histogram, len(ranges))
	for tp, axis := range ranges {
		hists := make([]distribution.Histogram, len(tables))
		for c := range tables {
			h, err := distribution.FromSamples(columns[c][tp], bins, axis)
			if err != nil {
				return nil, fmt.Errorf("component %d: %w", c, err)
			}
			hists[c] = h
		}
		conv, err := distribution.ConvolveDiscrete(hists, axis, bins)
		if err != nil {
			return nil, err
		}
		out[tp] = conv
	}
	return out, nil
}

func simulatedConvolution(strategy models.QcStrategy) convolutionFunc {
	return func(ctx context.Context, e *Engine, v *config.Variant, tables []models.Table, bins int, weighted bool) ([]distribution.Histogram, error) {
		if len(tables) != 2 {
			return nil, &models.ConfigError{Param: "components", Msg: fmt.Sprintf("QC strategy %s pairs exactly two components, got %d", strategy, len(tables))}
		}
		if len(tables[0]) == 0 && len(tables[1]) == 0 {
			return nil, &models.ConfigError{Param: "components", Msg: "no parts to assemble"}
		}
		res, err := e.simulate(ctx, strategy, tables[0], tables[1], v)
		if err != nil {
			return nil, err
		}
		return histograms(res.Fulfillment, v, bins, weighted && v.Weighted())
	}
}

// histograms bins the simulated fulfillment of every test point.
func histograms(f functional.Fulfillment, v *config.Variant, bins int, weighted bool) ([]distribution.Histogram, error) {
	ranges, err := axes(v, bins, weighted)
	if err != nil {
		return nil, err
	}
	cols := f.Values
	if weighted {
		cols = f.Columns()
	}
	if len(cols) != len(ranges) {
		return nil, models.Invariantf("qc convolution", "got %d fulfillment columns for %d axes", len(cols), len(ranges))
	}
	out := make([]distribution.Histogram, len(ranges))
	for tp, axis := range ranges {
		h, err := distribution.FromSamples(cols[tp], bins, axis)
		if err != nil {
			return nil, err
		}
		out[tp] = h
	}
	return out, nil
}

func (e *Engine) simulate(ctx context.Context, strategy models.QcStrategy, main, mating models.Table, v *config.Variant) (simulation.Result, error) {
	res, err := simulation.Simulate(ctx, strategy, main, mating, v, simulation.WithLogger(e.log))
	if err != nil {
		return simulation.Result{}, err
	}
	e.collector.ObserveSimulation(strategy.String(), len(res.Assembled), res.Stats.NotInTolerance)
	return res, nil
}
