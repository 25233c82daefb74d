package allocation

import (
	"context"
	"fmt"

	"github.com/microsoft/tolstack/internal/distribution"
	"github.com/microsoft/tolstack/internal/models"
	"github.com/microsoft/tolstack/internal/simulation"
	"github.com/microsoft/tolstack/internal/valuation"
)

// Assembly is a simulated assembly with its distributions and valuations.
type Assembly struct {
	TestPoints []string `json:"test_points"`
	// Fulfillment holds one column per test point, followed by the weighted
	// column when the variant defines test point weights.
	Fulfillment [][]float64              `json:"fulfillment"`
	MainOrder   []int                    `json:"main_order"`
	MatingOrder []int                    `json:"mating_order"`
	Stats       simulation.Stats         `json:"stats"`
	Histograms  []distribution.Histogram `json:"histograms"`
	Valuations  []valuation.Report       `json:"valuations"`
}

// SimulateAssembly pairs main and mating parts under strategy and reports
// the assembled fulfillment, its histograms and every valuation per test point.
func (e *Engine) SimulateAssembly(ctx context.Context, strategy models.QcStrategy, main, mating models.Table, settings models.Settings) (Assembly, error) {
	v, err := e.Variant(settings)
	if err != nil {
		return Assembly{}, err
	}
	bins, err := resolveBins(settings, v)
	if err != nil {
		return Assembly{}, err
	}
	if len(main) == 0 && len(mating) == 0 {
		return Assembly{}, &models.ConfigError{Param: "components", Msg: "no parts to assemble"}
	}
	settings = withBatchSize(settings, []models.Table{main})

	res, err := e.simulate(ctx, strategy, main, mating, v)
	if err != nil {
		return Assembly{}, err
	}
	hists, err := histograms(res.Fulfillment, v, bins, v.Weighted())
	if err != nil {
		return Assembly{}, err
	}

	out := Assembly{
		TestPoints:  v.TestPoints,
		Fulfillment: res.Fulfillment.Columns(),
		MainOrder:   res.MainOrder,
		MatingOrder: res.MatingOrder,
		Stats:       res.Stats,
		Histograms:  hists,
		Valuations:  make([]valuation.Report, len(v.TestPoints)),
	}
	for tp := range v.TestPoints {
		r, err := valuation.ReportAll(v, settings, tp, hists[tp])
		if err != nil {
			return Assembly{}, fmt.Errorf("test point %s: %w", v.TestPoints[tp], err)
		}
		out.Valuations[tp] = r
	}
	return out, nil
}
