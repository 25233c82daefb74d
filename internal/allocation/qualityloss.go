package allocation

import (
	"context"
	"fmt"

	"github.com/microsoft/tolstack/internal/distribution"
	"github.com/microsoft/tolstack/internal/models"
	"github.com/microsoft/tolstack/internal/valuation"
	"gonum.org/v1/gonum/floats"
)

// LossReport is the expected quality loss of a fully allocated production.
type LossReport struct {
	Allocation []models.BatchAllocation `json:"allocation"`
	// Parts is the number of assembled products the loss is scaled to.
	Parts int `json:"parts"`
	// Losses holds the scaled loss of every test point.
	Losses []float64 `json:"losses"`
	// Loss is the weight average of Losses.
	Loss float64 `json:"loss"`
	// Convolutions are the merged distributions scaled to expected part
	// counts, one per test point and the weighted column when configured.
	Convolutions []distribution.Histogram `json:"convolutions"`
}

// QualityLoss allocates the batches of both components by capability,
// convolves every allocated container pair and prices the merged
// distributions. base and comparison are indexed [batch][container].
func (e *Engine) QualityLoss(ctx context.Context, base, comparison [][]models.Table, strategy models.QcStrategy, settings models.Settings) (LossReport, error) {
	if len(base) == 0 || len(base[0]) == 0 {
		return LossReport{}, &models.ConfigError{Param: "components", Msg: "no batches for the first component"}
	}
	v, err := e.Variant(settings)
	if err != nil {
		return LossReport{}, err
	}
	settings = withBatchSize(settings, base[0])

	alloc, err := e.AllocateComplete(ctx, [][][]models.Table{base, comparison}, Request{
		Strategy:  strategy,
		Valuation: models.ValuationCpk,
		Algorithm: models.AlgorithmBruteForce,
		Settings:  settings,
	})
	if err != nil {
		return LossReport{}, err
	}

	var perContainer [][]distribution.Histogram
	for i, a := range alloc {
		for k, j := range a.PartPermutation {
			if k >= len(base[i]) {
				break
			}
			hists, err := e.QcConvolution(ctx, []models.Table{base[i][k], comparison[a.BatchIndex][j]}, strategy, settings, true)
			if err != nil {
				return LossReport{}, fmt.Errorf("batch %d container %d: %w", i, k, err)
			}
			perContainer = append(perContainer, hists)
		}
	}
	if len(perContainer) == 0 {
		return LossReport{}, &models.ConfigError{Param: "components", Msg: "no container pairs to convolve"}
	}

	merged := make([]distribution.Histogram, len(perContainer[0]))
	for c := range merged {
		column := make([]distribution.Histogram, len(perContainer))
		for i, hists := range perContainer {
			column[i] = hists[c]
		}
		if merged[c], err = distribution.Merge(column...); err != nil {
			return LossReport{}, err
		}
	}

	report := LossReport{
		Allocation:   alloc,
		Parts:        settings.BatchSize * len(base) * len(base[0]),
		Losses:       make([]float64, len(v.TestPoints)),
		Convolutions: make([]distribution.Histogram, len(merged)),
	}
	scale := float64(report.Parts)
	for tp, name := range v.TestPoints {
		cost, err := v.InefficiencyCost(tp)
		if err != nil {
			return LossReport{}, err
		}
		tol := v.Tolerances[name]
		report.Losses[tp] = scale * valuation.QualityLossDiscrete(merged[tp], v.TargetMean(name), cost, tol)
	}
	for c, h := range merged {
		scaled := h.Normalize()
		floats.Scale(scale, scaled.Probs)
		report.Convolutions[c] = scaled
	}
	report.Loss = valuation.Combine(report.Losses, v.TestPointWeights)

	e.log.Debug("quality loss",
		"variant", v.Name,
		"parts", report.Parts,
		"loss", report.Loss,
	)
	return report, nil
}
