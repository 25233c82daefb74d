// Package valuation turns test-point distributions into scalar costs.
package valuation

import (
	"fmt"
	"math"

	"github.com/microsoft/tolstack/internal/config"
	"github.com/microsoft/tolstack/internal/distribution"
	"github.com/microsoft/tolstack/internal/functional"
	"github.com/microsoft/tolstack/internal/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// QualityLoss is the Taguchi loss of a single value:
// k·(x − target)² with k = cost / mean(|lower|, |upper|)².
func QualityLoss(x, target, cost float64, tol models.Tolerance) float64 {
	half := (math.Abs(tol.Lower) + math.Abs(tol.Upper)) / 2
	k := cost / (half * half)
	d := x - target
	return k * d * d
}

// QualityLossDiscrete is the expected quality loss of a histogram,
// evaluated at the bin centres after renormalising the masses.
func QualityLossDiscrete(h distribution.Histogram, target, cost float64, tol models.Tolerance) float64 {
	s := h.Sum()
	if s == 0 {
		return 0
	}
	var loss float64
	for i, c := range h.Centers() {
		loss += h.Probs[i] / s * QualityLoss(c, target, cost, tol)
	}
	return loss
}

// Func scores the distribution of test point tp.
type Func func(e *Evaluator, tp int, h distribution.Histogram) (float64, error)

var registry = map[models.Valuation]Func{
	models.ValuationMean:        meanOffset,
	models.ValuationMeanStd:     meanStd,
	models.ValuationCpk:         cpk,
	models.ValuationQualityLoss: qualityLoss,
}

// Lookup returns the policy registered for v.
func Lookup(v models.Valuation) (Func, error) {
	f, ok := registry[v]
	if !ok {
		return nil, &models.ConfigError{Param: "valuation", Msg: fmt.Sprintf("unsupported valuation %q", v)}
	}
	return f, nil
}

// Evaluator applies one valuation policy to the test points of a variant.
type Evaluator struct {
	valuation models.Valuation
	policy    Func
	variant   *config.Variant
	tols      []models.Tolerance
	batchSize int
	targets   []float64
}

// NewEvaluator prepares valuation v for the variant. Quality loss
// additionally needs the component names in settings to derive its targets.
func NewEvaluator(v models.Valuation, variant *config.Variant, settings models.Settings) (*Evaluator, error) {
	policy, err := Lookup(v)
	if err != nil {
		return nil, err
	}
	e := &Evaluator{
		valuation: v,
		policy:    policy,
		variant:   variant,
		tols:      variant.ToleranceList(),
		batchSize: settings.BatchSize,
	}
	if v == models.ValuationQualityLoss {
		if e.targets, err = NominalTargets(variant, settings.ComponentNames); err != nil {
			return nil, err
		}
		for i := range variant.TestPoints {
			if _, err := variant.InefficiencyCost(i); err != nil {
				return nil, err
			}
		}
	}
	return e, nil
}

// NominalTargets evaluates the functional model with every characteristic
// of the named components at its nominal mean.
func NominalTargets(variant *config.Variant, components []string) ([]float64, error) {
	chars, err := variant.ComponentCharacteristics(components)
	if err != nil {
		return nil, err
	}
	row, err := variant.NominalRow(chars)
	if err != nil {
		return nil, err
	}
	return functional.EvaluateOne(row, variant, false)
}

// Valuation returns the policy this evaluator applies.
func (e *Evaluator) Valuation() models.Valuation {
	return e.valuation
}

// Score values the distribution of a single test point.
func (e *Evaluator) Score(tp int, h distribution.Histogram) (float64, error) {
	if tp < 0 || tp >= len(e.tols) {
		return 0, models.Invariantf("valuation", "test point %d out of range", tp)
	}
	return e.policy(e, tp, h)
}

// Evaluate values one histogram per test point and combines the scores
// with the test point weights.
func (e *Evaluator) Evaluate(hists []distribution.Histogram) (float64, error) {
	if len(hists) != len(e.tols) {
		return 0, models.Invariantf("valuation", "got %d distributions for %d test points", len(hists), len(e.tols))
	}
	scores := make([]float64, len(hists))
	for tp, h := range hists {
		s, err := e.Score(tp, h)
		if err != nil {
			return 0, err
		}
		scores[tp] = s
	}
	return Combine(scores, e.variant.TestPointWeights), nil
}

// Combine is the weighted average of per-test-point scores. Without
// weights every test point counts equally.
func Combine(scores, weights []float64) float64 {
	if len(weights) != len(scores) {
		weights = nil
	}
	if weights != nil && floats.Sum(weights) == 0 {
		weights = nil
	}
	return stat.Mean(scores, weights)
}

func meanOffset(e *Evaluator, tp int, h distribution.Histogram) (float64, error) {
	target := e.variant.TargetMean(e.variant.TestPoints[tp])
	return math.Abs(h.Mean() - target), nil
}

func meanStd(e *Evaluator, tp int, h distribution.Histogram) (float64, error) {
	target := e.variant.TargetMean(e.variant.TestPoints[tp])
	return math.Abs(h.Mean() - target + h.StdDev()), nil
}

// cpk is the negated process capability index, so that lower is better.
func cpk(e *Evaluator, tp int, h distribution.Histogram) (float64, error) {
	tol := e.tols[tp]
	mu, sigma := h.Mean(), h.StdDev()
	return -math.Min(tol.Upper-mu, mu-tol.Lower) / (3 * sigma), nil
}

func qualityLoss(e *Evaluator, tp int, h distribution.Histogram) (float64, error) {
	cost, err := e.variant.InefficiencyCost(tp)
	if err != nil {
		return 0, err
	}
	return float64(e.batchSize) * QualityLossDiscrete(h, e.targets[tp], cost, e.tols[tp]), nil
}

// Report holds every valuation of one test point distribution.
type Report struct {
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"std"`
	MeanOffset  float64 `json:"mean_offset"`
	MeanStd     float64 `json:"mean_std"`
	Cpk         float64 `json:"cpk"`
	QualityLoss float64 `json:"quality_loss"`
}

// ReportAll computes every valuation of test point tp. Quality loss is
// reported for the given targets when the variant has inefficiency costs.
func ReportAll(variant *config.Variant, settings models.Settings, tp int, h distribution.Histogram) (Report, error) {
	e := &Evaluator{variant: variant, tols: variant.ToleranceList(), batchSize: settings.BatchSize}
	r := Report{Mean: h.Mean(), StdDev: h.StdDev()}
	var err error
	if r.MeanOffset, err = meanOffset(e, tp, h); err != nil {
		return Report{}, err
	}
	if r.MeanStd, err = meanStd(e, tp, h); err != nil {
		return Report{}, err
	}
	if r.Cpk, err = cpk(e, tp, h); err != nil {
		return Report{}, err
	}
	if len(variant.QualityLoss.InefficiencyCosts) > 0 && len(settings.ComponentNames) > 0 {
		if e.targets, err = NominalTargets(variant, settings.ComponentNames); err != nil {
			return Report{}, err
		}
		if r.QualityLoss, err = qualityLoss(e, tp, h); err != nil {
			return Report{}, err
		}
	}
	return r, nil
}
