package models

import (
	"fmt"
	"strings"
)

// QcStrategy selects how mating parts are paired with main parts.
type QcStrategy string

const (
	// QcNone skips simulation and combines the component distributions statistically.
	QcNone                       QcStrategy = ""
	QcConventional               QcStrategy = "conventional_assembly"
	QcSelective                  QcStrategy = "selective_assembly"
	QcFirstFit                   QcStrategy = "individual_assembly"
	QcBestFit                    QcStrategy = "individual_assembly_greedy"
	QcSimplex                    QcStrategy = "individual_assembly_simplex"
	QcAscendingDescending        QcStrategy = "ascending_descending"
	QcAscendingDescendingGrouped QcStrategy = "ascending_descending_grouped"
)

// QcStrategies lists every simulated strategy in declaration order.
var QcStrategies = []QcStrategy{
	QcConventional,
	QcSelective,
	QcFirstFit,
	QcBestFit,
	QcSimplex,
	QcAscendingDescending,
	QcAscendingDescendingGrouped,
}

// ParseQcStrategy resolves a strategy name. Empty and "none" map to QcNone.
func ParseQcStrategy(s string) (QcStrategy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" || name == "none" {
		return QcNone, nil
	}
	for _, q := range QcStrategies {
		if string(q) == name {
			return q, nil
		}
	}
	return QcNone, &ConfigError{Param: "qc_strategy", Msg: fmt.Sprintf("unknown strategy %q", s)}
}

func (q QcStrategy) String() string {
	if q == QcNone {
		return "none"
	}
	return string(q)
}

// Valuation names a cost policy applied to one test-point distribution.
type Valuation string

const (
	ValuationMean        Valuation = "mean"
	ValuationMeanStd     Valuation = "mean_std"
	ValuationCpk         Valuation = "cpk"
	ValuationQualityLoss Valuation = "quality_loss"
)

// Valuations lists every valuation policy.
var Valuations = []Valuation{ValuationMean, ValuationMeanStd, ValuationCpk, ValuationQualityLoss}

// ParseValuation resolves a valuation name; "qualityloss" is accepted as an alias.
func ParseValuation(s string) (Valuation, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "qualityloss" {
		return ValuationQualityLoss, nil
	}
	for _, v := range Valuations {
		if string(v) == name {
			return v, nil
		}
	}
	return "", &ConfigError{Param: "valuation", Msg: fmt.Sprintf("unknown valuation %q", s)}
}

// Algorithm names an allocation search algorithm.
type Algorithm string

const AlgorithmBruteForce Algorithm = "brute_force"

// BruteForceMaxComponents is the largest component count brute force accepts.
const BruteForceMaxComponents = 2

// ParseAlgorithm resolves an algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == string(AlgorithmBruteForce) {
		return AlgorithmBruteForce, nil
	}
	return "", &ConfigError{Param: "algorithm", Msg: fmt.Sprintf("unknown algorithm %q", s)}
}
