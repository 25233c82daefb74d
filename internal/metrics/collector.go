// Package metrics defines the engine's instrumentation interface and its
// no-op and Prometheus implementations.
package metrics

import "time"

//go:generate go tool mockgen -source=collector.go -destination=metricsmock/collector.go -package=metricsmock

// Collector receives engine measurements. Implementations must be safe for
// concurrent use; the optimizer reports from several goroutines.
type Collector interface {
	// ObservePairCosts records how many (a, b) pair costs were evaluated.
	ObservePairCosts(n int)
	// ObservePermutations records how many permutations a search visited.
	ObservePermutations(n int64)
	// ObserveAllocation records one allocation at the given level ("batch", "part").
	ObserveAllocation(level string, d time.Duration, err error)
	// ObserveSimulation records a simulated assembly and its out-of-tolerance count.
	ObserveSimulation(strategy string, parts, notInTolerance int)
}

// NopMetrics implements a no-op metrics collector.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements Collector.
var _ Collector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// ObservePairCosts discards the pair cost count.
func (n *NopMetrics) ObservePairCosts(int) {}

// ObservePermutations discards the permutation count.
func (n *NopMetrics) ObservePermutations(int64) {}

// ObserveAllocation discards the allocation timing.
func (n *NopMetrics) ObserveAllocation(string, time.Duration, error) {}

// ObserveSimulation discards the simulation outcome.
func (n *NopMetrics) ObserveSimulation(string, int, int) {}
