package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector backed by Prometheus.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	pairCosts         prometheus.Counter
	permutations      prometheus.Counter
	allocations       *prometheus.CounterVec
	allocationLatency *prometheus.HistogramVec
	simulatedParts    *prometheus.CounterVec
	notInTolerance    *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements Collector.
var _ Collector = (*PrometheusCollector)(nil)

// NewPrometheus creates a Prometheus-backed collector. A nil registerer
// falls back to prometheus.DefaultRegisterer; an empty namespace to "tolstack".
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "tolstack"
	}
	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.pairCosts = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "optimizer",
			Name:      "pair_costs_total",
			Help:      "Total pair cost evaluations performed by the optimizer.",
		})
		p.permutations = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "optimizer",
			Name:      "permutations_total",
			Help:      "Total permutations visited by the brute force search.",
		})
		p.allocations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "allocation",
			Name:      "runs_total",
			Help:      "Allocation runs by level and result (success, failure).",
		}, []string{"level", "result"})
		p.allocationLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "allocation",
			Name:      "duration_seconds",
			Help:      "Allocation duration in seconds by level.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"level"})
		p.simulatedParts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "simulation",
			Name:      "parts_total",
			Help:      "Assembled parts by QC strategy.",
		}, []string{"strategy"})
		p.notInTolerance = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "simulation",
			Name:      "not_in_tolerance_total",
			Help:      "Main parts without an in-tolerance partner by QC strategy.",
		}, []string{"strategy"})

		p.reg.MustRegister(p.pairCosts)
		p.reg.MustRegister(p.permutations)
		p.reg.MustRegister(p.allocations)
		p.reg.MustRegister(p.allocationLatency)
		p.reg.MustRegister(p.simulatedParts)
		p.reg.MustRegister(p.notInTolerance)
	})
}

// ObservePairCosts adds n to the pair cost counter.
func (p *PrometheusCollector) ObservePairCosts(n int) {
	p.ensureRegistered()
	p.pairCosts.Add(float64(n))
}

// ObservePermutations adds n to the permutation counter.
func (p *PrometheusCollector) ObservePermutations(n int64) {
	p.ensureRegistered()
	p.permutations.Add(float64(n))
}

// ObserveAllocation counts the run and observes its duration.
func (p *PrometheusCollector) ObserveAllocation(level string, d time.Duration, err error) {
	p.ensureRegistered()
	result := "success"
	if err != nil {
		result = "failure"
	}
	p.allocations.WithLabelValues(level, result).Inc()
	p.allocationLatency.WithLabelValues(level).Observe(d.Seconds())
}

// ObserveSimulation counts assembled and out-of-tolerance parts.
func (p *PrometheusCollector) ObserveSimulation(strategy string, parts, notInTolerance int) {
	p.ensureRegistered()
	p.simulatedParts.WithLabelValues(strategy).Add(float64(parts))
	p.notInTolerance.WithLabelValues(strategy).Add(float64(notInTolerance))
}
