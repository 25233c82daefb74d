// Package optimize searches the pairing of two item lists that minimises the
// summed pair cost.
package optimize

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/microsoft/tolstack/internal/metrics"
	"github.com/microsoft/tolstack/internal/models"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// cancelCheckInterval is how many leaves a search visits between context checks.
const cancelCheckInterval = 4096

// CostFunc scores pairing a with b. Lower is better.
type CostFunc[A, B any] func(ctx context.Context, a A, b B) (float64, error)

// Option configures a search.
type Option func(*options)

type options struct {
	workers   int
	collector metrics.Collector
	log       *slog.Logger
}

// WithWorkers bounds the number of goroutines used for cost evaluation and search.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithCollector reports pair cost and permutation counts to c.
func WithCollector(c metrics.Collector) Option {
	return func(o *options) {
		if c != nil {
			o.collector = c
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// BruteForce tries every ordered selection of k = min(len(a), len(b))
// distinct items of b, in lexicographic order, pairing a[i] with the i-th
// selected item. The first selection with the strictly smallest summed cost
// wins. Each pair cost is evaluated exactly once.
func BruteForce[A, B any](ctx context.Context, a []A, b []B, cost CostFunc[A, B], opts ...Option) (models.AllocationResult, error) {
	o := options{
		workers:   runtime.GOMAXPROCS(0),
		collector: metrics.NewNop(),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	k, n := min(len(a), len(b)), len(b)
	if k == 0 {
		return models.AllocationResult{Permutation: []int{}, Costs: []float64{}, Evaluated: 1}, nil
	}

	start := time.Now()
	costs, err := pairCosts(ctx, a[:k], b, cost, o.workers)
	if err != nil {
		return models.AllocationResult{}, err
	}
	o.collector.ObservePairCosts(k * n)

	parts := make([]partition, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for f := range parts {
		p := &parts[f]
		g.Go(func() error {
			return p.search(gctx, costs, k, f)
		})
	}
	if err := g.Wait(); err != nil {
		return models.AllocationResult{}, err
	}

	var res models.AllocationResult
	bestTotal := math.Inf(1)
	for i := range parts {
		res.Evaluated += parts[i].visited
		if parts[i].best != nil && parts[i].bestTotal < bestTotal {
			bestTotal = parts[i].bestTotal
			res.Permutation = parts[i].best
		}
	}
	if res.Permutation == nil {
		o.log.Warn("no permutation with a finite cost, falling back to identity", "items", n)
		res.Permutation = make([]int, k)
		for i := range res.Permutation {
			res.Permutation[i] = i
		}
	}
	res.Costs = make([]float64, k)
	for i, j := range res.Permutation {
		res.Costs[i] = costs.At(i, j)
		res.Total += res.Costs[i]
	}
	o.collector.ObservePermutations(res.Evaluated)

	o.log.Debug("brute force search finished",
		"a", len(a), "b", n,
		"permutations", res.Evaluated,
		"total", res.Total,
		"elapsed", time.Since(start),
	)
	return res, nil
}

// pairCosts evaluates cost(a[i], b[j]) for every pair into a dense matrix,
// one row per task.
func pairCosts[A, B any](ctx context.Context, a []A, b []B, cost CostFunc[A, B], workers int) (*mat.Dense, error) {
	costs := mat.NewDense(len(a), len(b), nil)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range a {
		g.Go(func() error {
			row := costs.RawRowView(i)
			for j := range b {
				if err := gctx.Err(); err != nil {
					return err
				}
				c, err := cost(gctx, a[i], b[j])
				if err != nil {
					return fmt.Errorf("cost of pair (%d, %d): %w", i, j, err)
				}
				row[j] = c
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return costs, nil
}

// partition holds the search state of all selections starting with one item.
type partition struct {
	ctx       context.Context
	rows      [][]float64
	k         int
	perm      []int
	used      []bool
	best      []int
	bestTotal float64
	visited   int64
	err       error
}

func (p *partition) search(ctx context.Context, costs *mat.Dense, k, first int) error {
	r, n := costs.Dims()
	p.ctx = ctx
	p.k = k
	p.rows = make([][]float64, r)
	for i := range p.rows {
		p.rows[i] = costs.RawRowView(i)
	}
	p.perm = make([]int, k)
	p.used = make([]bool, n)
	p.bestTotal = math.Inf(1)

	p.used[first] = true
	p.perm[0] = first
	p.walk(1, p.rows[0][first])
	return p.err
}

// walk extends the selection at depth; it returns false once the search is aborted.
func (p *partition) walk(depth int, partial float64) bool {
	if depth == p.k {
		p.visited++
		if p.visited%cancelCheckInterval == 0 {
			if err := p.ctx.Err(); err != nil {
				p.err = err
				return false
			}
		}
		if partial < p.bestTotal {
			p.bestTotal = partial
			p.best = append(p.best[:0], p.perm...)
		}
		return true
	}
	row := p.rows[depth]
	for j, used := range p.used {
		if used {
			continue
		}
		p.used[j] = true
		p.perm[depth] = j
		ok := p.walk(depth+1, partial+row[j])
		p.used[j] = false
		if !ok {
			return false
		}
	}
	return true
}
