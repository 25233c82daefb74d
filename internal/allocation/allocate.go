package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/microsoft/tolstack/internal/cache"
	"github.com/microsoft/tolstack/internal/config"
	"github.com/microsoft/tolstack/internal/models"
	"github.com/microsoft/tolstack/internal/optimize"
	"github.com/microsoft/tolstack/internal/valuation"
)

// algorithmFunc searches the pairing of the a-side items with the b-side
// items that minimises the summed cost.
type algorithmFunc func(ctx context.Context, e *Engine, a, b []models.Table, cost optimize.CostFunc[models.Table, models.Table]) (models.AllocationResult, error)

var algorithms = map[models.Algorithm]algorithmFunc{
	models.AlgorithmBruteForce: bruteForce,
}

func bruteForce(ctx context.Context, e *Engine, a, b []models.Table, cost optimize.CostFunc[models.Table, models.Table]) (models.AllocationResult, error) {
	return optimize.BruteForce(ctx, a, b, cost,
		optimize.WithWorkers(e.workers),
		optimize.WithCollector(e.collector),
		optimize.WithLogger(e.log),
	)
}

// Request names the policies of an allocation.
type Request struct {
	Strategy  models.QcStrategy `json:"qc_strategy"`
	Valuation models.Valuation  `json:"valuation"`
	Algorithm models.Algorithm  `json:"algorithm"`
	Settings  models.Settings   `json:"settings"`
}

// plan is a validated request bound to its variant.
type plan struct {
	Request
	variant   *config.Variant
	bins      int
	conv      convolutionFunc
	evaluator *valuation.Evaluator
	search    algorithmFunc
}

// prepare validates req for the given component count. Every failure is a
// configuration error naming the offending parameter.
func (e *Engine) prepare(req Request, components int) (*plan, error) {
	if req.Algorithm == models.AlgorithmBruteForce && components > models.BruteForceMaxComponents {
		return nil, &models.ConfigError{Param: "components", Msg: fmt.Sprintf("brute force supports only %d components, got %d", models.BruteForceMaxComponents, components)}
	}
	if components < 2 {
		return nil, &models.ConfigError{Param: "components", Msg: fmt.Sprintf("need two components to allocate, got %d", components)}
	}
	search, ok := algorithms[req.Algorithm]
	if !ok {
		return nil, &models.ConfigError{Param: "algorithm", Msg: fmt.Sprintf("unsupported algorithm %q", string(req.Algorithm))}
	}
	conv, err := lookupConvolution(req.Strategy)
	if err != nil {
		return nil, err
	}
	if _, err := valuation.Lookup(req.Valuation); err != nil {
		return nil, err
	}

	v, err := e.Variant(req.Settings)
	if err != nil {
		return nil, err
	}
	bins, err := resolveBins(req.Settings, v)
	if err != nil {
		return nil, err
	}
	req.Settings.Bins = bins
	evaluator, err := valuation.NewEvaluator(req.Valuation, v, req.Settings)
	if err != nil {
		return nil, err
	}
	return &plan{
		Request:   req,
		variant:   v,
		bins:      bins,
		conv:      conv,
		evaluator: evaluator,
		search:    search,
	}, nil
}

// cost values the assembly of one a-side item with one b-side item.
func (p *plan) cost(e *Engine) optimize.CostFunc[models.Table, models.Table] {
	return func(ctx context.Context, a, b models.Table) (float64, error) {
		hists, err := p.conv(ctx, e, p.variant, []models.Table{a, b}, p.bins, false)
		if err != nil {
			return 0, err
		}
		return p.evaluator.Evaluate(hists)
	}
}

// Allocate pairs the items of the second component with the items of the
// first. An item is a table of parts, usually a batch or a container.
// Result.Permutation[i] is the second-component item assigned to item i.
func (e *Engine) Allocate(ctx context.Context, components [][]models.Table, req Request) (models.AllocationResult, error) {
	if len(components) > 0 {
		req.Settings = withBatchSize(req.Settings, components[0])
	}
	p, err := e.prepare(req, len(components))
	if err != nil {
		return models.AllocationResult{}, err
	}
	return e.run(ctx, p, LevelBatch, components[0], components[1])
}

// run executes a validated plan, consulting the cache first.
func (e *Engine) run(ctx context.Context, p *plan, level string, a, b []models.Table) (models.AllocationResult, error) {
	key, err := cache.Key("allocate", p.Request, p.variant, a, b)
	if err != nil {
		e.log.Debug("allocation not cacheable", "error", err)
		key = ""
	}
	if key != "" {
		var hit models.AllocationResult
		if e.cache.Get(key, &hit) {
			e.log.Debug("allocation cache hit", "level", level, "key", key)
			return hit, nil
		}
	}

	start := time.Now()
	res, err := p.search(ctx, e, a, b, p.cost(e))
	e.collector.ObserveAllocation(level, time.Since(start), err)
	if err != nil {
		return models.AllocationResult{}, err
	}
	e.log.Debug("allocated",
		"level", level,
		"a", len(a), "b", len(b),
		"qc_strategy", p.Strategy.String(),
		"valuation", string(p.Valuation),
		"total", res.Total,
		"elapsed", time.Since(start),
	)

	if key != "" {
		if err := e.cache.Put(key, res); err != nil {
			e.log.Warn("failed to cache allocation", "error", err)
		}
	}
	return res, nil
}

// AllocateComplete allocates batches first and then, inside every matched
// batch pair, the containers. batches[c][b][k] is container k of batch b of
// component c. Entry i of the result belongs to batch i of the first component.
func (e *Engine) AllocateComplete(ctx context.Context, batches [][][]models.Table, req Request) ([]models.BatchAllocation, error) {
	if len(batches) > 0 && len(batches[0]) > 0 {
		req.Settings = withBatchSize(req.Settings, batches[0][0])
	}
	p, err := e.prepare(req, len(batches))
	if err != nil {
		return nil, err
	}
	base, comparison := batches[0], batches[1]

	var batchPerm []int
	if len(base) == 1 && len(comparison) == 1 {
		// nothing to search at batch level
		batchPerm = []int{0}
	} else {
		concat := func(bs [][]models.Table) []models.Table {
			out := make([]models.Table, len(bs))
			for i, containers := range bs {
				out[i] = models.Concat(containers...)
			}
			return out
		}
		res, err := e.run(ctx, p, LevelBatch, concat(base), concat(comparison))
		if err != nil {
			return nil, fmt.Errorf("batch allocation: %w", err)
		}
		batchPerm = res.Permutation
	}

	out := make([]models.BatchAllocation, 0, len(batchPerm))
	for i, j := range batchPerm {
		res, err := e.run(ctx, p, LevelPart, base[i], comparison[j])
		if err != nil {
			return nil, fmt.Errorf("part allocation of batch %d: %w", i, err)
		}
		out = append(out, models.BatchAllocation{BatchIndex: j, PartPermutation: res.Permutation})
	}
	return out, nil
}

// withBatchSize fills in the batch size from the first container when unset.
func withBatchSize(s models.Settings, items []models.Table) models.Settings {
	if s.BatchSize == 0 && len(items) > 0 {
		s.BatchSize = len(items[0])
	}
	return s
}
