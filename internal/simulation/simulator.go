// Package simulation pairs the parts of two component batches under a QC
// strategy and evaluates the functional model of the assembled products.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/microsoft/tolstack/internal/assignment"
	"github.com/microsoft/tolstack/internal/config"
	"github.com/microsoft/tolstack/internal/distribution"
	"github.com/microsoft/tolstack/internal/functional"
	"github.com/microsoft/tolstack/internal/models"
)

const (
	// GroupSize is the window length of the grouped ascending/descending strategy.
	GroupSize = 12
	// SelectiveClasses is the number of equal-count classes used by selective assembly.
	SelectiveClasses = 2
)

// Stats records how the selection went.
type Stats struct {
	// NotInTolerance counts main parts for which no candidate produced an
	// in-tolerance assembly (first fit and best fit).
	NotInTolerance int `json:"not_in_tolerance"`
	// MismatchIndices lists the processing positions of those main parts.
	MismatchIndices []int `json:"mismatch_indices,omitempty"`
	// SelectedIndices lists the pool position picked for every main part.
	SelectedIndices []int `json:"selected_indices,omitempty"`
	// AssignmentOrder[i] is the mating row the simplex solver assigned to
	// main row i.
	AssignmentOrder []int `json:"assignment_order,omitempty"`
	// SelectiveFallbacks counts selective picks taken from the same class
	// because the opposite class was exhausted.
	SelectiveFallbacks int `json:"selective_fallbacks,omitempty"`
}

// Result is a simulated assembly.
type Result struct {
	// Fulfillment of the assembled parts; includes the weighted column
	// when the variant defines test point weights.
	Fulfillment functional.Fulfillment
	Assembled   models.Table
	// MainOrder[k] and MatingOrder[k] are the source rows of assembled part k.
	MainOrder   []int
	MatingOrder []int
	Stats       Stats
}

// Option configures a simulation run.
type Option func(*simulator)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(s *simulator) {
		if l != nil {
			s.log = l
		}
	}
}

type simulator struct {
	log     *slog.Logger
	variant *config.Variant
	tols    []models.Tolerance

	main, mating   models.Table
	mainW, matingW []float64
	pairModel      *functional.Model
}

// Simulate assembles every main part with one mating part chosen by strategy.
// Both tables must have the same number of parts.
func Simulate(ctx context.Context, strategy models.QcStrategy, main, mating models.Table, v *config.Variant, opts ...Option) (Result, error) {
	if len(main) != len(mating) {
		return Result{}, models.Invariantf("simulate", "main has %d parts, mating has %d", len(main), len(mating))
	}
	if strategy == models.QcNone {
		return Result{}, &models.ConfigError{Param: "qc_strategy", Msg: "simulation needs a QC strategy"}
	}

	s := &simulator{
		log:     slog.Default(),
		variant: v,
		tols:    v.ToleranceList(),
		main:    main,
		mating:  mating,
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.mainW, err = weightedFulfillment(main, v); err != nil {
		return Result{}, fmt.Errorf("main component: %w", err)
	}
	if s.matingW, err = weightedFulfillment(mating, v); err != nil {
		return Result{}, fmt.Errorf("mating component: %w", err)
	}

	res, err := s.run(ctx, strategy)
	if err != nil {
		return Result{}, err
	}

	assembled := make(models.Table, len(res.MainOrder))
	for k := range res.MainOrder {
		assembled[k] = models.MergeRows(main[res.MainOrder[k]], mating[res.MatingOrder[k]])
	}
	res.Assembled = assembled
	if len(assembled) > 0 {
		res.Fulfillment, err = functional.Evaluate(assembled, v, v.Weighted())
		if err != nil {
			return Result{}, fmt.Errorf("assembled parts: %w", err)
		}
	}

	s.log.Debug("simulated assembly",
		"strategy", strategy.String(),
		"parts", len(assembled),
		"not_in_tolerance", res.Stats.NotInTolerance,
	)
	return res, nil
}

func weightedFulfillment(t models.Table, v *config.Variant) ([]float64, error) {
	if len(t) == 0 {
		return nil, nil
	}
	f, err := functional.Evaluate(t, v, true)
	if err != nil {
		return nil, err
	}
	return f.Weighted, nil
}

func (s *simulator) run(ctx context.Context, strategy models.QcStrategy) (Result, error) {
	n := len(s.main)
	if n == 0 {
		return Result{MainOrder: []int{}, MatingOrder: []int{}}, nil
	}
	mainOrder := identity(n)
	p := newPool(identity(n))

	var pick func(k, mi int) (int, error)
	var res Result

	switch strategy {
	case models.QcConventional:
		pick = func(int, int) (int, error) { return p.take(0) }

	case models.QcAscendingDescending:
		sortByWeight(mainOrder, s.mainW, true)
		sortByWeight(p.idx, s.matingW, false)
		pick = func(int, int) (int, error) { return p.take(0) }

	case models.QcAscendingDescendingGrouped:
		for lo := 0; lo < n; lo += GroupSize {
			hi := min(lo+GroupSize, n)
			sortByWeight(mainOrder[lo:hi], s.mainW, true)
			sortByWeight(p.idx[lo:hi], s.matingW, false)
		}
		pick = func(int, int) (int, error) { return p.take(0) }

	case models.QcSelective:
		sel, err := newSelective(s.mainW, s.matingW)
		if err != nil {
			return Result{}, err
		}
		pick = func(_ int, mi int) (int, error) { return sel.pick(mi, &res.Stats) }

	case models.QcFirstFit, models.QcBestFit:
		cols := models.Concat(s.main, s.mating).Columns()
		m, err := functional.Compile(s.variant, cols)
		if err != nil {
			return Result{}, err
		}
		s.pairModel = m
		bestFit := strategy == models.QcBestFit
		pick = func(k, mi int) (int, error) { return s.fit(p, k, mi, bestFit, &res.Stats) }

	case models.QcSimplex:
		order, err := assignment.Solve(s.mainW, s.matingW)
		if err != nil {
			return Result{}, err
		}
		res.Stats.AssignmentOrder = order
		pick = func(_ int, mi int) (int, error) { return order[mi], nil }

	default:
		return Result{}, &models.ConfigError{Param: "qc_strategy", Msg: fmt.Sprintf("unsupported strategy %q", strategy)}
	}

	res.MainOrder = mainOrder
	res.MatingOrder = make([]int, n)
	for k, mi := range mainOrder {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		j, err := pick(k, mi)
		if err != nil {
			return Result{}, err
		}
		res.MatingOrder[k] = j
	}
	return res, nil
}

// fit scans the remaining pool for main part mi. First fit takes the first
// in-tolerance candidate; best fit takes the in-tolerance candidate with the
// smallest absolute weighted fulfillment. Without any in-tolerance
// candidate first fit falls back to the pool head and best fit to the
// candidate closest to nominal.
func (s *simulator) fit(p *pool, k, mi int, bestFit bool, stats *Stats) (int, error) {
	if p.len() == 0 {
		return 0, models.Invariantf("simulate", "mating pool is empty at main part %d", k)
	}

	inTolPos, globalPos := -1, 0
	inTolBest, globalBest := math.Inf(1), math.Inf(1)
	for pos, j := range p.idx {
		vals, err := s.pairModel.Eval(models.MergeRows(s.main[mi], s.mating[j]))
		if err != nil {
			return 0, err
		}
		ok := s.inTolerance(vals)
		if !bestFit {
			if ok {
				inTolPos = pos
				break
			}
			continue
		}
		score := math.Abs(s.pairModel.Combine(vals))
		if score < globalBest {
			globalBest, globalPos = score, pos
		}
		if ok && score < inTolBest {
			inTolBest, inTolPos = score, pos
		}
	}

	pos := inTolPos
	if pos < 0 {
		stats.NotInTolerance++
		stats.MismatchIndices = append(stats.MismatchIndices, k)
		pos = 0
		if bestFit {
			pos = globalPos
		}
	}
	stats.SelectedIndices = append(stats.SelectedIndices, pos)
	return p.take(pos)
}

func (s *simulator) inTolerance(vals []float64) bool {
	for i, tol := range s.tols {
		if !tol.Contains(vals[i]) {
			return false
		}
	}
	return true
}

// selective pairs parts of opposite equal-count classes in FIFO order.
type selective struct {
	mainEdges []float64
	mainW     []float64
	classes   [][]int
}

func newSelective(mainW, matingW []float64) (*selective, error) {
	if len(mainW) == 0 {
		return &selective{}, nil
	}
	mainEdges, err := distribution.EqualCountEdges(mainW, SelectiveClasses)
	if err != nil {
		return nil, err
	}
	matingEdges, err := distribution.EqualCountEdges(matingW, SelectiveClasses)
	if err != nil {
		return nil, err
	}
	sel := &selective{
		mainEdges: mainEdges[:SelectiveClasses],
		mainW:     mainW,
		classes:   make([][]int, SelectiveClasses),
	}
	for j, w := range matingW {
		c := classOf(w, matingEdges[:SelectiveClasses])
		sel.classes[c] = append(sel.classes[c], j)
	}
	return sel, nil
}

// classOf returns the index of the last edge <= v, clamped to a valid class.
func classOf(v float64, edges []float64) int {
	c := sort.Search(len(edges), func(i int) bool { return edges[i] > v }) - 1
	return max(0, min(c, len(edges)-1))
}

func (sel *selective) pick(mi int, stats *Stats) (int, error) {
	want := SelectiveClasses - 1 - classOf(sel.mainW[mi], sel.mainEdges)
	if len(sel.classes[want]) == 0 {
		stats.SelectiveFallbacks++
		want = -1
		for c := range sel.classes {
			if len(sel.classes[c]) > 0 {
				want = c
				break
			}
		}
		if want < 0 {
			return 0, models.Invariantf("simulate", "mating pool is empty at main part %d", mi)
		}
	}
	j := sel.classes[want][0]
	sel.classes[want] = sel.classes[want][1:]
	return j, nil
}

// sortByWeight stably sorts idx by the referenced weights.
func sortByWeight(idx []int, w []float64, ascending bool) {
	sort.SliceStable(idx, func(a, b int) bool {
		if ascending {
			return w[idx[a]] < w[idx[b]]
		}
		return w[idx[a]] > w[idx[b]]
	})
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
