// Package assignment solves the part-pairing problem as a linear program.
package assignment

import (
	"math"

	"github.com/microsoft/tolstack/internal/models"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Tolerance passed to the simplex solver.
const simplexTol = 1e-10

// Solve pairs main part i with mating part order[i] so that the sum of
// |main[i] + mating[order[i]]| is minimal. Both slices must have the same length.
func Solve(main, mating []float64) ([]int, error) {
	n := len(main)
	if len(mating) != n {
		return nil, models.Invariantf("assignment", "main has %d parts, mating has %d", n, len(mating))
	}
	switch n {
	case 0:
		return []int{}, nil
	case 1:
		return []int{0}, nil
	}

	c := make([]float64, n*n)
	for i, a := range main {
		for j, b := range mating {
			c[i*n+j] = math.Abs(a + b)
		}
	}

	// Row sums and column sums equal one. The last column constraint is
	// implied by the others and is dropped to keep A at full row rank.
	rows := 2*n - 1
	A := mat.NewDense(rows, n*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			A.Set(i, i*n+j, 1)
			if j < n-1 {
				A.Set(n+j, i*n+j, 1)
			}
		}
	}
	b := make([]float64, rows)
	for i := range b {
		b[i] = 1
	}

	_, x, err := lp.Simplex(c, A, b, simplexTol, nil)
	if err != nil {
		return nil, &models.InvariantError{Op: "assignment", Msg: "linear program failed", Err: err}
	}
	return extractPermutation(x, n)
}

// extractPermutation reads the selected column of every row of the n×n
// solution matrix and checks the result is a permutation.
func extractPermutation(x []float64, n int) ([]int, error) {
	order := make([]int, n)
	used := make([]bool, n)
	for i := 0; i < n; i++ {
		best, bestVal := -1, 0.5
		for j := 0; j < n; j++ {
			if v := x[i*n+j]; v > bestVal {
				best, bestVal = j, v
			}
		}
		if best < 0 || used[best] {
			return nil, models.Invariantf("assignment", "solution is not integral at row %d", i)
		}
		used[best] = true
		order[i] = best
	}
	return order, nil
}
