package simulation

import (
	"slices"

	"github.com/microsoft/tolstack/internal/models"
)

// pool is the ordered set of mating parts that are still available.
// It holds row indices into the mating table; taking a part removes it.
type pool struct {
	idx []int
}

func newPool(idx []int) *pool {
	return &pool{idx: idx}
}

func (p *pool) len() int { return len(p.idx) }

// take removes and returns the part at position pos.
func (p *pool) take(pos int) (int, error) {
	if pos < 0 || pos >= len(p.idx) {
		return 0, models.Invariantf("simulate", "pool position %d out of range (%d left)", pos, len(p.idx))
	}
	j := p.idx[pos]
	p.idx = slices.Delete(p.idx, pos, pos+1)
	return j, nil
}
