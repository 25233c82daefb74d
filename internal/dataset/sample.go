package dataset

import (
	"fmt"
	"math/rand/v2"

	"github.com/microsoft/tolstack/internal/models"
)

// Sample draws n distinct parts from table with a seeded generator.
// n <= 0 returns a copy of the whole table.
func Sample(table models.Table, n int, seed uint64) (models.Table, error) {
	if n <= 0 {
		return append(models.Table(nil), table...), nil
	}
	if n > len(table) {
		return nil, &models.ConfigError{Param: "batch_size", Msg: fmt.Sprintf("cannot sample %d parts from %d", n, len(table))}
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	idx := rng.Perm(len(table))[:n]
	out := make(models.Table, n)
	for i, j := range idx {
		out[i] = table[j].Clone()
	}
	return out, nil
}

// StandardBatches samples batchCount batches of partCount containers with
// batchSize parts each. Container k of batch b uses seed (b+1)*partCount + k+1.
func StandardBatches(table models.Table, batchCount, partCount, batchSize int) ([][]models.Table, error) {
	out := make([][]models.Table, batchCount)
	for b := range out {
		out[b] = make([]models.Table, partCount)
		for k := range out[b] {
			seed := uint64((b+1)*partCount + k + 1)
			t, err := Sample(table, batchSize, seed)
			if err != nil {
				return nil, err
			}
			out[b][k] = t
		}
	}
	return out, nil
}

// Mirror reflects every value about its nominal mean, producing the
// counterpart that cancels the deviations of table.
func Mirror(table models.Table, means map[string]float64) (models.Table, error) {
	out := make(models.Table, len(table))
	for i, row := range table {
		m := make(models.Row, len(row))
		for c, v := range row {
			mean, ok := means[c]
			if !ok {
				return nil, &models.ConfigError{Param: "mean_values", Msg: fmt.Sprintf("no mean value for %q", c)}
			}
			m[c] = 2*mean - v
		}
		out[i] = m
	}
	return out, nil
}

// MirrorBatches mirrors every container of every batch.
func MirrorBatches(batches [][]models.Table, means map[string]float64) ([][]models.Table, error) {
	out := make([][]models.Table, len(batches))
	for b, containers := range batches {
		out[b] = make([]models.Table, len(containers))
		for k, t := range containers {
			m, err := Mirror(t, means)
			if err != nil {
				return nil, err
			}
			out[b][k] = m
		}
	}
	return out, nil
}
