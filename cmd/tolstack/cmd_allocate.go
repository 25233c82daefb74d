package main

import (
	"fmt"
	"strings"

	"github.com/microsoft/tolstack/internal/allocation"
	"github.com/microsoft/tolstack/internal/dataset"
	"github.com/microsoft/tolstack/internal/models"
	"github.com/microsoft/tolstack/internal/spinner"
	"github.com/spf13/cobra"
)

type allocationPair struct {
	BatchA     string   `json:"batch_a"`
	BatchB     string   `json:"batch_b"`
	Cost       *float64 `json:"cost,omitempty"`
	Containers []string `json:"containers,omitempty"`
}

type allocationOutput struct {
	Request  allocation.Request       `json:"request"`
	Result   *models.AllocationResult `json:"result,omitempty"`
	Complete []models.BatchAllocation `json:"complete,omitempty"`
	Pairs    []allocationPair         `json:"pairs"`
}

type allocateFlags struct {
	settingsFlags
	strategy  string
	valuation string
	algorithm string
	complete  bool
}

func newAllocateCommand(opts *rootOptions) *cobra.Command {
	var f allocateFlags

	cmd := &cobra.Command{
		Use:   "allocate <a.csv> <b.csv>",
		Short: "Allocate the batches of two components to each other",
		Long: `Find the pairing of the batches of component B with the batches of
component A that minimises the summed valuation of the assembled products.

With --complete the containers inside every matched batch pair are allocated
as well. Measurement files use ';' as separator and decimal commas, with
Batch_ID and KLT_ID columns followed by one column per characteristic.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession()
			if err != nil {
				return err
			}
			req, err := f.request(cmd, s, args)
			if err != nil {
				return err
			}
			ms, err := loadAll(args...)
			if err != nil {
				return err
			}
			a, b := ms[0], ms[1]

			out := allocationOutput{Request: req}
			rep := newReport("Allocation", &out).
				add("Variant", req.Settings.ConfigName).
				add("QC strategy", req.Strategy.String()).
				add("Valuation", string(req.Valuation)).
				add("Algorithm", string(req.Algorithm))

			if f.complete {
				stop := spinner.Start(cmd.ErrOrStderr(), "Allocating batches and containers")
				got, err := s.engine.AllocateComplete(cmd.Context(), [][][]models.Table{a.Batches, b.Batches}, req)
				stop()
				if err != nil {
					return err
				}
				out.Complete = got
				out.Pairs = completePairs(a, b, got)
				t := table{header: []string{"batch A", "batch B", "containers"}}
				for _, p := range out.Pairs {
					t.rows = append(t.rows, []string{p.BatchA, p.BatchB, strings.Join(p.Containers, ", ")})
				}
				rep.add("Batches", len(got)).addTable(t)
				return opts.emit(cmd, "allocation", rep)
			}

			stop := spinner.Start(cmd.ErrOrStderr(), "Allocating batches")
			res, err := s.engine.Allocate(cmd.Context(), [][]models.Table{a.BatchTables(), b.BatchTables()}, req)
			stop()
			if err != nil {
				return err
			}
			out.Result = &res
			t := table{header: []string{"batch A", "batch B", "cost"}}
			for i, j := range res.Permutation {
				cost := res.Costs[i]
				out.Pairs = append(out.Pairs, allocationPair{BatchA: a.BatchIDs[i], BatchB: b.BatchIDs[j], Cost: &cost})
				t.rows = append(t.rows, []string{a.BatchIDs[i], b.BatchIDs[j], formatFloat(cost)})
			}
			rep.add("Total cost", res.Total).
				add("Permutations evaluated", res.Evaluated).
				addTable(t)
			return opts.emit(cmd, "allocation", rep)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.strategy, "qc-strategy", "", "Quality-control strategy, empty or none for statistical convolution (default: defaults.qc_strategy)")
	cmd.Flags().StringVar(&f.valuation, "valuation", "", "Valuation: mean, mean_std, cpk or quality_loss (default: defaults.valuation)")
	cmd.Flags().StringVar(&f.algorithm, "algorithm", "", "Allocation algorithm (default: defaults.algorithm)")
	cmd.Flags().BoolVar(&f.complete, "complete", false, "Allocate containers inside every matched batch pair")
	return cmd
}

// request resolves the allocation flags against the project defaults.
func (f *allocateFlags) request(cmd *cobra.Command, s *session, files []string) (allocation.Request, error) {
	settings, err := f.settings(s, files...)
	if err != nil {
		return allocation.Request{}, err
	}
	strategy, err := qcStrategyFlag(cmd, f.strategy, s.project)
	if err != nil {
		return allocation.Request{}, err
	}
	valuationName := f.valuation
	if valuationName == "" {
		valuationName = s.project.Defaults.Valuation
	}
	valuation, err := models.ParseValuation(valuationName)
	if err != nil {
		return allocation.Request{}, err
	}
	algorithmName := f.algorithm
	if algorithmName == "" {
		algorithmName = s.project.Defaults.Algorithm
	}
	algorithm, err := models.ParseAlgorithm(algorithmName)
	if err != nil {
		return allocation.Request{}, err
	}
	return allocation.Request{
		Strategy:  strategy,
		Valuation: valuation,
		Algorithm: algorithm,
		Settings:  settings,
	}, nil
}

func completePairs(a, b *dataset.Measurements, got []models.BatchAllocation) []allocationPair {
	out := make([]allocationPair, len(got))
	for i, ba := range got {
		p := allocationPair{BatchA: a.BatchIDs[i], BatchB: b.BatchIDs[ba.BatchIndex]}
		for k, j := range ba.PartPermutation {
			p.Containers = append(p.Containers, fmt.Sprintf("%s→%s", a.ContainerIDs[i][k], b.ContainerIDs[ba.BatchIndex][j]))
		}
		out[i] = p
	}
	return out
}
