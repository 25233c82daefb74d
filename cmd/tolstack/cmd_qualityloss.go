package main

import (
	"fmt"
	"strings"

	"github.com/microsoft/tolstack/internal/config"
	"github.com/microsoft/tolstack/internal/dataset"
	"github.com/microsoft/tolstack/internal/models"
	"github.com/microsoft/tolstack/internal/spinner"
	"github.com/spf13/cobra"
)

const (
	comparisonOptimal  = "optimal"
	comparisonStandard = "standard:"
)

func newQualityLossCommand(opts *rootOptions) *cobra.Command {
	var (
		sf         settingsFlags
		strategy   string
		batchCount int
		partCount  int
	)

	cmd := &cobra.Command{
		Use:   "quality-loss <a.csv> <b.csv|optimal|standard:values.csv>",
		Short: "Price the expected quality loss of a fully allocated production",
		Long: `Allocate the batches and containers of two components by process capability,
convolve every allocated container pair and price the merged distributions with
the quadratic quality-loss function.

The comparison component is either a measurement file, "optimal" for parts that
mirror component A about the nominal means, or "standard:<file>" for batches
sampled from standard characteristic values in the same shape as component A.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession()
			if err != nil {
				return err
			}
			settings, err := sf.settings(s, args[0])
			if err != nil {
				return err
			}
			settings.BatchCount, settings.PartCount = batchCount, partCount
			qc, err := qcStrategyFlag(cmd, strategy, s.project)
			if err != nil {
				return err
			}
			v, err := s.engine.Variant(settings)
			if err != nil {
				return err
			}
			ms, err := loadAll(args[0])
			if err != nil {
				return err
			}
			base := ms[0]
			comparison, err := comparisonBatches(args[1], base, v, settings)
			if err != nil {
				return err
			}

			stop := spinner.Start(cmd.ErrOrStderr(), "Pricing quality loss")
			got, err := s.engine.QualityLoss(cmd.Context(), base.Batches, comparison, qc, settings)
			stop()
			if err != nil {
				return err
			}

			rep := newReport("Quality loss", got).
				add("Variant", v.Name).
				add("QC strategy", qc.String()).
				add("Comparison", args[1]).
				add("Parts", got.Parts).
				add("Loss", got.Loss)
			losses := table{title: "Loss per test point", header: []string{"test point", "loss", "mean", "std dev"}}
			for i, tp := range v.TestPoints {
				h := got.Convolutions[i].Normalize()
				losses.rows = append(losses.rows, []string{tp, formatFloat(got.Losses[i]), formatFloat(h.Mean()), formatFloat(h.StdDev())})
			}
			alloc := table{title: "Allocation", header: []string{"batch A", "batch B", "containers"}}
			for i, ba := range got.Allocation {
				alloc.rows = append(alloc.rows, []string{base.BatchIDs[i], fmt.Sprint(ba.BatchIndex), formatValue(ba.PartPermutation)})
			}
			rep.addTable(losses).addTable(alloc)
			return opts.emit(cmd, "quality-loss", rep)
		},
	}
	sf.register(cmd)
	cmd.Flags().StringVar(&strategy, "qc-strategy", "", "Quality-control strategy, empty or none for statistical convolution (default: defaults.qc_strategy)")
	cmd.Flags().IntVar(&batchCount, "batch-count", 0, "Batches sampled for standard:<file> (default: batches of component A)")
	cmd.Flags().IntVar(&partCount, "part-count", 0, "Containers per batch sampled for standard:<file> (default: containers of component A)")
	return cmd
}

// comparisonBatches resolves the second argument of quality-loss into
// batches indexed [batch][container].
func comparisonBatches(arg string, base *dataset.Measurements, v *config.Variant, settings models.Settings) ([][]models.Table, error) {
	switch {
	case arg == comparisonOptimal:
		return dataset.MirrorBatches(base.Batches, v.MeanValues)
	case strings.HasPrefix(arg, comparisonStandard):
		path := strings.TrimPrefix(arg, comparisonStandard)
		ms, err := loadAll(path)
		if err != nil {
			return nil, err
		}
		if len(base.Batches) == 0 || len(base.Batches[0]) == 0 {
			return nil, &models.ConfigError{Param: "components", Msg: "no batches for the first component"}
		}
		batchCount, partCount := len(base.Batches), len(base.Batches[0])
		if settings.BatchCount > 0 {
			batchCount = settings.BatchCount
		}
		if settings.PartCount > 0 {
			partCount = settings.PartCount
		}
		batchSize := settings.BatchSize
		if batchSize == 0 {
			batchSize = len(base.Batches[0][0])
		}
		return dataset.StandardBatches(ms[0].Table, batchCount, partCount, batchSize)
	default:
		ms, err := loadAll(arg)
		if err != nil {
			return nil, err
		}
		return ms[0].Batches, nil
	}
}
