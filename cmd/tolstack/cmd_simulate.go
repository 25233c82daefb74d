package main

import (
	"fmt"

	"github.com/microsoft/tolstack/internal/allocation"
	"github.com/microsoft/tolstack/internal/models"
	"github.com/microsoft/tolstack/internal/statistics"
	"github.com/spf13/cobra"
)

type simulationOutput struct {
	allocation.Assembly
	// MeanIntervals bound the mean fulfillment of every test point.
	MeanIntervals []statistics.ConfidenceInterval `json:"mean_intervals"`
}

func newSimulateCommand(opts *rootOptions) *cobra.Command {
	var (
		sf         settingsFlags
		strategy   string
		confidence float64
	)

	cmd := &cobra.Command{
		Use:   "simulate <main.csv> <mating.csv>",
		Short: "Simulate the assembly of two component batches",
		Long: `Pair the parts of a main and a mating component under a quality-control
strategy, evaluate the assembled products and value every test point.

Strategies: conventional_assembly, selective_assembly, individual_assembly,
individual_assembly_greedy, individual_assembly_simplex, ascending_descending,
ascending_descending_grouped.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession()
			if err != nil {
				return err
			}
			settings, err := sf.settings(s, args...)
			if err != nil {
				return err
			}
			qc, err := qcStrategyFlag(cmd, strategy, s.project)
			if err != nil {
				return err
			}
			if qc == models.QcNone {
				qc = models.QcConventional
			}
			if !(confidence > 0 && confidence < 1) {
				return &models.ConfigError{Param: "confidence", Msg: fmt.Sprintf("confidence must be in (0, 1), got %g", confidence)}
			}
			ms, err := loadAll(args...)
			if err != nil {
				return err
			}

			a, err := s.engine.SimulateAssembly(cmd.Context(), qc, ms[0].Table, ms[1].Table, settings)
			if err != nil {
				return err
			}

			out := simulationOutput{Assembly: a, MeanIntervals: make([]statistics.ConfidenceInterval, len(a.TestPoints))}
			for i := range a.TestPoints {
				out.MeanIntervals[i] = statistics.MeanCI(a.Fulfillment[i], confidence, uint64(i+1))
			}

			rep := newReport("Assembly simulation: "+qc.String(), out).
				add("Variant", settings.ConfigName).
				add("Parts", len(a.MainOrder)).
				add("Not in tolerance", a.Stats.NotInTolerance)
			if a.Stats.SelectiveFallbacks > 0 {
				rep.add("Selective fallbacks", a.Stats.SelectiveFallbacks)
			}
			t := table{
				title:  "Valuation",
				header: []string{"test point", "mean", "mean CI", "std dev", "mean offset", "mean std", "cpk", "quality loss"},
			}
			for i, r := range a.Valuations {
				t.rows = append(t.rows, []string{
					a.TestPoints[i],
					formatFloat(r.Mean),
					fmt.Sprintf("[%s, %s]", formatFloat(out.MeanIntervals[i].Lower), formatFloat(out.MeanIntervals[i].Upper)),
					formatFloat(r.StdDev),
					formatFloat(r.MeanOffset),
					formatFloat(r.MeanStd),
					formatFloat(r.Cpk),
					formatFloat(r.QualityLoss),
				})
			}
			rep.addTable(t)
			return opts.emit(cmd, "simulation", rep)
		},
	}
	sf.register(cmd)
	cmd.Flags().StringVar(&strategy, "qc-strategy", string(models.QcConventional), "Quality-control strategy (default: defaults.qc_strategy, then conventional_assembly)")
	cmd.Flags().Float64Var(&confidence, "confidence", 0.95, "Confidence level of the bootstrap interval of the mean")
	return cmd
}
