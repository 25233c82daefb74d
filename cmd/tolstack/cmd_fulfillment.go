package main

import (
	"strconv"

	"github.com/microsoft/tolstack/internal/functional"
	"github.com/spf13/cobra"
)

type fulfillmentResult struct {
	Variant    string      `json:"variant"`
	TestPoints []string    `json:"test_points"`
	Weighted   bool        `json:"weighted"`
	Rows       [][]float64 `json:"rows"`
}

func newFulfillmentCommand(opts *rootOptions) *cobra.Command {
	var sf settingsFlags

	cmd := &cobra.Command{
		Use:   "fulfillment <table.csv>",
		Short: "Evaluate the functional model for every measured part",
		Long: `Evaluate the functional model of a variant for every part of a measurement
file. Each row lists the fulfillment of every test point and, when the variant
defines test point weights, their weighted average.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession()
			if err != nil {
				return err
			}
			settings, err := sf.settings(s, args[0])
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

			f, err := functional.Evaluate(ms[0].Table, v, v.Weighted())
			if err != nil {
				return err
			}
			result := fulfillmentResult{
				Variant:    v.Name,
				TestPoints: v.TestPoints,
				Weighted:   v.Weighted(),
				Rows:       make([][]float64, f.Len()),
			}
			header := append([]string{"part"}, v.TestPoints...)
			if result.Weighted {
				header = append(header, "weighted")
			}
			t := table{header: header}
			for r := range result.Rows {
				row := f.Row(r)
				if result.Weighted {
					row = append(row, f.Weighted[r])
				}
				result.Rows[r] = row

				cells := []string{strconv.Itoa(r)}
				for _, x := range row {
					cells = append(cells, formatFloat(x))
				}
				t.rows = append(t.rows, cells)
			}

			rep := newReport("Fulfillment: "+v.Name, result).
				add("Parts", f.Len()).
				add("Test points", len(v.TestPoints)).
				addTable(t)
			return opts.emit(cmd, "fulfillment", rep)
		},
	}
	sf.registerVariant(cmd)
	return cmd
}
