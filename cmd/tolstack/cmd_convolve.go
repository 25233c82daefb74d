package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/microsoft/tolstack/internal/distribution"
	"github.com/microsoft/tolstack/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// convolutionFile is the input of the convolve command:
//
//	bins: 51
//	range: [-0.5, 0.5]
//	distributions:
//	  - {dist: norm, mean: 0, std: 0.1}
//	  - {dist: emp, values: [...], fit: norm}
type convolutionFile struct {
	Bins          int              `yaml:"bins"`
	Range         []float64        `yaml:"range"`
	Distributions []map[string]any `yaml:"distributions"`
}

type convolutionResult struct {
	Histogram distribution.Histogram `json:"histogram"`
	Mean      float64                `json:"mean"`
	StdDev    float64                `json:"std_dev"`
}

func newConvolveCommand(opts *rootOptions) *cobra.Command {
	var bins int

	cmd := &cobra.Command{
		Use:   "convolve <distributions.yaml>",
		Short: "Convolve distributions on a result histogram",
		Long: `Convolve independent distributions (normal, histogram or fitted empirical)
and discretize the sum on the given range.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := opts.project()
			if err != nil {
				return err
			}
			in, err := loadConvolutionFile(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bins") {
				in.Bins = bins
			}
			if in.Bins == 0 {
				in.Bins = project.Defaults.Bins
			}

			h, err := convolveFile(in)
			if err != nil {
				return err
			}
			result := convolutionResult{Histogram: h, Mean: h.Mean(), StdDev: h.StdDev()}

			t := table{header: []string{"bin", "center", "probability"}}
			for i, c := range h.Centers() {
				t.rows = append(t.rows, []string{strconv.Itoa(i), formatFloat(c), formatFloat(h.Probs[i])})
			}
			rep := newReport("Convolution", result).
				add("Distributions", len(in.Distributions)).
				add("Bins", h.Len()).
				add("Mean", result.Mean).
				add("Std dev", result.StdDev).
				addTable(t)
			return opts.emit(cmd, "convolution", rep)
		},
	}
	cmd.Flags().IntVar(&bins, "bins", 0, "Result bins (overrides the file, default: defaults.bins)")
	return cmd
}

func loadConvolutionFile(path string) (*convolutionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var in convolutionFile
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, &models.ConfigError{Param: "distributions", Msg: err.Error()}
	}
	return &in, nil
}

func convolveFile(in *convolutionFile) (distribution.Histogram, error) {
	if len(in.Range) != 2 {
		return distribution.Histogram{}, &models.ConfigError{Param: "range", Msg: "range must be a list of len 2"}
	}
	if len(in.Distributions) == 0 {
		return distribution.Histogram{}, &models.ConfigError{Param: "distributions", Msg: "no distributions given"}
	}
	if in.Bins < 1 {
		return distribution.Histogram{}, &models.ConfigError{Param: "bins", Msg: fmt.Sprintf("bins must be positive, got %d", in.Bins)}
	}
	dists := make([]distribution.Distribution, len(in.Distributions))
	for i, raw := range in.Distributions {
		d, err := distribution.Parse(raw)
		if err != nil {
			return distribution.Histogram{}, fmt.Errorf("distribution %d: %w", i, err)
		}
		dists[i] = d
	}
	return distribution.Convolve(dists, models.Tolerance{Lower: in.Range[0], Upper: in.Range[1]}, in.Bins)
}
