package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/microsoft/tolstack/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var version = "dev"

const metricsNamespace = "tolstack"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	debug       bool
	configFile  string
	configDir   string
	format      string
	metricsFile string
	save        bool

	registry  *prometheus.Registry
	collector metrics.Collector
}

func newRootOptions() *rootOptions {
	reg := prometheus.NewRegistry()
	return &rootOptions{
		registry:  reg,
		collector: metrics.NewPrometheus(reg, metricsNamespace),
	}
}

func newRootCommand() *cobra.Command {
	opts := newRootOptions()

	cmd := &cobra.Command{
		Use:   "tolstack",
		Short: "tolstack - tolerance stack allocation and assembly simulation",
		Long: `tolstack evaluates how measured component batches stack up in assembled
products.

It computes functional fulfillment of measured parts, convolves distributions,
simulates assembly under quality-control strategies, allocates batches and
containers to each other and prices the expected quality loss.`,
		Version:      version,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flags.StringVar(&opts.configFile, "config", "", "Project configuration file (default: .tolstack.yaml found from the working directory)")
	flags.StringVar(&opts.configDir, "config-dir", "", "Directory of variant YAML files (overrides paths.variants)")
	flags.StringVar(&opts.format, "format", string(formatText), "Output format: text, json, markdown or html")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	flags.BoolVar(&opts.save, "save", false, "Also write the report to the results directory")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if opts.debug {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
		if _, err := parseFormat(opts.format); err != nil {
			return err
		}
		return nil
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return opts.writeMetrics()
	}

	cmd.AddCommand(newFulfillmentCommand(opts))
	cmd.AddCommand(newConvolveCommand(opts))
	cmd.AddCommand(newSimulateCommand(opts))
	cmd.AddCommand(newAllocateCommand(opts))
	cmd.AddCommand(newQualityLossCommand(opts))
	cmd.AddCommand(newCacheCommand(opts))
	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newValidateCommand(opts))

	return cmd
}

// writeMetrics dumps the registry when --metrics-file is set.
func (o *rootOptions) writeMetrics() error {
	if o.metricsFile == "" {
		return nil
	}
	if dir := filepath.Dir(o.metricsFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(o.metricsFile, o.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	slog.Debug("wrote metrics", "path", o.metricsFile)
	return nil
}

// emit renders r in the selected format to the command output and, with
// --save, to <results>/<name>.<ext>.
func (o *rootOptions) emit(cmd *cobra.Command, name string, r *report) error {
	format, err := parseFormat(o.format)
	if err != nil {
		return err
	}
	out, err := r.render(format)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(cmd.OutOrStdout(), out); err != nil {
		return err
	}
	if !o.save {
		return nil
	}

	project, err := o.project()
	if err != nil {
		return err
	}
	dir := project.Paths.Results
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}
	path := filepath.Join(dir, name+format.ext())
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Report saved: %s\n", path)
	return nil
}

func execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	return rootCmd.ExecuteContext(ctx)
}
