package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/microsoft/tolstack/internal/allocation"
	"github.com/microsoft/tolstack/internal/cache"
	"github.com/microsoft/tolstack/internal/config"
	"github.com/microsoft/tolstack/internal/dataset"
	"github.com/microsoft/tolstack/internal/models"
	"github.com/microsoft/tolstack/internal/projectconfig"
	"github.com/spf13/cobra"
)

// project loads the project configuration: --config if given, otherwise
// .tolstack.yaml found from the working directory.
func (o *rootOptions) project() (*projectconfig.ProjectConfig, error) {
	if o.configFile != "" {
		return projectconfig.LoadFile(o.configFile)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	return projectconfig.Load(wd)
}

// session bundles what the engine-backed commands need.
type session struct {
	project *projectconfig.ProjectConfig
	catalog *config.Catalog
	engine  *allocation.Engine
}

func (o *rootOptions) newSession() (*session, error) {
	project, err := o.project()
	if err != nil {
		return nil, err
	}
	dir := project.Paths.Variants
	if o.configDir != "" {
		dir = o.configDir
	}
	catalog, err := config.LoadCatalog(dir)
	if err != nil {
		return nil, err
	}

	engineOpts := []allocation.Option{
		allocation.WithLogger(slog.Default()),
		allocation.WithWorkers(project.Defaults.Workers),
		allocation.WithCollector(o.collector),
	}
	if project.Cache.Enabled != nil && *project.Cache.Enabled {
		engineOpts = append(engineOpts, allocation.WithCache(cache.New(project.Cache.Dir)))
	}
	slog.Debug("session ready", "variants", catalog.Names(), "dir", dir)
	return &session{
		project: project,
		catalog: catalog,
		engine:  allocation.New(catalog, engineOpts...),
	}, nil
}

// variantName resolves --variant; a catalog with a single variant needs none.
func (s *session) variantName(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	names := s.catalog.Names()
	if len(names) != 1 {
		return "", &models.ConfigError{Param: "config_name", Msg: fmt.Sprintf("--variant is required, choose one of %s", strings.Join(names, ", "))}
	}
	return names[0], nil
}

// settingsFlags are the per-request settings shared by engine commands.
type settingsFlags struct {
	variant    string
	bins       int
	batchSize  int
	components []string
}

func (f *settingsFlags) registerVariant(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.variant, "variant", "", "Variant name (config_name)")
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	f.registerVariant(cmd)
	cmd.Flags().IntVar(&f.bins, "bins", 0, "Histogram bins (default: variant bins, then defaults.bins)")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "Parts per container (default: size of the first container)")
	cmd.Flags().StringSliceVar(&f.components, "components", nil, "Component names of the input files (default: file base names)")
}

// settings builds the request settings for files, one per component.
func (f *settingsFlags) settings(s *session, files ...string) (models.Settings, error) {
	name, err := s.variantName(f.variant)
	if err != nil {
		return models.Settings{}, err
	}
	v, err := s.catalog.Get(name)
	if err != nil {
		return models.Settings{}, err
	}
	bins := f.bins
	if bins == 0 && v.Bins == 0 {
		bins = s.project.Defaults.Bins
	}
	components := f.components
	if len(components) == 0 {
		for _, p := range files {
			components = append(components, componentName(p))
		}
	}
	return models.Settings{
		ConfigName:     name,
		Bins:           bins,
		BatchSize:      f.batchSize,
		ComponentNames: components,
	}, nil
}

// componentName derives a component name from a measurement file path.
func componentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// qcStrategyFlag resolves --qc-strategy, falling back to the project default.
func qcStrategyFlag(cmd *cobra.Command, value string, project *projectconfig.ProjectConfig) (models.QcStrategy, error) {
	if !cmd.Flags().Changed("qc-strategy") {
		value = project.Defaults.QcStrategy
	}
	return models.ParseQcStrategy(value)
}

func loadAll(paths ...string) ([]*dataset.Measurements, error) {
	out := make([]*dataset.Measurements, len(paths))
	for i, p := range paths {
		m, err := dataset.LoadMeasurements(p)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}
