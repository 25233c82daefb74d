package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/microsoft/tolstack/internal/wizard"
	"github.com/spf13/cobra"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	var (
		outputDir string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "init [name]",
		Short: "Scaffold a variant YAML file interactively",
		Long: `Ask for the test points, tolerances and components of a product variant and
write a variant YAML file to the variants directory.

Every characteristic starts with nominal mean 0 and coefficient 1 on every test
point. Edit the functional model and mean values before using the variant.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			if outputDir == "" {
				dir := opts.configDir
				if dir == "" {
					project, err := opts.project()
					if err != nil {
						return err
					}
					dir = project.Paths.Variants
				}
				outputDir = dir
			}

			answers, err := wizard.Run(cmd.InOrStdin(), cmd.OutOrStdout(), name)
			if err != nil {
				return err
			}
			v, err := wizard.Build(answers)
			if err != nil {
				return err
			}
			data, err := wizard.Render(v)
			if err != nil {
				return err
			}

			path := filepath.Join(outputDir, v.Name+".yaml")
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("checking %s: %w", path, err)
			}
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("creating variants directory: %w", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("writing variant: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Variant created: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory to write the variant to (default: --config-dir, then paths.variants)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing variant file")

	return cmd
}
