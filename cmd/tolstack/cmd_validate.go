package main

import (
	"fmt"
	"path/filepath"

	"github.com/microsoft/tolstack/internal/config"
	"github.com/microsoft/tolstack/internal/models"
	"github.com/microsoft/tolstack/internal/validation"
	"github.com/spf13/cobra"
)

func newValidateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [variant.yaml...]",
		Short: "Validate variant files",
		Long: `Check variant files against the variant schema and the cross-field rules.
Without arguments every variant in the variants directory is checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				dir := opts.configDir
				if dir == "" {
					project, err := opts.project()
					if err != nil {
						return err
					}
					dir = project.Paths.Variants
				}
				for _, pattern := range []string{"*.yaml", "*.yml"} {
					matches, err := filepath.Glob(filepath.Join(dir, pattern))
					if err != nil {
						return fmt.Errorf("listing variants in %s: %w", dir, err)
					}
					paths = append(paths, matches...)
				}
				if len(paths) == 0 {
					return &models.ConfigError{Param: "config_dir", Msg: fmt.Sprintf("no variant files in %s", dir)}
				}
			}

			out := cmd.OutOrStdout()
			invalid := 0
			for _, p := range paths {
				errs, err := validation.ValidateVariantFile(p)
				if err != nil {
					return err
				}
				if len(errs) == 0 {
					if _, err := config.LoadVariant(p); err != nil {
						errs = []string{err.Error()}
					}
				}
				if len(errs) == 0 {
					fmt.Fprintf(out, "✓ %s\n", p)
					continue
				}
				invalid++
				fmt.Fprintf(out, "✗ %s\n", p)
				for _, e := range errs {
					fmt.Fprintf(out, "    %s\n", e)
				}
			}
			if invalid > 0 {
				return &models.ConfigError{Param: "variant", Msg: fmt.Sprintf("%d of %d variant files are invalid", invalid, len(paths))}
			}
			return nil
		},
	}
	return cmd
}
