package main

import (
	"fmt"
	"path/filepath"

	"github.com/microsoft/tolstack/internal/cache"
	"github.com/spf13/cobra"
)

func newCacheCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the allocation result cache",
		Long: `Manage the allocation result cache.

The cache stores allocation results to speed up repeated requests with the same
inputs. Entries are keyed by the request, the variant and the measured parts.`,
	}

	cmd.AddCommand(newCacheClearCommand(opts))

	return cmd
}

func newCacheClearCommand(opts *rootOptions) *cobra.Command {
	var cacheDir string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the allocation result cache",
		Long: `Clear all cached allocation results.

The next allocation recomputes every result from scratch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cacheDir == "" {
				project, err := opts.project()
				if err != nil {
					return err
				}
				cacheDir = project.Cache.Dir
			}
			// Resolve to absolute path
			absDir, err := filepath.Abs(cacheDir)
			if err != nil {
				return fmt.Errorf("resolving cache directory: %w", err)
			}

			c := cache.New(absDir)
			if err := c.Clear(); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", absDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Cache directory to clear (default: cache.dir)")

	return cmd
}
