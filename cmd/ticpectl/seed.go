package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opensource-finance/ticpe/internal/cache"
	"github.com/opensource-finance/ticpe/internal/config"
	"github.com/opensource-finance/ticpe/internal/reference"
	"github.com/opensource-finance/ticpe/internal/repository"
)

func (cli *CLI) newSeedCmd() *cobra.Command {
	var (
		configPath      string
		invalidateCache bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the reference dataset into the configured database",
		Long: "Upserts every reference table row of the dataset into the repository\n" +
			"configured by --config and TICPE_* variables. Seeding is idempotent.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ds, err := cli.dataset()
			if err != nil {
				return err
			}

			repo, err := repository.New(cfg.Repository)
			if err != nil {
				return fmt.Errorf("open repository: %w", err)
			}
			defer repo.Close()

			if err := repo.SeedReference(ctx, &ds.ReferenceTables); err != nil {
				return err
			}

			if invalidateCache {
				c, err := cache.New(cfg.Cache)
				if err != nil {
					return fmt.Errorf("open cache: %w", err)
				}
				defer c.Close()
				if err := reference.NewCachedSource(nil, c, ds.Version, 0).Invalidate(ctx); err != nil {
					return fmt.Errorf("invalidate cached lookups: %w", err)
				}
			}

			versions, err := repo.ListReferenceVersions(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded dataset %s into %s (versions: %s)\n",
				ds.Version, cfg.Repository.Driver, strings.Join(versions, ", "))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the service config file")
	cmd.Flags().BoolVar(&invalidateCache, "invalidate-cache", false, "Drop cached lookups of the seeded version")
	return cmd
}
