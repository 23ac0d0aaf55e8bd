package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opensource-finance/ticpe/internal/reference"
)

func (cli *CLI) newDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Inspect reference datasets",
	}
	cmd.AddCommand(cli.newDatasetExportCmd())
	cmd.AddCommand(newDatasetValidateCmd())
	return cmd
}

func (cli *CLI) newDatasetExportCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the dataset as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := cli.dataset()
			if err != nil {
				return err
			}

			if outputPath == "" {
				return ds.Export(cmd.OutOrStdout())
			}
			f, err := os.Create(outputPath)
			if err != nil {
				return err
			}
			if err := ds.Export(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newDatasetValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dataset.yaml>",
		Short: "Check a YAML dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := reference.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dataset %s (%d) is valid: %d sectors, %d fuel rates, %d benchmarks, %d rules\n",
				ds.Version, ds.Year, len(ds.Sectors), len(ds.FuelRates), len(ds.Benchmarks), len(ds.Rules))
			return nil
		},
	}
}
