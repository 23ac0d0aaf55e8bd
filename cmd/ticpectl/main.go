// TICPE - fuel tax rebate eligibility and recovery engine.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

// Command ticpectl runs calculations offline and manages reference datasets.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/opensource-finance/ticpe/internal/engine"
	"github.com/opensource-finance/ticpe/internal/reference"
)

// CLI holds the flags shared by every command.
type CLI struct {
	datasetPath string
	verbose     bool
	out         io.Writer
	rootCmd     *cobra.Command
}

// NewCLI builds the command tree writing results to out.
func NewCLI(out io.Writer) *CLI {
	cli := &CLI{out: out}
	cli.rootCmd = cli.newRootCmd()
	return cli
}

// Execute runs the command line; ctx cancels running calculations.
func (cli *CLI) Execute(ctx context.Context, args []string) error {
	cli.rootCmd.SetArgs(args)
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ticpectl",
		Short:         "TICPE eligibility and recovery tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if cli.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	cmd.SetOut(cli.out)

	cmd.PersistentFlags().StringVar(&cli.datasetPath, "dataset", "", "Path to a YAML reference dataset (default: embedded dataset)")
	cmd.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(cli.newSimulateCmd())
	cmd.AddCommand(cli.newBatchCmd())
	cmd.AddCommand(cli.newBenchCmd())
	cmd.AddCommand(cli.newSeedCmd())
	cmd.AddCommand(cli.newDatasetCmd())

	return cmd
}

// dataset returns the dataset selected with --dataset.
func (cli *CLI) dataset() (*reference.Dataset, error) {
	if cli.datasetPath == "" {
		return reference.Default(), nil
	}
	return reference.Load(cli.datasetPath)
}

// engine builds an in-memory engine over the selected dataset.
func (cli *CLI) engine() (*engine.Engine, error) {
	ds, err := cli.dataset()
	if err != nil {
		return nil, err
	}
	return engine.New(nil, ds)
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewCLI(os.Stdout).Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
