package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/opensource-finance/ticpe/internal/domain"
	"github.com/opensource-finance/ticpe/internal/rules"
)

func (cli *CLI) newSimulateCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "simulate <session.json>",
		Short: "Run one calculation from a JSON session file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			session, err := parseSession(data)
			if err != nil {
				return err
			}

			eng, err := cli.engine()
			if err != nil {
				return err
			}
			result, err := eng.Calculate(cmd.Context(), session.Responses)
			if err != nil {
				return fmt.Errorf("calculation failed: %w", err)
			}

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			case "text":
				return printResult(cmd.OutOrStdout(), result)
			default:
				return fmt.Errorf("unknown format %q (json, text)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text or json")
	return cmd
}

// printResult writes a human summary of a result.
func printResult(w io.Writer, r *domain.CalculationResult) error {
	if !r.Eligible {
		fmt.Fprintln(w, "Eligible:            no")
		for _, risk := range r.RiskFactors {
			fmt.Fprintf(w, "  - %s\n", risk)
		}
		return nil
	}

	fmt.Fprintln(w, "Eligible:            yes")
	fmt.Fprintf(w, "Estimated recovery:  %s €/an\n", rules.FormatAmount(r.EstimatedRecovery))
	fmt.Fprintf(w, "Eligibility score:   %d/100\n", r.EligibilityScore)
	fmt.Fprintf(w, "Maturity score:      %d/100\n", r.MaturityScore)
	fmt.Fprintf(w, "Confidence:          %s\n", r.ConfidenceLevel)
	if b := r.BenchmarkComparison; b != nil {
		fmt.Fprintf(w, "Benchmark:           %s € (%+.0f%%, %s)\n", rules.FormatAmount(b.Benchmark), b.PercentageDiff, b.Performance)
	}
	if t := r.Timeline; t != nil {
		fmt.Fprintln(w, "Timeline:")
		for _, y := range t.Years {
			fmt.Fprintf(w, "  %d  %10s €  %s\n", y.Year, rules.FormatAmount(y.Amount), y.Status)
		}
		fmt.Fprintf(w, "  total %9s €\n", rules.FormatAmount(t.Total))
	}
	if len(r.Recommendations) > 0 {
		fmt.Fprintln(w, "Recommendations:")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
	}
	if len(r.RiskFactors) > 0 {
		fmt.Fprintln(w, "Risk factors:")
		for _, risk := range r.RiskFactors {
			fmt.Fprintf(w, "  - %s\n", risk)
		}
	}
	fmt.Fprintf(w, "Dataset:             %s\n", r.DatasetVersion)
	return nil
}
