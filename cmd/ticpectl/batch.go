package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/goccy/go-json"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opensource-finance/ticpe/internal/domain"
	"github.com/opensource-finance/ticpe/internal/engine"
	"github.com/opensource-finance/ticpe/internal/rules"
)

// BatchResult is the outcome of one session, written as one JSON line.
type BatchResult struct {
	ID     string                    `json:"id"`
	Result *domain.CalculationResult `json:"result,omitempty"`
	Error  string                    `json:"error,omitempty"`
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Sessions      int
	Eligible      int
	Failed        int
	TotalRecovery float64
}

func (cli *CLI) newBatchCmd() *cobra.Command {
	var (
		workers    int
		outputPath string
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "batch <dir|sessions.json>",
		Short: "Run calculations for many sessions concurrently",
		Long: "Runs every session of a directory (one *.json file per session) or of a\n" +
			"JSON array file, and writes one JSON line per session.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := readSessions(args[0])
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				return fmt.Errorf("no session found in %s", args[0])
			}

			eng, err := cli.engine()
			if err != nil {
				return err
			}

			var bar *progressbar.ProgressBar
			if !quiet {
				bar = progressbar.NewOptions(len(sessions),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetDescription("calculating"),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}

			results, err := runBatch(cmd.Context(), eng, sessions, workers, bar)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputPath != "" {
				f, err := os.Create(outputPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			if err := writeResults(out, results); err != nil {
				return err
			}

			s := summarize(results)
			fmt.Fprintf(cmd.ErrOrStderr(), "%d sessions, %d eligible, %d failed, total estimated recovery %s €\n",
				s.Sessions, s.Eligible, s.Failed, rules.FormatAmount(s.TotalRecovery))
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "Number of concurrent calculations")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write results to a file instead of stdout")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress bar")
	return cmd
}

// runBatch calculates every session with at most workers running at once.
// Results keep the session order; a failed session is reported, not fatal.
func runBatch(ctx context.Context, eng *engine.Engine, sessions []Session, workers int, bar *progressbar.ProgressBar) ([]BatchResult, error) {
	if workers <= 0 {
		workers = 1
	}

	results := make([]BatchResult, len(sessions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, s := range sessions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i].ID = s.ID
			res, err := eng.Calculate(gctx, s.Responses)
			if err != nil {
				results[i].Error = err.Error()
			} else {
				results[i].Result = res
			}
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeResults(w io.Writer, results []BatchResult) error {
	enc := json.NewEncoder(w)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func summarize(results []BatchResult) BatchSummary {
	s := BatchSummary{Sessions: len(results)}
	for _, r := range results {
		switch {
		case r.Error != "":
			s.Failed++
		case r.Result.Eligible:
			s.Eligible++
			s.TotalRecovery += r.Result.EstimatedRecovery
		}
	}
	return s
}
