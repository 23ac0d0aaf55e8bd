package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/opensource-finance/ticpe/internal/domain"
	"github.com/opensource-finance/ticpe/internal/rules"
)

// Expectation is the known outcome of a labeled session.
type Expectation struct {
	Eligible          bool     `json:"eligible"`
	EstimatedRecovery *float64 `json:"estimated_recovery,omitempty"`
}

// BenchMetrics tracks a bench run against a live service.
type BenchMetrics struct {
	// Eligibility confusion matrix over labeled sessions.
	TruePositives  int64
	FalsePositives int64
	TrueNegatives  int64
	FalseNegatives int64

	// Labeled sessions with an expected amount, and those within tolerance.
	AmountChecked int64
	AmountMatched int64
	AbsAmountErr  float64

	Processed int64
	Labeled   int64
	Errors    int64
	LatencyMs int64
}

type benchOptions struct {
	baseURL   string
	tenantID  string
	workers   int
	tolerance float64
	timeout   time.Duration
}

func (cli *CLI) newBenchCmd() *cobra.Command {
	opts := benchOptions{}
	var quiet bool

	cmd := &cobra.Command{
		Use:   "bench <dir|sessions.json>",
		Short: "Replay labeled sessions against a running service",
		Long: "Posts every session to POST /calculations of a running service and compares\n" +
			"the answers with the optional \"expected\" block of each session.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := &http.Client{Timeout: opts.timeout}

			if err := checkHealth(ctx, client, opts.baseURL); err != nil {
				return fmt.Errorf("service not reachable at %s: %w", opts.baseURL, err)
			}

			sessions, err := readSessions(args[0])
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				return fmt.Errorf("no session found in %s", args[0])
			}

			var bar *progressbar.ProgressBar
			if !quiet {
				bar = progressbar.NewOptions(len(sessions),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetDescription("replaying"),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}

			start := time.Now()
			m := runBench(ctx, client, sessions, opts, bar)
			printBenchResults(cmd.OutOrStdout(), m, time.Since(start))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Service base URL")
	cmd.Flags().StringVar(&opts.tenantID, "tenant", "bench", "Tenant ID for requests")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 10, "Number of concurrent requests")
	cmd.Flags().Float64Var(&opts.tolerance, "tolerance", 1, "Accepted deviation of the estimate, in euros")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress bar")
	return cmd
}

func checkHealth(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(baseURL, "/")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func runBench(ctx context.Context, client *http.Client, sessions []Session, opts benchOptions, bar *progressbar.ProgressBar) *BenchMetrics {
	m := &BenchMetrics{}
	var amountMu sync.Mutex

	workers := opts.workers
	if workers <= 0 {
		workers = 1
	}

	work := make(chan Session)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range work {
				start := time.Now()
				calc, err := postCalculation(ctx, client, opts.baseURL, opts.tenantID, s)
				atomic.AddInt64(&m.LatencyMs, time.Since(start).Milliseconds())
				atomic.AddInt64(&m.Processed, 1)
				if bar != nil {
					_ = bar.Add(1)
				}

				if err != nil {
					atomic.AddInt64(&m.Errors, 1)
					continue
				}
				if s.Expected == nil {
					continue
				}
				atomic.AddInt64(&m.Labeled, 1)

				predicted, actual := calc.Result.Eligible, s.Expected.Eligible
				switch {
				case predicted && actual:
					atomic.AddInt64(&m.TruePositives, 1)
				case predicted && !actual:
					atomic.AddInt64(&m.FalsePositives, 1)
				case !predicted && !actual:
					atomic.AddInt64(&m.TrueNegatives, 1)
				default:
					atomic.AddInt64(&m.FalseNegatives, 1)
				}

				if want := s.Expected.EstimatedRecovery; want != nil {
					diff := math.Abs(calc.Result.EstimatedRecovery - *want)
					amountMu.Lock()
					m.AmountChecked++
					m.AbsAmountErr += diff
					if diff <= opts.tolerance {
						m.AmountMatched++
					}
					amountMu.Unlock()
				}
			}
		}()
	}

	for _, s := range sessions {
		work <- s
	}
	close(work)
	wg.Wait()

	return m
}

func postCalculation(ctx context.Context, client *http.Client, baseURL, tenantID string, s Session) (*domain.Calculation, error) {
	body, err := json.Marshal(map[string]any{"responses": s.Responses})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(baseURL, "/")+"/calculations", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var calc domain.Calculation
	if err := json.NewDecoder(resp.Body).Decode(&calc); err != nil {
		return nil, err
	}
	if calc.Result == nil {
		return nil, fmt.Errorf("calculation %s has no result", calc.ID)
	}
	return &calc, nil
}

// ratio returns a/b, or 0 when b is 0.
func ratio(a, b int64) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func printBenchResults(w io.Writer, m *BenchMetrics, duration time.Duration) {
	fmt.Fprintln(w, "SESSIONS")
	fmt.Fprintf(w, "   Processed:  %d\n", m.Processed)
	fmt.Fprintf(w, "   Labeled:    %d\n", m.Labeled)
	fmt.Fprintf(w, "   Errors:     %d\n", m.Errors)

	if m.Labeled > 0 {
		fmt.Fprintln(w, "\nELIGIBILITY")
		fmt.Fprintln(w, "                     Predicted")
		fmt.Fprintln(w, "                  eligible   not eligible")
		fmt.Fprintf(w, "   eligible       %8d   %8d\n", m.TruePositives, m.FalseNegatives)
		fmt.Fprintf(w, "   not eligible   %8d   %8d\n", m.FalsePositives, m.TrueNegatives)

		precision := ratio(m.TruePositives, m.TruePositives+m.FalsePositives)
		recall := ratio(m.TruePositives, m.TruePositives+m.FalseNegatives)
		accuracy := ratio(m.TruePositives+m.TrueNegatives, m.Labeled)
		fmt.Fprintf(w, "   Precision:  %.4f\n", precision)
		fmt.Fprintf(w, "   Recall:     %.4f\n", recall)
		fmt.Fprintf(w, "   Accuracy:   %.4f\n", accuracy)
	}

	if m.AmountChecked > 0 {
		fmt.Fprintln(w, "\nESTIMATES")
		fmt.Fprintf(w, "   Within tolerance:  %d / %d\n", m.AmountMatched, m.AmountChecked)
		fmt.Fprintf(w, "   Mean abs. error:   %s €\n", rules.FormatAmount(m.AbsAmountErr/float64(m.AmountChecked)))
	}

	fmt.Fprintln(w, "\nPERFORMANCE")
	fmt.Fprintf(w, "   Duration:    %v\n", duration.Round(time.Millisecond))
	if m.Processed > 0 {
		fmt.Fprintf(w, "   Avg latency: %.2f ms\n", float64(m.LatencyMs)/float64(m.Processed))
		fmt.Fprintf(w, "   Throughput:  %.2f sessions/sec\n", float64(m.Processed)/duration.Seconds())
	}
}
