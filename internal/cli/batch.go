package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/siance/internal/logging"
	"github.com/ppiankov/siance/internal/metrics"
	"github.com/ppiankov/siance/internal/worker"
)

var (
	concurrency   int
	outputDir     string
	batchTimeout  time.Duration
	letterTimeout time.Duration
	metricsAddr   string
	noMarkdown    bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Process every letter of a directory in parallel",
	Long: `Batch processes the .txt letters of a directory concurrently:
- each letter is an independent job; a failing letter never stops the batch
- a letter running past --letter-timeout is reported with a timeout failure
- one JSON (and Markdown) report per letter plus summary.json

Example:
  siance batch ./lettres
  siance batch ./lettres --model model.json --concurrency 8 --output-dir ./reports
  siance batch ./lettres --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./siance-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().DurationVar(&letterTimeout, "letter-timeout", 0, "timeout per letter (default: concurrency.letter_timeout)")
	batchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	batchCmd.Flags().StringVar(&modelPath, "model", "", "trained topic model (JSON); without it letters are only segmented")
	batchCmd.Flags().BoolVar(&noMarkdown, "no-md", false, "skip Markdown reports")
	batchCmd.Flags().BoolVar(&withContent, "with-content", false, "include demand text in the reports")
}

func runBatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	a, err := newApp()
	if err != nil {
		return err
	}
	if concurrency > 0 {
		a.cfg.Concurrency.Workers = concurrency
	}
	if letterTimeout > 0 {
		a.cfg.Concurrency.LetterTimeout = letterTimeout
	}
	if metricsAddr != "" {
		a.cfg.Metrics.Addr = metricsAddr
	}
	if withContent {
		a.cfg.Output.WithContent = true
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "\n%s\n  Siance Batch Processing\n%s\n\n", rule, rule)
	fmt.Fprintf(w, "  Input dir:    %s\n", dir)
	fmt.Fprintf(w, "  Workers:      %d\n", a.cfg.Concurrency.Workers)
	fmt.Fprintf(w, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(w, "  Timeout:      %v (per letter %v)\n", batchTimeout, a.cfg.Concurrency.LetterTimeout)

	recorder := metrics.NewRecorder()
	if a.cfg.Metrics.Addr != "" {
		fmt.Fprintf(w, "  Metrics:      http://%s/metrics\n", a.cfg.Metrics.Addr)
		serveCtx, stop := context.WithCancel(context.Background())
		defer stop()
		go func() {
			if err := recorder.Serve(serveCtx, a.cfg.Metrics.Addr, a.log); err != nil {
				a.log.Error("metrics endpoint failed", logging.Err(err))
			}
		}()
	}
	fmt.Fprintln(w)

	proc, m, err := a.newProcessor(ctx, modelPath, recorder)
	if err != nil {
		return err
	}
	if m != nil {
		fmt.Fprintf(w, "  Model:        %s (%s)\n\n", m.Name, m.Architecture)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(proc, a.cfg.Concurrency, a.log).WithTimeoutObserver(recorder)
	results, err := processor.ProcessDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("process dir: %w", err)
	}

	r := renderer(m)
	for _, result := range results {
		if result.Error != nil {
			fmt.Fprintf(w, "✗ %s: %v\n", result.Letter.ID, result.Error)
			continue
		}
		if err := writeReports(r, result.Report, result.Letter.Text, outputDir, !noMarkdown); err != nil {
			fmt.Fprintf(w, "✗ %s: %v\n", result.Letter.ID, err)
			continue
		}
		status := "✓"
		if len(result.Report.Failures) > 0 {
			status = "!"
		}
		fmt.Fprintf(w, "%s %s (zones: %d, demands: %d)\n", status, result.Letter.ID,
			len(result.Report.Zones), len(result.Report.Demands))
	}

	summary := worker.Summarize(results)
	if err := writeSummary(filepath.Join(outputDir, "summary.json"), summary); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s\n  Batch Complete\n%s\n\n", rule, rule)
	fmt.Fprintf(w, "  Letters:     %d\n", summary.Letters)
	fmt.Fprintf(w, "  Errors:      %d\n", summary.Errors)
	fmt.Fprintf(w, "  Zones:       %d\n", summary.Zones)
	fmt.Fprintf(w, "  Demands:     %d\n", summary.Demands)
	fmt.Fprintf(w, "  Predictions: %d\n", summary.Predictions)
	for kind, n := range summary.Failures {
		fmt.Fprintf(w, "  Failures (%s): %d\n", kind, n)
	}
	fmt.Fprintf(w, "  Output:      %s\n\n", outputDir)

	return nil
}

func writeSummary(path string, summary worker.Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
