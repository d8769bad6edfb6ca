package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/siance/internal/logging"
	"github.com/ppiankov/siance/internal/model"
	"github.com/ppiankov/siance/internal/pipeline"
	"github.com/ppiankov/siance/internal/worker"
)

var (
	urlsFile   string
	userAgent  string
	maxBytes   int64
	ignoreBots bool
	httpProxy  string
	httpsProxy string
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [url...]",
	Short: "Download letter pages and analyze them",
	Long: `Fetch downloads letter pages (robots.txt honoured, rate limited per host),
extracts their visible text, cleans it and analyzes every letter.

Example:
  siance fetch https://example.org/lettres/INSSN-LYO-2021-0001.html
  siance fetch --file urls.txt --model model.json --output-dir ./reports`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&urlsFile, "file", "", "file of URLs, one per line")
	fetchCmd.Flags().StringVar(&outputDir, "output-dir", "./siance-reports", "output directory for reports")
	fetchCmd.Flags().StringVar(&modelPath, "model", "", "trained topic model (JSON); without it letters are only segmented")
	fetchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout")
	fetchCmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent (default: fetch.user_agent)")
	fetchCmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "max response bytes to read (default: fetch.max_body_bytes)")
	fetchCmd.Flags().BoolVar(&ignoreBots, "ignore-robots", false, "do not consult robots.txt")
	fetchCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	fetchCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	fetchCmd.Flags().BoolVar(&noMarkdown, "no-md", false, "skip Markdown reports")
}

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	applyFetchFlags(a.cfg)

	urls := args
	if urlsFile != "" {
		fromFile, err := worker.ReadURLsFromFile(urlsFile)
		if err != nil {
			return err
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URL given (arguments or --file)")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	w := cmd.ErrOrStderr()
	fetcher := pipeline.NewFetcher(a.cfg.Fetch, a.limiter)
	letters, sources := fetchLetters(ctx, fetcher, urls, a.log, func(format string, v ...interface{}) {
		fmt.Fprintf(w, format, v...)
	})
	if len(letters) == 0 {
		return fmt.Errorf("no letter could be fetched")
	}

	proc, m, err := a.newProcessor(ctx, modelPath, nil)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	results := worker.NewBatchProcessor(proc, a.cfg.Concurrency, a.log).ProcessLetters(ctx, letters)
	r := renderer(m)
	for _, result := range results {
		if result.Error != nil {
			fmt.Fprintf(w, "✗ %s: %v\n", result.Letter.ID, result.Error)
			continue
		}
		result.Report.SourceURL = sources[result.Index]
		if err := writeReports(r, result.Report, result.Letter.Text, outputDir, !noMarkdown); err != nil {
			fmt.Fprintf(w, "✗ %s: %v\n", result.Letter.ID, err)
			continue
		}
		fmt.Fprintf(w, "✓ %s (zones: %d, demands: %d)\n", result.Letter.ID,
			len(result.Report.Zones), len(result.Report.Demands))
	}
	return nil
}

func applyFetchFlags(cfg *model.Config) {
	if userAgent != "" {
		cfg.Fetch.UserAgent = userAgent
	}
	if maxBytes > 0 {
		cfg.Fetch.MaxBodyBytes = maxBytes
	}
	if ignoreBots {
		cfg.Fetch.RespectRobots = false
	}
	if httpProxy != "" {
		cfg.Fetch.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		cfg.Fetch.HTTPSProxy = httpsProxy
	}
}

// fetchLetters downloads every URL in turn. Failed pages are reported and
// skipped; sources[i] is the final URL of letters[i].
func fetchLetters(ctx context.Context, fetcher *pipeline.Fetcher, urls []string, log logging.Logger,
	printf func(string, ...interface{})) (letters []model.Letter, sources []string) {
	for _, u := range urls {
		page, err := fetcher.FetchWithRetry(ctx, u)
		if err != nil {
			log.Warn("fetch failed", logging.String("url", u), logging.Err(err))
			printf("✗ %s: %v\n", u, err)
			continue
		}
		letter, err := pipeline.PageLetter(page)
		if err != nil {
			log.Warn("page text extraction failed", logging.String("url", u), logging.Err(err))
			printf("✗ %s: %v\n", u, err)
			continue
		}
		letters = append(letters, letter)
		sources = append(sources, page.FinalURL)
	}
	return letters, sources
}
