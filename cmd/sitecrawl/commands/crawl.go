package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/sitecrawl/internal/crawler"
	"github.com/jmylchreest/sitecrawl/internal/logger"
	"github.com/jmylchreest/sitecrawl/internal/output"
	"github.com/jmylchreest/sitecrawl/pkg/sitecrawl"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl sites and collect page text",
	Long: `Crawl one site per seed URL and write the collected pages.

Each seed gets its own isolated browser context. Links are followed
depth-first in page order until the depth or page budget is reached.
Pages that fail or turn out to be challenge pages are recorded as
errors and the crawl carries on.

Policy flags can also be set in .sitecrawl.yaml (e.g. max_depth: 3) or
through SITECRAWL_ environment variables (e.g. SITECRAWL_MAX_PAGES=100).

Examples:
  # Default policy, JSON to stdout
  sitecrawl crawl -u "https://example.com"

  # Skip login and search pages, archive nothing
  sitecrawl crawl -u "https://example.com" --exclude /login --exclude /search --save-html=false

  # Honour robots.txt and stop after ten minutes
  sitecrawl crawl -u "https://example.com" --respect-robots --max-duration 10m`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	flags := crawlCmd.Flags()
	def := crawler.DefaultPolicy()

	// URL inputs
	flags.StringSliceP("url", "u", nil, "seed URL(s) to crawl (can be repeated)")

	// Output settings
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml")
	flags.Bool("compact", false, "write JSON without indentation")
	flags.IntP("concurrency", "c", 1, "sites crawled at the same time")

	// Browser settings
	flags.Bool("headless", true, "run Chrome without a window (use --headless=false to watch)")
	flags.String("chrome-path", "", "Chrome binary (default: $CHROME_PATH, then discovered)")
	flags.StringSlice("user-agent", nil, "user agent(s) to rotate across crawls")
	flags.String("archive-dir", "crawler-html", "directory for archived page HTML")

	// Crawl policy
	flags.Uint("max-depth", def.MaxDepth, "max link depth (0=seed only)")
	flags.Uint("max-pages", def.MaxPages, "max pages per site")
	flags.Bool("same-domain", def.SameDomainOnly, "stay on the seed's domain")
	flags.StringSlice("exclude", nil, "skip URLs containing this substring (can be repeated)")
	flags.StringSlice("include", nil, "only follow URLs containing this substring (can be repeated)")
	flags.Duration("navigation-timeout", def.NavigationTimeout, "timeout per navigation attempt")
	flags.Duration("settle-delay", def.ContentSettleDelay, "wait for client-side rendering before extracting")
	flags.String("selector", def.ContentSelector, "CSS selector the page text is taken from")
	flags.Bool("save-html", def.SaveHTML, "archive the raw HTML of each page")
	flags.Bool("respect-robots", def.RespectRobots, "skip URLs disallowed by robots.txt")
	flags.Duration("max-duration", 0, "stop each crawl after this long (0=no limit)")
	flags.Int("rate", 0, "max page fetches per minute per site (0=no limit)")

	// Bind to viper
	for key, flag := range map[string]string{
		"format":             "format",
		"compact":            "compact",
		"concurrency":        "concurrency",
		"headless":           "headless",
		"chrome_path":        "chrome-path",
		"user_agents":        "user-agent",
		"archive_dir":        "archive-dir",
		"max_depth":          "max-depth",
		"max_pages":          "max-pages",
		"same_domain":        "same-domain",
		"exclude":            "exclude",
		"include":            "include",
		"navigation_timeout": "navigation-timeout",
		"settle_delay":       "settle-delay",
		"selector":           "selector",
		"save_html":          "save-html",
		"respect_robots":     "respect-robots",
		"max_duration":       "max-duration",
		"rate":               "rate",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

// policyFromConfig builds the crawl policy from flags, config file and
// environment.
func policyFromConfig() crawler.Policy {
	return crawler.Policy{
		MaxDepth:           viper.GetUint("max_depth"),
		MaxPages:           viper.GetUint("max_pages"),
		SameDomainOnly:     viper.GetBool("same_domain"),
		ExcludePatterns:    viper.GetStringSlice("exclude"),
		IncludePatterns:    viper.GetStringSlice("include"),
		NavigationTimeout:  viper.GetDuration("navigation_timeout"),
		ContentSettleDelay: viper.GetDuration("settle_delay"),
		ContentSelector:    viper.GetString("selector"),
		SaveHTML:           viper.GetBool("save_html"),
		RespectRobots:      viper.GetBool("respect_robots"),
		MaxDuration:        viper.GetDuration("max_duration"),
		RequestsPerMinute:  viper.GetInt("rate"),
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	initLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Get URLs
	seeds, _ := cmd.Flags().GetStringSlice("url")
	seeds = append(seeds, args...)
	if len(seeds) == 0 {
		return cmd.Help()
	}

	policy := policyFromConfig()
	if err := policy.Validate(); err != nil {
		logger.Error("invalid crawl settings", "error", err)
		return err
	}
	logger.Debug("crawl policy", "policy", fmt.Sprintf("%+v", policy))

	format, err := output.ParseFormat(viper.GetString("format"))
	if err != nil {
		logger.Error("invalid output format", "error", err)
		return err
	}

	opts := []sitecrawl.Option{
		sitecrawl.WithHeadless(viper.GetBool("headless")),
		sitecrawl.WithArchiveDir(viper.GetString("archive_dir")),
		sitecrawl.WithPolicy(policy),
	}
	if path := viper.GetString("chrome_path"); path != "" {
		opts = append(opts, sitecrawl.WithChromePath(path))
	}
	if agents := viper.GetStringSlice("user_agents"); len(agents) > 0 {
		opts = append(opts, sitecrawl.WithUserAgents(agents...))
	}

	client, err := sitecrawl.New(opts...)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}
	defer func() { _ = client.Close() }()

	// Setup output
	outFile := os.Stdout
	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		f, err := os.Create(outPath) //#nosec G304 -- CLI tool writes to user-specified output file
		if err != nil {
			logger.Error("failed to create output file", "path", outPath, "error", err)
			return err
		}
		defer func() { _ = f.Close() }()
		outFile = f
	}

	writer, err := output.NewWriter(outFile, format, output.WithPretty(!viper.GetBool("compact")))
	if err != nil {
		logger.Error("failed to create output writer", "format", format, "error", err)
		return err
	}
	defer func() { _ = writer.Close() }()

	concurrency := viper.GetInt("concurrency")
	logger.Info("starting crawl",
		"seeds", len(seeds),
		"concurrency", concurrency,
		"max_depth", policy.MaxDepth,
		"max_pages", policy.MaxPages)
	start := time.Now()

	results, err := client.CrawlMany(ctx, seeds, concurrency)

	var pages, pageErrors, failed int
	var textBytes uint64
	for _, r := range results {
		if werr := writer.Write(output.Crawl{Seed: r.Seed, Result: r.Result, Err: r.Err}); werr != nil {
			logger.Error("failed to write output", "error", werr)
			return werr
		}
		if r.Err != nil && r.Result == nil {
			failed++
		}
		if r.Result != nil {
			pages += r.Result.TotalPages
			pageErrors += len(r.Result.Errors)
			for _, p := range r.Result.Pages {
				textBytes += uint64(len(p.Content))
			}
		}
	}
	if werr := writer.Flush(); werr != nil {
		logger.Error("failed to write output", "error", werr)
		return werr
	}

	logInfo("crawled %s pages (%s of text) from %d site(s) in %s, %s page errors",
		humanize.Comma(int64(pages)),
		humanize.Bytes(textBytes),
		len(seeds)-failed,
		time.Since(start).Round(time.Second),
		humanize.Comma(int64(pageErrors)))

	if errors.Is(err, context.Canceled) {
		logger.Warn("crawl interrupted, partial results written")
		return nil
	}
	if failed == len(seeds) {
		return fmt.Errorf("all %d crawl(s) failed", failed)
	}
	return nil
}
