// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/library-querier/internal/cache"
	"github.com/pdiddy/library-querier/internal/export"
	"github.com/pdiddy/library-querier/internal/httputil"
	"github.com/pdiddy/library-querier/internal/progress"
	"github.com/pdiddy/library-querier/internal/query"
	"github.com/pdiddy/library-querier/internal/retrieve"
)

var queryCmd = &cobra.Command{
	Use:   "query [search terms...]",
	Short: "Query providers and fold the results into the corpus",
	Long: `Query sends every search term to every selected provider, pages through
the results and merges them into the corpus file. Records are matched by
DOI, or by title, first author and year when there is no DOI. Existing
records keep their fields and gain or refresh one provenance entry per
(provider, search term).

Search terms can be given as arguments or with --term. Failed requests are
retried; with --ignore-failed-calls a request that still fails is treated
as an empty result instead of stopping that provider.`,
	RunE: runQuery,
}

func init() {
	addQueryFlags(queryCmd)
	rootCmd.AddCommand(queryCmd)
}

// addQueryFlags defines the query flags on cmd.
func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", defaultOutput, "corpus CSV file to read and update")
	cmd.Flags().StringArrayP("term", "t", nil, "search term (repeatable)")
	cmd.Flags().Int("start-year", defaultStartYear, "earliest publication year for new records")
	cmd.Flags().Int("end-year", 0, "latest publication year for new records (default current year)")
	cmd.Flags().StringSliceP("provider", "p", nil, "provider to query (repeatable; default all)")
	cmd.Flags().Bool("use-cache", false, "serve responses cached within the TTL")
	cmd.Flags().String("cache-dir", "", "response cache directory (default system temp dir)")
	cmd.Flags().Duration("cache-ttl", cache.DefaultTTL, "how long cached responses stay valid")
	cmd.Flags().Bool("ignore-failed-calls", false, "treat requests that exhaust their attempts as empty results")
	cmd.Flags().Int("max-attempts", httputil.DefaultMaxAttempts, "attempts per request")
	cmd.Flags().Int("workers", 1, "provider/term pairs to query in parallel")
	cmd.Flags().Duration("timeout", httputil.DefaultTimeout, "timeout for a single HTTP attempt")
	cmd.Flags().Float64("rate", 0, "maximum requests per second per provider (0 = unlimited)")
	cmd.Flags().String("user-agent", "", "User-Agent header (default library-querier/<version>)")
	cmd.Flags().String("report", "", "write a YAML run report to this file")
	cmd.Flags().Bool("no-progress", false, "disable progress output")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadQueryConfig(viper.GetViper(), cmd)
	if err != nil {
		return err
	}
	cfg.SearchTerms = append(cfg.SearchTerms, args...)
	if len(cfg.SearchTerms) == 0 {
		return eris.New("provide at least one search term as an argument or with --term")
	}

	fetcher := &httputil.Fetcher{
		Client:    &http.Client{},
		Cache:     cache.New(cfg.Cache.Dir, cfg.Cache.TTL),
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
		Logger:    logger,
	}

	runner := &query.Runner{
		Fetcher:           fetcher,
		Keys:              apiKeys(cfg.APIKeys),
		Workers:           cfg.Workers,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logger,
	}
	if noProgress, _ := cmd.Flags().GetBool("no-progress"); !noProgress {
		console := progress.New(os.Stderr)
		if cfg.Workers > 1 {
			console.SetLive(false)
		}
		runner.NewProgress = func() retrieve.Progress { return console.Bar() }
	}

	opts := query.Options{
		Output:      cfg.Output,
		SearchTerms: cfg.SearchTerms,
		Years:       cfg.Years,
		Providers:   cfg.Providers,
		Fetch: httputil.FetchOptions{
			UseCache:          cfg.Cache.Enabled,
			IgnoreFailedCalls: cfg.IgnoreFailedCalls,
			MaxAttempts:       cfg.MaxAttempts,
		},
	}

	logger.Info("starting query",
		zap.Strings("search_terms", opts.SearchTerms),
		zap.Int("start_year", opts.Years.Start),
		zap.Int("end_year", opts.Years.End),
		zap.Strings("providers", opts.Providers),
		zap.Bool("use_cache", opts.Fetch.UseCache))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, runErr := runner.Run(ctx, opts)

	if !rep.Finished.IsZero() {
		printReport(rep)
	}
	if path, _ := cmd.Flags().GetString("report"); path != "" && !rep.Finished.IsZero() {
		if err := export.WriteRunFile(path, opts, rep); err != nil {
			logger.Warn("writing run report failed", zap.String("path", path), zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "Run report written to %s\n", path)
		}
	}

	if runErr != nil {
		return runErr
	}
	if rep.Failed() {
		names := make([]string, len(rep.Failures))
		for i, f := range rep.Failures {
			names[i] = f.Provider + "/" + f.SearchTerm
		}
		return eris.Errorf("%d search(es) failed: %s", len(rep.Failures), strings.Join(names, ", "))
	}
	return nil
}

func printReport(rep query.Report) {
	fmt.Fprintf(os.Stdout, "%-18s  %-24s  %6s  %9s  %7s  %7s  %9s  %8s\n",
		"Provider", "Search term", "Total", "Processed", "Created", "Updated", "Unchanged", "Rejected")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 102))
	for _, p := range rep.Pairs {
		term := truncate(p.SearchTerm, 24)
		fmt.Fprintf(os.Stdout, "%-18s  %-24s  %6d  %9d  %7d  %7d  %9d  %8d\n",
			p.Provider, term, p.Total, p.Processed, p.Created, p.Updated, p.Unchanged, p.Rejected)
	}
	fmt.Fprintln(os.Stdout)
	fmt.Fprintf(os.Stdout, "New articles: %d, updated articles: %d\n", rep.Created, rep.Updated)
	rep.Summary().Format(os.Stdout)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
