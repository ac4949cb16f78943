// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query runs a full retrieval: every selected provider crossed with
// every search term, reconciled into the corpus stored at the output path.
package query

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pdiddy/library-querier/internal/corpus"
	"github.com/pdiddy/library-querier/internal/httputil"
	"github.com/pdiddy/library-querier/internal/provider"
	"github.com/pdiddy/library-querier/internal/retrieve"
	"github.com/pdiddy/library-querier/pkg/types"
)

// Options describes one run.
type Options struct {
	// Output is the corpus file read at start and rewritten at the end.
	Output string

	SearchTerms []string
	Years       types.YearRange

	// Providers is an allow-list of adapter names. Empty selects all.
	Providers []string

	Fetch    httputil.FetchOptions
	PageSize int
}

// PairResult summarizes one (provider, search term) retrieval.
type PairResult struct {
	Provider   string `json:"provider" yaml:"provider"`
	SearchTerm string `json:"search_term" yaml:"search_term"`
	Total      int    `json:"total" yaml:"total"`
	Processed  int    `json:"processed" yaml:"processed"`
	Created    int    `json:"created" yaml:"created"`
	Updated    int    `json:"updated" yaml:"updated"`
	Unchanged  int    `json:"unchanged" yaml:"unchanged"`
	Rejected   int    `json:"rejected" yaml:"rejected"`
}

// PairFailure records a pair that stopped on an unrecoverable fetch error.
type PairFailure struct {
	Provider   string `json:"provider" yaml:"provider"`
	SearchTerm string `json:"search_term" yaml:"search_term"`
	URL        string `json:"url,omitempty" yaml:"url,omitempty"`
	Attempts   int    `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	Error      string `json:"error" yaml:"error"`
}

// Report is the outcome of a run.
type Report struct {
	RunID    uuid.UUID `json:"run_id" yaml:"run_id"`
	Started  time.Time `json:"started" yaml:"started"`
	Finished time.Time `json:"finished" yaml:"finished"`

	// Created counts records inserted this run; Updated counts distinct
	// records that gained or changed provenance after they were first seen.
	Created int `json:"created" yaml:"created"`
	Updated int `json:"updated" yaml:"updated"`

	Total      int            `json:"total" yaml:"total"`
	ByProvider map[string]int `json:"by_provider" yaml:"by_provider"`

	Pairs    []PairResult  `json:"pairs" yaml:"pairs"`
	Failures []PairFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Failed reports whether any pair stopped on a fetch error.
func (r Report) Failed() bool { return len(r.Failures) > 0 }

// Summary returns the corpus counts recorded in the report.
func (r Report) Summary() corpus.Summary {
	return corpus.Summary{Total: r.Total, ByProvider: r.ByProvider}
}

// Runner executes runs. The zero value queries the built-in adapters
// sequentially with a default fetcher.
type Runner struct {
	// Adapters overrides the built-in registry.
	Adapters []provider.Adapter

	Fetcher *httputil.Fetcher

	// Keys maps provider names to API keys.
	Keys map[string]string

	// Workers bounds how many pairs run at once. Values below 1 mean 1.
	Workers int

	// RequestsPerSecond limits each provider independently. Zero disables limiting.
	RequestsPerSecond float64

	Logger *zap.Logger

	// NewProgress returns a progress sink for each pair; nil disables progress.
	NewProgress func() retrieve.Progress

	// Today overrides the observation date source.
	Today func() string
}

type pair struct {
	adapter provider.Adapter
	fetcher *httputil.Fetcher
	term    string
}

// Run loads the corpus, drains every pair and saves the corpus.
//
// A pair that fails with a *httputil.FetchError is recorded in
// Report.Failures and the remaining pairs continue. Run returns an error
// for invalid options, an unreadable corpus, a cancelled context or a
// failed save; in the last case the previous corpus file is left intact.
func (r *Runner) Run(ctx context.Context, opts Options) (Report, error) {
	log := r.logger()
	rep := Report{RunID: uuid.New(), Started: time.Now()}
	log = log.With(zap.String("run_id", rep.RunID.String()))

	adapters, err := r.selectAdapters(opts.Providers)
	if err != nil {
		return rep, err
	}
	terms := cleanTerms(opts.SearchTerms)
	if len(terms) == 0 {
		return rep, eris.New("at least one search term is required")
	}
	if opts.Years.Start > opts.Years.End {
		return rep, eris.Errorf("start year %d is after end year %d", opts.Years.Start, opts.Years.End)
	}
	if opts.Output == "" {
		return rep, eris.New("output path is required")
	}

	c, err := corpus.Load(opts.Output, func(err error) {
		log.Warn("skipping corrupt corpus row", zap.Error(err))
	})
	if err != nil {
		return rep, err
	}
	log.Info("corpus loaded", zap.String("path", opts.Output), zap.Int("records", c.Len()))

	rec := corpus.NewReconciler(c)
	if r.Today != nil {
		rec.WithToday(r.Today)
	}

	pairs := r.buildPairs(adapters, terms)

	results := make([]PairResult, len(pairs))
	failed := make([]*PairFailure, len(pairs))

	g := new(errgroup.Group)
	g.SetLimit(r.workers())
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			res, err := r.runPair(ctx, p, rec, opts, log)
			results[i] = res
			if err == nil {
				return nil
			}
			var fe *httputil.FetchError
			if !errors.As(err, &fe) {
				return err
			}
			log.Error("pair failed",
				zap.String("provider", p.adapter.Name()),
				zap.String("search_term", p.term),
				zap.Error(err))
			failed[i] = &PairFailure{
				Provider:   p.adapter.Name(),
				SearchTerm: p.term,
				URL:        fe.URL,
				Attempts:   fe.Attempts,
				Error:      err.Error(),
			}
			return nil
		})
	}
	runErr := g.Wait()

	rep.Pairs = results
	for _, f := range failed {
		if f != nil {
			rep.Failures = append(rep.Failures, *f)
		}
	}

	if err := corpus.Save(opts.Output, c); err != nil {
		log.Error("corpus save failed", zap.String("path", opts.Output), zap.Error(err))
		return r.finish(rep, rec, c), eris.Wrap(err, "saving corpus")
	}
	rep = r.finish(rep, rec, c)
	log.Info("run finished",
		zap.Int("created", rep.Created),
		zap.Int("updated", rep.Updated),
		zap.Int("total", rep.Total),
		zap.Int("failed_pairs", len(rep.Failures)),
		zap.Duration("elapsed", rep.Finished.Sub(rep.Started)))

	if runErr != nil {
		return rep, runErr
	}
	return rep, nil
}

func (r *Runner) runPair(ctx context.Context, p pair, rec *corpus.Reconciler, opts Options, log *zap.Logger) (PairResult, error) {
	res := PairResult{Provider: p.adapter.Name(), SearchTerm: p.term}
	pager := retrieve.NewPager(p.adapter, p.fetcher, retrieve.Request{
		SearchTerm: p.term,
		Years:      opts.Years,
		PageSize:   opts.PageSize,
		APIKey:     r.Keys[p.adapter.Name()],
		Fetch:      opts.Fetch,
	}, log)

	var prog retrieve.Progress
	if r.NewProgress != nil {
		prog = r.NewProgress()
	}

	err := pager.Each(ctx, prog, func(item types.Item, rank int) error {
		res.Processed++
		switch rec.Reconcile(item, p.adapter.Name(), p.term, rank, opts.Years) {
		case corpus.Created:
			res.Created++
		case corpus.Updated:
			res.Updated++
		case corpus.Unchanged:
			res.Unchanged++
		case corpus.Rejected:
			res.Rejected++
		}
		return nil
	})
	res.Total, _ = pager.Total()
	return res, err
}

// buildPairs crosses adapters with terms, giving each adapter its own
// rate limiter so providers never throttle each other.
func (r *Runner) buildPairs(adapters []provider.Adapter, terms []string) []pair {
	base := r.Fetcher
	if base == nil {
		base = &httputil.Fetcher{}
	}
	if base.Logger == nil {
		cp := *base
		cp.Logger = r.logger()
		base = &cp
	}

	var pairs []pair
	for _, a := range adapters {
		f := base
		if r.RequestsPerSecond > 0 {
			f = base.WithLimiter(rate.NewLimiter(rate.Limit(r.RequestsPerSecond), 1))
		}
		for _, t := range terms {
			pairs = append(pairs, pair{adapter: a, fetcher: f, term: t})
		}
	}
	return pairs
}

func (r *Runner) selectAdapters(names []string) ([]provider.Adapter, error) {
	if r.Adapters == nil {
		return provider.Select(names)
	}
	if len(names) == 0 {
		return r.Adapters, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.TrimSpace(n)] = true
	}
	var out []provider.Adapter
	for _, a := range r.Adapters {
		if want[a.Name()] {
			out = append(out, a)
			delete(want, a.Name())
		}
	}
	if len(want) > 0 {
		unknown := make([]string, 0, len(want))
		for n := range want {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, eris.Errorf("unknown provider(s) %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

func (r *Runner) finish(rep Report, rec *corpus.Reconciler, c *corpus.Corpus) Report {
	stats := rec.Stats()
	sum := corpus.Summarize(c)
	rep.Created = stats.Created
	rep.Updated = stats.Updated()
	rep.Total = sum.Total
	rep.ByProvider = sum.ByProvider
	rep.Finished = time.Now()
	return rep
}

func (r *Runner) workers() int {
	if r.Workers < 1 {
		return 1
	}
	return r.Workers
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// cleanTerms trims terms and drops blanks and duplicates, keeping order.
func cleanTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	var out []string
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
