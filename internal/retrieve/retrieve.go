// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieve drives paginated retrieval for one (provider, search
// term) pair until the provider-reported total is reached.
//
// A Pager moves through three states: AwaitingFirstPage until the first
// response establishes the total, FetchingPages while the requested offset
// is below the total, and Exhausted once it is not, or once a failure makes
// further paging pointless.
package retrieve

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/pdiddy/library-querier/internal/httputil"
	"github.com/pdiddy/library-querier/internal/provider"
	"github.com/pdiddy/library-querier/pkg/types"
)

// DefaultPageSize is the number of results requested per page.
const DefaultPageSize = 25

// State is the pager's position in its lifecycle.
type State int

const (
	AwaitingFirstPage State = iota
	FetchingPages
	Exhausted
)

func (s State) String() string {
	switch s {
	case AwaitingFirstPage:
		return "awaiting-first-page"
	case FetchingPages:
		return "fetching-pages"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Fetcher is the subset of httputil.Fetcher the pager needs.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts httputil.FetchOptions) ([]byte, bool, error)
}

// Request describes one (provider, search term) retrieval.
type Request struct {
	SearchTerm string
	Years      types.YearRange
	PageSize   int
	APIKey     string
	Fetch      httputil.FetchOptions
}

// Page is one decoded page of results.
type Page struct {
	// Offset is the start offset the page was requested at.
	Offset int

	// Items are the decoded results, possibly empty.
	Items []types.Item

	// Tolerated is set when the request failed and the failure was ignored.
	Tolerated bool

	// Malformed is set when the response could not be decoded.
	Malformed bool
}

// Progress receives pagination progress. The progress package provides a
// console implementation.
type Progress interface {
	Start(title string, total int)
	Add(n int)
	Finish()
}

// Pager fetches pages for one (provider, search term) pair in order.
// It is finite and cannot be restarted once exhausted.
type Pager struct {
	adapter provider.Adapter
	fetcher Fetcher
	req     Request
	log     *zap.Logger

	state  State
	offset int
	total  int
}

// NewPager returns a pager in the AwaitingFirstPage state.
func NewPager(adapter provider.Adapter, fetcher Fetcher, req Request, log *zap.Logger) *Pager {
	if req.PageSize <= 0 {
		req.PageSize = DefaultPageSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pager{
		adapter: adapter,
		fetcher: fetcher,
		req:     req,
		log:     log.With(zap.String("provider", adapter.Name()), zap.String("search_term", req.SearchTerm)),
	}
}

// State returns the current lifecycle state.
func (p *Pager) State() State { return p.state }

// Total returns the provider-reported total and whether it is known yet.
func (p *Pager) Total() (int, bool) {
	return p.total, p.state != AwaitingFirstPage
}

// Done reports whether the pager is exhausted.
func (p *Pager) Done() bool { return p.state == Exhausted }

// Next fetches and decodes the next page. It returns a *httputil.FetchError
// when the request fails and failures are not tolerated; the pager is then
// exhausted. Calling Next on an exhausted pager returns an empty page.
func (p *Pager) Next(ctx context.Context) (Page, error) {
	if p.state == Exhausted {
		return Page{}, nil
	}

	page := Page{Offset: p.offset}
	url := p.adapter.BuildRequest(provider.Placeholders{
		SearchTerm: p.req.SearchTerm,
		StartYear:  p.req.Years.Start,
		EndYear:    p.req.Years.End,
		Offset:     p.offset,
		PageSize:   p.req.PageSize,
		APIKey:     p.req.APIKey,
	})
	p.offset += p.req.PageSize

	body, ok, err := p.fetcher.Fetch(ctx, url, p.req.Fetch)
	if err != nil {
		p.state = Exhausted
		return page, err
	}

	if !ok {
		page.Tolerated = true
		if p.state == AwaitingFirstPage {
			// Without a first page the total can never be learned.
			p.log.Warn("first page unavailable, stopping")
			p.state = Exhausted
			return page, nil
		}
		p.advance()
		return page, nil
	}

	if p.state == AwaitingFirstPage {
		total, err := p.adapter.ParseTotal(body)
		if err != nil {
			p.log.Warn("malformed first page, stopping", zap.Error(err))
			page.Malformed = true
			p.state = Exhausted
			return page, nil
		}
		p.total = total
		p.state = FetchingPages
		p.log.Debug("total known", zap.Int("total", total))
	}

	items, err := p.adapter.ParseItems(ctx, body, p.follow)
	if err != nil {
		if ctx.Err() != nil {
			p.state = Exhausted
			return page, ctx.Err()
		}
		var fe *httputil.FetchError
		if errors.As(err, &fe) {
			p.state = Exhausted
			return page, err
		}
		p.log.Warn("malformed page, skipping", zap.Int("offset", page.Offset), zap.Error(err))
		page.Malformed = true
	} else {
		page.Items = items
	}

	p.advance()
	return page, nil
}

// advance exhausts the pager once the requested offset reaches the total.
func (p *Pager) advance() {
	if p.offset >= p.total {
		p.state = Exhausted
	}
}

// follow routes adapter follow-up requests through the same fetch options.
func (p *Pager) follow(ctx context.Context, url string) ([]byte, bool, error) {
	return p.fetcher.Fetch(ctx, url, p.req.Fetch)
}

// Each drains the pager, calling fn for every item with its 1-based rank
// in stream order. Ranks count every decoded item. A non-nil error from
// fn or from Next stops iteration and is returned.
func (p *Pager) Each(ctx context.Context, progress Progress, fn func(item types.Item, rank int) error) error {
	rank := 0
	started := false
	defer func() {
		if started && progress != nil {
			progress.Finish()
		}
	}()

	for !p.Done() {
		page, err := p.Next(ctx)
		if err != nil {
			return err
		}

		if !started && progress != nil {
			if total, known := p.Total(); known {
				progress.Start(p.adapter.Name()+" "+p.req.SearchTerm, total)
				started = true
			}
		}

		for _, it := range page.Items {
			rank++
			if started {
				progress.Add(1)
			}
			if err := fn(it, rank); err != nil {
				return err
			}
		}
	}
	return nil
}
