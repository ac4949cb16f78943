// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/library-querier/internal/httputil"
	"github.com/pdiddy/library-querier/internal/provider"
	"github.com/pdiddy/library-querier/pkg/types"
)

// --- fakes ---

// fakeAdapter encodes the offset in the URL and decodes a tiny JSON shape:
// {"total": N, "items": ["title", ...]}.
type fakeAdapter struct{}

func (fakeAdapter) Name() string { return "fake" }

func (fakeAdapter) BuildRequest(p provider.Placeholders) string {
	return fmt.Sprintf("https://fake.test/?q=%s&offset=%d&size=%d", url.QueryEscape(p.SearchTerm), p.Offset, p.PageSize)
}

type fakeBody struct {
	Total int      `json:"total"`
	Items []string `json:"items"`
}

func (fakeAdapter) ParseTotal(body []byte) (int, error) {
	var b fakeBody
	if err := json.Unmarshal(body, &b); err != nil {
		return 0, err
	}
	return b.Total, nil
}

func (fakeAdapter) ParseItems(_ context.Context, body []byte, _ provider.Follower) ([]types.Item, error) {
	var b fakeBody
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, err
	}
	var items []types.Item
	for _, t := range b.Items {
		items = append(items, types.Item{Title: t, Year: 2020})
	}
	return items, nil
}

type response struct {
	body string
	ok   bool
	err  error
}

// fakeFetcher answers by offset and records requested offsets.
type fakeFetcher struct {
	byOffset map[int]response
	offsets  []int
}

func (f *fakeFetcher) Fetch(_ context.Context, raw string, _ httputil.FetchOptions) ([]byte, bool, error) {
	u, _ := url.Parse(raw)
	off, _ := strconv.Atoi(u.Query().Get("offset"))
	f.offsets = append(f.offsets, off)
	r, ok := f.byOffset[off]
	if !ok {
		return nil, false, errors.New("unexpected offset")
	}
	if r.err != nil || !r.ok {
		return nil, false, r.err
	}
	return []byte(r.body), true, nil
}

func page(total int, titles ...string) response {
	b, _ := json.Marshal(fakeBody{Total: total, Items: titles})
	return response{body: string(b), ok: true}
}

type recordingProgress struct {
	title  string
	total  int
	added  int
	closed bool
}

func (r *recordingProgress) Start(title string, total int) { r.title, r.total = title, total }
func (r *recordingProgress) Add(n int)                     { r.added += n }
func (r *recordingProgress) Finish()                       { r.closed = true }

func newPager(f *fakeFetcher) *Pager {
	return NewPager(fakeAdapter{}, f, Request{SearchTerm: "ai", Years: types.YearRange{Start: 2015, End: 2023}, PageSize: 2}, nil)
}

// --- tests ---

func TestPagerWalksAllPages(t *testing.T) {
	f := &fakeFetcher{byOffset: map[int]response{
		0: page(5, "a", "b"),
		2: page(5, "c", "d"),
		4: page(5, "e"),
	}}
	p := newPager(f)
	assert.Equal(t, AwaitingFirstPage, p.State())

	var titles []string
	var ranks []int
	prog := &recordingProgress{}
	err := p.Each(context.Background(), prog, func(it types.Item, rank int) error {
		titles = append(titles, it.Title)
		ranks = append(ranks, rank)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, titles)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ranks)
	assert.Equal(t, []int{0, 2, 4}, f.offsets)
	assert.Equal(t, Exhausted, p.State())

	total, known := p.Total()
	assert.True(t, known)
	assert.Equal(t, 5, total)

	assert.Equal(t, "fake ai", prog.title)
	assert.Equal(t, 5, prog.total)
	assert.Equal(t, 5, prog.added)
	assert.True(t, prog.closed)
}

func TestPagerStateTransitions(t *testing.T) {
	f := &fakeFetcher{byOffset: map[int]response{
		0: page(3, "a", "b"),
		2: page(3, "c"),
	}}
	p := newPager(f)

	pg, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, pg.Items, 2)
	assert.Equal(t, FetchingPages, p.State())

	pg, err = p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, pg.Offset)
	assert.Equal(t, Exhausted, p.State())

	// Exhausted pagers do no further I/O.
	pg, err = p.Next(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pg.Items)
	assert.Len(t, f.offsets, 2)
}

func TestPagerZeroTotal(t *testing.T) {
	f := &fakeFetcher{byOffset: map[int]response{0: page(0)}}
	p := newPager(f)
	require.NoError(t, p.Each(context.Background(), nil, func(types.Item, int) error { return nil }))
	assert.Equal(t, []int{0}, f.offsets)
}

func TestPagerToleratedFirstPageStops(t *testing.T) {
	f := &fakeFetcher{byOffset: map[int]response{0: {ok: false}}}
	p := newPager(f)

	count := 0
	err := p.Each(context.Background(), nil, func(types.Item, int) error { count++; return nil })
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, []int{0}, f.offsets, "must not keep paging without a total")
	_, known := p.Total()
	assert.False(t, known)
}

func TestPagerToleratedLaterPageContinues(t *testing.T) {
	f := &fakeFetcher{byOffset: map[int]response{
		0: page(6, "a", "b"),
		2: {ok: false},
		4: page(6, "e", "f"),
	}}
	p := newPager(f)

	var ranks []int
	var titles []string
	err := p.Each(context.Background(), nil, func(it types.Item, rank int) error {
		titles = append(titles, it.Title)
		ranks = append(ranks, rank)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "e", "f"}, titles)
	assert.Equal(t, []int{1, 2, 3, 4}, ranks)
	assert.Equal(t, []int{0, 2, 4}, f.offsets)
}

func TestPagerMalformedFirstPageStops(t *testing.T) {
	f := &fakeFetcher{byOffset: map[int]response{0: {body: "<html>oops", ok: true}}}
	p := newPager(f)

	pg, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, pg.Malformed)
	assert.Empty(t, pg.Items)
	assert.True(t, p.Done())
}

func TestPagerMalformedLaterPageIsEmpty(t *testing.T) {
	f := &fakeFetcher{byOffset: map[int]response{
		0: page(4, "a", "b"),
		2: {body: "not json", ok: true},
	}}
	p := newPager(f)

	count := 0
	require.NoError(t, p.Each(context.Background(), nil, func(types.Item, int) error { count++; return nil }))
	assert.Equal(t, 2, count)
	assert.True(t, p.Done())
}

func TestPagerFetchErrorAborts(t *testing.T) {
	fe := &httputil.FetchError{URL: "https://fake.test", Attempts: 3}
	f := &fakeFetcher{byOffset: map[int]response{
		0: page(4, "a", "b"),
		2: {err: fe},
	}}
	p := newPager(f)

	count := 0
	err := p.Each(context.Background(), nil, func(types.Item, int) error { count++; return nil })
	var got *httputil.FetchError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, 2, count)
	assert.True(t, p.Done())
}

func TestPagerCallbackErrorStops(t *testing.T) {
	f := &fakeFetcher{byOffset: map[int]response{0: page(4, "a", "b")}}
	p := newPager(f)
	stop := errors.New("stop")
	err := p.Each(context.Background(), nil, func(types.Item, int) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestDefaultPageSize(t *testing.T) {
	p := NewPager(fakeAdapter{}, &fakeFetcher{}, Request{}, nil)
	assert.Equal(t, DefaultPageSize, p.req.PageSize)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting-first-page", AwaitingFirstPage.String())
	assert.Equal(t, "fetching-pages", FetchingPages.String())
	assert.Equal(t, "exhausted", Exhausted.String())
}

// followAdapter always issues a follow-up request while decoding items.
type followAdapter struct{ fakeAdapter }

func (followAdapter) ParseItems(ctx context.Context, _ []byte, follow provider.Follower) ([]types.Item, error) {
	if _, _, err := follow(ctx, "https://fake.test/?offset=99"); err != nil {
		return nil, err
	}
	return nil, nil
}

func TestFollowUpFetchErrorStopsPager(t *testing.T) {
	fe := &httputil.FetchError{URL: "https://fake.test/?offset=99", Attempts: 3, Err: errors.New("boom")}
	f := &fakeFetcher{byOffset: map[int]response{
		0:  page(50, "a"),
		99: {err: fe},
	}}
	p := NewPager(followAdapter{}, f, Request{SearchTerm: "ai", PageSize: 25}, nil)

	_, err := p.Next(context.Background())
	var got *httputil.FetchError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 3, got.Attempts)
	assert.True(t, p.Done())
}
