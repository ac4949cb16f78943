// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pdiddy/library-querier/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// Arxiv queries the arXiv API. Responses are Atom XML.
type Arxiv struct{}

// Name returns the provider identifier.
func (Arxiv) Name() string { return "arxiv" }

// BuildRequest returns the search URL, restricted to submissions within
// the year range.
func (Arxiv) BuildRequest(p Placeholders) string {
	terms := strings.Fields(p.SearchTerm)
	q := fmt.Sprintf("all:%s AND submittedDate:[%d01010000 TO %d12312359]",
		strings.Join(terms, " "), p.StartYear, p.EndYear)

	params := url.Values{
		"search_query": {q},
		"start":        {strconv.Itoa(p.Offset)},
		"max_results":  {strconv.Itoa(p.PageSize)},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}
	return arxivAPIBase + "?" + params.Encode()
}

// ParseTotal reads opensearch:totalResults from the feed.
func (Arxiv) ParseTotal(body []byte) (int, error) {
	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return 0, eris.Wrap(err, "parsing arXiv response")
	}
	return atoiLoose(strings.TrimSpace(feed.TotalResults))
}

// ParseItems decodes feed entries.
func (Arxiv) ParseItems(_ context.Context, body []byte, _ Follower) ([]types.Item, error) {
	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, eris.Wrap(err, "parsing arXiv response")
	}

	items := make([]types.Item, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		it := types.Item{
			Title: strings.Join(strings.Fields(entry.Title), " "),
			DOI:   NormalizeDOI(strings.TrimSpace(entry.DOI)),
		}
		for _, a := range entry.Authors {
			it.Authors = append(it.Authors, strings.TrimSpace(a.Name))
		}
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(entry.Published)); err == nil {
			it.Year = t.Year()
		}
		items = append(items, it)
	}
	return items, nil
}

// arXiv Atom feed XML structures. Elements are matched by local name, so
// the opensearch and arxiv namespaces need no explicit prefix.
type arxivFeed struct {
	TotalResults string       `xml:"totalResults"`
	Entries      []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Published string        `xml:"published"`
	DOI       string        `xml:"doi"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}
