// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pdiddy/library-querier/pkg/types"
)

// scopusSearchBase is the Elsevier Scopus search endpoint. Declared as a var
// so tests can substitute an httptest server.
var scopusSearchBase = "https://api.elsevier.com/content/search/scopus"

// Scopus queries the Elsevier Scopus Search API. An API key is required.
type Scopus struct{}

// Name returns the provider identifier.
func (Scopus) Name() string { return "scopus" }

// BuildRequest returns the search URL. Terms are matched against the KEY
// field (title, abstract and keywords).
func (Scopus) BuildRequest(p Placeholders) string {
	params := url.Values{
		"apiKey":     {p.APIKey},
		"httpAccept": {"application/json"},
		"count":      {strconv.Itoa(p.PageSize)},
		"start":      {strconv.Itoa(p.Offset)},
		"query":      {"KEY(" + p.SearchTerm + ")"},
		"date":       {fmt.Sprintf("%d-%d", p.StartYear, p.EndYear)},
	}
	return scopusSearchBase + "?" + params.Encode()
}

// ParseTotal reads search-results.opensearch:totalResults.
func (Scopus) ParseTotal(body []byte) (int, error) {
	var r scopusResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return 0, eris.Wrap(err, "parsing Scopus response")
	}
	if r.Results == nil {
		return 0, nil
	}
	return atoiLoose(r.Results.TotalResults)
}

// ParseItems decodes the entry array. Scopus reports an empty result set
// as a single entry carrying an "error" field, which is skipped.
func (Scopus) ParseItems(_ context.Context, body []byte, _ Follower) ([]types.Item, error) {
	var r scopusResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, eris.Wrap(err, "parsing Scopus response")
	}
	if r.Results == nil {
		return nil, nil
	}

	var items []types.Item
	for _, e := range r.Results.Entries {
		if e.Error != "" {
			continue
		}
		it := types.Item{
			Title: e.Title,
			DOI:   NormalizeDOI(e.DOI),
		}
		if e.Creator != "" {
			it.Authors = []string{e.Creator}
		}
		if t, err := time.Parse("2006-01-02", e.CoverDate); err == nil {
			it.Year = t.Year()
		}
		items = append(items, it)
	}
	return items, nil
}

// Scopus Search API JSON structures.
type scopusResponse struct {
	Results *scopusResults `json:"search-results"`
}

type scopusResults struct {
	TotalResults any           `json:"opensearch:totalResults"`
	Entries      []scopusEntry `json:"entry"`
}

type scopusEntry struct {
	Error     string `json:"error"`
	Title     string `json:"dc:title"`
	Creator   string `json:"dc:creator"`
	CoverDate string `json:"prism:coverDate"`
	DOI       string `json:"prism:doi"`
}
