// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/pdiddy/library-querier/pkg/types"
)

// ieeeSearchBase is the IEEE Xplore metadata search endpoint. Declared as a
// var so tests can substitute an httptest server.
var ieeeSearchBase = "http://ieeexploreapi.ieee.org/api/v1/search/articles"

// IEEEXplore queries the IEEE Xplore Metadata API. An API key is required.
type IEEEXplore struct{}

// Name returns the provider identifier.
func (IEEEXplore) Name() string { return "ieeexplore" }

// BuildRequest returns the search URL. IEEE start_record is 1-based.
func (IEEEXplore) BuildRequest(p Placeholders) string {
	params := url.Values{
		"apikey":       {p.APIKey},
		"format":       {"json"},
		"max_records":  {strconv.Itoa(p.PageSize)},
		"start_record": {strconv.Itoa(p.Offset + 1)},
		"index_terms":  {p.SearchTerm},
		"start_year":   {strconv.Itoa(p.StartYear)},
		"end_year":     {strconv.Itoa(p.EndYear)},
	}
	return ieeeSearchBase + "?" + params.Encode()
}

// ParseTotal reads total_records.
func (IEEEXplore) ParseTotal(body []byte) (int, error) {
	var r ieeeResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return 0, eris.Wrap(err, "parsing IEEE Xplore response")
	}
	return atoiLoose(r.TotalRecords)
}

// ParseItems decodes the articles array.
func (IEEEXplore) ParseItems(_ context.Context, body []byte, _ Follower) ([]types.Item, error) {
	var r ieeeResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, eris.Wrap(err, "parsing IEEE Xplore response")
	}

	items := make([]types.Item, 0, len(r.Articles))
	for _, a := range r.Articles {
		it := types.Item{
			Title: a.Title,
			DOI:   NormalizeDOI(a.DOI),
		}
		for _, au := range a.Authors.Authors {
			it.Authors = append(it.Authors, au.FullName)
		}
		if year, err := atoiLoose(a.PublicationYear); err == nil {
			it.Year = year
		}
		items = append(items, it)
	}
	return items, nil
}

// IEEE Xplore API JSON structures.
type ieeeResponse struct {
	TotalRecords any           `json:"total_records"`
	Articles     []ieeeArticle `json:"articles"`
}

type ieeeArticle struct {
	Title           string      `json:"title"`
	DOI             string      `json:"doi"`
	PublicationYear any         `json:"publication_year"`
	Authors         ieeeAuthors `json:"authors"`
}

type ieeeAuthors struct {
	Authors []ieeeAuthor `json:"authors"`
}

type ieeeAuthor struct {
	FullName string `json:"full_name"`
}
