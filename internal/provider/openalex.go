// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/pdiddy/library-querier/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// OpenAlex queries the OpenAlex API. The API key slot carries the contact
// email sent as mailto for polite pool access.
type OpenAlex struct{}

// Name returns the provider identifier.
func (OpenAlex) Name() string { return "openalex" }

// BuildRequest returns the search URL. OpenAlex is page-numbered.
func (OpenAlex) BuildRequest(p Placeholders) string {
	params := url.Values{
		"search":   {p.SearchTerm},
		"per_page": {strconv.Itoa(p.PageSize)},
		"page":     {strconv.Itoa(p.Page())},
		"filter":   {fmt.Sprintf("publication_year:%d-%d", p.StartYear, p.EndYear)},
	}
	if p.APIKey != "" {
		params.Set("mailto", p.APIKey)
	}
	return openAlexSearchBase + "?" + params.Encode()
}

// ParseTotal reads meta.count.
func (OpenAlex) ParseTotal(body []byte) (int, error) {
	var r openAlexResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return 0, eris.Wrap(err, "parsing OpenAlex response")
	}
	return r.Meta.Count, nil
}

// ParseItems decodes results. OpenAlex already reports DOIs in URL form.
func (OpenAlex) ParseItems(_ context.Context, body []byte, _ Follower) ([]types.Item, error) {
	var r openAlexResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, eris.Wrap(err, "parsing OpenAlex response")
	}

	items := make([]types.Item, 0, len(r.Results))
	for _, work := range r.Results {
		it := types.Item{
			Title: work.Title,
			Year:  work.PublicationYear,
			DOI:   NormalizeDOI(work.DOI),
		}
		for _, authorship := range work.Authorships {
			if authorship.Author.DisplayName != "" {
				it.Authors = append(it.Authors, authorship.Author.DisplayName)
			}
		}
		items = append(items, it)
	}
	return items, nil
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type openAlexWork struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	DOI             string               `json:"doi"`
	PublicationYear int                  `json:"publication_year"`
	Authorships     []openAlexAuthorship `json:"authorships"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}
