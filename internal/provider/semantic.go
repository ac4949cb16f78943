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

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,authors,externalIds,year"

// SemanticScholar queries the Semantic Scholar Graph API. The unauthenticated
// endpoint is used; requests carry no key header.
type SemanticScholar struct{}

// Name returns the provider identifier.
func (SemanticScholar) Name() string { return "semantic_scholar" }

// BuildRequest returns the search URL.
func (SemanticScholar) BuildRequest(p Placeholders) string {
	params := url.Values{
		"query":  {p.SearchTerm},
		"offset": {strconv.Itoa(p.Offset)},
		"limit":  {strconv.Itoa(p.PageSize)},
		"fields": {semanticFields},
		"year":   {fmt.Sprintf("%d-%d", p.StartYear, p.EndYear)},
	}
	return semanticAPIBase + "?" + params.Encode()
}

// ParseTotal reads total.
func (SemanticScholar) ParseTotal(body []byte) (int, error) {
	var r semanticResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return 0, eris.Wrap(err, "parsing Semantic Scholar response")
	}
	return r.Total, nil
}

// ParseItems decodes data.
func (SemanticScholar) ParseItems(_ context.Context, body []byte, _ Follower) ([]types.Item, error) {
	var r semanticResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, eris.Wrap(err, "parsing Semantic Scholar response")
	}

	items := make([]types.Item, 0, len(r.Data))
	for _, paper := range r.Data {
		it := types.Item{
			Title: paper.Title,
			Year:  paper.Year,
			DOI:   NormalizeDOI(paper.ExternalIDs.DOI),
		}
		for _, a := range paper.Authors {
			it.Authors = append(it.Authors, a.Name)
		}
		items = append(items, it)
	}
	return items, nil
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID     string              `json:"paperId"`
	Title       string              `json:"title"`
	Year        int                 `json:"year"`
	Authors     []semanticAuthor    `json:"authors"`
	ExternalIDs semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}
