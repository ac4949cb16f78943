// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/pdiddy/library-querier/pkg/types"
)

// doajSearchBase is the DOAJ article search endpoint; the query is a path
// segment. Declared as a var so tests can substitute an httptest server.
var doajSearchBase = "https://doaj.org/api/search/articles/"

// DOAJ queries the Directory of Open Access Journals. The API is
// page-numbered rather than offset-based.
type DOAJ struct{}

// Name returns the provider identifier.
func (DOAJ) Name() string { return "doaj" }

// BuildRequest returns the search URL.
func (DOAJ) BuildRequest(p Placeholders) string {
	params := url.Values{
		"pageSize": {strconv.Itoa(p.PageSize)},
		"page":     {strconv.Itoa(p.Page())},
	}
	return doajSearchBase + url.PathEscape(p.SearchTerm) + "?" + params.Encode()
}

// ParseTotal reads total.
func (DOAJ) ParseTotal(body []byte) (int, error) {
	var r doajResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return 0, eris.Wrap(err, "parsing DOAJ response")
	}
	return atoiLoose(r.Total)
}

// ParseItems decodes results[].bibjson.
func (DOAJ) ParseItems(_ context.Context, body []byte, _ Follower) ([]types.Item, error) {
	var r doajResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, eris.Wrap(err, "parsing DOAJ response")
	}

	var items []types.Item
	for _, res := range r.Results {
		if res.BibJSON == nil {
			continue
		}
		b := res.BibJSON
		it := types.Item{Title: b.Title}
		for _, a := range b.Author {
			if a.Name != "" {
				it.Authors = append(it.Authors, a.Name)
			}
		}
		if year, err := atoiLoose(b.Year); err == nil {
			it.Year = year
		}
		for _, id := range b.Identifier {
			if strings.EqualFold(id.Type, "doi") {
				it.DOI = NormalizeDOI(id.ID)
				break
			}
		}
		items = append(items, it)
	}
	return items, nil
}

// DOAJ API JSON structures.
type doajResponse struct {
	Total   any          `json:"total"`
	Results []doajResult `json:"results"`
}

type doajResult struct {
	BibJSON *doajBibJSON `json:"bibjson"`
}

type doajBibJSON struct {
	Title      string           `json:"title"`
	Year       any              `json:"year"`
	Author     []doajAuthor     `json:"author"`
	Identifier []doajIdentifier `json:"identifier"`
}

type doajAuthor struct {
	Name string `json:"name"`
}

type doajIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}
