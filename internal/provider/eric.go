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

// ericSearchBase is the ERIC API endpoint. Declared as a var so tests can
// substitute an httptest server.
var ericSearchBase = "https://api.ies.ed.gov/eric/"

// ericFields are the document fields a search term is matched against.
var ericFields = []string{"title", "subject", "description"}

// ERIC queries the Education Resources Information Center API. ERIC has no
// date filter and no DOI; the record URL stands in for the DOI.
type ERIC struct{}

// Name returns the provider identifier.
func (ERIC) Name() string { return "eric" }

// BuildRequest returns the search URL.
func (ERIC) BuildRequest(p Placeholders) string {
	params := url.Values{
		"search": {ericQuery(p.SearchTerm)},
		"format": {"json"},
		"rows":   {strconv.Itoa(p.PageSize)},
		"start":  {strconv.Itoa(p.Offset)},
		"fields": {"title,author,publicationdateyear,url"},
	}
	return ericSearchBase + "?" + params.Encode()
}

// ericQuery expands a term into a field-qualified query. Quoted phrases
// separated by `" "` must all match within one field:
// `"a" "b"` becomes (title:"a" AND title:"b") OR (subject:...) OR ...
func ericQuery(term string) string {
	values := strings.Split(term, `" "`)
	var groups []string
	for _, field := range ericFields {
		var parts []string
		for _, v := range values {
			parts = append(parts, field+":"+v)
		}
		groups = append(groups, "("+strings.Join(parts, " AND ")+")")
	}
	return strings.Join(groups, " OR ")
}

// ParseTotal reads response.numFound.
func (ERIC) ParseTotal(body []byte) (int, error) {
	var r ericResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return 0, eris.Wrap(err, "parsing ERIC response")
	}
	if r.Response == nil {
		return 0, nil
	}
	return atoiLoose(r.Response.NumFound)
}

// ParseItems decodes response.docs.
func (ERIC) ParseItems(_ context.Context, body []byte, _ Follower) ([]types.Item, error) {
	var r ericResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, eris.Wrap(err, "parsing ERIC response")
	}
	if r.Response == nil {
		return nil, nil
	}

	items := make([]types.Item, 0, len(r.Response.Docs))
	for _, d := range r.Response.Docs {
		it := types.Item{
			Title:   d.Title,
			Authors: d.Author,
			DOI:     d.URL,
		}
		if year, err := atoiLoose(d.PublicationDateYear); err == nil {
			it.Year = year
		}
		items = append(items, it)
	}
	return items, nil
}

// ERIC API JSON structures.
type ericResponse struct {
	Response *ericResult `json:"response"`
}

type ericResult struct {
	NumFound any       `json:"numFound"`
	Docs     []ericDoc `json:"docs"`
}

type ericDoc struct {
	Title               string   `json:"title"`
	Author              []string `json:"author"`
	PublicationDateYear any      `json:"publicationdateyear"`
	URL                 string   `json:"url"`
}
