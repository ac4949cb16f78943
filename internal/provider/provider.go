// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider adapts individual literature-search APIs to a common
// request/parse contract. Each adapter owns its URL layout and response
// quirks; shared retrieval logic only ever dispatches through Adapter.
package provider

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/pdiddy/library-querier/pkg/types"
)

// Adapter builds requests for one data source and decodes its responses.
type Adapter interface {
	// Name is the provider identifier stored in provenance entries.
	Name() string

	// BuildRequest returns the fully substituted request URL for one page.
	BuildRequest(p Placeholders) string

	// ParseTotal extracts the provider-reported total result count. An
	// error means the body is not well-formed for this provider.
	ParseTotal(body []byte) (int, error)

	// ParseItems decodes the items of one page. Adapters that need a
	// second round trip (e.g. PubMed summaries) issue it through follow.
	ParseItems(ctx context.Context, body []byte, follow Follower) ([]types.Item, error)
}

// Follower fetches a secondary URL through the same cache and retry policy
// as the page request. ok=false means the request failed and was tolerated.
type Follower func(ctx context.Context, url string) (body []byte, ok bool, err error)

// Placeholders are the values substituted into a provider request.
type Placeholders struct {
	SearchTerm string
	StartYear  int
	EndYear    int
	Offset     int
	PageSize   int
	APIKey     string
}

// Page returns the 1-based page number for page-numbered APIs.
func (p Placeholders) Page() int {
	if p.PageSize <= 0 {
		return 1
	}
	return p.Offset/p.PageSize + 1
}

// Registry returns every built-in adapter in the order providers are queried.
func Registry() []Adapter {
	return []Adapter{
		&IEEEXplore{},
		&PubMed{},
		&Scopus{},
		&ERIC{},
		&DOAJ{},
		&OpenAlex{},
		&SemanticScholar{},
		&Arxiv{},
	}
}

// Names returns the identifiers of the built-in adapters.
func Names() []string {
	var names []string
	for _, a := range Registry() {
		names = append(names, a.Name())
	}
	return names
}

// Select resolves an allow-list of provider names against the registry,
// preserving registry order. An empty allow-list selects every adapter.
// Unknown names are an error.
func Select(names []string) ([]Adapter, error) {
	all := Registry()
	if len(names) == 0 {
		return all, nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.TrimSpace(n)] = true
	}

	var out []Adapter
	for _, a := range all {
		if want[a.Name()] {
			out = append(out, a)
			delete(want, a.Name())
		}
	}
	if len(want) > 0 {
		var unknown []string
		for n := range want {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, eris.Errorf("unknown provider(s) %s: available are %s",
			strings.Join(unknown, ", "), strings.Join(Names(), ", "))
	}
	return out, nil
}

// NormalizeDOI turns a bare DOI into its https://doi.org/ URL form so the
// same work fingerprints identically across providers. Empty stays empty
// and values already in URL form are left alone.
func NormalizeDOI(doi string) string {
	if doi == "" {
		return ""
	}
	if strings.HasPrefix(doi, "https://doi.org/") {
		return doi
	}
	return "https://doi.org/" + doi
}

// atoiLoose parses totals that some APIs send as strings and others as numbers.
func atoiLoose(v any) (int, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return int(t), nil
	case string:
		if t == "" {
			return 0, nil
		}
		return strconv.Atoi(t)
	default:
		return 0, eris.Errorf("unexpected total type %T", v)
	}
}
