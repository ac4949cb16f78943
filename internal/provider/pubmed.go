// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pdiddy/library-querier/pkg/types"
)

// PubMed E-utilities endpoints. Declared as vars so tests can substitute
// an httptest server.
var (
	pubmedSearchBase  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	pubmedSummaryBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esummary.fcgi"
)

// quotedPhrase matches "..." phrases that PubMed should search in all fields.
var quotedPhrase = regexp.MustCompile(`"[^"]+"`)

// PubMed queries NCBI E-utilities. A page is an esearch call returning IDs;
// item metadata comes from a follow-up esummary call for those IDs.
type PubMed struct{}

// Name returns the provider identifier.
func (PubMed) Name() string { return "pubmed" }

// BuildRequest returns the esearch URL.
func (PubMed) BuildRequest(p Placeholders) string {
	params := url.Values{
		"db":       {"pubmed"},
		"retstart": {strconv.Itoa(p.Offset)},
		"retmax":   {strconv.Itoa(p.PageSize)},
		"retmode":  {"json"},
		"term":     {pubmedTerm(p.SearchTerm)},
		"mindate":  {strconv.Itoa(p.StartYear)},
		"maxdate":  {strconv.Itoa(p.EndYear)},
	}
	if p.APIKey != "" {
		params.Set("api_key", p.APIKey)
	}
	return pubmedSearchBase + "?" + params.Encode()
}

// pubmedTerm tags every quoted phrase with [All Fields].
func pubmedTerm(term string) string {
	return quotedPhrase.ReplaceAllString(term, "${0}[All Fields]")
}

// ParseTotal reads esearchresult.count.
func (PubMed) ParseTotal(body []byte) (int, error) {
	var r pubmedSearchResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return 0, eris.Wrap(err, "parsing PubMed esearch response")
	}
	if r.Result == nil {
		return 0, nil
	}
	return atoiLoose(r.Result.Count)
}

// ParseItems resolves the page's ID list through esummary.
func (PubMed) ParseItems(ctx context.Context, body []byte, follow Follower) ([]types.Item, error) {
	var r pubmedSearchResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, eris.Wrap(err, "parsing PubMed esearch response")
	}
	if r.Result == nil || len(r.Result.IDList) == 0 {
		return nil, nil
	}

	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(r.Result.IDList, ",")},
		"retmode": {"json"},
	}
	summaryBody, ok, err := follow(ctx, pubmedSummaryBase+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var s pubmedSummaryResponse
	if err := json.Unmarshal(summaryBody, &s); err != nil {
		return nil, eris.Wrap(err, "parsing PubMed esummary response")
	}
	if s.Result == nil {
		return nil, nil
	}

	var uids []string
	if raw, ok := s.Result["uids"]; ok {
		if err := json.Unmarshal(raw, &uids); err != nil {
			return nil, eris.Wrap(err, "parsing PubMed uids")
		}
	}

	items := make([]types.Item, 0, len(uids))
	for _, uid := range uids {
		raw, ok := s.Result[uid]
		if !ok {
			continue
		}
		var doc pubmedDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}

		it := types.Item{Title: doc.Title}
		for _, a := range doc.Authors {
			it.Authors = append(it.Authors, a.Name)
		}
		if t, err := time.Parse("2006/01/02 15:04", doc.SortPubDate); err == nil {
			it.Year = t.Year()
		}
		for _, id := range doc.ArticleIDs {
			if id.IDType == "doi" {
				it.DOI = NormalizeDOI(id.Value)
				break
			}
		}
		items = append(items, it)
	}
	return items, nil
}

// PubMed E-utilities JSON structures.
type pubmedSearchResponse struct {
	Result *pubmedSearchResult `json:"esearchresult"`
}

type pubmedSearchResult struct {
	Count  any      `json:"count"`
	IDList []string `json:"idlist"`
}

type pubmedSummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type pubmedDoc struct {
	Title       string            `json:"title"`
	SortPubDate string            `json:"sortpubdate"`
	Authors     []pubmedAuthor    `json:"authors"`
	ArticleIDs  []pubmedArticleID `json:"articleids"`
}

type pubmedAuthor struct {
	Name string `json:"name"`
}

type pubmedArticleID struct {
	IDType string `json:"idtype"`
	Value  string `json:"value"`
}
