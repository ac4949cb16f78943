// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/library-querier/pkg/types"
)

func noFollow(t *testing.T) Follower {
	return func(context.Context, string) ([]byte, bool, error) {
		t.Fatal("unexpected follow-up request")
		return nil, false, nil
	}
}

func query(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query()
}

var testPlaceholders = Placeholders{
	SearchTerm: "machine learning",
	StartYear:  2015,
	EndYear:    2023,
	Offset:     50,
	PageSize:   25,
	APIKey:     "secret",
}

// --- registry ---

func TestRegistryNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, a := range Registry() {
		assert.False(t, seen[a.Name()], "duplicate provider %s", a.Name())
		seen[a.Name()] = true
	}
	assert.Equal(t, []string{"ieeexplore", "pubmed", "scopus", "eric", "doaj", "openalex", "semantic_scholar", "arxiv"}, Names())
}

func TestSelect(t *testing.T) {
	all, err := Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, len(Registry()))

	// Registry order wins over allow-list order.
	got, err := Select([]string{"scopus", "ieeexplore"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ieeexplore", got[0].Name())
	assert.Equal(t, "scopus", got[1].Name())

	_, err = Select([]string{"ieeexplore", "nope", "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus, nope")
}

func TestPlaceholdersPage(t *testing.T) {
	assert.Equal(t, 1, Placeholders{Offset: 0, PageSize: 25}.Page())
	assert.Equal(t, 3, Placeholders{Offset: 50, PageSize: 25}.Page())
	assert.Equal(t, 1, Placeholders{Offset: 50}.Page())
}

func TestNormalizeDOI(t *testing.T) {
	assert.Equal(t, "", NormalizeDOI(""))
	assert.Equal(t, "https://doi.org/10.1/x", NormalizeDOI("10.1/x"))
	assert.Equal(t, "https://doi.org/10.1/x", NormalizeDOI("https://doi.org/10.1/x"))
}

func TestAtoiLoose(t *testing.T) {
	n, err := atoiLoose("42")
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	n, err = atoiLoose(float64(7))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	n, err = atoiLoose(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, err = atoiLoose("x")
	assert.Error(t, err)
	_, err = atoiLoose(true)
	assert.Error(t, err)
}

// --- IEEE Xplore ---

func TestIEEEBuildRequest(t *testing.T) {
	q := query(t, IEEEXplore{}.BuildRequest(testPlaceholders))
	assert.Equal(t, "secret", q.Get("apikey"))
	assert.Equal(t, "25", q.Get("max_records"))
	assert.Equal(t, "51", q.Get("start_record"))
	assert.Equal(t, "machine learning", q.Get("index_terms"))
	assert.Equal(t, "2015", q.Get("start_year"))
	assert.Equal(t, "2023", q.Get("end_year"))
}

func TestIEEEParse(t *testing.T) {
	body := []byte(`{"total_records": 2, "articles": [
		{"title": "Deep Nets", "doi": "10.1109/x.1", "publication_year": "2019",
		 "authors": {"authors": [{"full_name": "Ann Lee"}, {"full_name": "Bo Chen"}]}},
		{"title": "No DOI", "publication_year": 2021}
	]}`)
	a := IEEEXplore{}

	total, err := a.ParseTotal(body)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	items, err := a.ParseItems(context.Background(), body, noFollow(t))
	require.NoError(t, err)
	assert.Equal(t, []types.Item{
		{Title: "Deep Nets", Authors: []string{"Ann Lee", "Bo Chen"}, Year: 2019, DOI: "https://doi.org/10.1109/x.1"},
		{Title: "No DOI", Year: 2021},
	}, items)
}

func TestIEEEMissingTotal(t *testing.T) {
	total, err := IEEEXplore{}.ParseTotal([]byte(`{"error":"bad key"}`))
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

// --- PubMed ---

func TestPubMedTerm(t *testing.T) {
	assert.Equal(t, `"deep learning"[All Fields] AND cancer`, pubmedTerm(`"deep learning" AND cancer`))
	assert.Equal(t, "plain", pubmedTerm("plain"))
}

func TestPubMedBuildRequest(t *testing.T) {
	q := query(t, PubMed{}.BuildRequest(testPlaceholders))
	assert.Equal(t, "pubmed", q.Get("db"))
	assert.Equal(t, "50", q.Get("retstart"))
	assert.Equal(t, "25", q.Get("retmax"))
	assert.Equal(t, "2015", q.Get("mindate"))
	assert.Equal(t, "2023", q.Get("maxdate"))
	assert.Equal(t, "secret", q.Get("api_key"))
}

func TestPubMedParse(t *testing.T) {
	search := []byte(`{"esearchresult": {"count": "2", "idlist": ["111", "222"]}}`)
	summary := []byte(`{"result": {
		"uids": ["111", "222"],
		"111": {"title": "Gene X", "sortpubdate": "2018/05/01 00:00",
		        "authors": [{"name": "Smith J"}],
		        "articleids": [{"idtype": "pubmed", "value": "111"}, {"idtype": "doi", "value": "10.1/gx"}]},
		"222": {"title": "Gene Y", "sortpubdate": "bad", "authors": [], "articleids": []}
	}}`)
	a := PubMed{}

	total, err := a.ParseTotal(search)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	var followed string
	follow := func(_ context.Context, u string) ([]byte, bool, error) {
		followed = u
		return summary, true, nil
	}
	items, err := a.ParseItems(context.Background(), search, follow)
	require.NoError(t, err)
	assert.Equal(t, "111,222", query(t, followed).Get("id"))
	require.Len(t, items, 2)
	assert.Equal(t, types.Item{Title: "Gene X", Authors: []string{"Smith J"}, Year: 2018, DOI: "https://doi.org/10.1/gx"}, items[0])
	assert.Equal(t, "Gene Y", items[1].Title)
	assert.Equal(t, 0, items[1].Year)
}

func TestPubMedEmptyIDListSkipsSummary(t *testing.T) {
	items, err := PubMed{}.ParseItems(context.Background(), []byte(`{"esearchresult": {"count": "0", "idlist": []}}`), noFollow(t))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPubMedSummaryTolerated(t *testing.T) {
	follow := func(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
	items, err := PubMed{}.ParseItems(context.Background(), []byte(`{"esearchresult": {"idlist": ["1"]}}`), follow)
	require.NoError(t, err)
	assert.Empty(t, items)
}

// --- Scopus ---

func TestScopusBuildRequest(t *testing.T) {
	q := query(t, Scopus{}.BuildRequest(testPlaceholders))
	assert.Equal(t, "secret", q.Get("apiKey"))
	assert.Equal(t, "KEY(machine learning)", q.Get("query"))
	assert.Equal(t, "2015-2023", q.Get("date"))
	assert.Equal(t, "50", q.Get("start"))
}

func TestScopusParse(t *testing.T) {
	body := []byte(`{"search-results": {"opensearch:totalResults": "1", "entry": [
		{"dc:title": "Graphs", "dc:creator": "Doe J.", "prism:coverDate": "2016-03-01", "prism:doi": "10.1016/g"}
	]}}`)
	total, err := Scopus{}.ParseTotal(body)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	items, err := Scopus{}.ParseItems(context.Background(), body, noFollow(t))
	require.NoError(t, err)
	assert.Equal(t, []types.Item{{Title: "Graphs", Authors: []string{"Doe J."}, Year: 2016, DOI: "https://doi.org/10.1016/g"}}, items)
}

func TestScopusErrorEntrySkipped(t *testing.T) {
	body := []byte(`{"search-results": {"opensearch:totalResults": "0", "entry": [{"error": "Result set was empty"}]}}`)
	items, err := Scopus{}.ParseItems(context.Background(), body, noFollow(t))
	require.NoError(t, err)
	assert.Empty(t, items)
}

// --- ERIC ---

func TestERICQuery(t *testing.T) {
	assert.Equal(t, "(title:math) OR (subject:math) OR (description:math)", ericQuery("math"))
	assert.Equal(t,
		`(title:"a AND title:b") OR (subject:"a AND subject:b") OR (description:"a AND description:b")`,
		ericQuery(`"a" "b"`))
}

func TestERICParse(t *testing.T) {
	body := []byte(`{"response": {"numFound": 1, "docs": [
		{"title": "Reading", "author": ["Roe, R.", "Poe, P."], "publicationdateyear": 2020, "url": "https://eric.ed.gov/?id=EJ1"}
	]}}`)
	total, err := ERIC{}.ParseTotal(body)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	items, err := ERIC{}.ParseItems(context.Background(), body, noFollow(t))
	require.NoError(t, err)
	assert.Equal(t, []types.Item{{Title: "Reading", Authors: []string{"Roe, R.", "Poe, P."}, Year: 2020, DOI: "https://eric.ed.gov/?id=EJ1"}}, items)
}

// --- DOAJ ---

func TestDOAJBuildRequest(t *testing.T) {
	raw := DOAJ{}.BuildRequest(testPlaceholders)
	assert.True(t, strings.Contains(raw, "/machine%20learning?"), raw)
	q := query(t, raw)
	assert.Equal(t, "3", q.Get("page"))
	assert.Equal(t, "25", q.Get("pageSize"))
}

func TestDOAJParse(t *testing.T) {
	body := []byte(`{"total": 2, "results": [
		{"bibjson": {"title": "Open", "year": "2017", "author": [{"name": "Kim"}, {"name": ""}],
		             "identifier": [{"type": "eissn", "id": "1234"}, {"type": "doi", "id": "10.9/o"}]}},
		{"id": "no-bibjson"}
	]}`)
	total, err := DOAJ{}.ParseTotal(body)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	items, err := DOAJ{}.ParseItems(context.Background(), body, noFollow(t))
	require.NoError(t, err)
	assert.Equal(t, []types.Item{{Title: "Open", Authors: []string{"Kim"}, Year: 2017, DOI: "https://doi.org/10.9/o"}}, items)
}

// --- OpenAlex ---

func TestOpenAlexBuildRequest(t *testing.T) {
	q := query(t, OpenAlex{}.BuildRequest(testPlaceholders))
	assert.Equal(t, "machine learning", q.Get("search"))
	assert.Equal(t, "3", q.Get("page"))
	assert.Equal(t, "publication_year:2015-2023", q.Get("filter"))
	assert.Equal(t, "secret", q.Get("mailto"))
}

func TestOpenAlexParse(t *testing.T) {
	body := []byte(`{"meta": {"count": 1}, "results": [
		{"title": "Works", "doi": "https://doi.org/10.5/w", "publication_year": 2022,
		 "authorships": [{"author": {"display_name": "Ada"}}, {"author": {"display_name": ""}}]}
	]}`)
	total, err := OpenAlex{}.ParseTotal(body)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	items, err := OpenAlex{}.ParseItems(context.Background(), body, noFollow(t))
	require.NoError(t, err)
	assert.Equal(t, []types.Item{{Title: "Works", Authors: []string{"Ada"}, Year: 2022, DOI: "https://doi.org/10.5/w"}}, items)
}

// --- Semantic Scholar ---

func TestSemanticParse(t *testing.T) {
	q := query(t, SemanticScholar{}.BuildRequest(testPlaceholders))
	assert.Equal(t, "2015-2023", q.Get("year"))
	assert.Equal(t, "50", q.Get("offset"))

	body := []byte(`{"total": 3, "offset": 0, "data": [
		{"paperId": "p1", "title": "S2", "year": 2020, "authors": [{"name": "Lin"}], "externalIds": {"DOI": "10.7/s"}}
	]}`)
	total, err := SemanticScholar{}.ParseTotal(body)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	items, err := SemanticScholar{}.ParseItems(context.Background(), body, noFollow(t))
	require.NoError(t, err)
	assert.Equal(t, []types.Item{{Title: "S2", Authors: []string{"Lin"}, Year: 2020, DOI: "https://doi.org/10.7/s"}}, items)
}

// --- arXiv ---

const arxivFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <title>ArXiv Query</title>
  <opensearch:totalResults>12</opensearch:totalResults>
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <title>Attention
      Revisited</title>
    <published>2023-01-17T18:00:00Z</published>
    <author><name> Jane Roe </name></author>
    <arxiv:doi>10.48550/arXiv.2301.07041</arxiv:doi>
  </entry>
</feed>`

func TestArxivBuildRequest(t *testing.T) {
	q := query(t, Arxiv{}.BuildRequest(testPlaceholders))
	assert.Equal(t, "all:machine learning AND submittedDate:[201501010000 TO 202312312359]", q.Get("search_query"))
	assert.Equal(t, "50", q.Get("start"))
	assert.Equal(t, "25", q.Get("max_results"))
}

func TestArxivParse(t *testing.T) {
	total, err := Arxiv{}.ParseTotal([]byte(arxivFeedXML))
	require.NoError(t, err)
	assert.Equal(t, 12, total)

	items, err := Arxiv{}.ParseItems(context.Background(), []byte(arxivFeedXML), noFollow(t))
	require.NoError(t, err)
	assert.Equal(t, []types.Item{{
		Title:   "Attention Revisited",
		Authors: []string{"Jane Roe"},
		Year:    2023,
		DOI:     "https://doi.org/10.48550/arXiv.2301.07041",
	}}, items)
}

// --- malformed bodies ---

func TestMalformedBodies(t *testing.T) {
	for _, a := range Registry() {
		t.Run(a.Name(), func(t *testing.T) {
			_, err := a.ParseTotal([]byte("<<<not a response"))
			assert.Error(t, err)
			_, err = a.ParseItems(context.Background(), []byte("<<<not a response"), noFollow(t))
			assert.Error(t, err)
		})
	}
}
