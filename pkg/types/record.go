// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for library-querier.
//
// Record and ProvenanceEntry make up the persisted corpus; Item is one
// decoded provider result before reconciliation.
package types

// DateLayout is the calendar-date format used for provenance observation dates.
const DateLayout = "2006-01-02"

// Item is a single publication as decoded from a provider response, before
// it is reconciled into the corpus.
type Item struct {
	Title   string   `json:"title" yaml:"title"`
	Authors []string `json:"authors" yaml:"authors"`
	Year    int      `json:"year" yaml:"year"`

	// DOI is normalized by the adapter (https://doi.org/ prefix) or empty.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`
}

// ProvenanceEntry records one (provider, search term) observation of a record.
type ProvenanceEntry struct {
	// Source is the provider identifier (e.g. "ieeexplore", "pubmed").
	Source string `json:"source" yaml:"source"`

	// SearchTerm is the query string the provider was asked for.
	SearchTerm string `json:"search_term" yaml:"search_term"`

	// Rank is the 1-based position in the provider's result stream.
	Rank int `json:"rank" yaml:"rank"`

	// ObservedAt is the observation date in DateLayout form.
	ObservedAt string `json:"observed_at" yaml:"observed_at"`
}

// Record is a deduplicated publication in the corpus.
type Record struct {
	Title   string   `json:"title" yaml:"title"`
	Authors []string `json:"authors" yaml:"authors"`
	Year    int      `json:"year" yaml:"year"`
	DOI     string   `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Provenance holds at most one entry per (Source, SearchTerm) pair.
	Provenance []ProvenanceEntry `json:"provenance" yaml:"provenance"`
}

// FirstAuthor returns the first author or the empty string.
func (r Record) FirstAuthor() string {
	if len(r.Authors) == 0 {
		return ""
	}
	return r.Authors[0]
}

// Sources returns the distinct provider identifiers in provenance order.
func (r Record) Sources() []string {
	seen := make(map[string]bool, len(r.Provenance))
	var out []string
	for _, p := range r.Provenance {
		if seen[p.Source] {
			continue
		}
		seen[p.Source] = true
		out = append(out, p.Source)
	}
	return out
}

// FindProvenance returns the index of the entry for (source, searchTerm),
// or -1 when the record has not been observed by that pair.
func (r Record) FindProvenance(source, searchTerm string) int {
	for i, p := range r.Provenance {
		if p.Source == source && p.SearchTerm == searchTerm {
			return i
		}
	}
	return -1
}

// YearRange is an inclusive publication-year window.
type YearRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Contains reports whether year lies within the range, bounds included.
func (y YearRange) Contains(year int) bool {
	return year >= y.Start && year <= y.End
}
