// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/library-querier/internal/fingerprint"
	"github.com/pdiddy/library-querier/pkg/types"
)

const doiPrefix = "https://doi.org/"

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-JSON/CSL-YAML schema
// so that output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID     string    `yaml:"id" json:"id"`
	Type   string    `yaml:"type" json:"type"`
	Title  string    `yaml:"title" json:"title"`
	Author []CSLName `yaml:"author,omitempty" json:"author,omitempty"`
	Issued *CSLDate  `yaml:"issued,omitempty" json:"issued,omitempty"`
	DOI    string    `yaml:"DOI,omitempty" json:"DOI,omitempty"`
	URL    string    `yaml:"URL,omitempty" json:"URL,omitempty"`

	// Source lists the providers that returned the record.
	Source string `yaml:"source,omitempty" json:"source,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty" json:"family,omitempty"`
	Given   string `yaml:"given,omitempty" json:"given,omitempty"`
	Literal string `yaml:"literal,omitempty" json:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts" json:"date-parts"`
}

// WriteCSL writes records as a CSL-YAML list to w.
func WriteCSL(w io.Writer, records []types.Record) error {
	items := make([]CSLItem, len(records))
	for i, r := range records {
		items[i] = ToCSLItem(r)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// ToCSLItem converts a corpus record to a CSLItem. The item ID is the
// record's fingerprint so exports stay stable across runs.
func ToCSLItem(r types.Record) CSLItem {
	item := CSLItem{
		ID:     fingerprint.ForRecord(r),
		Type:   "article",
		Title:  r.Title,
		Source: strings.Join(r.Sources(), ", "),
	}

	for _, a := range r.Authors {
		if n := parseAuthorName(a); n != (CSLName{}) {
			item.Author = append(item.Author, n)
		}
	}

	if r.Year > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{r.Year}}}
	}

	// ERIC stores its landing page in the DOI field.
	switch {
	case strings.HasPrefix(r.DOI, doiPrefix):
		item.DOI = strings.TrimPrefix(r.DOI, doiPrefix)
	case strings.HasPrefix(r.DOI, "10."):
		item.DOI = r.DOI
	case r.DOI != "":
		item.URL = r.DOI
	}

	return item
}

// parseAuthorName splits a full name string into CSL family/given parts.
// "Family, Given" is honored; otherwise it splits on the last space.
// Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	if family, given, ok := strings.Cut(name, ","); ok {
		return CSLName{Family: strings.TrimSpace(family), Given: strings.TrimSpace(given)}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}
