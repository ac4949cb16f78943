// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fingerprint derives the identity key that decides whether two
// provider results describe the same publication.
//
// A record with a DOI is keyed on the DOI alone. Without a DOI the key is
// built from title, first author and year. DOIs are compared byte for byte:
// no case folding or whitespace trimming happens here, adapters normalize
// DOIs before they reach this package.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"

	"github.com/pdiddy/library-querier/pkg/types"
)

// Of returns the fingerprint for the given publication fields.
func Of(title string, authors []string, year int, doi string) string {
	if doi != "" {
		return Hash(doi)
	}
	first := ""
	if len(authors) > 0 {
		first = authors[0]
	}
	return Hash(title + first + strconv.Itoa(year))
}

// ForItem fingerprints a freshly decoded provider item.
func ForItem(it types.Item) string {
	return Of(it.Title, it.Authors, it.Year, it.DOI)
}

// ForRecord fingerprints a corpus record.
func ForRecord(r types.Record) string {
	return Of(r.Title, r.Authors, r.Year, r.DOI)
}

// Hash returns the lowercase hex MD5 digest of s. The same digest names
// cache entries, so corpus keys and cache keys share one scheme.
func Hash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
