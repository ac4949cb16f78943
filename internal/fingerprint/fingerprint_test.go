// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/library-querier/pkg/types"
)

func TestHashKnownValue(t *testing.T) {
	// md5("abc")
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", Hash("abc"))
}

func TestOf(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		authors []string
		year    int
		doi     string
		want    string
	}{
		{"doi wins", "X", []string{"Alice"}, 2020, "10.1/x", Hash("10.1/x")},
		{"doi ignores other fields", "Other", nil, 1999, "10.1/x", Hash("10.1/x")},
		{"no doi uses title author year", "X", []string{"Alice", "Bob"}, 2020, "", Hash("XAlice2020")},
		{"no doi no authors", "X", nil, 2020, "", Hash("X2020")},
		{"doi is case sensitive", "X", nil, 2020, "10.1/X", Hash("10.1/X")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Of(tt.title, tt.authors, tt.year, tt.doi))
		})
	}
}

func TestOfDeterministic(t *testing.T) {
	a := Of("Attention", []string{"Vaswani"}, 2017, "")
	for i := 0; i < 10; i++ {
		assert.Equal(t, a, Of("Attention", []string{"Vaswani"}, 2017, ""))
	}
}

func TestItemAndRecordAgree(t *testing.T) {
	it := types.Item{Title: "X", Authors: []string{"Alice"}, Year: 2020}
	rec := types.Record{Title: "X", Authors: []string{"Alice"}, Year: 2020,
		Provenance: []types.ProvenanceEntry{{Source: "A", SearchTerm: "ai", Rank: 1}}}
	assert.Equal(t, ForItem(it), ForRecord(rec))

	it.DOI = "https://doi.org/10.1/x"
	rec.DOI = it.DOI
	assert.Equal(t, ForItem(it), ForRecord(rec))
}

func TestWhitespaceNotTrimmed(t *testing.T) {
	assert.NotEqual(t, Of("", nil, 0, "10.1/x"), Of("", nil, 0, " 10.1/x"))
}
