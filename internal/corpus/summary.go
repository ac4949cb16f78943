// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Summary holds corpus-wide counts.
type Summary struct {
	Total int `json:"total" yaml:"total"`

	// ByProvider counts distinct records each provider has observed.
	ByProvider map[string]int `json:"by_provider" yaml:"by_provider"`
}

// Summarize counts records overall and per provider.
func Summarize(c *Corpus) Summary {
	s := Summary{ByProvider: make(map[string]int)}
	for _, rec := range c.Records() {
		s.Total++
		for _, src := range rec.Sources() {
			s.ByProvider[src]++
		}
	}
	return s
}

// Providers returns the provider names in sorted order.
func (s Summary) Providers() []string {
	names := make([]string, 0, len(s.ByProvider))
	for name := range s.ByProvider {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Format writes the summary line, e.g. "Total articles: 3 (arxiv: 1, pubmed: 2)".
func (s Summary) Format(w io.Writer) {
	fmt.Fprintf(w, "Total articles: %d", s.Total)
	if len(s.ByProvider) > 0 {
		parts := make([]string, 0, len(s.ByProvider))
		for _, name := range s.Providers() {
			parts = append(parts, fmt.Sprintf("%s: %d", name, s.ByProvider[name]))
		}
		fmt.Fprintf(w, " (%s)", strings.Join(parts, ", "))
	}
	fmt.Fprintln(w)
}
