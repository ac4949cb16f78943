// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus holds the deduplicated publication set, merges newly
// fetched items into it and persists it between runs.
package corpus

import (
	"sort"
	"sync"

	"github.com/pdiddy/library-querier/pkg/types"
)

// Corpus maps fingerprints to records. All methods are safe for
// concurrent use; Reconciler holds the lock for a whole merge.
type Corpus struct {
	mu      sync.Mutex
	records map[string]*types.Record
}

// New returns an empty corpus.
func New() *Corpus {
	return &Corpus{records: make(map[string]*types.Record)}
}

// Len returns the number of records.
func (c *Corpus) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Get returns a copy of the record stored under fp.
func (c *Corpus) Get(fp string) (types.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.records[fp]
	if !ok {
		return types.Record{}, false
	}
	return cloneRecord(*r), true
}

// Keys returns all fingerprints in sorted order.
func (c *Corpus) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortedKeysLocked()
}

// Records returns copies of all records ordered by fingerprint.
func (c *Corpus) Records() []types.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := c.sortedKeysLocked()
	out := make([]types.Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, cloneRecord(*c.records[k]))
	}
	return out
}

// put stores r under fp, replacing any previous record.
func (c *Corpus) put(fp string, r types.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := cloneRecord(r)
	c.records[fp] = &cp
}

func (c *Corpus) sortedKeysLocked() []string {
	keys := make([]string, 0, len(c.records))
	for k := range c.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneRecord(r types.Record) types.Record {
	r.Authors = append([]string(nil), r.Authors...)
	r.Provenance = append([]types.ProvenanceEntry(nil), r.Provenance...)
	return r
}
