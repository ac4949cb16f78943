// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"strings"
	"time"

	"github.com/pdiddy/library-querier/internal/fingerprint"
	"github.com/pdiddy/library-querier/pkg/types"
)

// Outcome is the result of reconciling one item.
type Outcome int

const (
	// Created means a new record was inserted.
	Created Outcome = iota
	// Updated means an existing record gained or changed a provenance entry.
	Updated
	// Unchanged means the observation was already recorded as-is.
	Unchanged
	// Rejected means a new item fell outside the year range and was dropped.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Unchanged:
		return "unchanged"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Stats accumulates reconciliation results for one run.
type Stats struct {
	Created   int
	Unchanged int
	Rejected  int

	// Touched holds fingerprints of records updated by a later observation,
	// including records created earlier in the same run.
	Touched map[string]struct{}
}

// Updated returns the number of distinct records updated.
func (s Stats) Updated() int { return len(s.Touched) }

// Reconciler merges decoded items into a corpus.
type Reconciler struct {
	corpus *Corpus
	today  func() string
	stats  Stats
}

// NewReconciler returns a reconciler for c that stamps observations with
// the current local date.
func NewReconciler(c *Corpus) *Reconciler {
	return &Reconciler{
		corpus: c,
		today:  func() string { return time.Now().Format(types.DateLayout) },
		stats:  Stats{Touched: make(map[string]struct{})},
	}
}

// WithToday overrides the observation-date source.
func (r *Reconciler) WithToday(today func() string) *Reconciler {
	r.today = today
	return r
}

// Stats returns a snapshot of the running totals.
func (r *Reconciler) Stats() Stats {
	r.corpus.mu.Lock()
	defer r.corpus.mu.Unlock()
	touched := make(map[string]struct{}, len(r.stats.Touched))
	for k := range r.stats.Touched {
		touched[k] = struct{}{}
	}
	s := r.stats
	s.Touched = touched
	return s
}

// Reconcile merges one item observed by (source, searchTerm) at rank.
//
// An unknown fingerprint creates a record only when the item's year is in
// years; otherwise the item is rejected. A known fingerprint is never
// year-filtered and its stored fields are never rewritten: only the
// provenance entry for (source, searchTerm) is appended or refreshed.
func (r *Reconciler) Reconcile(item types.Item, source, searchTerm string, rank int, years types.YearRange) Outcome {
	item.Title = normalizeNewlines(item.Title)
	fp := fingerprint.ForItem(item)
	today := r.today()

	r.corpus.mu.Lock()
	defer r.corpus.mu.Unlock()

	rec, existed := r.corpus.records[fp]
	if !existed {
		if !years.Contains(item.Year) {
			r.stats.Rejected++
			return Rejected
		}
		rec = &types.Record{
			Title:   item.Title,
			Authors: append([]string(nil), item.Authors...),
			Year:    item.Year,
			DOI:     item.DOI,
		}
		r.corpus.records[fp] = rec
	}

	modified := false
	if i := rec.FindProvenance(source, searchTerm); i < 0 {
		rec.Provenance = append(rec.Provenance, types.ProvenanceEntry{
			Source:     source,
			SearchTerm: searchTerm,
			Rank:       rank,
			ObservedAt: today,
		})
		modified = true
	} else if p := &rec.Provenance[i]; p.Rank != rank || p.ObservedAt != today {
		p.Rank = rank
		p.ObservedAt = today
		modified = true
	}

	switch {
	case !existed:
		r.stats.Created++
		return Created
	case modified:
		r.stats.Touched[fp] = struct{}{}
		return Updated
	default:
		r.stats.Unchanged++
		return Unchanged
	}
}

// normalizeNewlines folds CR-LF to LF. The CSV reader drops the CR of a
// CR-LF inside a quoted cell, so titles are keyed the way they reload.
func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
