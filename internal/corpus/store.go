// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/pdiddy/library-querier/internal/fingerprint"
	"github.com/pdiddy/library-querier/pkg/types"
)

// Columns is the persisted column order. List-valued columns hold one JSON
// array per cell so values containing commas or quotes round-trip intact.
var Columns = []string{"title", "sources", "authors", "year", "doi", "searchTerms", "ranks", "observedDates"}

// CorruptRowError describes a stored row that could not be decoded.
type CorruptRowError struct {
	Line int
	Err  error
}

func (e *CorruptRowError) Error() string {
	return fmt.Sprintf("corpus row %d: %v", e.Line, e.Err)
}

func (e *CorruptRowError) Unwrap() error { return e.Err }

// Load reads the corpus stored at path. A missing file yields an empty
// corpus. Rows that fail to decode are reported to warn and skipped.
func Load(path string, warn func(err error)) (*Corpus, error) {
	c := New()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, eris.Wrapf(err, "opening corpus %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if pe, ok := err.(*csv.ParseError); ok {
				report(warn, &CorruptRowError{Line: pe.Line, Err: pe.Err})
				continue
			}
			return nil, eris.Wrapf(err, "reading corpus %s", path)
		}
		if isHeader(row) {
			continue
		}

		rec, err := decodeRow(row)
		if err != nil {
			line, _ := r.FieldPos(0)
			report(warn, &CorruptRowError{Line: line, Err: err})
			continue
		}
		c.put(fingerprint.ForRecord(rec), rec)
	}
	return c, nil
}

// Save writes the corpus to path, one row per record ordered by
// fingerprint. The file is written beside path and renamed into place, so
// a failed write leaves any previous store untouched.
func Save(path string, c *Corpus) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return eris.Wrapf(err, "creating temp file for %s", path)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	w := csv.NewWriter(tmp)
	if err := w.Write(Columns); err != nil {
		cleanup()
		return eris.Wrap(err, "writing corpus header")
	}
	for _, rec := range c.Records() {
		row, err := encodeRow(rec)
		if err != nil {
			cleanup()
			return eris.Wrapf(err, "encoding record %q", rec.Title)
		}
		if err := w.Write(row); err != nil {
			cleanup()
			return eris.Wrap(err, "writing corpus row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		cleanup()
		return eris.Wrap(err, "flushing corpus")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "closing corpus temp file")
	}
	perm := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		perm = fi.Mode().Perm()
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "setting mode on %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "replacing %s", path)
	}
	return nil
}

func report(warn func(error), err error) {
	if warn != nil {
		warn(err)
	}
}

func isHeader(row []string) bool {
	return len(row) >= 2 && row[0] == Columns[0] && row[1] == Columns[1]
}

func encodeRow(r types.Record) ([]string, error) {
	n := len(r.Provenance)
	sources := make([]string, n)
	terms := make([]string, n)
	ranks := make([]int, n)
	dates := make([]string, n)
	for i, p := range r.Provenance {
		sources[i] = p.Source
		terms[i] = p.SearchTerm
		ranks[i] = p.Rank
		dates[i] = p.ObservedAt
	}
	authors := r.Authors
	if authors == nil {
		authors = []string{}
	}

	cells := make([]string, 0, len(Columns))
	cells = append(cells, r.Title)
	for i, v := range []any{sources, authors} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, eris.Wrapf(err, "encoding %s", Columns[1+i])
		}
		cells = append(cells, string(b))
	}
	cells = append(cells, strconv.Itoa(r.Year), r.DOI)
	for i, v := range []any{terms, ranks, dates} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, eris.Wrapf(err, "encoding %s", Columns[5+i])
		}
		cells = append(cells, string(b))
	}
	return cells, nil
}

func decodeRow(row []string) (types.Record, error) {
	if len(row) != len(Columns) {
		return types.Record{}, eris.Errorf("expected %d columns, got %d", len(Columns), len(row))
	}

	var (
		sources, authors, terms, dates []string
		ranks                          []int
	)
	for _, cell := range []struct {
		name string
		raw  string
		dst  any
	}{
		{Columns[1], row[1], &sources},
		{Columns[2], row[2], &authors},
		{Columns[5], row[5], &terms},
		{Columns[6], row[6], &ranks},
		{Columns[7], row[7], &dates},
	} {
		if cell.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(cell.raw), cell.dst); err != nil {
			return types.Record{}, eris.Wrapf(err, "column %s", cell.name)
		}
	}

	year, err := strconv.Atoi(row[3])
	if err != nil {
		return types.Record{}, eris.Wrap(err, "column year")
	}

	n := len(sources)
	if len(terms) != n || len(ranks) != n || len(dates) != n {
		return types.Record{}, eris.Errorf("provenance lists differ in length: sources=%d searchTerms=%d ranks=%d observedDates=%d",
			n, len(terms), len(ranks), len(dates))
	}

	rec := types.Record{
		Title:   row[0],
		Authors: authors,
		Year:    year,
		DOI:     row[4],
	}
	for i := 0; i < n; i++ {
		if rec.FindProvenance(sources[i], terms[i]) >= 0 {
			return types.Record{}, eris.Errorf("duplicate provenance entry for (%s, %s)", sources[i], terms[i])
		}
		rec.Provenance = append(rec.Provenance, types.ProvenanceEntry{
			Source:     sources[i],
			SearchTerm: terms[i],
			Rank:       ranks[i],
			ObservedAt: dates[i],
		})
	}
	return rec, nil
}
