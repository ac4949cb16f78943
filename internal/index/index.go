// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index mirrors the corpus into a SQLite database with an FTS5
// title index, so records can be searched and filtered with SQL.
//
// The CSV corpus remains the source of truth; Sync rebuilds the mirror
// incrementally from it.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"

	"github.com/pdiddy/library-querier/internal/corpus"
	"github.com/pdiddy/library-querier/internal/fingerprint"
	"github.com/pdiddy/library-querier/pkg/types"
)

// DefaultMaxResults limits Find when no limit is given.
const DefaultMaxResults = 20

// Store is an open index database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the index database at path and ensures its schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrap(err, "creating index directory")
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, eris.Wrap(err, "opening database")
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "creating schema")
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			fingerprint TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			authors TEXT NOT NULL,
			year INTEGER NOT NULL,
			doi TEXT NOT NULL,
			digest TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS provenance (
			fingerprint TEXT NOT NULL REFERENCES records(fingerprint) ON DELETE CASCADE,
			source TEXT NOT NULL,
			search_term TEXT NOT NULL,
			rank INTEGER NOT NULL,
			observed_at TEXT NOT NULL,
			PRIMARY KEY (fingerprint, source, search_term)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_year ON records(year)`,
		`CREATE INDEX IF NOT EXISTS idx_provenance_source ON provenance(source)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return eris.Wrap(err, "executing schema statement")
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='records_fts'`,
	).Scan(&ftsExists); err != nil {
		return eris.Wrap(err, "checking FTS table")
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE records_fts USING fts5(title, content=records, content_rowid=rowid)`,
		`CREATE TRIGGER records_ai AFTER INSERT ON records BEGIN
			INSERT INTO records_fts(rowid, title) VALUES (new.rowid, new.title);
		END`,
		`CREATE TRIGGER records_ad AFTER DELETE ON records BEGIN
			INSERT INTO records_fts(records_fts, rowid, title) VALUES('delete', old.rowid, old.title);
		END`,
		`CREATE TRIGGER records_au AFTER UPDATE ON records BEGIN
			INSERT INTO records_fts(records_fts, rowid, title) VALUES('delete', old.rowid, old.title);
			INSERT INTO records_fts(rowid, title) VALUES (new.rowid, new.title);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return eris.Wrap(err, "creating FTS infrastructure")
		}
	}
	return nil
}

// SyncSummary holds counts from one Sync.
type SyncSummary struct {
	Inserted  int
	Updated   int
	Unchanged int
	Removed   int
}

// Sync makes the index match c. Records whose content is unchanged since
// the last sync are skipped; records no longer in the corpus are removed.
// The whole sync runs in one transaction.
func (s *Store) Sync(ctx context.Context, c *corpus.Corpus) (SyncSummary, error) {
	var summary SyncSummary

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, eris.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	existing, err := loadDigests(ctx, tx)
	if err != nil {
		return summary, err
	}

	upsert, err := tx.PrepareContext(ctx,
		`INSERT INTO records (fingerprint, title, authors, year, doi, digest)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET
			title=excluded.title, authors=excluded.authors, year=excluded.year,
			doi=excluded.doi, digest=excluded.digest`)
	if err != nil {
		return summary, eris.Wrap(err, "preparing record upsert")
	}
	defer upsert.Close()

	insertProv, err := tx.PrepareContext(ctx,
		`INSERT INTO provenance (fingerprint, source, search_term, rank, observed_at)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return summary, eris.Wrap(err, "preparing provenance insert")
	}
	defer insertProv.Close()

	for _, fp := range c.Keys() {
		rec, _ := c.Get(fp)
		digest, authorsJSON, err := digestOf(rec)
		if err != nil {
			return summary, err
		}

		prev, known := existing[fp]
		delete(existing, fp)
		if known && prev == digest {
			summary.Unchanged++
			continue
		}

		if _, err := upsert.ExecContext(ctx, fp, rec.Title, authorsJSON, rec.Year, rec.DOI, digest); err != nil {
			return summary, eris.Wrapf(err, "upserting record %s", fp)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM provenance WHERE fingerprint = ?`, fp); err != nil {
			return summary, eris.Wrapf(err, "clearing provenance for %s", fp)
		}
		for _, p := range rec.Provenance {
			if _, err := insertProv.ExecContext(ctx, fp, p.Source, p.SearchTerm, p.Rank, p.ObservedAt); err != nil {
				return summary, eris.Wrapf(err, "inserting provenance for %s", fp)
			}
		}

		if known {
			summary.Updated++
		} else {
			summary.Inserted++
		}
	}

	for fp := range existing {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE fingerprint = ?`, fp); err != nil {
			return summary, eris.Wrapf(err, "removing record %s", fp)
		}
		summary.Removed++
	}

	if err := tx.Commit(); err != nil {
		return summary, eris.Wrap(err, "committing sync")
	}
	return summary, nil
}

func loadDigests(ctx context.Context, tx *sql.Tx) (map[string]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT fingerprint, digest FROM records`)
	if err != nil {
		return nil, eris.Wrap(err, "reading indexed records")
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var fp, digest string
		if err := rows.Scan(&fp, &digest); err != nil {
			return nil, eris.Wrap(err, "scanning indexed record")
		}
		out[fp] = digest
	}
	return out, rows.Err()
}

// digestOf hashes the record's JSON form so unchanged records can be skipped.
func digestOf(rec types.Record) (digest, authorsJSON string, err error) {
	full, err := json.Marshal(rec)
	if err != nil {
		return "", "", eris.Wrap(err, "encoding record")
	}
	authors := rec.Authors
	if authors == nil {
		authors = []string{}
	}
	a, err := json.Marshal(authors)
	if err != nil {
		return "", "", eris.Wrap(err, "encoding authors")
	}
	return fingerprint.Hash(string(full)), string(a), nil
}

// FindOptions holds parameters for Find.
type FindOptions struct {
	// Query is an FTS5 match expression over titles.
	Query string

	// Source restricts results to records observed by this provider.
	Source string

	// Years restricts results by publication year when non-zero.
	Years types.YearRange

	// MaxResults limits result count. Zero uses DefaultMaxResults.
	MaxResults int
}

// Result is one matched record.
type Result struct {
	Fingerprint string       `json:"fingerprint" yaml:"fingerprint"`
	Record      types.Record `json:"record" yaml:"record"`
}

// Find searches the index. Full-text queries are ordered by relevance;
// otherwise results are ordered by year (newest first) and title.
func (s *Store) Find(ctx context.Context, opts FindOptions) ([]Result, error) {
	limit := opts.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = strings.TrimSpace(opts.Query) != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT r.fingerprint, r.title, r.authors, r.year, r.doi
			FROM records_fts
			JOIN records r ON r.rowid = records_fts.rowid
			WHERE records_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT r.fingerprint, r.title, r.authors, r.year, r.doi
			FROM records r
			WHERE 1=1`)
	}

	if opts.Source != "" {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM provenance p WHERE p.fingerprint = r.fingerprint AND p.source = ?)`)
		args = append(args, opts.Source)
	}
	if opts.Years != (types.YearRange{}) {
		qb.WriteString(` AND r.year BETWEEN ? AND ?`)
		args = append(args, opts.Years.Start, opts.Years.End)
	}

	if useFTS {
		qb.WriteString(` ORDER BY records_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY r.year DESC, r.title`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, eris.Wrap(err, "querying index")
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			res         Result
			authorsJSON string
		)
		if err := rows.Scan(&res.Fingerprint, &res.Record.Title, &authorsJSON,
			&res.Record.Year, &res.Record.DOI); err != nil {
			return nil, eris.Wrap(err, "scanning row")
		}
		if err := json.Unmarshal([]byte(authorsJSON), &res.Record.Authors); err != nil {
			return nil, eris.Wrapf(err, "decoding authors for %s", res.Fingerprint)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterating rows")
	}

	for i := range results {
		prov, err := s.provenance(ctx, results[i].Fingerprint)
		if err != nil {
			return nil, err
		}
		results[i].Record.Provenance = prov
	}
	return results, nil
}

func (s *Store) provenance(ctx context.Context, fp string) ([]types.ProvenanceEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, search_term, rank, observed_at FROM provenance
		 WHERE fingerprint = ? ORDER BY source, search_term`, fp)
	if err != nil {
		return nil, eris.Wrapf(err, "querying provenance for %s", fp)
	}
	defer rows.Close()

	var out []types.ProvenanceEntry
	for rows.Next() {
		var p types.ProvenanceEntry
		if err := rows.Scan(&p.Source, &p.SearchTerm, &p.Rank, &p.ObservedAt); err != nil {
			return nil, eris.Wrap(err, "scanning provenance")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns the number of indexed records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM records`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "counting records")
	}
	return n, nil
}
