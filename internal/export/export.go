// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes the corpus in formats other tools consume and
// saves run reports.
package export

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/library-querier/internal/query"
	"github.com/pdiddy/library-querier/pkg/types"
)

// Format names an export format.
type Format string

const (
	FormatCSL  Format = "csl"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists the supported export formats.
func Formats() []Format {
	return []Format{FormatCSL, FormatJSON, FormatYAML}
}

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", eris.Errorf("unknown export format %q (want csl, json or yaml)", s)
}

// Write writes records to w in format f.
func Write(w io.Writer, f Format, records []types.Record) error {
	switch f {
	case FormatCSL:
		return WriteCSL(w, records)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(nonNil(records))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(nonNil(records))
	default:
		return eris.Errorf("unknown export format %q", f)
	}
}

func nonNil(records []types.Record) []types.Record {
	if records == nil {
		return []types.Record{}
	}
	return records
}

// RunFile is the on-disk representation of a query run: what was asked
// for and what happened.
type RunFile struct {
	Query  RunParams    `yaml:"query"`
	Report query.Report `yaml:"report"`
}

// RunParams stores the run parameters in a serializable form.
type RunParams struct {
	Output      string          `yaml:"output"`
	SearchTerms []string        `yaml:"search_terms"`
	Years       types.YearRange `yaml:"years"`
	Providers   []string        `yaml:"providers,omitempty"`
	UseCache    bool            `yaml:"use_cache"`
	Tolerant    bool            `yaml:"ignore_failed_calls"`
	MaxAttempts int             `yaml:"max_attempts"`
}

// WriteRunFile saves a run's options and report to a YAML file.
func WriteRunFile(path string, opts query.Options, rep query.Report) error {
	rf := RunFile{
		Query: RunParams{
			Output:      opts.Output,
			SearchTerms: opts.SearchTerms,
			Years:       opts.Years,
			Providers:   opts.Providers,
			UseCache:    opts.Fetch.UseCache,
			Tolerant:    opts.Fetch.IgnoreFailedCalls,
			MaxAttempts: opts.Fetch.MaxAttempts,
		},
		Report: rep,
	}

	data, err := yaml.Marshal(&rf)
	if err != nil {
		return eris.Wrap(err, "marshaling run file")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "writing run file %s", path)
	}
	return nil
}

// ReadRunFile loads a previously saved run file.
func ReadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "reading run file")
	}
	var rf RunFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, eris.Wrap(err, "parsing run file")
	}
	return &rf, nil
}
