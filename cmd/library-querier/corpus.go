// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/library-querier/internal/corpus"
	"github.com/pdiddy/library-querier/internal/export"
	"github.com/pdiddy/library-querier/internal/index"
	"github.com/pdiddy/library-querier/pkg/types"
)

const defaultIndexPath = "corpus.db"

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Inspect, export and index the corpus",
	Long: `Corpus reads the CSV corpus written by query. Use subcommands to print
summary statistics, export records for reference managers, or mirror the
corpus into a SQLite database with full-text title search.`,
}

// --- stats subcommand ---

var corpusStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the total and per-provider record counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadCorpus(cmd)
		if err != nil {
			return err
		}
		sum := corpus.Summarize(c)
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		}
		sum.Format(os.Stdout)
		return nil
	},
}

// --- export subcommand ---

var corpusExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the corpus as CSL-YAML, JSON or YAML",
	Long: `Export writes every record in the corpus to stdout or --to. The csl
format is CSL-YAML, readable by Pandoc and most reference managers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("format")
		format, err := export.ParseFormat(name)
		if err != nil {
			return err
		}
		c, err := loadCorpus(cmd)
		if err != nil {
			return err
		}

		to, _ := cmd.Flags().GetString("to")
		if to == "" || to == "-" {
			return export.Write(os.Stdout, format, c.Records())
		}
		f, err := os.Create(to)
		if err != nil {
			return eris.Wrapf(err, "creating %s", to)
		}
		if err := export.Write(f, format, c.Records()); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported %d records to %s\n", c.Len(), to)
		return nil
	},
}

// --- index subcommand ---

var corpusIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Mirror the corpus into a SQLite database",
	Long: `Index copies the corpus into a SQLite database with an FTS5 index on
titles. Unchanged records are skipped and records no longer in the corpus
are removed, so the command can be rerun after every query.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadCorpus(cmd)
		if err != nil {
			return err
		}
		store, err := openIndex(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		sum, err := store.Sync(context.Background(), c)
		if err != nil {
			return err
		}
		fmt.Printf("inserted: %d, updated: %d, unchanged: %d, removed: %d\n",
			sum.Inserted, sum.Updated, sum.Unchanged, sum.Removed)
		return nil
	},
}

// --- find subcommand ---

var corpusFindCmd = &cobra.Command{
	Use:   "find [query]",
	Short: "Search indexed records by title",
	Long: `Find searches the SQLite index built by "corpus index". The query is an
FTS5 expression over titles; --source and the year flags filter results.
Without a query, records are listed newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openIndex(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		source, _ := cmd.Flags().GetString("source")
		start, _ := cmd.Flags().GetInt("start-year")
		end, _ := cmd.Flags().GetInt("end-year")
		maxResults, _ := cmd.Flags().GetInt("max-results")

		opts := index.FindOptions{
			Query:      strings.Join(args, " "),
			Source:     source,
			MaxResults: maxResults,
		}
		if start != 0 || end != 0 {
			if end == 0 {
				end = 9999
			}
			opts.Years = types.YearRange{Start: start, End: end}
		}

		results, err := store.Find(context.Background(), opts)
		if err != nil {
			return err
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return formatFindOutput(results, jsonOutput)
	},
}

func formatFindOutput(results []index.Result, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-60s  %-20s  %-4s  %s\n", "#", "Title", "First author", "Year", "Sources")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
	for i, r := range results {
		title := truncate(r.Record.Title, 60)
		author := truncate(r.Record.FirstAuthor(), 20)
		fmt.Fprintf(os.Stdout, "%-4d  %-60s  %-20s  %-4d  %s\n",
			i+1, title, author, r.Record.Year, strings.Join(r.Record.Sources(), ","))
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- shared helpers ---

func loadCorpus(cmd *cobra.Command) (*corpus.Corpus, error) {
	path, _ := cmd.Flags().GetString("corpus")
	if path == "" {
		path = viper.GetString("output")
	}
	if path == "" {
		path = defaultOutput
	}
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(err, "corpus %s", path)
	}
	return corpus.Load(path, func(err error) {
		logger.Warn("skipping corrupt corpus row", zap.String("path", path), zap.Error(err))
	})
}

func openIndex(cmd *cobra.Command) (*index.Store, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = viper.GetString("index")
	}
	if path == "" {
		path = defaultIndexPath
	}
	return index.Open(path)
}

func init() {
	corpusCmd.PersistentFlags().StringP("corpus", "c", "", "corpus CSV file (default: config output or corpus.csv)")
	corpusCmd.PersistentFlags().String("db", "", "index database (default: config index or corpus.db)")

	corpusStatsCmd.Flags().Bool("json", false, "output as JSON")

	corpusExportCmd.Flags().StringP("format", "f", "csl", "export format: csl, json or yaml")
	corpusExportCmd.Flags().String("to", "", "output file (default stdout)")

	corpusFindCmd.Flags().String("source", "", "only records observed by this provider")
	corpusFindCmd.Flags().Int("start-year", 0, "earliest publication year")
	corpusFindCmd.Flags().Int("end-year", 0, "latest publication year")
	corpusFindCmd.Flags().Int("max-results", index.DefaultMaxResults, "maximum number of results")
	corpusFindCmd.Flags().Bool("json", false, "output results as JSON")

	corpusCmd.AddCommand(corpusStatsCmd, corpusExportCmd, corpusIndexCmd, corpusFindCmd)
	rootCmd.AddCommand(corpusCmd)
}
