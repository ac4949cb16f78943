// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the library-querier CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/library-querier/internal/logging"
	"github.com/pdiddy/library-querier/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// logger is replaced in PersistentPreRunE once flags are parsed.
	logger = zap.NewNop()

	// loadedSecrets holds key files loaded from the secrets directory.
	loadedSecrets map[string]string

	// loadedEnv holds variables read from the dotenv file.
	loadedEnv map[string]string
)

// rootCmd is the base command for the library-querier CLI.
var rootCmd = &cobra.Command{
	Use:   "library-querier",
	Short: "Aggregate bibliographic metadata from literature-search APIs",
	Long: `library-querier queries literature-search APIs (IEEE Xplore, PubMed,
Scopus, ERIC, DOAJ, OpenAlex, Semantic Scholar, arXiv) for one or more
search terms, deduplicates the results and folds them into a cumulative
CSV corpus that records which provider and search term found each
publication, at what rank and when.

Run "query" to update the corpus, "corpus" to inspect or export it and
"cache" to manage cached API responses.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			level = "debug"
		}
		dev, _ := cmd.Flags().GetBool("log-dev")
		l, err := logging.New(level, dev)
		if err != nil {
			return err
		}
		logger = l
		zap.ReplaceGlobals(l)

		if used := viper.ConfigFileUsed(); used != "" {
			logger.Info("using config file", zap.String("path", used))
		}

		secretsDir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(secretsDir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", zap.Strings("names", keys))
		}

		envFile, _ := cmd.Flags().GetString("env-file")
		env, err := secrets.LoadEnv(envFile)
		if err != nil {
			return err
		}
		loadedEnv = env
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./library-querier.yaml or ~/.config/library-querier/library-querier.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Bool("log-dev", false, "human-readable console logs")
	rootCmd.PersistentFlags().Bool("debug", false, "shorthand for --log-level debug")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of <provider>-api-key files")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file with LIBRARY_QUERIER_<PROVIDER>_API_KEY entries")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("library-querier")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "library-querier"))
		}
	}

	viper.SetEnvPrefix("LIBRARY_QUERIER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintln(os.Stderr, "warning: could not read config file:", err)
		}
	}
}

func main() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
