// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQuery(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "query"}
	addQueryFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoadQueryConfigDefaults(t *testing.T) {
	cfg, err := loadQueryConfig(viper.New(), newTestQuery(t))
	require.NoError(t, err)

	assert.Equal(t, "corpus.csv", cfg.Output)
	assert.Equal(t, 1900, cfg.Years.Start)
	assert.Equal(t, time.Now().Year(), cfg.Years.End)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, "library-querier/"+version, cfg.UserAgent)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.False(t, cfg.Cache.Enabled)
	assert.False(t, cfg.IgnoreFailedCalls)
	assert.Empty(t, cfg.SearchTerms)
	assert.Empty(t, cfg.Providers)
}

func TestLoadQueryConfigFileThenFlags(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
output: from-config.csv
workers: 2
years:
  start: 2010
  end: 2020
cache:
  enabled: true
  ttl: 2h
providers: [pubmed, doaj]
api_keys:
  scopus: cfg-key
`)))

	cmd := newTestQuery(t, "--workers", "4", "--term", "deep learning", "--term", "a, b", "--end-year", "2022")
	cfg, err := loadQueryConfig(v, cmd)
	require.NoError(t, err)

	assert.Equal(t, "from-config.csv", cfg.Output)
	assert.Equal(t, 4, cfg.Workers, "flag beats config")
	assert.Equal(t, 2010, cfg.Years.Start)
	assert.Equal(t, 2022, cfg.Years.End)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, []string{"pubmed", "doaj"}, cfg.Providers)
	assert.Equal(t, []string{"deep learning", "a, b"}, cfg.SearchTerms)
	assert.Equal(t, map[string]string{"scopus": "cfg-key"}, cfg.APIKeys)
}

func TestLoadQueryConfigEnvironment(t *testing.T) {
	t.Setenv("LIBRARY_QUERIER_MAX_ATTEMPTS", "5")
	t.Setenv("LIBRARY_QUERIER_CACHE_ENABLED", "true")

	v := viper.New()
	v.SetEnvPrefix("LIBRARY_QUERIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfg, err := loadQueryConfig(v, newTestQuery(t))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.True(t, cfg.Cache.Enabled)

	cfg, err = loadQueryConfig(v, newTestQuery(t, "--max-attempts", "2"))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxAttempts, "flag beats environment")
}

func TestLoadQueryConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"inverted years", []string{"--start-year", "2030", "--end-year", "2020"}, "after end year"},
		{"no attempts", []string{"--max-attempts", "0"}, "max attempts"},
		{"no workers", []string{"--workers", "0"}, "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadQueryConfig(viper.New(), newTestQuery(t, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
