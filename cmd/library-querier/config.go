// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/library-querier/internal/cache"
	"github.com/pdiddy/library-querier/internal/httputil"
	"github.com/pdiddy/library-querier/internal/provider"
	"github.com/pdiddy/library-querier/internal/secrets"
	"github.com/pdiddy/library-querier/pkg/types"
)

const (
	defaultOutput    = "corpus.csv"
	defaultStartYear = 1900
)

func defaultUserAgent() string {
	return "library-querier/" + version
}

// flagKeys maps command flags to the viper keys they override.
var flagKeys = map[string]string{
	"output":              "output",
	"term":                "search_terms",
	"start-year":          "years.start",
	"end-year":            "years.end",
	"provider":            "providers",
	"use-cache":           "cache.enabled",
	"cache-dir":           "cache.dir",
	"cache-ttl":           "cache.ttl",
	"ignore-failed-calls": "ignore_failed_calls",
	"max-attempts":        "max_attempts",
	"workers":             "workers",
	"timeout":             "timeout",
	"rate":                "requests_per_second",
	"user-agent":          "user_agent",
}

// setDefaults registers built-in defaults on v.
func setDefaults(v *viper.Viper) {
	v.SetDefault("output", defaultOutput)
	v.SetDefault("years.start", defaultStartYear)
	v.SetDefault("years.end", time.Now().Year())
	v.SetDefault("max_attempts", httputil.DefaultMaxAttempts)
	v.SetDefault("workers", 1)
	v.SetDefault("timeout", httputil.DefaultTimeout)
	v.SetDefault("user_agent", defaultUserAgent())
	v.SetDefault("cache.ttl", cache.DefaultTTL)
}

// bindFlags binds every flag of cmd that has a config key. Only flags
// the command defines are bound, so commands never share a binding.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return eris.Wrapf(err, "binding flag --%s", name)
		}
	}
	return nil
}

// loadQueryConfig resolves the query configuration from defaults, the
// config file, LIBRARY_QUERIER_* environment variables and flags, in
// increasing order of precedence.
func loadQueryConfig(v *viper.Viper, cmd *cobra.Command) (types.QueryConfig, error) {
	var cfg types.QueryConfig

	setDefaults(v)
	if err := bindFlags(v, cmd); err != nil {
		return cfg, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, eris.Wrap(err, "decoding configuration")
	}

	if cfg.Years.Start > cfg.Years.End {
		return cfg, eris.Errorf("start year %d is after end year %d", cfg.Years.Start, cfg.Years.End)
	}
	if cfg.MaxAttempts < 1 {
		return cfg, eris.Errorf("max attempts must be at least 1, got %d", cfg.MaxAttempts)
	}
	if cfg.Workers < 1 {
		return cfg, eris.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	return cfg, nil
}

// loadCacheConfig resolves only the cache settings.
func loadCacheConfig(v *viper.Viper, cmd *cobra.Command) (types.CacheConfig, error) {
	cfg, err := loadQueryConfig(v, cmd)
	return cfg.Cache, err
}

// apiKeys resolves keys for every built-in provider.
func apiKeys(configured map[string]string) map[string]string {
	return secrets.Sources{
		Config: configured,
		Files:  loadedSecrets,
		DotEnv: loadedEnv,
	}.Resolve(provider.Names())
}
