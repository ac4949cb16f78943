package types

import "time"

// HTTPConfig holds shared HTTP settings used by the fetcher.
type HTTPConfig struct {
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "library-querier/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// RequestsPerSecond caps requests per provider; 0 disables limiting.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// CacheConfig holds settings for the on-disk response cache.
type CacheConfig struct {
	// Enabled controls whether cached responses are served.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Dir is the cache directory (default os.TempDir()).
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// TTL is how long a cached response stays valid (default 24h).
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// QueryConfig holds settings for a query run.
type QueryConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Cache configures response caching.
	Cache CacheConfig `json:"cache" yaml:"cache" mapstructure:"cache"`

	// Output is the path of the persisted corpus file.
	Output string `json:"output" yaml:"output" mapstructure:"output"`

	// SearchTerms are queried against every selected provider.
	SearchTerms []string `json:"search_terms" yaml:"search_terms" mapstructure:"search_terms"`

	// Years limits newly created records to a publication-year window.
	Years YearRange `json:"years" yaml:"years" mapstructure:"years"`

	// Providers is the allow-list of provider identifiers; empty means all.
	Providers []string `json:"providers,omitempty" yaml:"providers,omitempty" mapstructure:"providers"`

	// MaxAttempts is the number of attempts per request (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// IgnoreFailedCalls treats exhausted requests as empty results.
	IgnoreFailedCalls bool `json:"ignore_failed_calls" yaml:"ignore_failed_calls" mapstructure:"ignore_failed_calls"`

	// Workers is the number of (provider, search term) pairs drained in
	// parallel (default 1).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// APIKeys maps provider identifiers to API keys.
	APIKeys map[string]string `json:"-" yaml:"-" mapstructure:"api_keys"`
}
