// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the cache-backed, retrying HTTP fetcher used
// by every provider.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/library-querier/internal/cache"
)

// RetryBackoff is the fixed pause between attempts. Tests override this to
// avoid real sleeps.
var RetryBackoff = 1 * time.Second

const (
	// DefaultMaxAttempts is used when FetchOptions.MaxAttempts is not positive.
	DefaultMaxAttempts = 3

	// DefaultTimeout bounds one HTTP attempt when Fetcher.Timeout is zero.
	DefaultTimeout = 60 * time.Second
)

// FetchOptions controls cache use and failure handling for one request.
type FetchOptions struct {
	// UseCache serves a fresh cached response instead of calling the network.
	UseCache bool

	// IgnoreFailedCalls turns an exhausted request into a "no response"
	// result instead of a FetchError.
	IgnoreFailedCalls bool

	// MaxAttempts bounds the number of network attempts.
	MaxAttempts int
}

// FetchError reports a request that failed on every attempt.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StatusError is the attempt failure for a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Fetcher issues GET requests with bounded retry, consulting a Cache first.
type Fetcher struct {
	Client *http.Client
	Cache  *cache.Cache

	// Limiter, when set, is waited on before every network attempt.
	Limiter *rate.Limiter

	UserAgent string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// WithLimiter returns a copy of f that shares its client and cache but
// waits on l. Each provider gets its own copy so a slow provider never
// throttles another.
func (f *Fetcher) WithLimiter(l *rate.Limiter) *Fetcher {
	cp := *f
	cp.Limiter = l
	return &cp
}

// Fetch returns the body for url.
//
// A fresh cache entry is returned without network I/O when opts.UseCache
// is set. Otherwise the request is attempted up to opts.MaxAttempts times
// with RetryBackoff between attempts, and the first successful body is
// written to the cache. When every attempt fails Fetch returns ok=false and
// a nil error if opts.IgnoreFailedCalls is set, and a *FetchError otherwise.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts FetchOptions) (body []byte, ok bool, err error) {
	log := f.logger()
	key := cache.Key(url)

	if opts.UseCache && f.Cache != nil {
		if data, hit := f.Cache.Get(key); hit {
			log.Debug("cache hit", zap.String("url", url))
			return data, true, nil
		}
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, false, ctx.Err()
			case <-time.After(RetryBackoff):
			}
		}

		log.Debug("requesting", zap.String("url", url), zap.Int("attempt", attempt), zap.Int("max_attempts", maxAttempts))

		data, err := f.attempt(ctx, url)
		if err == nil {
			if f.Cache != nil {
				if err := f.Cache.Put(key, data); err != nil {
					log.Warn("cache write failed", zap.String("url", url), zap.Error(err))
				}
			}
			return data, true, nil
		}
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}

		lastErr = err
		log.Debug("attempt failed", zap.String("url", url), zap.Int("attempt", attempt), zap.Error(err))
	}

	if opts.IgnoreFailedCalls {
		log.Warn("request failed, continuing without response",
			zap.String("url", url), zap.Int("attempts", maxAttempts), zap.Error(lastErr))
		return nil, false, nil
	}
	return nil, false, &FetchError{URL: url, Attempts: maxAttempts, Err: lastErr}
}

// attempt performs one bounded GET. Transport errors and non-2xx statuses
// are both attempt failures.
func (f *Fetcher) attempt(ctx context.Context, url string) ([]byte, error) {
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "creating request")
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "reading response body")
	}
	return data, nil
}

func (f *Fetcher) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}
