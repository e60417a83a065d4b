package fetch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nodech/hsd-tools/internal/cache"
	"github.com/nodech/hsd-tools/internal/errors"
	"github.com/nodech/hsd-tools/internal/logging"
	"github.com/nodech/hsd-tools/internal/semaphore"
)

// ExpireFunc resolves the TTL of a freshly fetched value.
type ExpireFunc[T any] func(value *T) time.Duration

// TTL returns an ExpireFunc that always yields d.
func TTL[T any](d time.Duration) ExpireFunc[T] {
	return func(*T) time.Duration { return d }
}

// Options describes one cached fetch.
type Options[T any] struct {
	CacheName string
	FileName  string
	// Expire resolves the TTL from the decoded value. Nil means cache.DefaultTTL.
	Expire ExpireFunc[T]
	// Semaphore bounds concurrent calls to the same upstream. Nil means unbounded.
	Semaphore *semaphore.Semaphore
	Request   Request
	Logger    *logging.Logger
}

// Cached returns the decoded value for opts, reading through store.
//
// A cache hit returns (value, true). Otherwise the request is performed and
// the decoded value is written back with the resolved TTL, returning
// (value, false). A 404 yields (nil, false) and is not cached. Any failure
// during the fetch also yields (nil, false): callers cannot tell an outage
// from absence. The failure is logged at debug level.
func Cached[T any](ctx context.Context, store cache.Cache, client *Client, opts Options[T]) (*T, bool) {
	value, cached, err := lookup(ctx, store, client, opts)
	if err != nil {
		logger := opts.Logger
		if logger == nil {
			logger = logging.NopLogger()
		}
		logger = logger.WithComponent("fetch").With(
			"cache", opts.CacheName,
			"file", opts.FileName,
			"url", opts.Request.URL,
		)
		if value != nil {
			// Fetched fine but the write-through failed.
			logger.Warn("cache write failed", "error", err.Error())
			return value, false
		}
		logger.Debug("fetch failed, reporting miss", "error", err.Error())
		return nil, false
	}
	return value, cached
}

func lookup[T any](ctx context.Context, store cache.Cache, client *Client, opts Options[T]) (*T, bool, error) {
	if data, ok := store.Get(opts.CacheName, opts.FileName); ok {
		var value T
		if err := json.Unmarshal(data, &value); err == nil {
			return &value, true, nil
		}
		// A corrupt payload falls through to a fresh fetch.
	}

	type result struct {
		body  []byte
		found bool
	}
	res, err := semaphore.Do(ctx, opts.Semaphore, func(ctx context.Context) (result, error) {
		body, found, err := client.Get(ctx, opts.Request)
		return result{body: body, found: found}, err
	})
	if err != nil {
		return nil, false, err
	}
	if !res.found {
		return nil, false, nil
	}

	var value T
	if err := json.Unmarshal(res.body, &value); err != nil {
		return nil, false, errors.NewFetchError("invalid JSON response", errors.Join(errors.ErrUpstreamDecode, err)).
			WithURL(opts.Request.URL)
	}

	ttl := cache.DefaultTTL
	if opts.Expire != nil {
		ttl = opts.Expire(&value)
	}
	if _, err := store.Put(opts.CacheName, opts.FileName, res.body, ttl); err != nil {
		return &value, false, err
	}
	return &value, false, nil
}
