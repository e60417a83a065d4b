package npm

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nodech/hsd-tools/internal/cache"
	"github.com/nodech/hsd-tools/internal/fetch"
	"github.com/nodech/hsd-tools/internal/logging"
	"github.com/nodech/hsd-tools/internal/semaphore"
)

// CacheName is the cache bucket for registry documents.
const CacheName = "npm"

// Packument is the abbreviated registry document of a package.
type Packument struct {
	Name     string             `json:"name"`
	DistTags map[string]string  `json:"dist-tags"`
	Versions map[string]Version `json:"versions"`
	Modified string             `json:"modified"`
}

// Version is one published version.
type Version struct {
	Version    string `json:"version"`
	Deprecated string `json:"deprecated,omitempty"`
}

// Latest returns the "latest" dist-tag.
func (p *Packument) Latest() string {
	return p.DistTags["latest"]
}

// Client looks up packages in a registry.
type Client struct {
	registry string
	ttl      time.Duration
	http     *fetch.Client
	store    cache.Cache
	sem      *semaphore.Semaphore
	logger   *logging.Logger
}

// Config wires a Client.
type Config struct {
	Registry    string
	Concurrency int
	TTL         time.Duration
	HTTP        *fetch.Client
	Cache       cache.Cache
	Logger      *logging.Logger
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	if cfg.HTTP == nil {
		cfg.HTTP = fetch.NewClient()
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.Null{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = cache.DefaultTTL
	}
	return &Client{
		registry: strings.TrimRight(cfg.Registry, "/"),
		ttl:      cfg.TTL,
		http:     cfg.HTTP,
		store:    cfg.Cache,
		sem:      semaphore.New(cfg.Concurrency),
		logger:   cfg.Logger.WithComponent("npm"),
	}
}

// Package returns the registry document for name. The second result
// reports a cache hit. A nil document means no data: the package is not
// published or the lookup failed.
func (c *Client) Package(ctx context.Context, name string) (*Packument, bool) {
	escaped := url.PathEscape(name)

	header := http.Header{}
	header.Set("Accept", "application/vnd.npm.install-v1+json; q=1.0, application/json; q=0.8")

	return fetch.Cached(ctx, c.store, c.http, fetch.Options[Packument]{
		CacheName: CacheName,
		FileName:  escaped + ".json",
		Expire:    fetch.TTL[Packument](c.ttl),
		Semaphore: c.sem,
		Request:   fetch.Request{URL: c.registry + "/" + escaped, Header: header},
		Logger:    c.logger,
	})
}
