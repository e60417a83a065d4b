// Package github fetches pull request metadata through the shared cache.
package github

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/nodech/hsd-tools/internal/cache"
	"github.com/nodech/hsd-tools/internal/errors"
	"github.com/nodech/hsd-tools/internal/fetch"
	"github.com/nodech/hsd-tools/internal/logging"
	"github.com/nodech/hsd-tools/internal/semaphore"
)

// CacheName is the cache bucket for pull request responses.
const CacheName = "github-pulls"

// OpenPullTTL is how long an unmerged pull request response is reused.
const OpenPullTTL = 10 * time.Minute

// User is a GitHub account.
type User struct {
	Login string `json:"login"`
}

// Pull is the subset of a pull request response hs-tools uses.
type Pull struct {
	Number   int        `json:"number"`
	Title    string     `json:"title"`
	State    string     `json:"state"`
	Merged   bool       `json:"merged"`
	MergedAt *time.Time `json:"merged_at"`
	HTMLURL  string     `json:"html_url"`
	User     User       `json:"user"`
	Base     struct {
		Ref string `json:"ref"`
	} `json:"base"`
}

// Expiry keeps merged pull requests forever; their metadata cannot change
// in a way hs-tools cares about.
func Expiry(p *Pull) time.Duration {
	if p.Merged {
		return cache.Forever
	}
	return OpenPullTTL
}

// Repo identifies a repository.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepo parses an "owner/name" slug.
func ParseRepo(slug string) (Repo, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(slug), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repo{}, errors.NewConfigError(fmt.Sprintf("invalid repository %q", slug), errors.ErrInvalidInput).
			WithField("github.repo")
	}
	return Repo{Owner: owner, Name: strings.TrimSuffix(name, ".git")}, nil
}

var remotePattern = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/]+?)(?:\.git)?/?$`)

// RepoFromRemote extracts owner and name from a GitHub remote URL in
// either SSH or HTTPS form.
func RepoFromRemote(url string) (Repo, bool) {
	m := remotePattern.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return Repo{}, false
	}
	return Repo{Owner: m[1], Name: m[2]}, true
}

// Client looks up pull requests.
type Client struct {
	api    string
	token  string
	http   *fetch.Client
	store  cache.Cache
	sem    *semaphore.Semaphore
	logger *logging.Logger
}

// Config wires a Client.
type Config struct {
	API         string
	Token       string
	Concurrency int
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
	return &Client{
		api:    strings.TrimRight(cfg.API, "/"),
		token:  cfg.Token,
		http:   cfg.HTTP,
		store:  cfg.Cache,
		sem:    semaphore.New(cfg.Concurrency),
		logger: cfg.Logger.WithComponent("github"),
	}
}

// Pull returns pull request n of repo. The second result reports whether the
// answer came from the cache. A nil Pull means no data: the pull request
// does not exist or the lookup failed.
func (c *Client) Pull(ctx context.Context, repo Repo, n int) (*Pull, bool) {
	header := http.Header{}
	header.Set("Accept", "application/vnd.github+json")
	header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	return fetch.Cached(ctx, c.store, c.http, fetch.Options[Pull]{
		CacheName: CacheName,
		FileName:  fmt.Sprintf("%s-%s-%d.json", repo.Owner, repo.Name, n),
		Expire:    Expiry,
		Semaphore: c.sem,
		Request: fetch.Request{
			URL:    fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.api, repo.Owner, repo.Name, n),
			Header: header,
		},
		Logger: c.logger,
	})
}
