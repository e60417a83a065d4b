// Package gitlog lists first-parent history grouped by merged pull request.
package gitlog

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/nodech/hsd-tools/internal/errors"
)

// maxMembers caps how far a pull request's branch is followed.
const maxMembers = 500

var mergePattern = regexp.MustCompile(`^Merge pull request #(\d+) from (\S+)`)

// Commit is one commit in the listing.
type Commit struct {
	Hash    plumbing.Hash
	Subject string
	Author  string
}

// Short returns the abbreviated hash.
func (c Commit) Short() string {
	return c.Hash.String()[:7]
}

// Entry is a first-parent history item: a pull request merge with the
// commits it brought in, or a direct commit.
type Entry struct {
	Commit
	// PR is the pull request number, zero for direct commits.
	PR     int
	Branch string
	// Members are the commits reachable from the merged branch but not
	// from the merge base, newest first.
	Members []Commit
}

// Range limits the walk.
type Range struct {
	// From is excluded from the listing. Empty walks to the root or Limit.
	From string
	// To defaults to HEAD.
	To    string
	Limit int
}

// ParseRange parses "from..to". Either side may be empty; a bare revision
// is the end of the range, as with git log.
func ParseRange(s string) (Range, error) {
	if strings.Contains(s, "...") {
		return Range{}, errors.NewGitError("symmetric difference ranges are not supported", errors.ErrInvalidInput).
			WithRevision(s)
	}
	from, to, ok := strings.Cut(s, "..")
	if !ok {
		return Range{To: s}, nil
	}
	return Range{From: from, To: to}, nil
}

// Open opens the repository at dir.
func Open(dir string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, errors.NewGitError("not a git repository", errors.ErrNotGitRepository).WithRepository(dir)
		}
		return nil, errors.NewGitError("failed to open repository", err).WithRepository(dir)
	}
	return repo, nil
}

func resolve(repo *git.Repository, rev string) (*object.Commit, error) {
	if rev == "" {
		rev = "HEAD"
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, errors.NewGitError("failed to resolve revision", errors.Join(errors.ErrRevisionNotFound, err)).
			WithRevision(rev)
	}
	c, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, errors.NewGitError("failed to read commit", err).WithRevision(rev)
	}
	return c, nil
}

// Walk returns the first-parent history of r.To back to r.From.
func Walk(repo *git.Repository, r Range) ([]Entry, error) {
	head, err := resolve(repo, r.To)
	if err != nil {
		return nil, err
	}

	var stop plumbing.Hash
	if r.From != "" {
		from, err := resolve(repo, r.From)
		if err != nil {
			return nil, err
		}
		stop = from.Hash
	}

	var entries []Entry
	c := head
	for c != nil && c.Hash != stop {
		if r.Limit > 0 && len(entries) >= r.Limit {
			break
		}

		entry, err := describe(c)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)

		if c.NumParents() == 0 {
			break
		}
		if c, err = c.Parent(0); err != nil {
			return nil, errors.NewGitError("failed to read parent", err).WithRevision(entry.Hash.String())
		}
	}
	return entries, nil
}

func describe(c *object.Commit) (Entry, error) {
	entry := Entry{Commit: toCommit(c)}
	if c.NumParents() < 2 {
		return entry, nil
	}
	m := mergePattern.FindStringSubmatch(entry.Subject)
	if m == nil {
		return entry, nil
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return entry, nil
	}
	entry.PR = n
	entry.Branch = m[2]

	members, err := branchCommits(c)
	if err != nil {
		return Entry{}, err
	}
	entry.Members = members
	return entry, nil
}

// branchCommits follows the merged parent's first-parent chain down to the
// merge base of the two parents.
func branchCommits(merge *object.Commit) ([]Commit, error) {
	mainline, err := merge.Parent(0)
	if err != nil {
		return nil, errors.NewGitError("failed to read parent", err).WithRevision(merge.Hash.String())
	}
	branch, err := merge.Parent(1)
	if err != nil {
		return nil, errors.NewGitError("failed to read parent", err).WithRevision(merge.Hash.String())
	}

	bases, err := mainline.MergeBase(branch)
	if err != nil {
		return nil, errors.NewGitError("failed to compute merge base", err).WithRevision(merge.Hash.String())
	}
	base := make(map[plumbing.Hash]bool, len(bases))
	for _, b := range bases {
		base[b.Hash] = true
	}

	var out []Commit
	c := branch
	for c != nil && !base[c.Hash] && len(out) < maxMembers {
		out = append(out, toCommit(c))
		if c.NumParents() == 0 {
			break
		}
		parent, err := c.Parent(0)
		if err != nil {
			return nil, errors.NewGitError("failed to read parent", err).WithRevision(c.Hash.String())
		}
		c = parent
	}
	return out, nil
}

func toCommit(c *object.Commit) Commit {
	return Commit{Hash: c.Hash, Subject: subject(c.Message), Author: c.Author.Name}
}

func subject(message string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	return strings.TrimSpace(line)
}
