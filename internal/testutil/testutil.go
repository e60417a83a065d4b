// Package testutil provides testing utilities for hs-tools tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo is a temporary git repository built commit by commit.
type Repo struct {
	Dir  string
	Repo *git.Repository

	t    *testing.T
	when time.Time
}

// SetupTestRepo creates an empty git repository in a temporary directory.
// The repository is automatically cleaned up when the test completes.
func SetupTestRepo(t *testing.T) *Repo {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init git repo: %v", err)
	}
	return &Repo{
		Dir:  dir,
		Repo: repo,
		t:    t,
		when: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Commit records a commit with the given parents. With no parents the
// current HEAD is used, or a root commit is made in an empty repository.
// HEAD is moved to the new commit.
func (r *Repo) Commit(message string, parents ...plumbing.Hash) plumbing.Hash {
	r.t.Helper()

	wt, err := r.Repo.Worktree()
	if err != nil {
		r.t.Fatalf("failed to open worktree: %v", err)
	}

	// One file per commit keeps every commit non-empty.
	name := filepath.Join(r.Dir, "log.txt")
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		r.t.Fatalf("failed to open %s: %v", name, err)
	}
	if _, err := f.WriteString(message + "\n"); err != nil {
		f.Close()
		r.t.Fatalf("failed to write %s: %v", name, err)
	}
	f.Close()
	if _, err := wt.Add("log.txt"); err != nil {
		r.t.Fatalf("failed to stage log.txt: %v", err)
	}

	r.when = r.when.Add(time.Minute)
	sig := &object.Signature{Name: "hs-tools Test", Email: "test@hs-tools.dev", When: r.when}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author:    sig,
		Committer: sig,
		Parents:   parents,
	})
	if err != nil {
		r.t.Fatalf("failed to commit %q: %v", message, err)
	}
	return hash
}

// AddRemote registers a remote with a single URL.
func (r *Repo) AddRemote(name, url string) {
	r.t.Helper()
	if _, err := r.Repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}}); err != nil {
		r.t.Fatalf("failed to add remote %s: %v", name, err)
	}
}

// Tag creates a lightweight tag at hash.
func (r *Repo) Tag(name string, hash plumbing.Hash) {
	r.t.Helper()
	if _, err := r.Repo.CreateTag(name, hash, nil); err != nil {
		r.t.Fatalf("failed to create tag %s: %v", name, err)
	}
}

// WriteFile writes content to a path relative to dir, creating parents.
func WriteFile(t *testing.T, dir, path, content string) {
	t.Helper()

	fullPath := filepath.Join(dir, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
}
