package gitlog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/nodech/hsd-tools/internal/errors"
	"github.com/nodech/hsd-tools/internal/event"
	"github.com/nodech/hsd-tools/internal/github"
	"github.com/nodech/hsd-tools/internal/testutil"
)

type history struct {
	repo            *testutil.Repo
	a, b1, b2, d, m plumbing.Hash
}

// newHistory builds:
//
//	A - D ------- M   (first parent)
//	 \           /
//	  B1 - B2 --'
func newHistory(t *testing.T) *history {
	t.Helper()
	h := &history{repo: testutil.SetupTestRepo(t)}
	h.a = h.repo.Commit("Initial commit")
	h.b1 = h.repo.Commit("feature: part one", h.a)
	h.b2 = h.repo.Commit("feature: part two", h.b1)
	h.d = h.repo.Commit("Fix typo in README", h.a)
	h.m = h.repo.Commit("Merge pull request #7 from user/feature\n\nAdd feature", h.d, h.b2)
	return h
}

func TestWalk_GroupsPullRequests(t *testing.T) {
	h := newHistory(t)
	repo, err := Open(h.repo.Dir)
	if err != nil {
		t.Fatal(err)
	}

	entries, err := Walk(repo, Range{})
	if err != nil {
		t.Fatalf("Walk() = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}

	merge := entries[0]
	if merge.Hash != h.m || merge.PR != 7 || merge.Branch != "user/feature" {
		t.Errorf("merge entry = %+v", merge)
	}
	if len(merge.Members) != 2 || merge.Members[0].Hash != h.b2 || merge.Members[1].Hash != h.b1 {
		t.Errorf("members = %+v, want [B2 B1]", merge.Members)
	}
	if merge.Subject != "Merge pull request #7 from user/feature" {
		t.Errorf("subject = %q", merge.Subject)
	}

	if entries[1].Hash != h.d || entries[1].PR != 0 {
		t.Errorf("entries[1] = %+v, want direct D", entries[1])
	}
	if entries[2].Hash != h.a {
		t.Errorf("entries[2] = %+v, want root", entries[2])
	}
}

func TestWalk_Range(t *testing.T) {
	h := newHistory(t)
	h.repo.Tag("v1.0.0", h.d)
	repo, err := Open(h.repo.Dir)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		r    Range
		want []plumbing.Hash
	}{
		{"from tag", Range{From: "v1.0.0"}, []plumbing.Hash{h.m}},
		{"limit", Range{Limit: 2}, []plumbing.Hash{h.m, h.d}},
		{"to", Range{To: "v1.0.0"}, []plumbing.Hash{h.d, h.a}},
		{"to branch tip", Range{From: h.a.String(), To: h.b2.String()}, []plumbing.Hash{h.b2, h.b1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := Walk(repo, tt.r)
			if err != nil {
				t.Fatalf("Walk() = %v", err)
			}
			var got []plumbing.Hash
			for _, e := range entries {
				got = append(got, e.Hash)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("entry %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWalk_UnknownRevision(t *testing.T) {
	h := newHistory(t)
	repo, err := Open(h.repo.Dir)
	if err != nil {
		t.Fatal(err)
	}

	_, err = Walk(repo, Range{From: "v9.9.9"})
	if !errors.Is(err, errors.ErrRevisionNotFound) {
		t.Errorf("Walk() = %v, want ErrRevisionNotFound", err)
	}
	var gitErr *errors.GitError
	if !errors.As(err, &gitErr) || gitErr.Revision != "v9.9.9" {
		t.Errorf("err = %#v, want GitError for v9.9.9", err)
	}
}

func TestOpen_NotARepository(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, errors.ErrNotGitRepository) {
		t.Errorf("Open() = %v, want ErrNotGitRepository", err)
	}
	if errors.ExitCode(err) != errors.ExitToolError {
		t.Errorf("ExitCode = %d, want %d", errors.ExitCode(err), errors.ExitToolError)
	}
}

func newGitHub(t *testing.T, requests *atomic.Int64) *github.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != "/repos/nodech/hsd/pulls/7" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"number":7,"title":"Add feature","merged":true,"user":{"login":"user"}}`))
	}))
	t.Cleanup(srv.Close)
	return github.NewClient(github.Config{API: srv.URL, Concurrency: 2})
}

func TestOperation_ResolvesPullRequests(t *testing.T) {
	tests := []struct {
		name   string
		slug   string
		remote string
	}{
		{"configured repository", "nodech/hsd", ""},
		{"origin remote", "", "git@github.com:nodech/hsd.git"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHistory(t)
			if tt.remote != "" {
				h.repo.AddRemote("origin", tt.remote)
			}
			var requests atomic.Int64
			op := &Operation{Dir: h.repo.Dir, Repo: tt.slug, GitHub: newGitHub(t, &requests)}
			rec := testutil.NewRecorder(t)

			if err := op.Run(context.Background(), rec.Reporter()); err != nil {
				t.Fatalf("Run() = %v", err)
			}

			task := rec.Task(TaskName)
			if task.Status != event.Done || task.Message != "1 pull request, 2 direct commits" {
				t.Errorf("task = %v %q", task.Status, task.Message)
			}
			step := rec.Step(TaskName, "#7")
			if step.Status != event.Done || step.Message != "Add feature" {
				t.Errorf("step = %v %q", step.Status, step.Message)
			}
			if requests.Load() != 1 {
				t.Errorf("requests = %d, want 1", requests.Load())
			}

			lines := rec.Lines()
			if len(lines) != 5 {
				t.Fatalf("output = %q", lines)
			}
			want := []string{
				h.m.String()[:7] + " #7 Add feature (@user)",
				"    " + h.b2.String()[:7] + " feature: part two",
				"    " + h.b1.String()[:7] + " feature: part one",
				h.d.String()[:7] + " Fix typo in README",
				h.a.String()[:7] + " Initial commit",
			}
			for i := range want {
				if lines[i] != want[i] {
					t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
				}
			}
		})
	}
}

func TestOperation_NoGitHubRepository(t *testing.T) {
	h := newHistory(t)
	var requests atomic.Int64
	op := &Operation{Dir: h.repo.Dir, GitHub: newGitHub(t, &requests)}
	rec := testutil.NewRecorder(t)

	if err := op.Run(context.Background(), rec.Reporter()); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if step := rec.Step(TaskName, "#7"); step.Status != event.Skipped {
		t.Errorf("step status = %v, want skipped", step.Status)
	}
	if requests.Load() != 0 {
		t.Errorf("requests = %d, want 0", requests.Load())
	}
	if out := rec.Output(); !strings.Contains(out, "#7 user/feature") {
		t.Errorf("output = %q, want branch name fallback", out)
	}
}

func TestOperation_MissingPullRequest(t *testing.T) {
	h := testutil.SetupTestRepo(t)
	base := h.Commit("Initial commit")
	side := h.Commit("work", base)
	main := h.Commit("mainline", base)
	h.Commit("Merge pull request #99 from user/gone", main, side)

	var requests atomic.Int64
	op := &Operation{Dir: h.Dir, Repo: "nodech/hsd", GitHub: newGitHub(t, &requests)}
	rec := testutil.NewRecorder(t)

	if err := op.Run(context.Background(), rec.Reporter()); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if step := rec.Step(TaskName, "#99"); step.Status != event.Skipped || step.Message != "no data" {
		t.Errorf("step = %v %q", step.Status, step.Message)
	}
}

func TestOperation_NotARepository(t *testing.T) {
	rec := testutil.NewRecorder(t)
	op := &Operation{Dir: t.TempDir()}

	err := op.Run(context.Background(), rec.Reporter())
	if !errors.Is(err, errors.ErrNotGitRepository) {
		t.Fatalf("Run() = %v", err)
	}
	if task := rec.Task(TaskName); task.Status != event.Failed {
		t.Errorf("task status = %v, want failed", task.Status)
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in   string
		want Range
	}{
		{"v1.0.0..v2.0.0", Range{From: "v1.0.0", To: "v2.0.0"}},
		{"v1.0.0..", Range{From: "v1.0.0"}},
		{"..main", Range{To: "main"}},
		{"main", Range{To: "main"}},
	}
	for _, tt := range tests {
		got, err := ParseRange(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseRange(%q) = (%+v, %v), want %+v", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseRange("a...b"); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("ParseRange(a...b) = %v, want ErrInvalidInput", err)
	}
}
