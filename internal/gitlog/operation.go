package gitlog

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/sourcegraph/conc"

	"github.com/nodech/hsd-tools/internal/errors"
	"github.com/nodech/hsd-tools/internal/event"
	"github.com/nodech/hsd-tools/internal/github"
	"github.com/nodech/hsd-tools/internal/logging"
	"github.com/nodech/hsd-tools/internal/util"
)

// TaskName is the task the operation reports under.
const TaskName = "git-log"

// Operation lists first-parent history with each merged pull request
// resolved against GitHub.
type Operation struct {
	Dir   string
	Range Range
	// Repo is an "owner/name" slug. Empty falls back to the origin remote.
	Repo   string
	GitHub *github.Client
	Logger *logging.Logger
}

// Name implements orchestrator.Operation.
func (o *Operation) Name() string { return "git-log" }

// Run implements orchestrator.Operation.
func (o *Operation) Run(ctx context.Context, r *event.Reporter) error {
	logger := o.Logger.WithOperation(o.Name())

	r.Task(TaskName, "reading history")
	r.TaskStatus(TaskName, event.Running)

	repo, err := Open(o.Dir)
	if err != nil {
		r.TaskStatus(TaskName, event.Failed, "not a git repository")
		return err
	}
	entries, err := Walk(repo, o.Range)
	if err != nil {
		r.TaskStatus(TaskName, event.Failed, "could not read history")
		return err
	}

	var prs []int
	for i, e := range entries {
		if e.PR == 0 {
			continue
		}
		prs = append(prs, i)
		r.Step(TaskName, stepName(e.PR), e.Branch)
	}

	pulls := make([]*github.Pull, len(entries))
	gh, ok := o.githubRepo(repo)
	switch {
	case len(prs) == 0:
	case !ok || o.GitHub == nil:
		logger.Info("pull request lookups skipped", "reason", "no GitHub repository")
		for _, i := range prs {
			r.StepStatus(TaskName, stepName(entries[i].PR), event.Skipped, "no GitHub repository")
		}
	default:
		r.Task(TaskName, fmt.Sprintf("looking up %s in %s", util.Plural(len(prs), "pull request"), gh))
		var wg conc.WaitGroup
		for _, i := range prs {
			wg.Go(func() {
				pulls[i] = o.lookup(ctx, r, gh, entries[i].PR)
			})
		}
		wg.Wait()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	direct := 0
	for i, e := range entries {
		if e.PR == 0 {
			direct++
		}
		for _, line := range format(e, pulls[i]) {
			r.Out(line)
		}
	}

	r.TaskStatus(TaskName, event.Done, fmt.Sprintf("%s, %s",
		util.Plural(len(prs), "pull request"), util.Plural(direct, "direct commit")))
	return nil
}

func (o *Operation) lookup(ctx context.Context, r *event.Reporter, gh github.Repo, n int) *github.Pull {
	step := stepName(n)
	r.StepStatus(TaskName, step, event.Running)

	pull, cached := o.GitHub.Pull(ctx, gh, n)
	switch {
	case pull == nil:
		r.StepStatus(TaskName, step, event.Skipped, "no data")
	case cached:
		r.StepStatus(TaskName, step, event.Done, pull.Title+" (cached)")
	default:
		r.StepStatus(TaskName, step, event.Done, pull.Title)
	}
	return pull
}

// githubRepo picks the configured slug, then the origin remote.
func (o *Operation) githubRepo(repo *git.Repository) (github.Repo, bool) {
	if o.Repo != "" {
		gh, err := github.ParseRepo(o.Repo)
		if err != nil {
			o.Logger.Warn("ignoring github.repo", "error", err.Error())
			return github.Repo{}, false
		}
		return gh, true
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		o.Logger.Debug("origin remote missing", "error", errors.Join(errors.ErrNoRemote, err).Error())
		return github.Repo{}, false
	}
	for _, url := range remote.Config().URLs {
		if gh, ok := github.RepoFromRemote(url); ok {
			return gh, true
		}
	}
	return github.Repo{}, false
}

func stepName(n int) string {
	return fmt.Sprintf("#%d", n)
}

func format(e Entry, pull *github.Pull) []string {
	if e.PR == 0 {
		return []string{fmt.Sprintf("%s %s", e.Short(), e.Subject)}
	}

	title := e.Branch
	if pull != nil {
		title = pull.Title
		if pull.User.Login != "" {
			title += " (@" + pull.User.Login + ")"
		}
	}
	lines := []string{fmt.Sprintf("%s #%d %s", e.Short(), e.PR, title)}
	for _, m := range e.Members {
		lines = append(lines, fmt.Sprintf("    %s %s", m.Short(), m.Subject))
	}
	return lines
}
