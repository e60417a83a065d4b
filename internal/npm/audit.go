package npm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/sourcegraph/conc"

	"github.com/nodech/hsd-tools/internal/event"
	"github.com/nodech/hsd-tools/internal/logging"
	"github.com/nodech/hsd-tools/internal/util"
)

// TaskName is the task the audit reports under.
const TaskName = "dependencies"

// Verdict is the outcome for one dependency.
type Verdict int

const (
	UpToDate Verdict = iota
	Outdated
	Unsupported
	NoData
)

// Result is the audit outcome for one dependency.
type Result struct {
	Dependency
	Latest  string
	Verdict Verdict
}

// Audit compares declared ranges against each package's latest release.
type Audit struct {
	Dir      string
	Registry *Client
	Only     []string
	Ignore   []string
	Logger   *logging.Logger
}

// Name implements orchestrator.Operation.
func (a *Audit) Name() string { return "deps" }

// Run implements orchestrator.Operation.
func (a *Audit) Run(ctx context.Context, r *event.Reporter) error {
	r.Task(TaskName, "reading "+ManifestFile)
	r.TaskStatus(TaskName, event.Running)

	m, err := ReadManifest(a.Dir)
	if err != nil {
		r.TaskStatus(TaskName, event.Failed, "no usable "+ManifestFile)
		return err
	}
	filter, err := NewFilter(a.Only, a.Ignore)
	if err != nil {
		r.TaskStatus(TaskName, event.Failed, "invalid filter")
		return err
	}

	deps := filter.Apply(m.Deps())
	for _, d := range deps {
		r.Step(TaskName, d.Name, d.Range)
	}
	r.Task(TaskName, "checking "+util.Plural(len(deps), "package"))
	a.Logger.WithOperation(a.Name()).WithTask(TaskName).Debug("auditing dependencies", "manifest", m.Name, "packages", len(deps))

	results := make([]Result, len(deps))
	var wg conc.WaitGroup
	for i, d := range deps {
		wg.Go(func() {
			results[i] = a.check(ctx, r, d)
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	var counts [NoData + 1]int
	for _, res := range results {
		counts[res.Verdict]++
		if line := report(res); line != "" {
			r.Out(line)
		}
	}
	summary := fmt.Sprintf("%d up to date, %d outdated, %d skipped",
		counts[UpToDate], counts[Outdated], counts[Unsupported]+counts[NoData])
	r.Out(util.Plural(len(results), "package") + ": " + summary)
	r.TaskStatus(TaskName, event.Done, summary)
	return nil
}

func (a *Audit) check(ctx context.Context, r *event.Reporter, d Dependency) Result {
	res := Result{Dependency: d}
	r.StepStatus(TaskName, d.Name, event.Running)

	constraint, err := semver.NewConstraint(d.Range)
	if err != nil {
		res.Verdict = Unsupported
		r.StepStatus(TaskName, d.Name, event.Skipped, "unsupported range")
		return res
	}

	pkg, _ := a.Registry.Package(ctx, d.Name)
	if pkg == nil || pkg.Latest() == "" {
		res.Verdict = NoData
		r.StepStatus(TaskName, d.Name, event.Skipped, "no registry data")
		return res
	}
	res.Latest = pkg.Latest()

	latest, err := semver.NewVersion(res.Latest)
	if err != nil {
		res.Verdict = NoData
		r.StepStatus(TaskName, d.Name, event.Skipped, "no registry data")
		return res
	}

	if constraint.Check(latest) {
		r.StepStatus(TaskName, d.Name, event.Done, fmt.Sprintf("up to date (%s)", res.Latest))
		return res
	}
	res.Verdict = Outdated
	r.StepStatus(TaskName, d.Name, event.Failed, fmt.Sprintf("outdated: want %s, latest %s", d.Range, res.Latest))
	return res
}

// report renders outdated and skipped packages; up to date ones are quiet.
func report(res Result) string {
	var b strings.Builder
	switch res.Verdict {
	case Outdated:
		fmt.Fprintf(&b, "%s %s -> %s", res.Name, res.Range, res.Latest)
	case Unsupported:
		fmt.Fprintf(&b, "%s %s (unsupported range)", res.Name, res.Range)
	case NoData:
		fmt.Fprintf(&b, "%s %s (no registry data)", res.Name, res.Range)
	default:
		return ""
	}
	if res.Kind != KindProd {
		fmt.Fprintf(&b, " [%s]", res.Kind)
	}
	return b.String()
}
