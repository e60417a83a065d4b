package npm

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/nodech/hsd-tools/internal/errors"
)

// Filter selects packages by name with glob patterns.
type Filter struct {
	only   []glob.Glob
	ignore []glob.Glob
}

// NewFilter compiles the patterns. An empty only list selects everything.
func NewFilter(only, ignore []string) (*Filter, error) {
	f := &Filter{}
	var err error
	if f.only, err = compile("only", only); err != nil {
		return nil, err
	}
	if f.ignore, err = compile("ignore", ignore); err != nil {
		return nil, err
	}
	return f, nil
}

func compile(field string, patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.NewConfigError(fmt.Sprintf("invalid pattern %q", p), err).WithField(field)
		}
		out = append(out, g)
	}
	return out, nil
}

// Match reports whether name is selected.
func (f *Filter) Match(name string) bool {
	if f == nil {
		return true
	}
	if len(f.only) > 0 && !matchAny(f.only, name) {
		return false
	}
	return !matchAny(f.ignore, name)
}

// Apply returns the selected dependencies in their original order.
func (f *Filter) Apply(deps []Dependency) []Dependency {
	out := deps[:0:0]
	for _, d := range deps {
		if f.Match(d.Name) {
			out = append(out, d)
		}
	}
	return out
}

func matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
