// Package npm reads package.json manifests and audits their dependencies
// against the npm registry.
package npm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/nodech/hsd-tools/internal/errors"
)

// ManifestFile is the manifest looked up in the working directory.
const ManifestFile = "package.json"

// Kind is the manifest section a dependency was declared in.
type Kind string

const (
	KindProd     Kind = "dependencies"
	KindDev      Kind = "devDependencies"
	KindOptional Kind = "optionalDependencies"
)

// Manifest is the subset of package.json hs-tools reads.
type Manifest struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// Dependency is one declared package.
type Dependency struct {
	Name  string
	Range string
	Kind  Kind
}

// ReadManifest parses <dir>/package.json.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewConfigError("no package.json in "+dir, errors.ErrInvalidInput).WithField("workdir")
		}
		return nil, errors.NewConfigError("failed to read "+path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.NewConfigError("failed to parse "+path, err)
	}
	return &m, nil
}

// Deps returns every declared dependency sorted by name. A package declared
// in several sections is reported once, preferring dependencies over
// optionalDependencies over devDependencies.
func (m *Manifest) Deps() []Dependency {
	seen := make(map[string]Dependency)
	for _, section := range []struct {
		kind Kind
		deps map[string]string
	}{
		{KindDev, m.DevDependencies},
		{KindOptional, m.OptionalDependencies},
		{KindProd, m.Dependencies},
	} {
		for name, rng := range section.deps {
			seen[name] = Dependency{Name: name, Range: rng, Kind: section.kind}
		}
	}

	out := make([]Dependency, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
