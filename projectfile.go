package h5link

import (
	"fmt"
	"os"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

// ProjectFileName is the conventional name of the per-project
// configuration file, looked up in the working directory.
const ProjectFileName = "h5link.toml"

// ProjectFile pins a project's feature set and library location so
// builds reproduce without environment variables.
//
//	[features]
//	hl = true
//	zlib = true
//
//	[library]
//	dir = "/opt/hdf5-1.14.3"
//	version = "1.14.3"
type ProjectFile struct {
	Features map[string]bool `toml:"features"`
	Library  struct {
		Dir     string `toml:"dir"`
		Version string `toml:"version"`
	} `toml:"library"`
}

// LoadProjectFile reads and validates a project file. Unknown feature
// names fail with an *[UnknownFlagError].
func LoadProjectFile(path string) (*ProjectFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pf ProjectFile
	if err := toml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if _, err := pf.Flags(); err != nil {
		return nil, err
	}
	return &pf, nil
}

// Flags returns the enabled feature flags in declaration order.
func (pf *ProjectFile) Flags() ([]Flag, error) {
	known := make(map[string]Flag, len(flagNames))
	for f, name := range flagNames {
		known[name] = f
	}

	var flags []Flag
	for name, enabled := range pf.Features {
		f, ok := known[name]
		if !ok {
			return nil, &UnknownFlagError{Name: name}
		}
		if enabled {
			flags = append(flags, f)
		}
	}
	slices.Sort(flags)
	return flags, nil
}

// ProbeOptions translates the library section into probe options.
func (pf *ProjectFile) ProbeOptions() []ProbeOption {
	var opts []ProbeOption
	if pf.Library.Dir != "" {
		opts = append(opts, WithSearchPaths(pf.Library.Dir))
	}
	if pf.Library.Version != "" {
		opts = append(opts, WithVersion(pf.Library.Version))
	}
	return opts
}
