package h5link

import (
	"slices"

	"github.com/Masterminds/semver/v3"
)

// SupportedVersions is the native version range the shipped declaration
// tables are known to match. Anything outside it fails resolution with
// an *[ABIVersionError] rather than gambling on ABI drift.
var SupportedVersions = mustConstraint(">=1.8.4, <1.16.0")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// LinkMode says how the consuming program references the native library.
type LinkMode int

const (
	// LinkDynamic links against a discovered installed library.
	LinkDynamic LinkMode = iota
	// LinkStatic links the artifacts of a from-source build.
	LinkStatic
)

func (m LinkMode) String() string {
	switch m {
	case LinkDynamic:
		return "dynamic"
	case LinkStatic:
		return "static"
	default:
		return "unknown"
	}
}

// LinkagePlan is the resolved output of the whole pipeline: which
// symbol groups are declared available and how the final binary links
// against the native library. Computed once, never mutated afterward;
// consumed by declaration emission and by the linker directives.
type LinkagePlan struct {
	Mode    LinkMode
	Version *semver.Version

	// SymbolGroups are the symbol-group tags exposed to the consumer,
	// sorted. Always includes the core group.
	SymbolGroups []string

	// SearchPaths is the ordered -L search list.
	SearchPaths []string
	// IncludeDirs is the ordered -I search list.
	IncludeDirs []string
	// Libraries is the ordered -l link list.
	Libraries []string

	// ThreadsafeSatisfied records whether the threadsafe flag was
	// requested and verified, so the consumer knows whether it must
	// serialize calls itself.
	ThreadsafeSatisfied bool
}

// Resolve verifies the closed flag set against the native capability
// set and produces the linkage plan. It is a pure function of its two
// inputs: no environment is consulted.
//
// Every flag whose registry entry names a required capability must find
// that capability present, or resolution fails hard with a
// *[CapabilityMismatchError]. There is no partial or degraded linkage.
func Resolve(flags []Flag, caps *CapabilitySet) (*LinkagePlan, error) {
	closed, err := Close(flags...)
	if err != nil {
		return nil, err
	}

	static := slices.Contains(closed, FlagStatic)
	if static {
		// A source build provides exactly what was requested; keep the
		// probed version if the caller supplied one (post-build probe),
		// otherwise assume the bundled source version.
		version := DefaultSourceVersion
		if caps != nil && caps.Version != nil {
			version = caps.Version
		}
		synthetic := SyntheticCapabilities(closed, version)
		if caps != nil {
			synthetic.Prefix = caps.Prefix
			synthetic.LibDir = caps.LibDir
			synthetic.IncludeDir = caps.IncludeDir
		}
		caps = synthetic
	}
	if caps == nil {
		return nil, &LibraryNotFoundError{}
	}

	if caps.Version == nil || !SupportedVersions.Check(caps.Version) {
		return nil, &ABIVersionError{Version: caps.Version}
	}

	for _, req := range requiredCapabilities(closed) {
		if !caps.Has(req.capability) {
			return nil, &CapabilityMismatchError{
				Flag:    req.flag,
				Missing: req.capability,
				Version: caps.Version,
			}
		}
	}

	plan := &LinkagePlan{
		Version:             caps.Version,
		SymbolGroups:        symbolGroupsFor(closed),
		ThreadsafeSatisfied: slices.Contains(closed, FlagThreadsafe),
	}
	if static {
		plan.Mode = LinkStatic
	}
	if caps.LibDir != "" {
		plan.SearchPaths = []string{caps.LibDir}
	}
	if caps.IncludeDir != "" {
		plan.IncludeDirs = []string{caps.IncludeDir}
	}
	plan.Libraries = librariesFor(closed, static)
	return plan, nil
}

// symbolGroupsFor maps the closed flag set to its symbol-group tags,
// sorted, core always included.
func symbolGroupsFor(closed []Flag) []string {
	groups := []string{GroupCore}
	for _, f := range closed {
		if g := symbolGroupFor(f); g != "" {
			groups = append(groups, g)
		}
	}
	slices.Sort(groups)
	return groups
}

// librariesFor returns the ordered -l list. The high-level library must
// precede the core one so the static linker resolves its references;
// static linkage additionally pulls in zlib and the usual system libs
// the shared object would otherwise carry as DT_NEEDED.
func librariesFor(closed []Flag, static bool) []string {
	var libs []string
	if slices.Contains(closed, FlagHL) {
		libs = append(libs, "hdf5_hl")
	}
	libs = append(libs, "hdf5")
	if static {
		if slices.Contains(closed, FlagZlib) {
			libs = append(libs, "z")
		}
		libs = append(libs, "dl", "m")
	}
	return libs
}
