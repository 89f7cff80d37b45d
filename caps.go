package h5link

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Capability is a compile-time feature of the native HDF5 build. A
// capability cannot be altered after the native library was built; it
// can only be discovered (dynamic linkage) or chosen up front (source
// build).
type Capability int

const (
	// CapParallel means the native build was configured with
	// --enable-parallel (MPI I/O drivers present).
	CapParallel Capability = iota
	// CapThreadsafe means the native build serializes its internals and
	// is safe to call from multiple threads.
	CapThreadsafe
	// CapDeflate means the zlib deflate filter was compiled in.
	CapDeflate
	// CapHighLevel means the high-level convenience library
	// (libhdf5_hl) was built and installed.
	CapHighLevel
	// CapDeprecated means the pre-1.8 compatibility symbols were not
	// compiled out (H5_NO_DEPRECATED_SYMBOLS unset).
	CapDeprecated
)

var capabilityNames = map[Capability]string{
	CapParallel:   "parallel",
	CapThreadsafe: "threadsafe",
	CapDeflate:    "deflate",
	CapHighLevel:  "high-level",
	CapDeprecated: "deprecated-symbols",
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Capability(%d)", int(c))
}

// CapabilitySet describes one discovered (or to-be-built) native HDF5
// instance: its version, where it lives, and which capabilities were
// compiled into it. Discovered once per resolution, read-only afterward.
type CapabilitySet struct {
	// Version is the native library version, e.g. 1.14.3.
	Version *semver.Version

	// Prefix is the installation prefix the instance was found under.
	Prefix string
	// IncludeDir holds hdf5.h (and H5pubconf.h).
	IncludeDir string
	// LibDir holds the library artifacts and, usually, libhdf5.settings.
	LibDir string
	// Source is the metadata file capabilities were parsed from, kept
	// for diagnostics.
	Source string

	Parallel          bool
	Threadsafe        bool
	Deflate           bool
	HighLevel         bool
	DeprecatedSymbols bool

	// SharedLib / StaticLib report which artifact kinds the build
	// produced.
	SharedLib bool
	StaticLib bool
}

// Has reports whether the capability was compiled into this instance.
func (cs *CapabilitySet) Has(c Capability) bool {
	switch c {
	case CapParallel:
		return cs.Parallel
	case CapThreadsafe:
		return cs.Threadsafe
	case CapDeflate:
		return cs.Deflate
	case CapHighLevel:
		return cs.HighLevel
	case CapDeprecated:
		return cs.DeprecatedSymbols
	default:
		return false
	}
}

// SyntheticCapabilities builds the capability set a source build
// configured from the closed flag set will produce. No probing is
// involved: under static linkage the build is configured to provide
// exactly what was requested, so the two match by construction and no
// silent downgrade can occur.
func SyntheticCapabilities(closed []Flag, version *semver.Version) *CapabilitySet {
	cs := &CapabilitySet{
		Version:   version,
		StaticLib: true,
	}
	for _, req := range requiredCapabilities(closed) {
		switch req.capability {
		case CapParallel:
			cs.Parallel = true
		case CapThreadsafe:
			cs.Threadsafe = true
		case CapDeflate:
			cs.Deflate = true
		case CapHighLevel:
			cs.HighLevel = true
		case CapDeprecated:
			cs.DeprecatedSymbols = true
		}
	}
	return cs
}
