package h5link

import (
	"fmt"
	"slices"
	"strings"
)

// Flag is a build-time feature toggle. Each flag gates a symbol group
// and/or a link-time requirement against the native HDF5 library.
type Flag int

const (
	// FlagZlib exposes the deflate filter API (requires a native build
	// with the zlib filter compiled in).
	FlagZlib Flag = iota
	// FlagHL exposes the high-level convenience API (H5LT, H5DS).
	FlagHL
	// FlagThreadsafe requires a thread-safe native build and exposes the
	// H5TS mutex entry points.
	FlagThreadsafe
	// FlagMPIO exposes the MPI parallel I/O property APIs (requires a
	// native build configured with --enable-parallel).
	FlagMPIO
	// FlagDeprecated exposes the pre-1.8 compatibility symbols
	// (H5Dopen1 and friends).
	FlagDeprecated
	// FlagStatic builds the native library from source and links the
	// result statically instead of probing for an installed one.
	FlagStatic
)

var flagNames = map[Flag]string{
	FlagZlib:       "zlib",
	FlagHL:         "hl",
	FlagThreadsafe: "threadsafe",
	FlagMPIO:       "mpio",
	FlagDeprecated: "deprecated",
	FlagStatic:     "static",
}

func (f Flag) String() string {
	if name, ok := flagNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Flag(%d)", int(f))
}

// FlagValues returns all known flags in declaration order.
func FlagValues() []Flag {
	return []Flag{FlagZlib, FlagHL, FlagThreadsafe, FlagMPIO, FlagDeprecated, FlagStatic}
}

// FlagNames returns the names of all known flags in declaration order.
func FlagNames() []string {
	values := FlagValues()
	names := make([]string, 0, len(values))
	for _, f := range values {
		names = append(names, f.String())
	}
	return names
}

// flagSpec is a registry entry: the flags a flag pulls in transitively
// and the native capabilities it cannot work without.
type flagSpec struct {
	implies  []Flag
	requires []Capability
}

// registry is the static feature table. Immutable once defined: the
// closure and the resolver are pure functions over it.
//
// None of the six shipped flags implies another (the native library
// treats them as independent configure switches), but the closure
// mechanism handles implication so the table can grow entries that do.
var registry = map[Flag]flagSpec{
	FlagZlib:       {requires: []Capability{CapDeflate}},
	FlagHL:         {requires: []Capability{CapHighLevel}},
	FlagThreadsafe: {requires: []Capability{CapThreadsafe}},
	FlagMPIO:       {requires: []Capability{CapParallel}},
	FlagDeprecated: {requires: []Capability{CapDeprecated}},
	FlagStatic:     {},
}

// Close computes the transitive implication closure of the given flags.
// The result is deduplicated and sorted in declaration order; closing an
// already-closed set yields the same set.
func Close(flags ...Flag) ([]Flag, error) {
	return closeOver(registry, flags)
}

func closeOver(table map[Flag]flagSpec, flags []Flag) ([]Flag, error) {
	seen := make(map[Flag]struct{}, len(flags))
	queue := slices.Clone(flags)

	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]

		spec, ok := table[f]
		if !ok {
			return nil, &UnknownFlagError{Name: f.String()}
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		queue = append(queue, spec.implies...)
	}

	closed := make([]Flag, 0, len(seen))
	for f := range seen {
		closed = append(closed, f)
	}
	slices.Sort(closed)
	return closed, nil
}

// requiredCapabilities returns the capabilities the closed flag set
// cannot work without, deduplicated, in flag declaration order.
func requiredCapabilities(closed []Flag) []flagRequirement {
	var reqs []flagRequirement
	seen := make(map[Capability]struct{})
	for _, f := range closed {
		for _, c := range registry[f].requires {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			reqs = append(reqs, flagRequirement{flag: f, capability: c})
		}
	}
	return reqs
}

// flagRequirement ties a required capability back to the flag that
// demanded it, for mismatch reporting.
type flagRequirement struct {
	flag       Flag
	capability Capability
}

// ParseFlags parses a comma-separated list of flag names.
// Names are matched case-insensitively; whitespace around items is
// ignored. Unknown names fail with an *[UnknownFlagError].
func ParseFlags(input string) ([]Flag, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}

	byName := make(map[string]Flag, len(flagNames))
	for f, name := range flagNames {
		byName[name] = f
	}

	var flags []Flag
	for _, part := range strings.Split(input, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		f, ok := byName[name]
		if !ok {
			return nil, &UnknownFlagError{Name: name}
		}
		flags = append(flags, f)
	}
	return flags, nil
}

// symbolGroupFor maps a flag to the symbol group it gates, or "" for
// flags that only affect linkage (static).
func symbolGroupFor(f Flag) string {
	switch f {
	case FlagZlib:
		return GroupZlib
	case FlagHL:
		return GroupHL
	case FlagThreadsafe:
		return GroupThreadsafe
	case FlagMPIO:
		return GroupMPIO
	case FlagDeprecated:
		return GroupDeprecated
	default:
		return ""
	}
}

// flagForGroup is the inverse of symbolGroupFor; the core group maps to
// no flag.
func flagForGroup(group string) (Flag, bool) {
	switch group {
	case GroupZlib:
		return FlagZlib, true
	case GroupHL:
		return FlagHL, true
	case GroupThreadsafe:
		return FlagThreadsafe, true
	case GroupMPIO:
		return FlagMPIO, true
	case GroupDeprecated:
		return FlagDeprecated, true
	default:
		return 0, false
	}
}
