// Package h5link resolves how a Go program links against the native
// HDF5 C library.
//
// The native library is treated as an opaque, versioned, capability-
// tagged dependency: a given installation was compiled with a fixed set
// of capabilities (parallel I/O, thread safety, the deflate filter,
// the high-level library, deprecated symbols) that cannot be altered
// after the fact. h5link decides, once per build, which symbol groups
// may be declared available and how the final binary links, and fails
// fast with actionable messages on any combination the discovered
// build cannot physically satisfy.
//
// # Pipeline
//
// Resolution is a single forward pass with no retries:
//
//	flags closed -> capabilities known -> plan resolved -> declarations emitted
//
// [Close] computes the transitive closure of the requested [Flag] set.
// [ProbeWith] discovers an installed library and its [CapabilitySet]
// (or [SourceBuild] builds one from source under the static flag).
// [Resolve] verifies every flag's required capability and produces the
// write-once [LinkagePlan]. [Emit] renders the cgo declarations and
// linker directives the plan selects. [Run] wires the stages together.
//
// # Quick resolution
//
//	caps, err := h5link.Probe()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	plan, err := h5link.Resolve([]h5link.Flag{h5link.FlagHL, h5link.FlagZlib}, caps)
//	if err != nil {
//	    var mismatch *h5link.CapabilityMismatchError
//	    if errors.As(err, &mismatch) {
//	        log.Fatalf("native build cannot satisfy %s: missing %s", mismatch.Flag, mismatch.Missing)
//	    }
//	    log.Fatal(err)
//	}
//	fmt.Println(plan) // human-readable summary
//
// # Discovery
//
// The probe consults, in order: the HDF5_DIR environment override,
// explicit [WithSearchPaths] prefixes, pkg-config, then well-known
// prefixes. Capability metadata comes from libhdf5.settings next to the
// libraries, falling back to the H5pubconf.h feature header. The
// HDF5_VERSION variable (or [WithVersion]) forces the version when the
// metadata is wrong or ambiguous. The environment is injected, never
// mutated, so resolution stays a pure function of (flags, capability
// set) and is testable against fabricated installations.
//
// # Thread safety of the linked library
//
// The threadsafe flag is a property of the wrapped native build, not of
// this package: when LinkagePlan.ThreadsafeSatisfied is false the
// consuming program must serialize every native call through a single
// lock itself. All declared entry points are blocking and synchronous.
//
// # Errors
//
// Every failure aborts resolution; none are locally recoverable,
// because each names an environment or configuration defect only an
// operator can fix. The taxonomy: [UnknownFlagError],
// [LibraryNotFoundError], [ProbeParseError], [CapabilityMismatchError],
// [NativeBuildFailedError], [ABIVersionError].
package h5link
