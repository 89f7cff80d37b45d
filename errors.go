package h5link

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// UnknownFlagError is returned when a feature flag name is not in the
// registry.
type UnknownFlagError struct {
	Name string
}

func (e *UnknownFlagError) Error() string {
	return fmt.Sprintf("unknown feature flag %q (available: %s)", e.Name, strings.Join(FlagNames(), ", "))
}

// LibraryNotFoundError is returned when no native HDF5 installation
// could be located and the static flag was not set.
type LibraryNotFoundError struct {
	// Searched lists every location that was inspected, in probe order.
	Searched []string
}

func (e *LibraryNotFoundError) Error() string {
	if len(e.Searched) == 0 {
		return "no native HDF5 library found; set HDF5_DIR or enable the static flag"
	}
	return fmt.Sprintf("no native HDF5 library found (searched: %s); set HDF5_DIR or enable the static flag",
		strings.Join(e.Searched, ", "))
}

// ProbeParseError is returned when an installation was located but its
// capability metadata could not be parsed.
type ProbeParseError struct {
	Path string
	Err  error
}

func (e *ProbeParseError) Error() string {
	return fmt.Sprintf("cannot parse HDF5 capability metadata %s: %v", e.Path, e.Err)
}

func (e *ProbeParseError) Unwrap() error {
	return e.Err
}

// CapabilityMismatchError is returned when a requested flag needs a
// capability the discovered native build was compiled without. This is
// a hard failure: declaring gated entry points against a library that
// lacks them is undefined behavior at the FFI boundary, not a
// degradable condition.
type CapabilityMismatchError struct {
	Flag    Flag
	Missing Capability
	// Version of the discovered library, for the message; may be nil.
	Version *semver.Version
}

func (e *CapabilityMismatchError) Error() string {
	lib := "the discovered library"
	if e.Version != nil {
		lib = fmt.Sprintf("the discovered library (%s)", e.Version)
	}
	return fmt.Sprintf("feature %q requires a native build with %s support, but %s was compiled without it; %s",
		e.Flag, e.Missing, lib, capabilityRemedy(e.Missing))
}

// capabilityRemedy names the configure switch that fixes a missing
// capability, so the message is actionable without reading this layer.
func capabilityRemedy(c Capability) string {
	switch c {
	case CapParallel:
		return "rebuild HDF5 with --enable-parallel or drop the mpio flag"
	case CapThreadsafe:
		return "rebuild HDF5 with --enable-threadsafe or drop the threadsafe flag"
	case CapDeflate:
		return "rebuild HDF5 with --with-zlib or drop the zlib flag"
	case CapHighLevel:
		return "rebuild HDF5 with --enable-hl or drop the hl flag"
	case CapDeprecated:
		return "rebuild HDF5 with --enable-deprecated-symbols or drop the deprecated flag"
	default:
		return "point HDF5_DIR at a build that provides it"
	}
}

// ABIVersionError is returned when the resolved native version falls
// outside the range the shipped declaration tables are known to match.
type ABIVersionError struct {
	Version *semver.Version
}

func (e *ABIVersionError) Error() string {
	return fmt.Sprintf("HDF5 version %s is outside the supported range %s", e.Version, SupportedVersions)
}

// NativeBuildFailedError surfaces a failed native source build
// verbatim: the step that failed, its exit status, and the tail of the
// build log. Nothing is reinterpreted.
type NativeBuildFailedError struct {
	Step       string
	ExitStatus int
	LogTail    []string
}

func (e *NativeBuildFailedError) Error() string {
	msg := fmt.Sprintf("native HDF5 build failed at %q (exit status %d)", e.Step, e.ExitStatus)
	if len(e.LogTail) > 0 {
		msg += ":\n" + strings.Join(e.LogTail, "\n")
	}
	return msg
}
