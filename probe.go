package h5link

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// Cache for Probe() results. An installed HDF5 does not change while a
// build runs, so we cache after the first probe to avoid repeated
// filesystem and pkg-config traffic.
var (
	cachedCaps *CapabilitySet
	cacheMu    sync.Mutex
	cacheErr   error
)

// probeConfig holds the configuration for a probe operation. The
// ambient environment is injected through it so the probe stays a pure
// function of its inputs and is testable with fake installations.
type probeConfig struct {
	env          func(string) string
	searchPaths  []string
	settingsPath string
	version      string
	pkgConfig    bool
	defaultPaths bool
	pkgConfigOut func(args ...string) (string, error)
}

// ProbeOption configures how the native library is located.
type ProbeOption func(*probeConfig)

// WithEnviron injects an environment lookup function. The default is
// os.Getenv; tests pass a map-backed lookup. The probe only ever reads
// the environment, never mutates it.
func WithEnviron(lookup func(string) string) ProbeOption {
	return func(c *probeConfig) {
		c.env = lookup
	}
}

// WithSearchPaths prepends installation prefixes to try before the
// well-known locations. The HDF5_DIR override still wins.
func WithSearchPaths(prefixes ...string) ProbeOption {
	return func(c *probeConfig) {
		c.searchPaths = append(c.searchPaths, prefixes...)
	}
}

// WithSettingsPath reads capability metadata from the given
// libhdf5.settings file instead of discovering an installation.
// This is primarily for testing.
func WithSettingsPath(path string) ProbeOption {
	return func(c *probeConfig) {
		c.settingsPath = path
	}
}

// WithVersion forces the resolved version, overriding whatever the
// metadata reports. Mirrors the HDF5_VERSION environment variable.
func WithVersion(version string) ProbeOption {
	return func(c *probeConfig) {
		c.version = version
	}
}

// WithoutPkgConfig disables the pkg-config query, leaving only the
// explicit override and the well-known search paths.
func WithoutPkgConfig() ProbeOption {
	return func(c *probeConfig) {
		c.pkgConfig = false
	}
}

// WithoutDefaultPaths disables the well-known installation prefixes,
// restricting discovery to explicit overrides. Used for hermetic
// resolution, e.g. right after a source build, and in tests.
func WithoutDefaultPaths() ProbeOption {
	return func(c *probeConfig) {
		c.defaultPaths = false
	}
}

// defaultPrefixes are the well-known installation prefixes, tried after
// HDF5_DIR, explicit search paths, and pkg-config.
func defaultPrefixes() []string {
	return []string{"/usr/local", "/usr", "/opt/homebrew", "/opt/local"}
}

// ProbeWith locates an installed native HDF5 library and extracts its
// version and compiled-in capabilities.
//
// Candidate locations are tried in priority order: the HDF5_DIR
// environment override, explicit search paths, the prefix reported by
// pkg-config, then the well-known prefixes. The first candidate with
// library artifacts wins; a candidate whose capability metadata cannot
// be parsed fails the probe rather than being skipped, because a
// half-understood installation must not silently shape the linkage.
func ProbeWith(opts ...ProbeOption) (*CapabilitySet, error) {
	cfg := &probeConfig{
		env:          os.Getenv,
		pkgConfig:    true,
		defaultPaths: true,
		pkgConfigOut: pkgConfigOutput,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.settingsPath != "" {
		cs, err := parseSettingsFile(cfg.settingsPath)
		if err != nil {
			return nil, err
		}
		return applyVersionOverride(cs, cfg)
	}

	var prefixes []string
	if dir := cfg.env("HDF5_DIR"); dir != "" {
		prefixes = append(prefixes, dir)
	}
	prefixes = append(prefixes, cfg.searchPaths...)
	if cfg.pkgConfig {
		if prefix := pkgConfigPrefix(cfg.pkgConfigOut); prefix != "" {
			prefixes = append(prefixes, prefix)
		}
	}
	if cfg.defaultPaths {
		prefixes = append(prefixes, defaultPrefixes()...)
	}

	var searched []string
	for _, prefix := range prefixes {
		cs, found, err := inspectPrefix(prefix)
		if err != nil {
			return nil, err
		}
		if !found {
			searched = append(searched, prefix)
			continue
		}
		return applyVersionOverride(cs, cfg)
	}

	return nil, &LibraryNotFoundError{Searched: searched}
}

// Probe locates the native library and caches the result. Subsequent
// calls return the cached result without re-probing. Use [ProbeNoCache]
// for fresh results, e.g. after installing a different HDF5.
func Probe() (*CapabilitySet, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cachedCaps != nil || cacheErr != nil {
		return cachedCaps, cacheErr
	}
	cachedCaps, cacheErr = ProbeWith()
	return cachedCaps, cacheErr
}

// ProbeNoCache locates the native library without using the cache.
func ProbeNoCache() (*CapabilitySet, error) {
	return ProbeWith()
}

// ResetCache clears cached probe results, forcing the next [Probe] call
// to re-probe. This is primarily useful for testing.
func ResetCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cachedCaps = nil
	cacheErr = nil
}

// inspectPrefix checks one installation prefix for HDF5 artifacts and
// parses its capability metadata. found=false means the prefix holds no
// HDF5 at all; an error means it holds one we cannot understand.
func inspectPrefix(prefix string) (cs *CapabilitySet, found bool, err error) {
	libDir, shared, static := findLibDir(prefix)
	if libDir == "" {
		return nil, false, nil
	}
	includeDir := findIncludeDir(prefix)

	settings := filepath.Join(libDir, "libhdf5.settings")
	if _, statErr := os.Stat(settings); statErr == nil {
		cs, err = parseSettingsFile(settings)
		if err != nil {
			return nil, false, err
		}
	} else if includeDir != "" {
		pubconf := filepath.Join(includeDir, "H5pubconf.h")
		if _, statErr := os.Stat(pubconf); statErr != nil {
			return nil, false, &ProbeParseError{Path: prefix, Err: statErr}
		}
		cs, err = parsePubconfFile(pubconf)
		if err != nil {
			return nil, false, err
		}
		// The feature header does not record the high-level library or
		// artifact kinds; read those off the filesystem.
		cs.HighLevel = hasLibArtifact(libDir, "libhdf5_hl")
		cs.SharedLib = shared
		cs.StaticLib = static
	} else {
		return nil, false, &ProbeParseError{Path: prefix, Err: os.ErrNotExist}
	}

	cs.Prefix = prefix
	cs.LibDir = libDir
	cs.IncludeDir = includeDir
	return cs, true, nil
}

// findLibDir returns the first library directory under prefix holding
// HDF5 artifacts, along with which artifact kinds are present.
func findLibDir(prefix string) (dir string, shared, static bool) {
	for _, name := range libDirNames() {
		candidate := filepath.Join(prefix, filepath.FromSlash(name))
		sh := hasSharedArtifact(candidate)
		st := fileExists(filepath.Join(candidate, "libhdf5.a"))
		if sh || st {
			return candidate, sh, st
		}
	}
	return "", false, false
}

// findIncludeDir returns the first header directory under prefix
// holding hdf5.h, or "".
func findIncludeDir(prefix string) string {
	for _, name := range includeDirNames() {
		candidate := filepath.Join(prefix, filepath.FromSlash(name))
		if fileExists(filepath.Join(candidate, "hdf5.h")) {
			return candidate
		}
	}
	return ""
}

// hasSharedArtifact matches versioned soname files as well as the
// plain link name.
func hasSharedArtifact(dir string) bool {
	for _, pattern := range []string{"libhdf5.so", "libhdf5.so.*", "libhdf5.dylib", "libhdf5.*.dylib"} {
		matches, _ := filepath.Glob(filepath.Join(dir, pattern))
		if len(matches) > 0 {
			return true
		}
	}
	return false
}

// hasLibArtifact reports whether any artifact for the given library
// stem exists in dir.
func hasLibArtifact(dir, stem string) bool {
	for _, pattern := range []string{stem + ".so*", stem + ".dylib", stem + ".a"} {
		matches, _ := filepath.Glob(filepath.Join(dir, pattern))
		if len(matches) > 0 {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// applyVersionOverride applies HDF5_VERSION (or WithVersion) on top of
// whatever the metadata reported.
func applyVersionOverride(cs *CapabilitySet, cfg *probeConfig) (*CapabilitySet, error) {
	forced := cfg.version
	if forced == "" && cfg.env != nil {
		forced = cfg.env("HDF5_VERSION")
	}
	if forced == "" {
		return cs, nil
	}
	v, err := semver.NewVersion(normalizeVersion(forced))
	if err != nil {
		return nil, &ProbeParseError{Path: "HDF5_VERSION", Err: err}
	}
	cs.Version = v
	return cs, nil
}

// pkgConfigPrefix asks pkg-config for the HDF5 installation prefix.
// Debian ships the serial build under a separate module name.
func pkgConfigPrefix(run func(args ...string) (string, error)) string {
	for _, module := range []string{"hdf5", "hdf5-serial"} {
		out, err := run("--variable=prefix", module)
		if err != nil {
			continue
		}
		if prefix := strings.TrimSpace(out); prefix != "" {
			return prefix
		}
	}
	return ""
}

func pkgConfigOutput(args ...string) (string, error) {
	out, err := exec.Command("pkg-config", args...).Output()
	return string(out), err
}
