package h5link

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Capability metadata sources, in priority order:
//  1. libhdf5.settings — the configuration summary the HDF5 build
//     installs next to its libraries
//  2. H5pubconf.h — the generated feature-macro header under include/
//
// Both describe the same build; the settings file is preferred because
// it also names the high-level library and the artifact kinds.

// parseSettingsFile reads a libhdf5.settings file from disk.
func parseSettingsFile(path string) (*CapabilitySet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cs, err := parseSettings(f)
	if err != nil {
		return nil, &ProbeParseError{Path: path, Err: err}
	}
	cs.Source = path
	return cs, nil
}

// parseSettings parses the "key: value" summary format of
// libhdf5.settings. Section banners and unknown keys are ignored.
func parseSettings(r io.Reader) (*CapabilitySet, error) {
	cs := &CapabilitySet{}
	scanner := bufio.NewScanner(r)

	var sawVersion bool
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "=") {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "HDF5 Version":
			v, err := semver.NewVersion(normalizeVersion(value))
			if err != nil {
				return nil, fmt.Errorf("bad HDF5 Version %q: %w", value, err)
			}
			cs.Version = v
			sawVersion = true
		case "Parallel HDF5":
			cs.Parallel = settingsYes(value)
		case "Threadsafety":
			cs.Threadsafe = settingsYes(value)
		case "High-level library":
			cs.HighLevel = settingsYes(value)
		case "With deprecated public symbols":
			cs.DeprecatedSymbols = settingsYes(value)
		case "I/O filters (external)":
			cs.Deflate = strings.Contains(value, "deflate")
		case "Shared C Library", "Shared Libraries":
			cs.SharedLib = settingsYes(value)
		case "Static C Library", "Static Libraries":
			cs.StaticLib = settingsYes(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawVersion {
		return nil, fmt.Errorf("no HDF5 Version entry")
	}
	return cs, nil
}

func settingsYes(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "yes")
}

// normalizeVersion strips the suffixes HDF5 appends to release strings
// (e.g. "1.14.3-2" patch tags stay semver-legal, "1.8.16-snap1" does
// not) and trims surrounding noise.
func normalizeVersion(value string) string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "HDF5 ")
	if i := strings.IndexAny(value, " ,"); i >= 0 {
		value = value[:i]
	}
	if i := strings.Index(value, "-"); i >= 0 {
		value = value[:i]
	}
	return value
}

// parsePubconfFile reads capability macros from H5pubconf.h. The header
// does not record whether the high-level library was installed, so the
// caller fills HighLevel from the artifacts on disk.
func parsePubconfFile(path string) (*CapabilitySet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cs, err := parsePubconf(f)
	if err != nil {
		return nil, &ProbeParseError{Path: path, Err: err}
	}
	cs.Source = path
	return cs, nil
}

// parsePubconf parses #define lines from the generated feature header.
func parsePubconf(r io.Reader) (*CapabilitySet, error) {
	cs := &CapabilitySet{DeprecatedSymbols: true}
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "#define ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		name := fields[1]
		var value string
		if len(fields) >= 3 {
			value = fields[2]
		}

		switch name {
		case "H5_HAVE_PARALLEL":
			cs.Parallel = value == "1"
		case "H5_HAVE_THREADSAFE":
			cs.Threadsafe = value == "1"
		case "H5_HAVE_FILTER_DEFLATE":
			cs.Deflate = value == "1"
		case "H5_NO_DEPRECATED_SYMBOLS":
			cs.DeprecatedSymbols = value != "1"
		case "H5_VERSION":
			v, err := semver.NewVersion(normalizeVersion(strings.Trim(value, `"`)))
			if err != nil {
				return nil, fmt.Errorf("bad H5_VERSION %q: %w", value, err)
			}
			cs.Version = v
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if cs.Version == nil {
		return nil, fmt.Errorf("no H5_VERSION define")
	}
	return cs, nil
}
