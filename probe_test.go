package h5link

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// fakeInstall fabricates an HDF5 installation prefix: library
// artifacts, headers, and a settings file.
func fakeInstall(t *testing.T, settings string) string {
	t.Helper()
	prefix := t.TempDir()

	libDir := filepath.Join(prefix, "lib")
	includeDir := filepath.Join(prefix, "include")
	for _, dir := range []string{libDir, includeDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, file := range []string{
		filepath.Join(libDir, "libhdf5.so"),
		filepath.Join(includeDir, "hdf5.h"),
	} {
		if err := os.WriteFile(file, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(libDir, "libhdf5.settings"), []byte(settings), 0o644); err != nil {
		t.Fatal(err)
	}
	return prefix
}

func noEnv(string) string { return "" }

func hermetic(opts ...ProbeOption) []ProbeOption {
	return append([]ProbeOption{
		WithEnviron(noEnv),
		WithoutPkgConfig(),
		WithoutDefaultPaths(),
	}, opts...)
}

func TestProbeWith_DiscoversFakeInstall(t *testing.T) {
	prefix := fakeInstall(t, sampleSettings)

	cs, err := ProbeWith(hermetic(WithSearchPaths(prefix))...)
	if err != nil {
		t.Fatalf("ProbeWith() error = %v", err)
	}

	if cs.Prefix != prefix {
		t.Errorf("Prefix = %q, want %q", cs.Prefix, prefix)
	}
	if cs.LibDir != filepath.Join(prefix, "lib") {
		t.Errorf("LibDir = %q", cs.LibDir)
	}
	if cs.IncludeDir != filepath.Join(prefix, "include") {
		t.Errorf("IncludeDir = %q", cs.IncludeDir)
	}
	if got := cs.Version.String(); got != "1.10.7" {
		t.Errorf("Version = %s, want 1.10.7", got)
	}
	if !cs.HighLevel || cs.Parallel {
		t.Errorf("capabilities = %+v, want high-level without parallel", cs)
	}
}

func TestProbeWith_HDF5DirOverrideWins(t *testing.T) {
	winner := fakeInstall(t, sampleSettings)
	loser := fakeInstall(t, "HDF5 Version: 1.14.3\n")

	env := func(key string) string {
		if key == "HDF5_DIR" {
			return winner
		}
		return ""
	}

	cs, err := ProbeWith(
		WithEnviron(env),
		WithoutPkgConfig(),
		WithoutDefaultPaths(),
		WithSearchPaths(loser),
	)
	if err != nil {
		t.Fatalf("ProbeWith() error = %v", err)
	}
	if cs.Prefix != winner {
		t.Errorf("Prefix = %q, want HDF5_DIR override %q", cs.Prefix, winner)
	}
}

func TestProbeWith_NoLibraryFound(t *testing.T) {
	empty := t.TempDir()

	_, err := ProbeWith(hermetic(WithSearchPaths(empty))...)

	var notFound *LibraryNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %v, want *LibraryNotFoundError", err)
	}
	if len(notFound.Searched) != 1 || notFound.Searched[0] != empty {
		t.Errorf("Searched = %v, want [%s]", notFound.Searched, empty)
	}
}

func TestProbeWith_VersionOverride(t *testing.T) {
	prefix := fakeInstall(t, sampleSettings)

	t.Run("via option", func(t *testing.T) {
		cs, err := ProbeWith(hermetic(WithSearchPaths(prefix), WithVersion("1.14.3"))...)
		if err != nil {
			t.Fatalf("ProbeWith() error = %v", err)
		}
		if got := cs.Version.String(); got != "1.14.3" {
			t.Errorf("Version = %s, want forced 1.14.3", got)
		}
	})

	t.Run("via environment", func(t *testing.T) {
		env := func(key string) string {
			if key == "HDF5_VERSION" {
				return "1.12.1"
			}
			return ""
		}
		cs, err := ProbeWith(
			WithEnviron(env),
			WithoutPkgConfig(),
			WithoutDefaultPaths(),
			WithSearchPaths(prefix),
		)
		if err != nil {
			t.Fatalf("ProbeWith() error = %v", err)
		}
		if got := cs.Version.String(); got != "1.12.1" {
			t.Errorf("Version = %s, want forced 1.12.1", got)
		}
	})

	t.Run("garbage override fails", func(t *testing.T) {
		_, err := ProbeWith(hermetic(WithSearchPaths(prefix), WithVersion("banana"))...)
		var parseErr *ProbeParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("error = %v, want *ProbeParseError", err)
		}
	})
}

func TestProbeWith_SettingsPathShortcut(t *testing.T) {
	path := writeTempFile(t, "libhdf5.settings", sampleSettings)

	cs, err := ProbeWith(hermetic(WithSettingsPath(path))...)
	if err != nil {
		t.Fatalf("ProbeWith() error = %v", err)
	}
	if cs.Source != path {
		t.Errorf("Source = %q, want %q", cs.Source, path)
	}
}

func TestProbeWith_PubconfFallback(t *testing.T) {
	prefix := t.TempDir()
	libDir := filepath.Join(prefix, "lib")
	includeDir := filepath.Join(prefix, "include")
	for _, dir := range []string{libDir, includeDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	// Static archive plus high-level library, no settings file.
	for _, file := range []string{
		filepath.Join(libDir, "libhdf5.a"),
		filepath.Join(libDir, "libhdf5_hl.a"),
		filepath.Join(includeDir, "hdf5.h"),
	} {
		if err := os.WriteFile(file, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	pubconf := "#define H5_HAVE_FILTER_DEFLATE 1\n#define H5_VERSION \"1.14.2\"\n"
	if err := os.WriteFile(filepath.Join(includeDir, "H5pubconf.h"), []byte(pubconf), 0o644); err != nil {
		t.Fatal(err)
	}

	cs, err := ProbeWith(hermetic(WithSearchPaths(prefix))...)
	if err != nil {
		t.Fatalf("ProbeWith() error = %v", err)
	}

	if got := cs.Version.String(); got != "1.14.2" {
		t.Errorf("Version = %s, want 1.14.2", got)
	}
	if !cs.Deflate {
		t.Error("Deflate = false, want true")
	}
	if !cs.HighLevel {
		t.Error("HighLevel = false, want true (libhdf5_hl.a present)")
	}
	if !cs.StaticLib || cs.SharedLib {
		t.Errorf("StaticLib = %v, SharedLib = %v, want static only", cs.StaticLib, cs.SharedLib)
	}
}

func TestProbeWith_ArtifactsWithoutMetadata(t *testing.T) {
	prefix := t.TempDir()
	libDir := filepath.Join(prefix, "lib")
	if err := os.MkdirAll(libDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(libDir, "libhdf5.so"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := ProbeWith(hermetic(WithSearchPaths(prefix))...)
	var parseErr *ProbeParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *ProbeParseError for metadata-less artifacts", err)
	}
}

func TestPkgConfigPrefix(t *testing.T) {
	t.Run("first module answers", func(t *testing.T) {
		run := func(args ...string) (string, error) {
			return "/opt/hdf5\n", nil
		}
		if got := pkgConfigPrefix(run); got != "/opt/hdf5" {
			t.Errorf("pkgConfigPrefix() = %q", got)
		}
	})

	t.Run("falls back to hdf5-serial", func(t *testing.T) {
		run := func(args ...string) (string, error) {
			if args[len(args)-1] == "hdf5" {
				return "", errors.New("not found")
			}
			return "/usr\n", nil
		}
		if got := pkgConfigPrefix(run); got != "/usr" {
			t.Errorf("pkgConfigPrefix() = %q", got)
		}
	})

	t.Run("nothing answers", func(t *testing.T) {
		run := func(args ...string) (string, error) {
			return "", errors.New("not found")
		}
		if got := pkgConfigPrefix(run); got != "" {
			t.Errorf("pkgConfigPrefix() = %q, want empty", got)
		}
	})
}

func TestProbeCache(t *testing.T) {
	ResetCache()
	t.Cleanup(ResetCache)

	first, firstErr := Probe()
	second, secondErr := Probe()

	if first != second || firstErr != secondErr {
		t.Error("Probe() did not return the cached result")
	}
}
