package h5link

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
)

// DefaultSourceVersion is the HDF5 release the source-build path is
// written against, assumed when nothing more specific is known.
var DefaultSourceVersion = semver.MustParse("1.14.6")

const defaultLogTail = 40

// BuildConfig drives a from-source native build under the static flag.
type BuildConfig struct {
	// SourceDir is the unpacked HDF5 source tree (holds ./configure).
	SourceDir string
	// InstallDir is the installation prefix for the built artifacts.
	InstallDir string
	// Flags is the requested feature set; it is closed before
	// configure arguments are synthesized.
	Flags []Flag

	// Env holds extra environment entries (CC=..., CFLAGS=...) passed
	// through to the native build system.
	Env []string
	// Logger receives build progress; nil discards it.
	Logger *log.Logger

	// Make overrides the make program. Primarily for testing.
	Make string
	// LogTailLines bounds how much build output a failure carries.
	// Zero means the default.
	LogTailLines int
}

// StaticBaselineArgs are the configure arguments every static build
// gets regardless of feature flags.
func StaticBaselineArgs() []string {
	return []string{"--disable-shared", "--enable-static", "--enable-build-mode=production"}
}

// ConfigureArgs synthesizes the feature-dependent configure arguments
// from the closed flag set, 1:1 with the registry entries. hl and
// deprecated always appear in either their enable or disable form
// because the native defaults differ from ours; parallel, threadsafe
// and zlib are additive. The static flag itself contributes nothing
// here (it selects this path and the baseline arguments).
func ConfigureArgs(flags []Flag) []string {
	has := func(want Flag) bool {
		for _, f := range flags {
			if f == want {
				return true
			}
		}
		return false
	}

	var args []string
	if has(FlagZlib) {
		args = append(args, "--with-zlib")
	}
	if has(FlagHL) {
		args = append(args, "--enable-hl")
	} else {
		args = append(args, "--disable-hl")
	}
	if has(FlagThreadsafe) {
		args = append(args, "--enable-threadsafe", "--enable-unsupported")
	}
	if has(FlagMPIO) {
		args = append(args, "--enable-parallel")
	}
	if has(FlagDeprecated) {
		args = append(args, "--enable-deprecated-symbols")
	} else {
		args = append(args, "--disable-deprecated-symbols")
	}
	return args
}

// SourceBuild runs the native library's own build system with
// configure arguments synthesized from the flag set, then probes the
// install prefix and verifies the build actually produced every
// requested capability. Build failures surface verbatim as a
// *[NativeBuildFailedError]; nothing is retried, since rerunning an
// identical build in an identical environment fails identically.
func SourceBuild(ctx context.Context, cfg BuildConfig) (*CapabilitySet, error) {
	closed, err := Close(cfg.Flags...)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	tailLines := cfg.LogTailLines
	if tailLines <= 0 {
		tailLines = defaultLogTail
	}
	tail := newTailBuffer(tailLines)

	installDir, err := filepath.Abs(cfg.InstallDir)
	if err != nil {
		return nil, err
	}

	configure := filepath.Join(cfg.SourceDir, "configure")
	configureArgs := []string{"--prefix=" + installDir}
	configureArgs = append(configureArgs, StaticBaselineArgs()...)
	configureArgs = append(configureArgs, ConfigureArgs(closed)...)

	makeProgram := cfg.Make
	if makeProgram == "" {
		makeProgram = "make"
	}

	steps := []struct {
		name string
		cmd  string
		args []string
	}{
		{"configure", configure, configureArgs},
		{"make", makeProgram, []string{"-j" + strconv.Itoa(runtime.NumCPU())}},
		{"make install", makeProgram, []string{"install"}},
	}
	for _, step := range steps {
		logger.Info("native build step", "step", step.name, "args", strings.Join(step.args, " "))
		if err := runBuildStep(ctx, tail, cfg.SourceDir, cfg.Env, step.name, step.cmd, step.args); err != nil {
			return nil, err
		}
	}

	// The freshly installed prefix is the only search path; the ambient
	// environment must not leak into a hermetic build.
	caps, err := ProbeWith(
		WithSearchPaths(installDir),
		WithoutPkgConfig(),
		WithoutDefaultPaths(),
		WithEnviron(func(string) string { return "" }),
	)
	if err != nil {
		return nil, err
	}

	// No silent downgrade: the built library must provide exactly the
	// requested capability set.
	for _, req := range requiredCapabilities(closed) {
		if !caps.Has(req.capability) {
			return nil, &CapabilityMismatchError{
				Flag:    req.flag,
				Missing: req.capability,
				Version: caps.Version,
			}
		}
	}

	logger.Info("native build complete", "prefix", installDir, "version", caps.Version)
	return caps, nil
}

func runBuildStep(ctx context.Context, tail *tailBuffer, dir string, env []string, name, program string, args []string) error {
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = tail
	cmd.Stderr = tail

	err := cmd.Run()
	if err == nil {
		return nil
	}

	status := -1
	if exitErr, ok := err.(*exec.ExitError); ok {
		status = exitErr.ExitCode()
	}
	return &NativeBuildFailedError{
		Step:       name,
		ExitStatus: status,
		LogTail:    tail.Lines(),
	}
}

// tailBuffer keeps the last n lines written to it. configure and make
// are chatty; only the tail is useful in a failure report.
type tailBuffer struct {
	mu      sync.Mutex
	n       int
	lines   []string
	partial strings.Builder
}

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{n: n}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, b := range p {
		if b == '\n' {
			t.push(t.partial.String())
			t.partial.Reset()
			continue
		}
		t.partial.WriteByte(b)
	}
	return len(p), nil
}

func (t *tailBuffer) push(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.n {
		t.lines = t.lines[len(t.lines)-t.n:]
	}
}

// Lines returns the retained tail, including any unterminated final
// line.
func (t *tailBuffer) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	lines := make([]string, len(t.lines), len(t.lines)+1)
	copy(lines, t.lines)
	if t.partial.Len() > 0 {
		lines = append(lines, t.partial.String())
	}
	return lines
}
